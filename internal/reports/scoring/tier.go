package scoring

import "report-backend/internal/reports/assessment"

// PriorityTier labels how urgently a dimension needs action.
type PriorityTier struct {
	Label          string `json:"label"`
	StyleToken     string `json:"styleToken"`
	Recommendation string `json:"recommendation"`
	Bracket        int    `json:"bracket"`
}

var (
	TierMaintain       = PriorityTier{Label: "Maintain", StyleToken: "maintain", Recommendation: "Sustain current practices", Bracket: 0}
	TierOptimize       = PriorityTier{Label: "Optimize", StyleToken: "optimize", Recommendation: "Fine-tune for excellence", Bracket: 1}
	TierMediumPriority = PriorityTier{Label: "Medium Priority", StyleToken: "medium", Recommendation: "Schedule improvements this quarter", Bracket: 2}
	TierHighPriority   = PriorityTier{Label: "High Priority", StyleToken: "high", Recommendation: "Address within 30–60 days", Bracket: 3}
	TierUrgent         = PriorityTier{Label: "Urgent", StyleToken: "urgent", Recommendation: "Act immediately", Bracket: 4}
)

type tierRow struct {
	min  float64
	tier PriorityTier
}

var priorityTiers = []tierRow{
	{min: 80, tier: TierMaintain},
	{min: 70, tier: TierOptimize},
	{min: 60, tier: TierMediumPriority},
	{min: 40, tier: TierHighPriority},
}

// ClassifyPriorityTier returns the action tier for score.
func ClassifyPriorityTier(score float64) PriorityTier {
	for _, row := range priorityTiers {
		if score >= row.min {
			return row.tier
		}
	}
	return TierUrgent
}

var escalation = map[string]PriorityTier{
	TierMaintain.Label:       TierOptimize,
	TierOptimize.Label:       TierMediumPriority,
	TierMediumPriority.Label: TierHighPriority,
	TierHighPriority.Label:   TierUrgent,
	TierUrgent.Label:         TierUrgent,
}

// Escalate returns the next more severe tier. Urgent is terminal.
func (t PriorityTier) Escalate() PriorityTier {
	if next, ok := escalation[t.Label]; ok {
		return next
	}
	return t
}

// Dimension is one scored category considered for priority bumps.
type Dimension struct {
	Code           assessment.CategoryCode
	Score          float64
	GapToBenchmark float64
}

// ApplyPriorityBumps escalates the lowest-scoring dimension by one tier, then
// the dimension with the largest gap to benchmark by one tier. When both rules
// pick the same dimension the gap bump is skipped rather than moved to the
// runner-up. Ties go to the first dimension in input order.
//
// tiers is modified in place and returned.
func ApplyPriorityBumps(dims []Dimension, tiers map[assessment.CategoryCode]PriorityTier) map[assessment.CategoryCode]PriorityTier {
	if len(dims) == 0 || tiers == nil {
		return tiers
	}

	lowest := 0
	widest := 0
	for i := 1; i < len(dims); i++ {
		if dims[i].Score < dims[lowest].Score {
			lowest = i
		}
		if dims[i].GapToBenchmark > dims[widest].GapToBenchmark {
			widest = i
		}
	}

	bump(tiers, dims[lowest].Code)
	if dims[widest].Code != dims[lowest].Code {
		bump(tiers, dims[widest].Code)
	}
	return tiers
}

func bump(tiers map[assessment.CategoryCode]PriorityTier, code assessment.CategoryCode) {
	tier, ok := tiers[code]
	if !ok {
		return
	}
	tiers[code] = tier.Escalate()
}
