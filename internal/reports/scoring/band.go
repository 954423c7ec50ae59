// Package scoring classifies assessment scores into bands, priority tiers and
// severity badges, and projects expected outcomes against a benchmark.
//
// Score bands and priority tiers share cut points today but are kept as two
// independent tables: bands describe current state, tiers describe how urgently
// a dimension needs action, and either vocabulary may change on its own.
package scoring

// ScoreBand labels the current state of a score.
type ScoreBand struct {
	Label          string `json:"label"`
	StyleToken     string `json:"styleToken"`
	Recommendation string `json:"recommendation"`
	// Bracket is the threshold row the score fell into, 0 being the best.
	Bracket int `json:"bracket"`
}

type bandRow struct {
	min  float64
	band ScoreBand
}

var scoreBands = []bandRow{
	{min: 80, band: ScoreBand{Label: "Excellence", StyleToken: "excellence", Recommendation: "Monitor & Maintain", Bracket: 0}},
	{min: 70, band: ScoreBand{Label: "Proficiency", StyleToken: "proficiency", Recommendation: "Optimize & Refine", Bracket: 1}},
	{min: 60, band: ScoreBand{Label: "Attention", StyleToken: "attention", Recommendation: "Active Improvement", Bracket: 2}},
	{min: 40, band: ScoreBand{Label: "Concern", StyleToken: "concern", Recommendation: "Active Improvement", Bracket: 3}},
}

var criticalBand = ScoreBand{Label: "Critical", StyleToken: "critical", Recommendation: "Immediate Focus", Bracket: 4}

// ClassifyScoreBand returns the band for score. Values outside [0,100] are not
// clamped; they land in whichever row they satisfy.
func ClassifyScoreBand(score float64) ScoreBand {
	for _, row := range scoreBands {
		if score >= row.min {
			return row.band
		}
	}
	return criticalBand
}
