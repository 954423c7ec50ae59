package scoring

import "math"

const (
	// DefaultOutcomeBenchmark is the target used when projecting outcomes.
	DefaultOutcomeBenchmark = 80.0
	// GapClosurePercent is a fixed policy, not a measured value.
	GapClosurePercent = 50
	// TargetUplift is added to a current score to derive its target.
	TargetUplift = 15.0
)

// ExpectedOutcome is the projected result of acting on a recommendation.
type ExpectedOutcome struct {
	ExpectedScore     float64 `json:"expectedScore"`
	ImprovementPoints float64 `json:"improvementPoints"`
	GapClosurePercent int     `json:"gapClosurePercent"`
}

// ProjectExpectedOutcome closes half of the gap between current and benchmark.
func ProjectExpectedOutcome(current, benchmark float64) ExpectedOutcome {
	gap := math.Max(0, benchmark-current)
	points := math.Round(gap * 0.5)
	return ExpectedOutcome{
		ExpectedScore:     current + points,
		ImprovementPoints: points,
		GapClosurePercent: GapClosurePercent,
	}
}

// TargetScore returns current+15 capped at 100.
func TargetScore(current float64) float64 {
	return math.Min(current+TargetUplift, 100)
}
