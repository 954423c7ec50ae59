// Package assessment holds the business-assessment input a report is built
// from, and the normalization layer that turns loosely shaped JSON into it.
package assessment

// CategoryCode identifies an assessment category.
type CategoryCode string

const (
	CategorySTR CategoryCode = "STR"
	CategoryFIN CategoryCode = "FIN"
	CategoryOPS CategoryCode = "OPS"
	CategoryMKT CategoryCode = "MKT"
	CategoryCXP CategoryCode = "CXP"
	CategoryTIN CategoryCode = "TIN"
	CategoryPPL CategoryCode = "PPL"
	CategoryRSK CategoryCode = "RSK"
)

var categoryNames = map[CategoryCode]string{
	CategorySTR: "Strategy & Leadership",
	CategoryFIN: "Financial Health",
	CategoryOPS: "Operations & Efficiency",
	CategoryMKT: "Marketing & Sales",
	CategoryCXP: "Customer Experience",
	CategoryTIN: "Technology & Innovation",
	CategoryPPL: "People & Culture",
	CategoryRSK: "Risk & Compliance",
}

// AllCategories lists every known code in display order.
var AllCategories = []CategoryCode{
	CategorySTR, CategoryFIN, CategoryOPS, CategoryMKT,
	CategoryCXP, CategoryTIN, CategoryPPL, CategoryRSK,
}

// IsKnownCategory reports whether code is part of the fixed category set.
func IsKnownCategory(code CategoryCode) bool {
	_, ok := categoryNames[code]
	return ok
}

// CategoryName returns the display name for code, or the code itself.
func CategoryName(code CategoryCode) string {
	if name, ok := categoryNames[code]; ok {
		return name
	}
	return string(code)
}

// MetricStatus colours a key metric value.
type MetricStatus string

const (
	MetricGood     MetricStatus = "good"
	MetricWarning  MetricStatus = "warning"
	MetricCritical MetricStatus = "critical"
)

// Result is a scored business assessment.
type Result struct {
	OverallScore     float64                         `json:"overallScore"`
	ScoresByCategory map[CategoryCode]float64        `json:"scoresByCategory"`
	CategoryDetails  map[CategoryCode]CategoryDetail `json:"categoryDetails"`
	Roadmap          Roadmap                         `json:"roadmap"`
	Insights         Insights                        `json:"insights"`
}

// CategoryDetail is the per-category breakdown.
type CategoryDetail struct {
	Score           float64          `json:"score"`
	Strengths       []string         `json:"strengths"`
	Weaknesses      []string         `json:"weaknesses"`
	Recommendations []Recommendation `json:"recommendations"`
	KeyMetrics      []Metric         `json:"keyMetrics"`
}

type Recommendation struct {
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
	EstimatedImpact string `json:"estimatedImpact,omitempty"`
	Timeframe       string `json:"timeframe,omitempty"`
}

type Metric struct {
	Name      string       `json:"name"`
	Value     string       `json:"value"`
	Benchmark string       `json:"benchmark,omitempty"`
	Status    MetricStatus `json:"status,omitempty"`
}

// Roadmap buckets action items by horizon.
type Roadmap struct {
	NearTerm []ActionItem `json:"nearTerm"`
	MidTerm  []ActionItem `json:"midTerm"`
	LongTerm []ActionItem `json:"longTerm"`
}

type ActionItem struct {
	Action   string       `json:"action"`
	Category CategoryCode `json:"category"`
	Impact   string       `json:"impact,omitempty"`
}

type Insights struct {
	TopStrengths    []string `json:"topStrengths"`
	TopWeaknesses   []string `json:"topWeaknesses"`
	CriticalActions []string `json:"criticalActions"`
	OngoingHabits   []string `json:"ongoingHabits"`
}

// Score returns the category score, or 0 when absent.
func (r Result) Score(code CategoryCode) float64 {
	return r.ScoresByCategory[code]
}

// Detail returns the category detail, or a zero value when absent.
func (r Result) Detail(code CategoryCode) CategoryDetail {
	return r.CategoryDetails[code]
}
