package scoring

// SeverityBadge labels an individual weakness finding.
type SeverityBadge struct {
	Label      string `json:"label"`
	StyleToken string `json:"styleToken"`
}

// ClassifySeverityBadge uses its own inclusive upper bounds (20/39/59), unlike
// the band and tier tables.
func ClassifySeverityBadge(score float64) SeverityBadge {
	switch {
	case score <= 20:
		return SeverityBadge{Label: "Critical Gap", StyleToken: "critical"}
	case score <= 39:
		return SeverityBadge{Label: "Significant Gap", StyleToken: "significant"}
	case score <= 59:
		return SeverityBadge{Label: "Area for Improvement", StyleToken: "improvement"}
	default:
		return SeverityBadge{Label: "Below Target", StyleToken: "below-target"}
	}
}
