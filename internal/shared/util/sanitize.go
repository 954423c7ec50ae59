package util

import "strings"

const maxSlugLen = 60

// ReportFileName turns a subject name into a download file name such as
// "acme-corp-report.html". Only ASCII letters and digits survive.
func ReportFileName(subject string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(subject) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "report.html"
	}
	return slug + "-report.html"
}
