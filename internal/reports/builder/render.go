package builder

import (
	"bytes"
	"embed"
	"html/template"
	"math"
	"strconv"

	"report-backend/internal/shared/telemetry"
)

//go:embed templates/sections.tmpl
var templateFS embed.FS

//go:embed templates/shell.html
var shellHTML string

var sectionTemplates = template.Must(template.New("sections").ParseFS(templateFS, "templates/sections.tmpl"))

// render executes a named section template. Templates are static, so an
// execution failure is a programming error; it is logged and the section is
// left empty rather than failing the report.
func render(name string, data any) template.HTML {
	var buf bytes.Buffer
	if err := sectionTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		telemetry.Error("report.template_failed", map[string]any{"template": name, "error": err.Error()})
		return ""
	}
	return template.HTML(buf.String())
}

func escapeText(s string) string {
	return template.HTMLEscapeString(s)
}

// formatScore prints a score with at most one decimal place.
func formatScore(v float64) string {
	r := math.Round(v*10) / 10
	if r == 0 {
		r = 0 // drops negative zero
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// formatSigned prints a difference as +5, -12 or 0.
func formatSigned(v float64) string {
	s := formatScore(v)
	if s != "0" && v > 0 {
		return "+" + s
	}
	return s
}

// percent converts a 0-100 value into a clamped bar width.
func percent(v, of float64) int {
	if of <= 0 {
		return 0
	}
	p := math.Round(v / of * 100)
	return int(math.Max(0, math.Min(100, p)))
}
