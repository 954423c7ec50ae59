package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashKey(t *testing.T) {
	key := "sk-test-12345"
	got := HashKey(key)
	assert.Equal(t, got, HashKey(key))
	assert.Len(t, got, 64)
	assert.Regexp(t, `^[0-9a-f]+$`, got)
	assert.NotEqual(t, got, HashKey(key+"x"))
}

func TestReportFileName(t *testing.T) {
	tests := map[string]string{
		"Acme Corp":           "acme-corp-report.html",
		"  Café & Co.  ":      "caf-co-report.html",
		"../../etc/passwd":    "etc-passwd-report.html",
		"":                    "report.html",
		"!!!":                 "report.html",
		"Northwind / Traders": "northwind-traders-report.html",
	}
	for in, want := range tests {
		assert.Equal(t, want, ReportFileName(in), in)
	}
}
