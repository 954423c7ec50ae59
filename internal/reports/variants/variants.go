// Package variants describes which categories each report type focuses on.
package variants

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"report-backend/internal/reports/assessment"
)

// DefaultBenchmark is the comparison baseline for a category without its own.
const DefaultBenchmark = 70.0

// ErrUnknownVariant is returned for a variant key missing from the catalog.
var ErrUnknownVariant = errors.New("unknown report variant")

//go:embed variants.yaml
var builtin []byte

// Variant is one report type.
type Variant struct {
	Key          string                              `yaml:"key" json:"key"`
	Title        string                              `yaml:"title" json:"title"`
	Primary      []assessment.CategoryCode           `yaml:"primary" json:"primary"`
	Secondary    []assessment.CategoryCode           `yaml:"secondary" json:"secondary"`
	Benchmarks   map[assessment.CategoryCode]float64 `yaml:"benchmarks" json:"benchmarks,omitempty"`
	CallToAction string                              `yaml:"callToAction" json:"callToAction"`
}

// Extended returns primary followed by secondary categories, without repeats.
func (v Variant) Extended() []assessment.CategoryCode {
	seen := make(map[assessment.CategoryCode]bool, len(v.Primary)+len(v.Secondary))
	out := make([]assessment.CategoryCode, 0, len(v.Primary)+len(v.Secondary))
	for _, code := range append(append([]assessment.CategoryCode{}, v.Primary...), v.Secondary...) {
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

// Benchmark returns the category benchmark, falling back to DefaultBenchmark.
func (v Variant) Benchmark(code assessment.CategoryCode) float64 {
	if b, ok := v.Benchmarks[code]; ok && b > 0 {
		return b
	}
	return DefaultBenchmark
}

// Catalog indexes variants by key.
type Catalog struct {
	byKey map[string]Variant
}

type catalogFile struct {
	Variants []Variant `yaml:"variants"`
}

// Builtin returns the catalog compiled into the binary.
func Builtin() Catalog {
	c, err := Load(bytes.NewReader(builtin))
	if err != nil {
		panic(fmt.Sprintf("builtin variants: %v", err))
	}
	return c
}

// LoadFile loads a catalog from path, or the builtin catalog when path is empty.
func LoadFile(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("open variants file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses and validates a YAML catalog.
func Load(r io.Reader) (Catalog, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return Catalog{}, fmt.Errorf("parse variants: %w", err)
	}
	if len(file.Variants) == 0 {
		return Catalog{}, errors.New("variants: at least one variant is required")
	}
	c := Catalog{byKey: make(map[string]Variant, len(file.Variants))}
	for i, v := range file.Variants {
		v.Key = strings.ToLower(strings.TrimSpace(v.Key))
		if v.Key == "" {
			return Catalog{}, fmt.Errorf("variants[%d].key is required", i)
		}
		if _, dup := c.byKey[v.Key]; dup {
			return Catalog{}, fmt.Errorf("variants[%d].key %q is duplicated", i, v.Key)
		}
		if len(v.Primary) == 0 {
			return Catalog{}, fmt.Errorf("variants[%d].primary must have at least 1 category", i)
		}
		for _, code := range v.Extended() {
			if !assessment.IsKnownCategory(code) {
				return Catalog{}, fmt.Errorf("variants[%d]: unknown category %q", i, code)
			}
		}
		for code, b := range v.Benchmarks {
			if !assessment.IsKnownCategory(code) {
				return Catalog{}, fmt.Errorf("variants[%d].benchmarks: unknown category %q", i, code)
			}
			if b <= 0 || b > 100 {
				return Catalog{}, fmt.Errorf("variants[%d].benchmarks.%s must be in (0,100]", i, code)
			}
		}
		c.byKey[v.Key] = v
	}
	return c, nil
}

// Get returns the variant for key.
func (c Catalog) Get(key string) (Variant, error) {
	v, ok := c.byKey[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, key)
	}
	return v, nil
}

// List returns all variants sorted by key.
func (c Catalog) List() []Variant {
	out := make([]Variant, 0, len(c.byKey))
	for _, v := range c.byKey {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Empty reports whether the catalog holds no variants.
func (c Catalog) Empty() bool {
	return len(c.byKey) == 0
}
