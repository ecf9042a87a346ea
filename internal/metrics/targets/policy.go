// Package targets loads the reduction percentages used to derive yearly targets.
package targets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"ops_reporting_backend/internal/metrics/domain"

	"gopkg.in/yaml.v3"
)

// DefaultReductionPct applies when neither the file nor the caller names a percentage.
const DefaultReductionPct = 5.0

// Policy maps measures to reduction percentages, with optional per-year overrides.
//
//	defaults:
//	  damages: 5
//	  fuel_liters: 3
//	years:
//	  2025:
//	    damages: 8
type Policy struct {
	Defaults map[domain.Measure]float64         `yaml:"defaults"`
	Years    map[int]map[domain.Measure]float64 `yaml:"years"`
}

// Default returns the built-in policy.
func Default() *Policy {
	defaults := make(map[domain.Measure]float64, len(domain.Measures))
	for _, m := range domain.Measures {
		defaults[m] = DefaultReductionPct
	}
	return &Policy{Defaults: defaults}
}

// Load reads a YAML policy. An empty path yields Default.
func Load(path string) (*Policy, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML policy. Unknown measures are rejected.
func Parse(raw []byte) (*Policy, error) {
	p := &Policy{}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode targets file: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) validate() error {
	check := func(scope string, values map[domain.Measure]float64) error {
		for m, pct := range values {
			if !m.Valid() {
				return fmt.Errorf("%s: %w: %q", scope, domain.ErrUnknownMeasure, m)
			}
			if pct < -100 || pct > 100 {
				return fmt.Errorf("%s: reduction for %s must be within [-100, 100], got %v", scope, m, pct)
			}
		}
		return nil
	}
	if err := check("defaults", p.Defaults); err != nil {
		return err
	}
	for year, values := range p.Years {
		if err := check(fmt.Sprintf("year %d", year), values); err != nil {
			return err
		}
	}
	return nil
}

// ReductionPct resolves the percentage for measure in year: year override,
// then file default, then DefaultReductionPct.
func (p *Policy) ReductionPct(year int, measure domain.Measure) float64 {
	if p == nil {
		return DefaultReductionPct
	}
	if pct, ok := p.Years[year][measure]; ok {
		return pct
	}
	if pct, ok := p.Defaults[measure]; ok {
		return pct
	}
	return DefaultReductionPct
}
