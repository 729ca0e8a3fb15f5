package extract

import (
	"context"
	"regexp"
)

var classDeclPattern = regexp.MustCompile(`\bclass\s+([A-Za-z0-9_]+)(?:\s*:\s*([A-Za-z0-9_]+))?[\s{;]`)

// PatternScanner is the best-effort extractor. It finds every class
// declaration at any depth with a regular expression and reports each
// as a flat, property-less entity. It never fails on malformed input.
type PatternScanner struct{}

// NewPatternScanner creates a pattern-matching extractor.
func NewPatternScanner() *PatternScanner {
	return &PatternScanner{}
}

// Name implements Extractor.
func (p *PatternScanner) Name() string { return "pattern" }

// Extract implements Extractor.
func (p *PatternScanner) Extract(ctx context.Context, text string) ([]*Entity, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	matches := classDeclPattern.FindAllStringSubmatch(text, -1)
	out := make([]*Entity, 0, len(matches))
	for _, m := range matches {
		out = append(out, &Entity{Name: m[1], Parent: m[2]})
	}
	return out, nil
}
