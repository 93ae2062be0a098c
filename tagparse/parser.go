// Package tagparse extracts machine readable marker lines from benchmark
// output. Lines that do not start with a known marker are ignored, which
// lets benchmarks print free-form diagnostics next to their data.
package tagparse

import (
	"fmt"
	"strings"

	"github.com/perfgo/perfsweep/model"
)

// SkippedLine is a marker line that failed schema validation.
type SkippedLine struct {
	Schema string `json:"schema"`
	// 1-based line number in stdout
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// Result holds everything extracted from one run.
type Result struct {
	Points  []model.DataPoint
	Skipped []SkippedLine
}

// Timings returns the timing points of the result in order.
func (r Result) Timings() []model.TimingPoint {
	var out []model.TimingPoint
	for _, p := range r.Points {
		if tp, ok := p.(model.TimingPoint); ok {
			out = append(out, tp)
		}
	}
	return out
}

// Parser applies a fixed set of schemas to run output.
type Parser struct {
	schemas []Schema
}

// New creates a parser for the given schemas, which are applied in order.
func New(schemas ...Schema) (*Parser, error) {
	if len(schemas) == 0 {
		return nil, fmt.Errorf("no schemas given")
	}

	seen := make(map[string]bool, len(schemas))
	for _, s := range schemas {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate schema %s", s.Name)
		}
		seen[s.Name] = true
	}

	return &Parser{schemas: schemas}, nil
}

// Schemas returns the schemas of the parser.
func (p *Parser) Schemas() []Schema {
	return p.schemas
}

// Parse extracts DataPoints from the stdout of a run. Every schema is applied
// independently; results are concatenated in schema order and keep source
// line order within a schema. Parse never fails: malformed marker lines are
// reported in Result.Skipped.
func (p *Parser) Parse(outcome model.RunOutcome) Result {
	lines := splitLines(outcome.Stdout)

	var result Result
	for _, schema := range p.schemas {
		points, skipped := parseSchema(lines, schema, outcome.Configuration)
		result.Points = append(result.Points, points...)
		result.Skipped = append(result.Skipped, skipped...)
	}

	return result
}

// ParseSchema applies a single schema to the stdout of a run.
func ParseSchema(outcome model.RunOutcome, schema Schema) Result {
	points, skipped := parseSchema(splitLines(outcome.Stdout), schema, outcome.Configuration)
	return Result{Points: points, Skipped: skipped}
}

func parseSchema(lines []string, schema Schema, cfg model.Configuration) ([]model.DataPoint, []SkippedLine) {
	var points []model.DataPoint
	var skipped []SkippedLine

	for i, line := range lines {
		if !strings.HasPrefix(line, schema.Marker) {
			continue
		}

		fields := strings.Fields(strings.TrimPrefix(line, schema.Marker))
		point, err := schema.decode(fields, i+1, cfg)
		if err != nil {
			skipped = append(skipped, SkippedLine{
				Schema: schema.Name,
				Line:   i + 1,
				Text:   line,
				Reason: err.Error(),
			})
			continue
		}
		points = append(points, point)
	}

	return points, skipped
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
