package tagparse

// schema.go contains the closed set of tag schemas and their line decoders.

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/perfgo/perfsweep/model"
)

// Kind selects the DataPoint shape a schema produces.
type Kind uint8

const (
	KindTiming Kind = iota
	KindPerWorker
)

func (k Kind) String() string {
	switch k {
	case KindTiming:
		return "timing"
	case KindPerWorker:
		return "per-worker"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind parses the textual name of a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "timing":
		return KindTiming, nil
	case "per-worker", "perworker", "worker":
		return KindPerWorker, nil
	}
	return 0, fmt.Errorf("unknown schema kind %q", s)
}

// Role is the meaning of a positional field.
type Role uint8

const (
	RoleIgnore Role = iota
	RoleSize
	RoleParallelism
	// RoleTime is the measured time of the run
	RoleTime
	// RoleAux is an additional number kept under the field name
	RoleAux
	RoleWorker
	RoleValue
)

var roleNames = map[Role]string{
	RoleIgnore:      "ignore",
	RoleSize:        "size",
	RoleParallelism: "parallelism",
	RoleTime:        "time",
	RoleAux:         "aux",
	RoleWorker:      "worker",
	RoleValue:       "value",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// ParseRole parses the textual name of a Role.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown field role %q", s)
}

// Field is one space separated field following the marker.
type Field struct {
	Name string
	Role Role
}

// Schema declares a marker token and the positional layout of the rest of
// the line.
type Schema struct {
	Name   string
	Marker string
	Kind   Kind
	Fields []Field
	// Scale converts time and value fields to milliseconds (1000 for seconds).
	// Zero means 1.
	Scale float64
}

// Validate checks that the field layout can produce the schema's kind.
func (s Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema without name")
	}
	if strings.TrimSpace(s.Marker) == "" {
		return fmt.Errorf("schema %s: empty marker", s.Name)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s: no fields", s.Name)
	}
	if s.Scale < 0 || math.IsNaN(s.Scale) || math.IsInf(s.Scale, 0) {
		return fmt.Errorf("schema %s: invalid scale %v", s.Name, s.Scale)
	}

	counts := make(map[Role]int)
	for _, f := range s.Fields {
		if _, ok := roleNames[f.Role]; !ok {
			return fmt.Errorf("schema %s: field %s has unknown role", s.Name, f.Name)
		}
		if f.Role == RoleAux && f.Name == "" {
			return fmt.Errorf("schema %s: aux field without name", s.Name)
		}
		counts[f.Role]++
	}
	if counts[RoleSize] > 1 || counts[RoleParallelism] > 1 {
		return fmt.Errorf("schema %s: size and parallelism may appear at most once", s.Name)
	}

	switch s.Kind {
	case KindTiming:
		if counts[RoleTime] != 1 {
			return fmt.Errorf("schema %s: timing schema needs exactly one time field", s.Name)
		}
		if counts[RoleWorker] > 0 || counts[RoleValue] > 0 {
			return fmt.Errorf("schema %s: timing schema cannot have worker or value fields", s.Name)
		}
	case KindPerWorker:
		if counts[RoleWorker] != 1 || counts[RoleValue] != 1 {
			return fmt.Errorf("schema %s: per-worker schema needs exactly one worker and one value field", s.Name)
		}
		if counts[RoleTime] > 0 {
			return fmt.Errorf("schema %s: per-worker schema cannot have a time field", s.Name)
		}
	default:
		return fmt.Errorf("schema %s: unknown kind %s", s.Name, s.Kind)
	}
	return nil
}

func (s Schema) scale() float64 {
	if s.Scale == 0 {
		return 1
	}
	return s.Scale
}

// decode converts the fields that follow the marker into a DataPoint. Values
// missing from the line are taken from the run configuration.
func (s Schema) decode(fields []string, line int, cfg model.Configuration) (model.DataPoint, error) {
	if len(fields) != len(s.Fields) {
		return nil, fmt.Errorf("expected %d fields, got %d", len(s.Fields), len(fields))
	}

	switch s.Kind {
	case KindTiming:
		return s.decodeTiming(fields, line, cfg)
	case KindPerWorker:
		return s.decodePerWorker(fields, line)
	}
	return nil, fmt.Errorf("unknown kind %s", s.Kind)
}

func (s Schema) decodeTiming(fields []string, line int, cfg model.Configuration) (model.DataPoint, error) {
	p := model.TimingPoint{
		Schema:      s.Name,
		Line:        line,
		Size:        cfg.ProblemSize,
		Parallelism: cfg.Parallelism,
	}

	for i, f := range s.Fields {
		raw := fields[i]
		switch f.Role {
		case RoleSize:
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("field %s: invalid size %q", f.Name, raw)
			}
			p.Size = v
		case RoleParallelism:
			v, err := strconv.Atoi(raw)
			if err != nil || v < 1 {
				return nil, fmt.Errorf("field %s: invalid parallelism %q", f.Name, raw)
			}
			p.Parallelism = v
		case RoleTime:
			v, err := parseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			p.MeasuredTimeMs = v * s.scale()
		case RoleAux:
			v, err := parseFinite(raw)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			if p.AuxTimes == nil {
				p.AuxTimes = make(map[string]float64)
			}
			p.AuxTimes[f.Name] = v
		}
	}

	return p, nil
}

func (s Schema) decodePerWorker(fields []string, line int) (model.DataPoint, error) {
	p := model.PerWorkerPoint{
		Schema: s.Name,
		Line:   line,
	}

	for i, f := range s.Fields {
		raw := fields[i]
		switch f.Role {
		case RoleWorker:
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("field %s: invalid worker id %q", f.Name, raw)
			}
			p.WorkerID = v
		case RoleValue:
			v, err := parseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			p.MetricValue = v * s.scale()
		}
	}

	return p, nil
}

func parseFinite(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", raw)
	}
	return v, nil
}

func parseDuration(raw string) (float64, error) {
	v, err := parseFinite(raw)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative time %q", raw)
	}
	return v, nil
}
