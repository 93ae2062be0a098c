// Package config loads sweep definitions from YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/perfgo/perfsweep/sweep"
	"github.com/perfgo/perfsweep/tagparse"
)

var validate = validator.New()

// Config is the content of a sweep file.
type Config struct {
	// Default run timeout of every family, zero disables it
	TimeoutSeconds float64 `yaml:"timeout_seconds" validate:"gte=0"`
	// Default number of runs per configuration
	Repeat int `yaml:"repeat" validate:"gte=0"`
	// Where sweep history is stored, relative paths are taken from the file location
	ResultsDir    string         `yaml:"results_dir"`
	CustomSchemas []SchemaConfig `yaml:"custom_schemas" validate:"dive"`
	Families      []FamilyConfig `yaml:"families" validate:"required,min=1,dive"`
}

// FamilyConfig describes one benchmark family.
type FamilyConfig struct {
	Name              string   `yaml:"name" validate:"required"`
	Command           []string `yaml:"command" validate:"required,min=1,dive,required"`
	ParallelismLevels []int    `yaml:"parallelism_levels" validate:"required,min=1,unique,dive,gte=1"`
	ProblemSizes      []int64  `yaml:"problem_sizes" validate:"unique,dive,gte=0"`
	ExtraParams       []string `yaml:"extra_params"`
	Schemas           []string `yaml:"schemas" validate:"required,min=1,unique"`
	// Overrides of the top-level defaults
	TimeoutSeconds *float64 `yaml:"timeout_seconds" validate:"omitempty,gte=0"`
	Repeat         *int     `yaml:"repeat" validate:"omitempty,gte=1"`
}

// SchemaConfig declares a tag schema in addition to the builtin ones.
type SchemaConfig struct {
	Name   string        `yaml:"name" validate:"required"`
	Marker string        `yaml:"marker" validate:"required"`
	Kind   string        `yaml:"kind" validate:"required,oneof=timing per-worker"`
	Fields []FieldConfig `yaml:"fields" validate:"required,min=1,dive"`
	Scale  float64       `yaml:"scale" validate:"gte=0"`
}

// FieldConfig is one positional field of a custom schema.
type FieldConfig struct {
	Name string `yaml:"name"`
	Role string `yaml:"role" validate:"required,oneof=ignore size parallelism time aux worker value"`
}

// Load reads and validates a sweep file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a sweep file. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty config")
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints, family name uniqueness and that every
// referenced schema exists.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	custom, err := c.Schemas()
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Families))
	for _, f := range c.Families {
		if seen[f.Name] {
			return fmt.Errorf("invalid config: duplicate family %q", f.Name)
		}
		seen[f.Name] = true

		if _, err := tagparse.Resolve(f.Schemas, custom); err != nil {
			return fmt.Errorf("invalid config: family %s: %w", f.Name, err)
		}
	}
	return nil
}

// Schemas converts the custom schemas of the file.
func (c *Config) Schemas() (map[string]tagparse.Schema, error) {
	out := make(map[string]tagparse.Schema, len(c.CustomSchemas))
	for _, sc := range c.CustomSchemas {
		if _, dup := out[sc.Name]; dup {
			return nil, fmt.Errorf("invalid config: duplicate schema %q", sc.Name)
		}

		s, err := sc.Schema()
		if err != nil {
			return nil, err
		}
		out[sc.Name] = s
	}
	return out, nil
}

// Schema converts a custom schema declaration.
func (sc SchemaConfig) Schema() (tagparse.Schema, error) {
	kind, err := tagparse.ParseKind(sc.Kind)
	if err != nil {
		return tagparse.Schema{}, fmt.Errorf("invalid config: schema %s: %w", sc.Name, err)
	}

	s := tagparse.Schema{
		Name:   sc.Name,
		Marker: sc.Marker,
		Kind:   kind,
		Scale:  sc.Scale,
	}
	for _, fc := range sc.Fields {
		role, err := tagparse.ParseRole(fc.Role)
		if err != nil {
			return tagparse.Schema{}, fmt.Errorf("invalid config: schema %s: %w", sc.Name, err)
		}
		s.Fields = append(s.Fields, tagparse.Field{Name: fc.Name, Role: role})
	}

	if err := s.Validate(); err != nil {
		return tagparse.Schema{}, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

// SweepFamilies returns the families of the file with the top-level defaults
// applied.
func (c *Config) SweepFamilies() ([]sweep.Family, error) {
	custom, err := c.Schemas()
	if err != nil {
		return nil, err
	}

	families := make([]sweep.Family, 0, len(c.Families))
	for _, fc := range c.Families {
		schemas, err := tagparse.Resolve(fc.Schemas, custom)
		if err != nil {
			return nil, fmt.Errorf("family %s: %w", fc.Name, err)
		}

		timeout := c.TimeoutSeconds
		if fc.TimeoutSeconds != nil {
			timeout = *fc.TimeoutSeconds
		}
		repeat := c.Repeat
		if fc.Repeat != nil {
			repeat = *fc.Repeat
		}

		families = append(families, sweep.Family{
			Name:    fc.Name,
			Command: fc.Command,
			Grid: sweep.Grid{
				ParallelismLevels: fc.ParallelismLevels,
				ProblemSizes:      fc.ProblemSizes,
				ExtraParams:       fc.ExtraParams,
			},
			Schemas: schemas,
			Timeout: Seconds(timeout),
			Repeat:  repeat,
		})
	}
	return families, nil
}

// Seconds converts a number of seconds to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
