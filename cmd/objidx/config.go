package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/andreyvit/objidx"
)

// Config describes the index to build and the queries to run against it.
type Config struct {
	Engine  string        `yaml:"engine,omitempty"`
	Dir     string        `yaml:"dir,omitempty"`
	Cutoff  CutoffConfig  `yaml:"cutoff,omitempty"`
	Fields  []FieldConfig `yaml:"fields"`
	Indices [][]string    `yaml:"indices,omitempty"`
	Queries []QueryConfig `yaml:"queries,omitempty"`

	// NoIndices builds no indices at all; an omitted indices list means one
	// per field.
	NoIndices bool `yaml:"no_indices,omitempty"`
}

type FieldConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Key  string `yaml:"key,omitempty"` // record key, defaults to Name
}

// CutoffConfig selects the probe limit formula: "pow" (default, with
// Exponent, default 0.6), "log", or "fixed" (with Limit).
type CutoffConfig struct {
	Kind     string  `yaml:"kind,omitempty"`
	Exponent float64 `yaml:"exponent,omitempty"`
	Limit    int     `yaml:"limit,omitempty"`
}

// QueryConfig is either a raw Where expression or a list of conditions.
type QueryConfig struct {
	Name       string            `yaml:"name,omitempty"`
	Where      string            `yaml:"where,omitempty"`
	Conditions []ConditionConfig `yaml:"conditions,omitempty"`
}

type ConditionConfig struct {
	Field string `yaml:"field"`
	Op    string `yaml:"op"`
	Value any    `yaml:"value"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (cfg *Config) Validate() error {
	if len(cfg.Fields) == 0 {
		return errors.New("no fields")
	}
	for i, f := range cfg.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %d: missing name", i)
		}
		if _, err := parseType(f.Type); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	switch cfg.Engine {
	case "", string(objidx.EngineBolt), string(objidx.EngineColumnar):
	default:
		return fmt.Errorf("unknown engine %q", cfg.Engine)
	}
	switch cfg.Cutoff.Kind {
	case "", "pow":
		if cfg.Cutoff.Exponent < 0 || cfg.Cutoff.Exponent > 1 {
			return fmt.Errorf("cutoff exponent %v is outside [0, 1]", cfg.Cutoff.Exponent)
		}
	case "log":
	case "fixed":
		if cfg.Cutoff.Limit <= 0 {
			return errors.New("fixed cutoff needs a positive limit")
		}
	default:
		return fmt.Errorf("unknown cutoff kind %q", cfg.Cutoff.Kind)
	}
	if cfg.NoIndices && len(cfg.Indices) > 0 {
		return errors.New("both indices and no_indices given")
	}
	for i, q := range cfg.Queries {
		if (q.Where == "") == (len(q.Conditions) == 0) {
			return fmt.Errorf("query %d: need exactly one of where and conditions", i)
		}
	}
	return nil
}

func parseType(s string) (objidx.Type, error) {
	switch strings.ToLower(s) {
	case "int64", "int":
		return objidx.Int64, nil
	case "float64", "float":
		return objidx.Float64, nil
	case "bool":
		return objidx.Bool, nil
	case "string", "str":
		return objidx.String, nil
	default:
		return 0, fmt.Errorf("unknown type %q", s)
	}
}

func (cfg *Config) IndexFields() []objidx.Field {
	fields := make([]objidx.Field, len(cfg.Fields))
	for i, f := range cfg.Fields {
		typ, _ := parseType(f.Type)
		if f.Key != "" && f.Key != f.Name {
			key := f.Key
			fields[i] = objidx.ByNamedFunc(f.Name, typ, func(r map[string]any) any { return r[key] })
		} else {
			fields[i] = objidx.ByKey(f.Name, typ)
		}
	}
	return fields
}

func (cfg *Config) Options() objidx.Options {
	opt := objidx.Options{
		Engine: objidx.EngineKind(cfg.Engine),
		Dir:    cfg.Dir,
	}
	if cfg.NoIndices {
		opt.Indices = [][]string{}
	} else if len(cfg.Indices) > 0 {
		opt.Indices = cfg.Indices
	}
	switch cfg.Cutoff.Kind {
	case "log":
		opt.Cutoff = objidx.LogCutoff
	case "fixed":
		opt.Cutoff = objidx.FixedCutoff(cfg.Cutoff.Limit)
	default:
		if cfg.Cutoff.Exponent != 0 {
			opt.Cutoff = objidx.PowCutoff(cfg.Cutoff.Exponent)
		}
	}
	return opt
}

func (q QueryConfig) Predicate() objidx.Predicate {
	if q.Where != "" {
		return objidx.Where(q.Where)
	}
	conds := make(objidx.Conds, len(q.Conditions))
	for i, c := range q.Conditions {
		conds[i] = objidx.Condition{Field: c.Field, Op: c.Op, Value: c.Value}
	}
	return conds
}

func (q QueryConfig) String() string {
	if q.Name != "" {
		return q.Name
	}
	if q.Where != "" {
		return q.Where
	}
	parts := make([]string, len(q.Conditions))
	for i, c := range q.Conditions {
		parts[i] = fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
	}
	return strings.Join(parts, ", ")
}

// LoadRecords reads a YAML (or JSON) list of mappings.
func LoadRecords(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	var records []map[string]any
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	for i, r := range records {
		if r == nil {
			return nil, fmt.Errorf("record %d is not a mapping", i)
		}
	}
	return records, nil
}
