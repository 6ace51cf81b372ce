// Package config loads and validates benchmark configuration documents.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/mattn/go-shellwords"
	"gopkg.in/yaml.v3"
)

// Test names with special handling in the run loop.
const (
	TestStore    = "store"
	TestRegister = "register"
	TestExport   = "export"
)

// ParseError reports a configuration document that could not be read,
// decoded or validated. The run aborts before any test executes.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Test describes a single invocation pattern repeated once per iteration.
type Test struct {
	Name           string   `yaml:"name" validate:"required"`
	Args           []string `yaml:"args"`
	CheckArraySize bool     `yaml:"check_array_size"`

	// ExportFlag, when set on an export test, appends the flag followed
	// by the export directory. Unset keeps the destination off the
	// command line.
	ExportFlag string `yaml:"export_flag"`
}

// IngestsFiles reports whether the ingestion files are passed to the test.
func (t Test) IngestsFiles() bool {
	return t.Name == TestStore || t.Name == TestRegister
}

// Suite is a named group of tests sharing one output directory.
type Suite struct {
	Name     string `yaml:"-" validate:"required"`
	ArrayURI string `yaml:"array_uri" validate:"required"`
	GroupURI string `yaml:"group_uri"`
	Tests    []Test `yaml:"tests" validate:"dive"`
}

// OutputDir returns the directory owned by the suite for its iterations.
func (s Suite) OutputDir() string {
	if s.GroupURI != "" {
		return s.GroupURI
	}

	return s.ArrayURI
}

// Suites keeps suites in the order they are declared in the document.
type Suites []Suite

// UnmarshalYAML decodes a mapping of suite name to suite body.
func (s *Suites) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: suites must be a mapping", node.Line)
	}

	out := make(Suites, 0, len(node.Content)/2)
	seen := make(map[string]struct{}, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("suite name: %w", err)
		}

		if _, dup := seen[name]; dup {
			return fmt.Errorf("line %d: duplicate suite %q",
				node.Content[i].Line, name)
		}

		seen[name] = struct{}{}

		var suite Suite
		if err := node.Content[i+1].Decode(&suite); err != nil {
			return fmt.Errorf("suite %s: %w", name, err)
		}

		suite.Name = name
		out = append(out, suite)
	}

	*s = out

	return nil
}

// Config is the benchmark definition, immutable once loaded.
type Config struct {
	BaseCommand    string   `yaml:"base_command" validate:"required"`
	Iterations     int      `yaml:"iterations" validate:"gt=0"`
	IngestionFiles []string `yaml:"ingestion_files" validate:"dive,required"`
	Suites         Suites   `yaml:"suites" validate:"dive"`

	// DropCaches controls the page cache flush before every test.
	// Defaults to true.
	DropCaches *bool `yaml:"drop_caches"`
}

// ShouldDropCaches reports whether caches are flushed before each test.
func (c *Config) ShouldDropCaches() bool {
	return c.DropCaches == nil || *c.DropCaches
}

var requiredKeys = []string{
	"base_command", "iterations", "ingestion_files", "suites",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads, decodes and validates the document at path. Every failure
// is returned as a *ParseError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	return cfg, nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if err := checkRequiredKeys(&doc); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := doc.Decode(cfg); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := validate.Struct(cfg); err != nil {
		return nil, describe(err)
	}

	if _, err := shellwords.Parse(cfg.BaseCommand); err != nil {
		return nil, fmt.Errorf("base_command: %w", err)
	}

	return cfg, nil
}

func checkRequiredKeys(doc *yaml.Node) error {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return errors.New("empty document")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: top level must be a mapping", root.Line)
	}

	present := make(map[string]bool, len(root.Content)/2)
	for i := 0; i < len(root.Content); i += 2 {
		present[root.Content[i].Value] = true
	}

	for _, key := range requiredKeys {
		if !present[key] {
			return fmt.Errorf("missing required key %q", key)
		}
	}

	return nil
}

func applyDefaults(cfg *Config) {
	for i := range cfg.Suites {
		if cfg.Suites[i].GroupURI == "" {
			cfg.Suites[i].GroupURI = cfg.Suites[i].ArrayURI
		}
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("INGESTBENCH_BASE_COMMAND"); v != "" {
		cfg.BaseCommand = v
	}
	if v := os.Getenv("INGESTBENCH_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("INGESTBENCH_ITERATIONS: %w", err)
		}
		cfg.Iterations = n
	}
	if v := os.Getenv("INGESTBENCH_DROP_CACHES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("INGESTBENCH_DROP_CACHES: %w", err)
		}
		cfg.DropCaches = &b
	}

	return nil
}

// describe flattens validator output into a single readable error.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Errorf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}

	return errors.Join(msgs...)
}
