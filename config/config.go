// Package config loads analysis options from YAML, in the style the rest of
// the example corpus uses for tool configuration (yaml.v3).
package config

import (
	"os"

	"github.com/dataflow-ir/ptsflow/internal/maps"
	"gopkg.in/yaml.v3"
)

// Config controls policy decisions the spec leaves as open questions, plus
// the handful of knobs needed to run the analysis end to end.
type Config struct {
	// EntryFunction overrides automatic entry-point selection (spec §6:
	// "the last non-intrinsic, non-empty function in module order"). Mainly
	// useful for testing against a named function.
	EntryFunction string `yaml:"entry_function"`

	// OpaqueAllocators names functions treated as opaque allocators: calls
	// to them are recorded in CallResults and their result is bound to a
	// fresh heap cell, without descending into a body (spec §4.3 step 3).
	OpaqueAllocators []string `yaml:"opaque_allocators"`

	// MaxCallDepth bounds inline-recursive descent into the same function
	// within one outer transfer (§4.3.1). Zero means unbounded.
	MaxCallDepth int `yaml:"max_call_depth"`

	// MaxIterations caps dataflow engine block visits per function as a
	// non-convergence safety net (spec §5). Zero means unbounded.
	MaxIterations int `yaml:"max_iterations"`

	// TreatNullStoreAsAssignment selects the Open Question #1 policy: when
	// false (default), storing a null constant through a pointer is
	// silently dropped; when true, it is modeled as assigning {null}.
	// Stores of non-null constants are dropped under either setting.
	TreatNullStoreAsAssignment bool `yaml:"treat_null_store_as_assignment"`
}

// Default returns the policy this repository ships with.
func Default() Config {
	return Config{
		OpaqueAllocators: []string{"malloc", "calloc", "realloc"},
		MaxCallDepth:     25,
	}
}

// Load reads a YAML config file at path, filling in Default() for the zero
// of any field the file does not mention.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Config{}, err
	}

	if override.EntryFunction != "" {
		cfg.EntryFunction = override.EntryFunction
	}
	if len(override.OpaqueAllocators) > 0 {
		cfg.OpaqueAllocators = override.OpaqueAllocators
	}
	if override.MaxCallDepth != 0 {
		cfg.MaxCallDepth = override.MaxCallDepth
	}
	if override.MaxIterations != 0 {
		cfg.MaxIterations = override.MaxIterations
	}
	cfg.TreatNullStoreAsAssignment = override.TreatNullStoreAsAssignment

	return cfg, nil
}

// IsOpaqueAllocator reports whether name is configured as an opaque
// allocator.
func (c Config) IsOpaqueAllocator(name string) bool {
	_, ok := maps.FromKeys(c.OpaqueAllocators)[name]
	return ok
}
