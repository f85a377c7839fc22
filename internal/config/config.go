// Package config loads the YAML configuration file and validates it
// against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Config holds the runtime configuration.
type Config struct {
	// Database is the path to the SQLite database file.
	Database string `yaml:"database" json:"database"`

	// Author is the default author recorded on revisions.
	Author string `yaml:"author" json:"author"`

	Log LogConfig `yaml:"log" json:"log"`
}

// LogConfig controls structured log output.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database: "vdm.db",
		Author:   "",
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads and validates a YAML configuration file. Unknown keys are
// rejected by the decoder; value constraints are enforced by the CUE
// schema.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration bytes. Fields absent from
// the input keep their defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate unifies the decoded configuration with the embedded schema.
func validate(cfg Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	unified := schema.Unify(ctx.Encode(cfg))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
