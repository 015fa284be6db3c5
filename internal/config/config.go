// Package config loads the project configuration file (sdd/sdd.yaml).
//
// The file is optional: a project without one runs on Default(). When it
// exists every key must be recognized; unknown keys are reported as
// errors instead of being silently ignored.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/sdderr"
	"gopkg.in/yaml.v3"
)

const (
	// SDDDir is the project subdirectory owned by the engine.
	SDDDir = "sdd"
	// ConfigFile is the config filename inside SDDDir.
	ConfigFile = "sdd.yaml"
)

// Config is the full project configuration.
type Config struct {
	StateDir    string `yaml:"state_dir"`
	GatesDir    string `yaml:"gates_dir"`
	ResultsDir  string `yaml:"results_dir"`
	HistoryDB   string `yaml:"history_db"`
	DefaultMode string `yaml:"default_mode"`

	Modes      []ModeConfig      `yaml:"modes,omitempty"`
	Detection  []DetectionConfig `yaml:"detection,omitempty"`
	Gate       GateConfig        `yaml:"gate"`
	Compliance ComplianceConfig  `yaml:"compliance"`
	Validation ValidationConfig  `yaml:"validation"`
}

// ModeConfig declares a custom mode or overrides a built-in one.
type ModeConfig struct {
	Name              string              `yaml:"name"`
	Description       string              `yaml:"description,omitempty"`
	Stages            []string            `yaml:"stages"`
	Transitions       map[string][]string `yaml:"transitions"`
	CoverageThreshold int                 `yaml:"coverage_threshold"`
	RequireEARS       bool                `yaml:"require_ears"`
	RequireADR        bool                `yaml:"require_adr"`
	SkipArtifacts     []string            `yaml:"skip_artifacts,omitempty"`
}

// DetectionConfig is one feature-name → mode rule. When any rules are
// configured they replace the built-in list.
type DetectionConfig struct {
	Pattern string `yaml:"pattern"`
	Mode    string `yaml:"mode"`
}

// GateConfig configures the Phase -1 review gate.
type GateConfig struct {
	RequiredReviewers []string `yaml:"required_reviewers"`
	OptionalReviewers []string `yaml:"optional_reviewers"`
	AutoNotify        bool     `yaml:"auto_notify"`
}

// ComplianceConfig configures directory scans.
type ComplianceConfig struct {
	Extensions []string `yaml:"extensions"`
	Exclude    []string `yaml:"exclude"`
	Workers    int      `yaml:"workers"`
}

// ValidationConfig configures the cross-artifact validator. Map keys are
// artifact type names (requirement, design, ...).
type ValidationConfig struct {
	RequiredFields    map[string][]string `yaml:"required_fields"`
	RequiredSections  map[string][]string `yaml:"required_sections"`
	RequiredLinks     map[string][]string `yaml:"required_links"`
	ReferencePatterns []string            `yaml:"reference_patterns"`
	AllowCycles       bool                `yaml:"allow_cycles"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		StateDir:    "sdd/state",
		GatesDir:    "sdd/gates",
		ResultsDir:  "sdd/compliance",
		HistoryDB:   "sdd/compliance/history.db",
		DefaultMode: "medium",
		Gate: GateConfig{
			RequiredReviewers: []string{"architect"},
			OptionalReviewers: []string{"tech-lead"},
			AutoNotify:        true,
		},
		Compliance: ComplianceConfig{
			Extensions: []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".go", ".py"},
			Exclude: []string{
				"**/node_modules/**",
				"**/.git/**",
				"**/vendor/**",
				"**/dist/**",
				"**/build/**",
				"**/coverage/**",
			},
			Workers: 4,
		},
		Validation: ValidationConfig{
			RequiredFields: map[string][]string{
				"requirement": {"name", "content"},
				"design":      {"name", "content"},
				"test":        {"name"},
			},
			RequiredSections: map[string][]string{
				"requirement": {"Acceptance Criteria"},
				"design":      {"Architecture"},
			},
			RequiredLinks: map[string][]string{
				"requirement": {"design", "test"},
			},
			ReferencePatterns: []string{`REQ-\d+`, `DES-\d+`, `TEST-\d+`, `#\d+`},
		},
	}
}

// Path returns the config file path for a project root.
func Path(root string) string {
	return filepath.Join(root, SDDDir, ConfigFile)
}

// Load reads the project config. A missing or empty file yields
// Default(); keys present in the file replace the defaults.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, sdderr.Persistence("reading config", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, sdderr.Invalid("parsing %s: %v", ConfigFile, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML under root.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	path := Path(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return sdderr.Persistence("creating config directory", err)
	}
	return sdderr.Persistence("writing config", os.WriteFile(path, data, 0o644))
}

// Validate checks the parts of the config that can be checked without
// building the engine. Mode graphs are validated by the mode registry.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DefaultMode) == "" {
		return sdderr.Invalid("default_mode must not be empty")
	}
	for _, dir := range []struct{ key, val string }{
		{"state_dir", c.StateDir},
		{"gates_dir", c.GatesDir},
		{"results_dir", c.ResultsDir},
	} {
		if strings.TrimSpace(dir.val) == "" {
			return sdderr.Invalid("%s must not be empty", dir.key)
		}
	}
	for i, d := range c.Detection {
		if d.Mode == "" {
			return sdderr.Invalid("detection[%d] has no mode", i)
		}
		if _, err := regexp.Compile(d.Pattern); err != nil {
			return sdderr.Invalid("detection[%d] pattern %q: %v", i, d.Pattern, err)
		}
	}
	for _, p := range c.Validation.ReferencePatterns {
		if _, err := regexp.Compile(p); err != nil {
			return sdderr.Invalid("reference pattern %q: %v", p, err)
		}
	}
	for _, ext := range c.Compliance.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return sdderr.Invalid("compliance extension %q must start with a dot", ext)
		}
	}
	if c.Compliance.Workers < 0 {
		return sdderr.Invalid("compliance workers must be >= 0, got %d", c.Compliance.Workers)
	}
	seen := make(map[string]bool)
	for _, r := range c.Gate.RequiredReviewers {
		if strings.TrimSpace(r) == "" {
			return sdderr.Invalid("gate required_reviewers contains an empty name")
		}
		if seen[r] {
			return sdderr.Invalid("gate reviewer %q listed twice", r)
		}
		seen[r] = true
	}
	return nil
}

// Resolve makes a configured path absolute relative to root.
func Resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// FindProjectRoot walks up from start looking for an existing sdd/
// directory. If none is found, start is returned so a new project can
// be created there.
func FindProjectRoot(start string) (string, error) {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		start = wd
	}
	current := start
	for {
		info, err := os.Stat(filepath.Join(current, SDDDir))
		if err == nil && info.IsDir() {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return start, nil
		}
		current = parent
	}
}
