package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"rig-merger/internal/metadata"
	"rig-merger/internal/scene"
)

// Config holds paths and merge settings. Precedence, lowest first: defaults, config file,
// RIGMERGE_* environment, command-line flags.
type Config struct {
	// Paths
	SceneDir   string `yaml:"scene_dir" json:"scene_dir" env:"RIGMERGE_SCENE_DIR"`
	OutputDir  string `yaml:"output_dir" json:"output_dir" env:"RIGMERGE_OUTPUT_DIR"`
	OutputName string `yaml:"output_name" json:"output_name" env:"RIGMERGE_OUTPUT_NAME"`
	Preview    string `yaml:"preview" json:"preview" env:"RIGMERGE_PREVIEW"`
	Report     string `yaml:"report" json:"report" env:"RIGMERGE_REPORT"`

	// Merge settings
	OrphanPolicy  string `yaml:"orphan_policy" json:"orphan_policy" env:"RIGMERGE_ORPHAN_POLICY"`
	RotationUnits string `yaml:"rotation_units" json:"rotation_units" env:"RIGMERGE_ROTATION_UNITS"`
	DryRun        bool   `yaml:"dry_run" json:"dry_run" env:"RIGMERGE_DRY_RUN"`

	// Preview settings
	PreviewSize int `yaml:"preview_size" json:"preview_size" env:"RIGMERGE_PREVIEW_SIZE"`
	Supersample int `yaml:"supersample" json:"supersample" env:"RIGMERGE_SUPERSAMPLE"`

	LogLevel  string `yaml:"log_level" json:"log_level" env:"RIGMERGE_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" json:"log_format" env:"RIGMERGE_LOG_FORMAT"`

	// Parsed by Resolve.
	Policy scene.OrphanPolicy     `yaml:"-" json:"-"`
	Units  metadata.RotationUnits `yaml:"-" json:"-"`
}

// Load reads a YAML or JSON config file. Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from RIGMERGE_* environment variables that are set.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	SceneDir      string
	OutputDir     string
	OutputName    string
	OrphanPolicy  string
	RotationUnits string
	Preview       string
	Report        string
	LogLevel      string
	LogFormat     string
	DryRun        bool
}

// Resolve applies flags, fills empty fields with defaults and parses the enumerated settings.
// CLI flags take priority when non-empty.
func (c *Config) Resolve(flags Flags) error {
	// CLI flags override config file and environment
	override(&c.SceneDir, flags.SceneDir)
	override(&c.OutputDir, flags.OutputDir)
	override(&c.OutputName, flags.OutputName)
	override(&c.OrphanPolicy, flags.OrphanPolicy)
	override(&c.RotationUnits, flags.RotationUnits)
	override(&c.Preview, flags.Preview)
	override(&c.Report, flags.Report)
	override(&c.LogLevel, flags.LogLevel)
	override(&c.LogFormat, flags.LogFormat)
	if flags.DryRun {
		c.DryRun = true
	}

	if c.SceneDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("config: working directory: %w", err)
		}
		c.SceneDir = cwd
	}

	// Relative paths resolve against the scene directory
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.SceneDir, "Temp")
	} else if !filepath.IsAbs(c.OutputDir) {
		c.OutputDir = filepath.Join(c.SceneDir, c.OutputDir)
	}
	if c.OutputName == "" {
		c.OutputName = "merged_avatar.json"
	}
	if c.Preview != "" && !filepath.IsAbs(c.Preview) {
		c.Preview = filepath.Join(c.OutputDir, c.Preview)
	}
	if c.Report != "" && !filepath.IsAbs(c.Report) {
		c.Report = filepath.Join(c.OutputDir, c.Report)
	}

	if c.PreviewSize <= 0 {
		c.PreviewSize = 512
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
	if c.OrphanPolicy == "" {
		c.OrphanPolicy = scene.OrphanReparent.String()
	}
	if c.RotationUnits == "" {
		// The editor exports transform.eulerAngles, which are degrees.
		c.RotationUnits = metadata.Degrees.String()
	}

	var err error
	if c.Policy, err = scene.ParseOrphanPolicy(c.OrphanPolicy); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Units, err = metadata.ParseRotationUnits(c.RotationUnits); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// OutputPath is where the merged avatar is written.
func (c *Config) OutputPath() string {
	return filepath.Join(c.OutputDir, c.OutputName)
}

// ScenePath resolves a scene file argument against the scene directory.
func (c *Config) ScenePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.SceneDir, name)
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
