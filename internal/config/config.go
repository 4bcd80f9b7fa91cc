// Package config loads the agent configuration file and expands the
// path templates into concrete sync mappings, one pair per managed
// version entry.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hqops/rpa-sync-agent/internal/logging"
	"github.com/hqops/rpa-sync-agent/internal/metrics"
)

const (
	// EnvConfigPath overrides the configuration file location.
	EnvConfigPath = "CONFIG_PATH"

	// DefaultPath is used when EnvConfigPath is not set. The agent
	// takes no command-line flags; behavior is config-file-driven.
	DefaultPath = "config.yaml"
)

// Defaults applied to fields left empty in the file.
const (
	DefaultIntervalSeconds  = 60
	DefaultStatePath        = "state.json"
	DefaultCompletionSuffix = "_전처리.xlsx"
	DefaultLogFile          = "sync.log"
)

// Config is the full agent configuration.
type Config struct {
	AWS           AWSConfig       `yaml:"aws"`
	PathTemplates PathTemplates   `yaml:"path_templates"`
	HQVersions    []VersionParams `yaml:"hq_versions"`
	Sync          SyncConfig      `yaml:"sync"`
	Log           logging.Config  `yaml:"log"`
	Metrics       metrics.Config  `yaml:"metrics"`
}

// AWSConfig holds object store credentials and bucket selection.
// Field names follow the config file the RPA operators already use.
type AWSConfig struct {
	AccessKeyID     string `yaml:"aws_access_key_id"`
	SecretAccessKey string `yaml:"aws_secret_access_key"`
	RegionName      string `yaml:"region_name"`
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"` // optional custom endpoint (MinIO, R2, B2)
}

// PathTemplates are format strings with {placeholder} parameters.
// Each version entry substitutes its own parameters into all four.
type PathTemplates struct {
	S3Input        string `yaml:"s3_input"`
	LocalInput     string `yaml:"local_input"`
	LocalCompleted string `yaml:"local_completed"`
	S3Result       string `yaml:"s3_result"`
}

// VersionParams is one managed version/site: the placeholder values
// substituted into the path templates.
type VersionParams map[string]string

// SyncConfig holds loop tuning and state file location.
type SyncConfig struct {
	IntervalSeconds  int    `yaml:"interval_seconds"`
	StatePath        string `yaml:"state_path"`
	CompletionSuffix string `yaml:"completion_suffix"`
}

// Interval returns the sleep between sync iterations.
func (s SyncConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// InputMapping directs one download direction: remote prefix to local folder.
type InputMapping struct {
	RemotePrefix string
	LocalDir     string
}

// CompletedMapping directs one upload direction: local root to remote prefix.
type CompletedMapping struct {
	LocalRoot    string
	RemotePrefix string
}

// Mappings holds the concrete sync directions expanded from the
// templates. Immutable after load.
type Mappings struct {
	Inputs    []InputMapping
	Completed []CompletedMapping
}

// Path returns the configuration file location.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads and validates the configuration file. Any error here is
// fatal to startup: the agent cannot run without a complete config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	// Expansion failures (undefined placeholders) are startup errors too.
	if _, err := cfg.Mappings(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Sync.IntervalSeconds == 0 {
		c.Sync.IntervalSeconds = DefaultIntervalSeconds
	}
	if c.Sync.StatePath == "" {
		c.Sync.StatePath = DefaultStatePath
	}
	if c.Sync.CompletionSuffix == "" {
		c.Sync.CompletionSuffix = DefaultCompletionSuffix
	}
	if c.Log.File == "" {
		c.Log.File = DefaultLogFile
	}
}

func (c *Config) validate() error {
	if c.AWS.Bucket == "" {
		return fmt.Errorf("aws.bucket is required")
	}
	if len(c.HQVersions) == 0 {
		return fmt.Errorf("at least one hq_versions entry is required")
	}
	if c.Sync.IntervalSeconds < 0 {
		return fmt.Errorf("sync.interval_seconds must not be negative, got %d", c.Sync.IntervalSeconds)
	}
	templates := map[string]string{
		"path_templates.s3_input":        c.PathTemplates.S3Input,
		"path_templates.local_input":     c.PathTemplates.LocalInput,
		"path_templates.local_completed": c.PathTemplates.LocalCompleted,
		"path_templates.s3_result":       c.PathTemplates.S3Result,
	}
	for name, tpl := range templates {
		if tpl == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	return nil
}

// Mappings expands the path templates against every version entry.
func (c *Config) Mappings() (*Mappings, error) {
	m := &Mappings{}
	for i, params := range c.HQVersions {
		s3Input, err := expandTemplate(c.PathTemplates.S3Input, params)
		if err != nil {
			return nil, fmt.Errorf("hq_versions[%d] s3_input: %w", i, err)
		}
		localInput, err := expandTemplate(c.PathTemplates.LocalInput, params)
		if err != nil {
			return nil, fmt.Errorf("hq_versions[%d] local_input: %w", i, err)
		}
		localCompleted, err := expandTemplate(c.PathTemplates.LocalCompleted, params)
		if err != nil {
			return nil, fmt.Errorf("hq_versions[%d] local_completed: %w", i, err)
		}
		s3Result, err := expandTemplate(c.PathTemplates.S3Result, params)
		if err != nil {
			return nil, fmt.Errorf("hq_versions[%d] s3_result: %w", i, err)
		}

		m.Inputs = append(m.Inputs, InputMapping{
			RemotePrefix: s3Input,
			LocalDir:     localInput,
		})
		m.Completed = append(m.Completed, CompletedMapping{
			LocalRoot:    localCompleted,
			RemotePrefix: s3Result,
		})
	}
	return m, nil
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// expandTemplate substitutes {name} placeholders from params.
// Referencing a placeholder absent from params is an error.
func expandTemplate(tpl string, params VersionParams) (string, error) {
	var missing string
	out := placeholderRe.ReplaceAllStringFunc(tpl, func(match string) string {
		name := match[1 : len(match)-1]
		val, ok := params[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return val
	})
	if missing != "" {
		return "", fmt.Errorf("template %q references undefined placeholder %q", tpl, missing)
	}
	return out, nil
}
