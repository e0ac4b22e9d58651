package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/simonhull/norms/pkg/filesystem"
)

// FileName is the configuration file looked up at the project root
const FileName = "norms.yaml"

// EnvPrefix prefixes environment overrides, e.g. NORMS_LOG_LEVEL
const EnvPrefix = "NORMS"

// Config represents norms.yaml configuration
type Config struct {
	Scan       ScanConfig       `yaml:"scan" mapstructure:"scan"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	References ReferenceConfig  `yaml:"references" mapstructure:"references"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	VCS        VCSConfig        `yaml:"vcs" mapstructure:"vcs"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ScanConfig controls which files are inventoried
type ScanConfig struct {
	IgnoreDirs       []string `yaml:"ignoreDirs" mapstructure:"ignoreDirs"`
	IgnorePatterns   []string `yaml:"ignorePatterns" mapstructure:"ignorePatterns"`
	RespectGitignore bool     `yaml:"respectGitignore" mapstructure:"respectGitignore"`
	MonorepoDirs     []string `yaml:"monorepoDirs" mapstructure:"monorepoDirs"`
	MaxFileBytes     int64    `yaml:"maxFileBytes" mapstructure:"maxFileBytes"`
}

// ClassifierConfig holds file role classification settings
type ClassifierConfig struct {
	UseContent    bool     `yaml:"useContent" mapstructure:"useContent"`
	MinConfidence float64  `yaml:"minConfidence" mapstructure:"minConfidence"`
	Rules         []string `yaml:"rules" mapstructure:"rules"`
}

// ReferenceConfig holds reference selection settings
type ReferenceConfig struct {
	Count    int   `yaml:"count" mapstructure:"count"`
	MinBytes int64 `yaml:"minBytes" mapstructure:"minBytes"`
}

// ExtractConfig holds pattern extraction settings
type ExtractConfig struct {
	SyntaxTrees bool `yaml:"syntaxTrees" mapstructure:"syntaxTrees"`
	Workers     int  `yaml:"workers" mapstructure:"workers"`
}

// VCSConfig selects the default revision range for `norms check`
type VCSConfig struct {
	Base string `yaml:"base" mapstructure:"base"`
	Head string `yaml:"head" mapstructure:"head"`
}

// CacheConfig controls the pattern record cache
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
}

// LogConfig controls diagnostic logging
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			IgnoreDirs:       append([]string(nil), filesystem.DefaultIgnoreDirs...),
			IgnorePatterns:   []string{"*.min.js", "*.min.css", "*.lock", "*.map"},
			RespectGitignore: true,
			MonorepoDirs:     []string{"packages", "apps", "services"},
			MaxFileBytes:     512 * 1024,
		},
		Classifier: ClassifierConfig{
			UseContent:    true,
			MinConfidence: 0.25,
		},
		References: ReferenceConfig{
			Count:    5,
			MinBytes: 64,
		},
		Extract: ExtractConfig{
			SyntaxTrees: false,
			Workers:     0,
		},
		VCS: VCSConfig{
			Base: "HEAD",
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     ".norms",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load reads configuration for the project at root. An explicit path must
// exist; otherwise norms.yaml at root is optional and defaults apply.
// Environment variables prefixed with NORMS_ override file values.
func Load(root, explicitPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.AddConfigPath(root)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("scan.ignoreDirs", d.Scan.IgnoreDirs)
	v.SetDefault("scan.ignorePatterns", d.Scan.IgnorePatterns)
	v.SetDefault("scan.respectGitignore", d.Scan.RespectGitignore)
	v.SetDefault("scan.monorepoDirs", d.Scan.MonorepoDirs)
	v.SetDefault("scan.maxFileBytes", d.Scan.MaxFileBytes)
	v.SetDefault("classifier.useContent", d.Classifier.UseContent)
	v.SetDefault("classifier.minConfidence", d.Classifier.MinConfidence)
	v.SetDefault("classifier.rules", d.Classifier.Rules)
	v.SetDefault("references.count", d.References.Count)
	v.SetDefault("references.minBytes", d.References.MinBytes)
	v.SetDefault("extract.syntaxTrees", d.Extract.SyntaxTrees)
	v.SetDefault("extract.workers", d.Extract.Workers)
	v.SetDefault("vcs.base", d.VCS.Base)
	v.SetDefault("vcs.head", d.VCS.Head)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// Validate rejects values the pipeline cannot honour
func (c *Config) Validate() error {
	if c.References.Count < 3 || c.References.Count > 5 {
		return fmt.Errorf("references.count must be between 3 and 5, got %d", c.References.Count)
	}
	if c.Classifier.MinConfidence < 0 || c.Classifier.MinConfidence > 1 {
		return fmt.Errorf("classifier.minConfidence must be within [0, 1], got %g", c.Classifier.MinConfidence)
	}
	if c.Extract.Workers < 0 {
		return fmt.Errorf("extract.workers must not be negative, got %d", c.Extract.Workers)
	}
	return nil
}

// Save writes configuration to a YAML file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
