package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/stagegate/internal/cache"
	"github.com/kailas-cloud/stagegate/internal/fusion"
)

// Config holds the stagegate pipeline configuration.
type Config struct {
	Mode      string          `yaml:"mode"` // fetch, replay
	Corpus    CorpusConfig    `yaml:"corpus"`
	Cache     CacheConfig     `yaml:"cache"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Fusion    FusionConfig    `yaml:"fusion"`
	Rubric    RubricConfig    `yaml:"rubric"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Verify    VerifyConfig    `yaml:"verify"`
	Reports   ReportsConfig   `yaml:"reports"`
	Ops       OpsConfig       `yaml:"ops"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// CorpusConfig locates the chunk corpus.
type CorpusConfig struct {
	Path string `yaml:"path"` // JSONL, one chunk per line
}

// CacheConfig holds determinism cache settings.
type CacheConfig struct {
	Driver     string      `yaml:"driver"` // file, redis (default: file)
	Dir        string      `yaml:"dir"`
	LedgerPath string      `yaml:"ledger_path"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig holds the redis cache backend settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // openai
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
}

// FusionConfig holds the ranking tuning surface.
type FusionConfig struct {
	Alpha float64 `yaml:"alpha"` // semantic weight in [0,1]
	K     int     `yaml:"k"`     // top-k size
}

// RubricConfig locates the rubric definition.
type RubricConfig struct {
	Path string `yaml:"path"`
}

// ScoringConfig holds the scoring request. Empty Themes means every theme in
// the rubric definition.
type ScoringConfig struct {
	Query  string   `yaml:"query"`
	Themes []string `yaml:"themes"`
}

// FetchConfig holds prefetch pool settings.
type FetchConfig struct {
	Workers    int     `yaml:"workers"`
	RPS        float64 `yaml:"rps"`
	Burst      int     `yaml:"burst"`
	TimeoutSec int     `yaml:"timeout_sec"`
}

// VerifyConfig holds the determinism harness settings.
type VerifyConfig struct {
	Runs int `yaml:"runs"`
}

// ReportsConfig locates the output directory for audit artifacts.
type ReportsConfig struct {
	Dir string `yaml:"dir"`
}

// OpsConfig holds the operational HTTP surface settings.
type OpsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = string(cache.ModeReplay)
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "file"
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "data/cache"
	}
	if c.Cache.LedgerPath == "" {
		c.Cache.LedgerPath = "data/ledger.jsonl"
	}
	if c.Cache.Redis.ReadinessTimeout <= 0 {
		c.Cache.Redis.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Fusion.Alpha == 0 {
		c.Fusion.Alpha = fusion.DefaultAlpha
	}
	if c.Fusion.K <= 0 {
		c.Fusion.K = fusion.DefaultK
	}
	if c.Verify.Runs <= 0 {
		c.Verify.Runs = 3
	}
	if c.Reports.Dir == "" {
		c.Reports.Dir = "data/reports"
	}
	if c.Ops.Addr == "" {
		c.Ops.Addr = ":9090"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if _, err := cache.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.Corpus.Path == "" {
		return fmt.Errorf("corpus.path is required")
	}
	switch c.Cache.Driver {
	case "file", "redis":
	default:
		return fmt.Errorf("cache.driver must be \"file\" or \"redis\", got %q", c.Cache.Driver)
	}
	if c.Cache.Driver == "redis" && len(c.Cache.Redis.Addrs) == 0 {
		return fmt.Errorf("cache.redis.addrs is required for the redis driver")
	}
	if c.Fusion.Alpha < 0 || c.Fusion.Alpha > 1 {
		return fmt.Errorf("fusion.alpha must be in [0,1], got %v", c.Fusion.Alpha)
	}
	if c.Fusion.K < 1 {
		return fmt.Errorf("fusion.k must be >= 1, got %d", c.Fusion.K)
	}
	if c.Rubric.Path == "" {
		return fmt.Errorf("rubric.path is required")
	}
	if c.Scoring.Query == "" {
		return fmt.Errorf("scoring.query is required")
	}
	if c.Mode == string(cache.ModeFetch) && c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required in fetch mode")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
