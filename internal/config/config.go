package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the remediation engine.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Clients      ClientsConfig      `yaml:"clients"`
	Intake       IntakeConfig       `yaml:"intake"`
	Notify       NotifyConfig       `yaml:"notify"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Executor     ExecutorConfig     `yaml:"executor"`
	Validation   ValidationConfig   `yaml:"validation"`
	Deploy       DeployConfig       `yaml:"deploy"`
	Store        StoreConfig        `yaml:"store"`
	Cache        CacheConfig        `yaml:"cache"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig controls the HTTP API and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// ClientsConfig groups the external analysis and planning services.
type ClientsConfig struct {
	Analysis ServiceClientConfig `yaml:"analysis"`
	Planning ServiceClientConfig `yaml:"planning"`
}

// ServiceClientConfig configures one request/response service endpoint.
type ServiceClientConfig struct {
	BaseURL  string        `yaml:"baseURL"`
	Path     string        `yaml:"path"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IntakeConfig configures the NATS error-event feed.
type IntakeConfig struct {
	URL     string        `yaml:"url"`
	Subject string        `yaml:"subject"`
	Queue   string        `yaml:"queue"`
	Timeout time.Duration `yaml:"timeout"`
}

// NotifyConfig controls the lifecycle-event NATS publisher.
type NotifyConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// OrchestratorConfig holds the decision thresholds and concurrency bounds.
type OrchestratorConfig struct {
	AutoFixThreshold     float64       `yaml:"autoFixThreshold"`
	HumanReviewThreshold float64       `yaml:"humanReviewThreshold"`
	MaxConcurrent        int           `yaml:"maxConcurrent"`
	ExecutionTimeout     time.Duration `yaml:"executionTimeout"`
	ValidationTimeout    time.Duration `yaml:"validationTimeout"`
	DeploymentTimeout    time.Duration `yaml:"deploymentTimeout"`
	ShutdownPoll         time.Duration `yaml:"shutdownPoll"`
}

// ExecutorConfig names the external tools the built-in action handlers call.
type ExecutorConfig struct {
	FormatterCommand []string `yaml:"formatterCommand"`
	WorkDir          string   `yaml:"workDir"`
}

// ValidationConfig maps test-suite names to the commands that run them.
type ValidationConfig struct {
	Suites map[string][]string `yaml:"suites"`
}

// DeployConfig controls rollback and deployment hand-off.
type DeployConfig struct {
	RollbackCommand []string `yaml:"rollbackCommand"`
	WorkDir         string   `yaml:"workDir"`
}

// StoreConfig locates the SQLite database backing the review queue and the
// fix history.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls Valkey-backed memoisation of analysis responses.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("REMEDY_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8085",
			MetricsAddress:  ":2112",
			GracefulTimeout: 30 * time.Second,
		},
		Clients: ClientsConfig{
			Analysis: ServiceClientConfig{
				Path:     "/api/v1/analyze",
				Timeout:  5 * time.Minute,
				CacheTTL: 10 * time.Minute,
			},
			Planning: ServiceClientConfig{
				Path:    "/api/v1/plan",
				Timeout: 2 * time.Minute,
			},
		},
		Intake: IntakeConfig{
			Subject: "errors.detected.>",
			Queue:   "remedy-engine",
			Timeout: 5 * time.Second,
		},
		Notify: NotifyConfig{
			SubjectPrefix: "remedy.events",
		},
		Orchestrator: OrchestratorConfig{
			AutoFixThreshold:     0.8,
			HumanReviewThreshold: 0.5,
			MaxConcurrent:        8,
			ExecutionTimeout:     10 * time.Minute,
			ValidationTimeout:    10 * time.Minute,
			DeploymentTimeout:    10 * time.Minute,
			ShutdownPoll:         100 * time.Millisecond,
		},
		Executor: ExecutorConfig{
			FormatterCommand: []string{"npx", "eslint", "--fix"},
		},
		Validation: ValidationConfig{
			Suites: map[string][]string{
				"unit_tests":        {"npm", "test"},
				"integration_tests": {"npm", "run", "test:integration"},
				"security_scan":     {"npm", "audit", "--audit-level=high"},
			},
		},
		Deploy: DeployConfig{
			RollbackCommand: []string{"git", "revert", "--no-edit", "HEAD"},
		},
		Store:   StoreConfig{Path: "remedy.db"},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
	}
}

func validate(cfg *Config) error {
	if cfg.Orchestrator.AutoFixThreshold < 0 || cfg.Orchestrator.AutoFixThreshold > 1 {
		return fmt.Errorf("orchestrator.autoFixThreshold must be in [0,1], got %f", cfg.Orchestrator.AutoFixThreshold)
	}
	if cfg.Orchestrator.HumanReviewThreshold < 0 || cfg.Orchestrator.HumanReviewThreshold > 1 {
		return fmt.Errorf("orchestrator.humanReviewThreshold must be in [0,1], got %f", cfg.Orchestrator.HumanReviewThreshold)
	}
	if cfg.Orchestrator.MaxConcurrent <= 0 {
		return fmt.Errorf("orchestrator.maxConcurrent must be positive, got %d", cfg.Orchestrator.MaxConcurrent)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REMEDY_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("REMEDY_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("REMEDY_ANALYSIS_URL"); v != "" {
		cfg.Clients.Analysis.BaseURL = v
	}
	if v := os.Getenv("REMEDY_ANALYSIS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Clients.Analysis.Timeout = d
		}
	}
	if v := os.Getenv("REMEDY_PLANNING_URL"); v != "" {
		cfg.Clients.Planning.BaseURL = v
	}
	if v := os.Getenv("REMEDY_PLANNING_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Clients.Planning.Timeout = d
		}
	}
	if v := os.Getenv("REMEDY_INTAKE_URL"); v != "" {
		cfg.Intake.URL = v
	}
	if v := os.Getenv("REMEDY_INTAKE_SUBJECT"); v != "" {
		cfg.Intake.Subject = v
	}
	if v := os.Getenv("REMEDY_NOTIFY_URL"); v != "" {
		cfg.Notify.URL = v
		cfg.Notify.Enabled = true
	}
	if v := os.Getenv("REMEDY_AUTOFIX_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Orchestrator.AutoFixThreshold = f
		}
	}
	if v := os.Getenv("REMEDY_HUMAN_REVIEW_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Orchestrator.HumanReviewThreshold = f
		}
	}
	if v := os.Getenv("REMEDY_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Orchestrator.MaxConcurrent = n
		}
	}
	if v := os.Getenv("REMEDY_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("REMEDY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REMEDY_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("REMEDY_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("REMEDY_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("REMEDY_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("REMEDY_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("REMEDY_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("REMEDY_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
}
