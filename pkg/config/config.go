package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/opscart/cnc-uptime-analyzer/pkg/analyzer"
	"github.com/opscart/cnc-uptime-analyzer/pkg/datasource"
	"github.com/opscart/cnc-uptime-analyzer/pkg/storage"
	"gopkg.in/yaml.v3"
)

// Sample sources
const (
	SourcePostgres   = "postgres"
	SourcePrometheus = "prometheus"
	SourceCSV        = "csv"
)

// Config holds application configuration
type Config struct {
	// Sample source: postgres, prometheus or csv
	Source string `yaml:"source"`

	// Storage
	DatabaseURL string `yaml:"database_url"`
	SampleTable string `yaml:"sample_table"`

	// Prometheus
	PrometheusURL          string        `yaml:"prometheus_url"`
	PrometheusStep         time.Duration `yaml:"prometheus_step"`
	PrometheusSignalMetric string        `yaml:"prometheus_signal_metric"`
	PrometheusCycleMetric  string        `yaml:"prometheus_cycle_metric"`
	PrometheusProgramLabel string        `yaml:"prometheus_program_label"`

	// CSV
	CSVPath string `yaml:"csv_path"`

	// Analysis
	JobMarker      string        `yaml:"job_marker"`
	MissingProgram string        `yaml:"missing_program"` // unknown, drop
	UnknownLabel   string        `yaml:"unknown_label"`
	OrderingPolicy string        `yaml:"ordering_policy"` // sort, reject
	Timezone       string        `yaml:"timezone"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`

	// HTTP
	ListenAddr string        `yaml:"listen_addr"`
	RedisAddr  string        `yaml:"redis_addr"`
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`

	// TrustedProxies may set X-Forwarded-For; empty trusts none
	TrustedProxies []string `yaml:"trusted_proxies"`

	// Output
	OutputFormat string `yaml:"output_format"` // text, json
	Verbose      bool   `yaml:"verbose"`
}

// NewConfig creates a new configuration from the environment with defaults
func NewConfig() *Config {
	return &Config{
		Source:                 getEnv("SAMPLE_SOURCE", SourcePostgres),
		DatabaseURL:            getEnv("DATABASE_URL", "host=localhost port=5432 user=cnc password=devpassword dbname=cnc sslmode=disable"),
		SampleTable:            getEnv("SAMPLE_TABLE", storage.DefaultTable),
		PrometheusURL:          getEnv("PROMETHEUS_URL", "http://localhost:9090"),
		PrometheusStep:         getEnvDuration("PROMETHEUS_STEP", time.Minute),
		PrometheusSignalMetric: getEnv("PROMETHEUS_SIGNAL_METRIC", "cnc_value"),
		PrometheusCycleMetric:  getEnv("PROMETHEUS_CYCLE_METRIC", "cnc_cycle_time_minutes"),
		PrometheusProgramLabel: getEnv("PROMETHEUS_PROGRAM_LABEL", "program"),
		CSVPath:                getEnv("CSV_PATH", ""),
		JobMarker:              getEnv("JOB_MARKER", analyzer.DefaultJobMarker),
		MissingProgram:         getEnv("MISSING_PROGRAM", string(analyzer.MissingBucket)),
		UnknownLabel:           getEnv("UNKNOWN_LABEL", analyzer.DefaultUnknownLabel),
		OrderingPolicy:         getEnv("ORDERING_POLICY", string(analyzer.OrderingSort)),
		Timezone:               getEnv("TIMEZONE", "Local"),
		QueryTimeout:           getEnvDuration("QUERY_TIMEOUT", 30*time.Second),
		ListenAddr:             getEnv("LISTEN_ADDR", ":8050"),
		RedisAddr:              getEnv("REDIS_ADDR", ""),
		RateLimit:              getEnvInt("RATE_LIMIT", 60),
		RateWindow:             getEnvDuration("RATE_WINDOW", time.Minute),
		TrustedProxies:         getEnvList("TRUSTED_PROXIES"),
		OutputFormat:           "text",
		Verbose:                getEnvBool("VERBOSE", false),
	}
}

// LoadEnvFile loads KEY=value pairs from path into the environment.
// Variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Override adjusts a loaded Config before validation, e.g. from CLI flags
type Override func(*Config)

// ReadFile reads the environment defaults and overlays the YAML file at
// path. The result is not validated.
func ReadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFile is ReadFile followed by the overrides and Validate
func LoadFile(path string, overrides ...Override) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		if path == "" {
			return nil, err
		}
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var list []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	switch c.Source {
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when the sample source is postgres")
		}
	case SourcePrometheus:
		if c.PrometheusURL == "" {
			return fmt.Errorf("PROMETHEUS_URL must be set when the sample source is prometheus")
		}
		if c.PrometheusStep <= 0 {
			return fmt.Errorf("prometheus step must be positive")
		}
	case SourceCSV:
		if c.CSVPath == "" {
			return fmt.Errorf("CSV_PATH must be set when the sample source is csv")
		}
	default:
		return fmt.Errorf("unknown sample source %q (want postgres, prometheus or csv)", c.Source)
	}

	if _, err := c.AnalyzerOptions(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("query timeout must not be negative")
	}
	if c.RedisAddr != "" && (c.RateLimit < 1 || c.RateWindow < time.Second) {
		return fmt.Errorf("rate limit must be >= 1 per window of at least 1s")
	}
	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return fmt.Errorf("invalid trusted proxy %q: want an IP or CIDR", proxy)
		}
	}
	return nil
}

// AnalyzerOptions converts the analysis settings
func (c *Config) AnalyzerOptions() (analyzer.Options, error) {
	missing, err := analyzer.ParseMissingProgramPolicy(c.MissingProgram)
	if err != nil {
		return analyzer.Options{}, err
	}
	ordering, err := analyzer.ParseOrderingPolicy(c.OrderingPolicy)
	if err != nil {
		return analyzer.Options{}, err
	}
	loc, err := c.Location()
	if err != nil {
		return analyzer.Options{}, err
	}

	return analyzer.Options{
		Aggregate: analyzer.AggregateOptions{
			Marker:       c.JobMarker,
			Missing:      missing,
			UnknownLabel: c.UnknownLabel,
			Location:     loc,
		},
		Ordering:     ordering,
		QueryTimeout: c.QueryTimeout,
	}, nil
}

// Location resolves Timezone; empty and "Local" mean the host zone
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// PrometheusConfig returns the Prometheus source settings
func (c *Config) PrometheusConfig() datasource.PrometheusConfig {
	return datasource.PrometheusConfig{
		URL:          c.PrometheusURL,
		SignalMetric: c.PrometheusSignalMetric,
		CycleMetric:  c.PrometheusCycleMetric,
		ProgramLabel: c.PrometheusProgramLabel,
		Step:         c.PrometheusStep,
	}
}
