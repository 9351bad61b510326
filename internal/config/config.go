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

	"github.com/causalstack/causal-sentinel/internal/models"
)

// Config captures the settings required to run the sentinel engine.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Detection DetectionConfig      `yaml:"detection"`
	DataLake  DataLakeClientConfig `yaml:"dataLake"`
	Logging   LoggingConfig        `yaml:"logging"`
	Advice    AdviceConfig         `yaml:"advice"`
	Cache     CacheConfig          `yaml:"cache"`
}

// ServerConfig controls the HTTP listener behaviour in serve mode.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// DetectionConfig holds the analysis tunables exposed to callers.
type DetectionConfig struct {
	Window              int      `yaml:"window"`
	Threshold           float64  `yaml:"threshold"`
	RecoveryFraction    float64  `yaml:"recoveryFraction"`
	LookbackDays        int      `yaml:"lookbackDays"`
	MaterialityFraction float64  `yaml:"materialityFraction"`
	ConfounderColumns   []string `yaml:"confounderColumns"`
	RefuteSimulations   int      `yaml:"refuteSimulations"`
	Workers             int      `yaml:"workers"`
}

// AnalysisConfig converts the tunables into the request-level shape.
func (d DetectionConfig) AnalysisConfig() models.AnalysisConfig {
	return models.AnalysisConfig{
		Window:              d.Window,
		Threshold:           d.Threshold,
		RecoveryFraction:    d.RecoveryFraction,
		LookbackDays:        d.LookbackDays,
		MaterialityFraction: d.MaterialityFraction,
		ConfounderColumns:   append([]string(nil), d.ConfounderColumns...),
	}
}

// DataLakeClientConfig configures access to the external data-lake service.
type DataLakeClientConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	MetricsPath string        `yaml:"metricsPath"`
	EventsPath  string        `yaml:"eventsPath"`
	Timeout     time.Duration `yaml:"timeout"`
	CacheTTL    time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// AdviceConfig controls rule-pack loading for the report advisor.
type AdviceConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls memoization of analysis runs. With no address the
// engine falls back to an in-process cache.
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
	ResultTTL    time.Duration `yaml:"resultTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SENTINEL_CONFIG")
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
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Detection: DetectionConfig{
			Window:              7,
			Threshold:           2.0,
			RecoveryFraction:    0.5,
			LookbackDays:        3,
			MaterialityFraction: 0.01,
			RefuteSimulations:   10,
			Workers:             4,
		},
		DataLake: DataLakeClientConfig{
			MetricsPath: "/api/v1/lake/metrics",
			EventsPath:  "/api/v1/lake/events",
			Timeout:     5 * time.Second,
			CacheTTL:    5 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Advice:  AdviceConfig{Path: "configs/advice/default.yaml"},
		Cache: CacheConfig{
			Enabled:      true,
			ResultTTL:    10 * time.Minute,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SENTINEL_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("SENTINEL_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("SENTINEL_DATALAKE_BASE_URL"); v != "" {
		cfg.DataLake.BaseURL = v
	}
	if v := os.Getenv("SENTINEL_DATALAKE_METRICS_PATH"); v != "" {
		cfg.DataLake.MetricsPath = v
	}
	if v := os.Getenv("SENTINEL_DATALAKE_EVENTS_PATH"); v != "" {
		cfg.DataLake.EventsPath = v
	}
	if v := os.Getenv("SENTINEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SENTINEL_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("SENTINEL_ADVICE_PATH"); v != "" {
		cfg.Advice.Path = v
	}
	if v := os.Getenv("SENTINEL_DETECTION_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Detection.Window = n
		}
	}
	if v := os.Getenv("SENTINEL_DETECTION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detection.Threshold = f
		}
	}
	if v := os.Getenv("SENTINEL_DETECTION_LOOKBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Detection.LookbackDays = n
		}
	}
	if v := os.Getenv("SENTINEL_DETECTION_CONFOUNDERS"); v != "" {
		cfg.Detection.ConfounderColumns = splitAndTrim(v)
	}
	if v := os.Getenv("SENTINEL_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("SENTINEL_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("SENTINEL_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("SENTINEL_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("SENTINEL_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("SENTINEL_CACHE_RESULT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ResultTTL = d
		}
	}
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
