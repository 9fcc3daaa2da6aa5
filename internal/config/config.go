package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr         string        `yaml:"addr"`
	AuthFile     string        `yaml:"authFile"`
	AuthRequired bool          `yaml:"authRequired"`
	CooldownMs   int64         `yaml:"cooldownMs"`
	MaxWait      time.Duration `yaml:"maxWait"`
	DBPath       string        `yaml:"dbPath"`
	LogLevel     string        `yaml:"logLevel"`
	LogFormat    string        `yaml:"logFormat"`
	RateRPS      float64       `yaml:"rateRPS"`
	RateBurst    int           `yaml:"rateBurst"`
	Slugs        []string      `yaml:"slugs"`
	// UserAgent overrides the derived outbound User-Agent when set.
	UserAgent string `yaml:"userAgent"`
}

func Default() Config {
	return Config{
		Addr:         ":8080",
		AuthFile:     ".sblpy/auth_config.json",
		AuthRequired: true,
		CooldownMs:   7_200_000, // two hours, the conventional bump interval
		MaxWait:      60 * time.Second,
		LogLevel:     "info",
		LogFormat:    "text",
		RateBurst:    5,
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// SBLP_CONFIG when path is empty; a missing default file is fine), then
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("SBLP_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = "sblp.yaml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// optional default file
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Addr = envString("SBLP_ADDR", cfg.Addr)
	if cfg.Addr == Default().Addr {
		if port := os.Getenv("PORT"); port != "" {
			cfg.Addr = ":" + port
		}
	}
	cfg.AuthFile = envString("SBLP_AUTH_FILE", cfg.AuthFile)
	cfg.AuthRequired = envBool("SBLP_AUTH_REQUIRED", cfg.AuthRequired)
	cfg.CooldownMs = envInt64("SBLP_COOLDOWN_MS", cfg.CooldownMs)
	cfg.MaxWait = envDuration("SBLP_MAXWAIT", cfg.MaxWait)
	cfg.DBPath = envString("SBLP_DB", cfg.DBPath)
	cfg.LogLevel = envString("SBLP_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envString("SBLP_LOG_FORMAT", cfg.LogFormat)
	cfg.RateRPS = envFloat("SBLP_RATE_RPS", cfg.RateRPS)
	cfg.RateBurst = envInt("SBLP_RATE_BURST", cfg.RateBurst)
	if v := os.Getenv("SBLP_SLUGS"); v != "" {
		cfg.Slugs = splitList(v)
	}
	cfg.UserAgent = envString("SBLP_USER_AGENT", cfg.UserAgent)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	var out []string
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
