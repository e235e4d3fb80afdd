package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the YAML configuration file. Pointers distinguish
// "absent" from zero values so the merge can respect precedence.
type FileConfig struct {
	ListenAddr     *string  `yaml:"listen_addr"`
	MetricsAddr    *string  `yaml:"metrics_addr"`
	APIToken       *string  `yaml:"api_token"`
	AuthAnonymous  *bool    `yaml:"auth_anonymous"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	TrustedProxies []string `yaml:"trusted_proxies"`
	LogLevel       *string  `yaml:"log_level"`

	RateLimit *struct {
		Enabled        *bool `yaml:"enabled"`
		RequestsPerMin *int  `yaml:"requests_per_min"`
		Burst          *int  `yaml:"burst"`
	} `yaml:"rate_limit"`

	HeyGen *struct {
		BaseURL          *string        `yaml:"base_url"`
		APIKey           *string        `yaml:"api_key"`
		Timeout          *time.Duration `yaml:"timeout"`
		RatePerSec       *float64       `yaml:"rate_per_sec"`
		RateBurst        *int           `yaml:"rate_burst"`
		BreakerThreshold *int           `yaml:"breaker_threshold"`
		BreakerReset     *time.Duration `yaml:"breaker_reset"`
	} `yaml:"heygen"`

	Session *struct {
		Store         *string        `yaml:"store"`
		Path          *string        `yaml:"path"`
		IdleTimeout   *time.Duration `yaml:"idle_timeout"`
		SweepInterval *time.Duration `yaml:"sweep_interval"`
	} `yaml:"session"`

	Cache *struct {
		Backend   *string        `yaml:"backend"`
		RedisAddr *string        `yaml:"redis_addr"`
		RedisDB   *int           `yaml:"redis_db"`
		TTL       *time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Telemetry *struct {
		Enabled      *bool    `yaml:"enabled"`
		ExporterType *string  `yaml:"exporter"`
		Endpoint     *string  `yaml:"endpoint"`
		SamplingRate *float64 `yaml:"sampling_rate"`
	} `yaml:"telemetry"`
}

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order is: defaults, strict file parse, env override, validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile parses the YAML file with strict field checking so typos fail
// fast instead of being silently ignored.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if err == io.EOF {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fc, nil
}

func defaults() AppConfig {
	return AppConfig{
		ListenAddr:  ":8080",
		MetricsAddr: ":9090",
		LogLevel:    "info",
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 600,
			Burst:          60,
		},
		HeyGen: HeyGenConfig{
			BaseURL:          "https://api.heygen.com",
			Timeout:          30 * time.Second,
			RatePerSec:       0,
			RateBurst:        1,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		Session: SessionConfig{
			Store:         "memory",
			IdleTimeout:   2 * time.Minute,
			SweepInterval: 15 * time.Second,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     5 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			ExporterType: "http",
			SamplingRate: 1.0,
		},
	}
}

func mergeFileConfig(cfg *AppConfig, fc *FileConfig) {
	setString(&cfg.ListenAddr, fc.ListenAddr)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)
	setString(&cfg.APIToken, fc.APIToken)
	setBool(&cfg.AuthAnonymous, fc.AuthAnonymous)
	setString(&cfg.LogLevel, fc.LogLevel)
	if len(fc.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = fc.AllowedOrigins
	}
	if len(fc.TrustedProxies) > 0 {
		cfg.TrustedProxies = fc.TrustedProxies
	}
	if rl := fc.RateLimit; rl != nil {
		setBool(&cfg.RateLimit.Enabled, rl.Enabled)
		setInt(&cfg.RateLimit.RequestsPerMin, rl.RequestsPerMin)
		setInt(&cfg.RateLimit.Burst, rl.Burst)
	}
	if hg := fc.HeyGen; hg != nil {
		setString(&cfg.HeyGen.BaseURL, hg.BaseURL)
		setString(&cfg.HeyGen.APIKey, hg.APIKey)
		setDuration(&cfg.HeyGen.Timeout, hg.Timeout)
		setFloat(&cfg.HeyGen.RatePerSec, hg.RatePerSec)
		setInt(&cfg.HeyGen.RateBurst, hg.RateBurst)
		setInt(&cfg.HeyGen.BreakerThreshold, hg.BreakerThreshold)
		setDuration(&cfg.HeyGen.BreakerReset, hg.BreakerReset)
	}
	if s := fc.Session; s != nil {
		setString(&cfg.Session.Store, s.Store)
		setString(&cfg.Session.Path, s.Path)
		setDuration(&cfg.Session.IdleTimeout, s.IdleTimeout)
		setDuration(&cfg.Session.SweepInterval, s.SweepInterval)
	}
	if c := fc.Cache; c != nil {
		setString(&cfg.Cache.Backend, c.Backend)
		setString(&cfg.Cache.RedisAddr, c.RedisAddr)
		setInt(&cfg.Cache.RedisDB, c.RedisDB)
		setDuration(&cfg.Cache.TTL, c.TTL)
	}
	if t := fc.Telemetry; t != nil {
		setBool(&cfg.Telemetry.Enabled, t.Enabled)
		setString(&cfg.Telemetry.ExporterType, t.ExporterType)
		setString(&cfg.Telemetry.Endpoint, t.Endpoint)
		setFloat(&cfg.Telemetry.SamplingRate, t.SamplingRate)
	}
}

// mergeEnvConfig applies HGS_* environment variables, the highest
// precedence layer.
func mergeEnvConfig(cfg *AppConfig) {
	cfg.ListenAddr = ParseString("HGS_LISTEN", cfg.ListenAddr)
	cfg.MetricsAddr = ParseString("HGS_METRICS_LISTEN", cfg.MetricsAddr)
	cfg.APIToken = ParseString("HGS_API_TOKEN", cfg.APIToken)
	cfg.AuthAnonymous = ParseBool("HGS_AUTH_ANONYMOUS", cfg.AuthAnonymous)
	cfg.LogLevel = ParseString("HGS_LOG_LEVEL", cfg.LogLevel)
	if raw := ParseString("HGS_ALLOWED_ORIGINS", ""); raw != "" {
		cfg.AllowedOrigins = SplitCSVNonEmpty(raw)
	}
	if raw := ParseString("HGS_TRUSTED_PROXIES", ""); raw != "" {
		cfg.TrustedProxies = SplitCSVNonEmpty(raw)
	}

	cfg.RateLimit.Enabled = ParseBool("HGS_RATELIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RequestsPerMin = ParseInt("HGS_RATELIMIT_RPM", cfg.RateLimit.RequestsPerMin)
	cfg.RateLimit.Burst = ParseInt("HGS_RATELIMIT_BURST", cfg.RateLimit.Burst)

	cfg.HeyGen.BaseURL = ParseString("HEYGEN_BASE_URL", cfg.HeyGen.BaseURL)
	cfg.HeyGen.APIKey = ParseString("HEYGEN_API_KEY", cfg.HeyGen.APIKey)
	cfg.HeyGen.Timeout = ParseDuration("HEYGEN_TIMEOUT", cfg.HeyGen.Timeout)
	cfg.HeyGen.RatePerSec = ParseFloat("HEYGEN_RATE_PER_SEC", cfg.HeyGen.RatePerSec)
	cfg.HeyGen.RateBurst = ParseInt("HEYGEN_RATE_BURST", cfg.HeyGen.RateBurst)
	cfg.HeyGen.BreakerThreshold = ParseInt("HGS_BREAKER_THRESHOLD", cfg.HeyGen.BreakerThreshold)
	cfg.HeyGen.BreakerReset = ParseDuration("HGS_BREAKER_RESET", cfg.HeyGen.BreakerReset)

	cfg.Session.Store = ParseString("HGS_SESSION_STORE", cfg.Session.Store)
	cfg.Session.Path = ParseString("HGS_SESSION_PATH", cfg.Session.Path)
	cfg.Session.IdleTimeout = ParseDuration("HGS_SESSION_IDLE_TIMEOUT", cfg.Session.IdleTimeout)
	cfg.Session.SweepInterval = ParseDuration("HGS_SESSION_SWEEP_INTERVAL", cfg.Session.SweepInterval)

	cfg.Cache.Backend = ParseString("HGS_CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.RedisAddr = ParseString("HGS_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisDB = ParseInt("HGS_REDIS_DB", cfg.Cache.RedisDB)
	cfg.Cache.TTL = ParseDuration("HGS_CACHE_TTL", cfg.Cache.TTL)

	cfg.Telemetry.Enabled = ParseBool("HGS_OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.ExporterType = ParseString("HGS_OTEL_EXPORTER", cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = ParseString("HGS_OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat("HGS_OTEL_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *time.Duration) {
	if src != nil {
		*dst = *src
	}
}
