package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/modules/earnedvalue"
	"github.com/yungbote/earnedvalue-backend/internal/platform/envutil"
)

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type DBConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type MQConfig struct {
	URL      string        `yaml:"url"`
	Queue    string        `yaml:"queue"`
	Prefetch int           `yaml:"prefetch"`
	DedupTTL time.Duration `yaml:"dedup_ttl"`
}

type AuthConfig struct {
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Disabled bool   `yaml:"disabled"`
	DevActor string `yaml:"dev_actor"`
	DevRole  string `yaml:"dev_role"`
}

type LogConfig struct {
	Mode string `yaml:"mode"`
	// Level overrides the mode's default level when set.
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	Headers     string  `yaml:"headers"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// EarnedValueConfig holds the engine knobs.
type EarnedValueConfig struct {
	LengthFactor          float64       `yaml:"length_factor"`
	AllocationBatchSize   int           `yaml:"allocation_batch_size"`
	ReportCacheTTL        time.Duration `yaml:"report_cache_ttl"`
	LinearCategories      []string      `yaml:"linear_categories"`
	NoSizeSentinels       []string      `yaml:"no_size_sentinels"`
	RequireRevisionReason bool          `yaml:"require_revision_reason"`
	TemplatesFile         string        `yaml:"templates_file"`
	WriteAttempts         int           `yaml:"write_attempts"`
	WriteRetryBackoff     time.Duration `yaml:"write_retry_backoff"`
}

type Config struct {
	Env         string            `yaml:"-"`
	Server      ServerConfig      `yaml:"server"`
	DB          DBConfig          `yaml:"db"`
	Redis       RedisConfig       `yaml:"redis"`
	MQ          MQConfig          `yaml:"mq"`
	Auth        AuthConfig        `yaml:"auth"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Otel        OtelConfig        `yaml:"otel"`
	EarnedValue EarnedValueConfig `yaml:"earned_value"`
}

// Load reads dir/base.yaml, merges dir/<env>.yaml over it when present, then
// applies environment overrides. A .env file in the working directory is
// loaded first; variables already set in the process win over it.
func Load(env, dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if env == "" {
		env = envutil.String("CONFIG_ENV", "local")
	}
	if dir == "" {
		dir = envutil.String("CONFIG_DIR", "config")
	}

	base, err := loadYAMLFile(filepath.Join(dir, "base.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load base.yaml: %w", err)
	}
	merged := base
	if env != "base" {
		envFile := filepath.Join(dir, env+".yaml")
		if _, statErr := os.Stat(envFile); statErr == nil {
			overlay, err := loadYAMLFile(envFile)
			if err != nil {
				return nil, fmt.Errorf("load %s.yaml: %w", env, err)
			}
			merged = mergeMaps(base, overlay)
		}
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}
	cfg.Env = env
	overrideFromEnv(cfg)
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a single YAML document without files or environment.
func Parse(raw []byte) (*Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg, err := decode(m)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func loadYAMLFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// mergeMaps returns dst with src laid over it; nested maps merge recursively.
func mergeMaps(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if dm, ok := out[k].(map[string]any); ok {
			if sm, ok := v.(map[string]any); ok {
				out[k] = mergeMaps(dm, sm)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// decode round-trips the merged map through yaml so struct tags and
// duration parsing apply.
func decode(m map[string]any) (*Config, error) {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode merged config: %w", err)
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func overrideFromEnv(cfg *Config) {
	cfg.Server.Port = envutil.String("SERVER_PORT", cfg.Server.Port)
	if raw := envutil.String("CORS_ORIGINS", ""); raw != "" {
		cfg.Server.CORSOrigins = splitList(raw)
	}

	cfg.DB.Driver = envutil.String("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.DSN = envutil.String("DB_DSN", cfg.DB.DSN)
	cfg.DB.Host = envutil.String("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = envutil.String("DB_PORT", cfg.DB.Port)
	cfg.DB.User = envutil.String("DB_USER", cfg.DB.User)
	cfg.DB.Password = envutil.String("DB_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = envutil.String("DB_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = envutil.String("DB_SSLMODE", cfg.DB.SSLMode)
	cfg.DB.AutoMigrate = envutil.Bool("DB_AUTO_MIGRATE", cfg.DB.AutoMigrate)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)

	cfg.MQ.URL = envutil.String("MQ_URL", cfg.MQ.URL)
	cfg.MQ.Queue = envutil.String("MQ_QUEUE", cfg.MQ.Queue)
	cfg.MQ.Prefetch = envutil.Int("MQ_PREFETCH", cfg.MQ.Prefetch)

	cfg.Auth.Secret = envutil.String("JWT_SECRET", cfg.Auth.Secret)
	cfg.Auth.Issuer = envutil.String("JWT_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.Disabled = envutil.Bool("AUTH_DISABLED", cfg.Auth.Disabled)

	cfg.Log.Mode = envutil.String("LOG_MODE", cfg.Log.Mode)
	cfg.Log.Level = envutil.String("LOG_LEVEL", cfg.Log.Level)
	cfg.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", cfg.Metrics.Enabled)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
	cfg.Otel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.Otel.Headers)
	cfg.Otel.SampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", cfg.Otel.SampleRatio)

	cfg.EarnedValue.RequireRevisionReason = envutil.Bool("EV_REQUIRE_REVISION_REASON", cfg.EarnedValue.RequireRevisionReason)
	cfg.EarnedValue.ReportCacheTTL = envutil.Duration("EV_REPORT_CACHE_TTL", cfg.EarnedValue.ReportCacheTTL)
	cfg.EarnedValue.TemplatesFile = envutil.String("EV_TEMPLATES_FILE", cfg.EarnedValue.TemplatesFile)
	cfg.EarnedValue.WriteAttempts = envutil.Int("EV_WRITE_ATTEMPTS", cfg.EarnedValue.WriteAttempts)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = "postgres"
	}
	if cfg.MQ.DedupTTL <= 0 {
		cfg.MQ.DedupTTL = 24 * time.Hour
	}
	if cfg.Log.Mode == "" {
		cfg.Log.Mode = "development"
	}
	if cfg.Otel.ServiceName == "" {
		cfg.Otel.ServiceName = "earnedvalue"
	}
	ev := &cfg.EarnedValue
	if ev.LengthFactor <= 0 {
		ev.LengthFactor = earnedvalue.DefaultLengthFactor
	}
	if ev.AllocationBatchSize <= 0 {
		ev.AllocationBatchSize = 500
	}
	if ev.ReportCacheTTL <= 0 {
		ev.ReportCacheTTL = 30 * time.Second
	}
	if ev.TemplatesFile == "" {
		ev.TemplatesFile = "config/templates.yaml"
	}
	if ev.WriteAttempts <= 0 {
		ev.WriteAttempts = 1
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.DB.Driver) {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("db.driver: unsupported %q", c.DB.Driver))
	}
	if !c.Auth.Disabled && strings.TrimSpace(c.Auth.Secret) == "" {
		errs = append(errs, errors.New("auth.secret: required unless auth.disabled"))
	}
	for _, raw := range c.EarnedValue.LinearCategories {
		if _, ok := progress.ParseCategory(raw); !ok {
			errs = append(errs, fmt.Errorf("earned_value.linear_categories: unknown category %q", raw))
		}
	}
	if c.Otel.SampleRatio < 0 || c.Otel.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("otel.sample_ratio: %v outside [0,1]", c.Otel.SampleRatio))
	}
	return errors.Join(errs...)
}

// WeightPolicy builds the distribution policy from the engine knobs. Empty
// lists fall back to the engine defaults.
func (c *Config) WeightPolicy() earnedvalue.WeightPolicy {
	p := earnedvalue.DefaultWeightPolicy()
	p.LengthFactor = c.EarnedValue.LengthFactor
	if len(c.EarnedValue.LinearCategories) > 0 {
		p.LinearCategories = p.LinearCategories[:0:0]
		for _, raw := range c.EarnedValue.LinearCategories {
			if cat, ok := progress.ParseCategory(raw); ok {
				p.LinearCategories = append(p.LinearCategories, cat)
			}
		}
	}
	if len(c.EarnedValue.NoSizeSentinels) > 0 {
		p.NoSizeSentinels = append([]string(nil), c.EarnedValue.NoSizeSentinels...)
	}
	return p
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
