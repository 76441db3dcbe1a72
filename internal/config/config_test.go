package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoad_MergesEnvFileOverBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
server:
  port: "8080"
db:
  driver: postgres
  host: db.internal
  name: ev
auth:
  secret: base-secret
earned_value:
  report_cache_ttl: 45s
`)
	writeFile(t, dir, "staging.yaml", `
db:
  name: ev_staging
earned_value:
  require_revision_reason: true
`)

	cfg, err := Load("staging", dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "staging" {
		t.Fatalf("env: want=staging got=%s", cfg.Env)
	}
	if cfg.DB.Host != "db.internal" || cfg.DB.Name != "ev_staging" {
		t.Fatalf("db merge: unexpected %+v", cfg.DB)
	}
	if !cfg.EarnedValue.RequireRevisionReason {
		t.Fatalf("require_revision_reason from overlay not applied")
	}
	if cfg.EarnedValue.ReportCacheTTL != 45*time.Second {
		t.Fatalf("report_cache_ttl: want=45s got=%s", cfg.EarnedValue.ReportCacheTTL)
	}
	if cfg.EarnedValue.AllocationBatchSize != 500 || cfg.EarnedValue.LengthFactor != 0.1 {
		t.Fatalf("engine defaults: unexpected %+v", cfg.EarnedValue)
	}
	if cfg.EarnedValue.WriteAttempts != 1 {
		t.Fatalf("write_attempts default: want=1 got=%d", cfg.EarnedValue.WriteAttempts)
	}
}

func TestLoad_EnvironmentWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
server:
  port: "8080"
db:
  driver: postgres
auth:
  secret: from-file
`)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("MQ_URL", "amqp://guest:guest@mq:5672/")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load("base", dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.DB.Driver != "sqlite" || cfg.Auth.Secret != "from-env" {
		t.Fatalf("overrides: unexpected %+v", cfg)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.MQ.URL == "" || !cfg.Metrics.Enabled {
		t.Fatalf("infra overrides: unexpected redis=%+v mq=%+v metrics=%+v", cfg.Redis, cfg.MQ, cfg.Metrics)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins: unexpected %v", cfg.Server.CORSOrigins)
	}
}

func TestLoad_Validation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  driver: mysql
earned_value:
  linear_categories: [boiler]
`)
	_, err := Load("base", dir)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"db.driver", "auth.secret", "boiler"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should mention %s", err, want)
		}
	}

	if _, err := Load("base", t.TempDir()); err == nil {
		t.Fatalf("missing base.yaml must fail")
	}
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("server:\n  prot: \"80\"\n")); err == nil {
		t.Fatalf("typo in key must be rejected")
	}
}

func TestConfig_WeightPolicy(t *testing.T) {
	cfg, err := Parse([]byte(`
earned_value:
  length_factor: 0.25
  linear_categories: ["Threaded Pipe", tubing]
  no_size_sentinels: [TBD]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p := cfg.WeightPolicy()
	if p.LengthFactor != 0.25 {
		t.Fatalf("length factor: want=0.25 got=%v", p.LengthFactor)
	}
	if len(p.LinearCategories) != 2 || p.LinearCategories[0] != progress.CategoryThreadedPipe || p.LinearCategories[1] != progress.CategoryTubing {
		t.Fatalf("linear categories: unexpected %v", p.LinearCategories)
	}
	if len(p.NoSizeSentinels) != 1 || p.NoSizeSentinels[0] != "TBD" {
		t.Fatalf("sentinels: unexpected %v", p.NoSizeSentinels)
	}

	def, _ := Parse([]byte(""))
	if len(def.WeightPolicy().LinearCategories) == 0 {
		t.Fatalf("empty config must keep default linear categories")
	}
}

func TestRepoConfigFilesLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", "test")
	for _, env := range []string{"local", "production"} {
		cfg, err := Load(env, "../../config")
		if err != nil {
			t.Fatalf("Load(%s): %v", env, err)
		}
		if cfg.EarnedValue.WriteAttempts != 3 || cfg.EarnedValue.WriteRetryBackoff != 50*time.Millisecond {
			t.Fatalf("Load(%s) retry policy: unexpected %+v", env, cfg.EarnedValue)
		}
	}
}
