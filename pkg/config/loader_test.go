package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"netblock/pkg/apperror"
)

func noFile(t *testing.T) LoaderOption {
	t.Helper()
	return WithConfigPaths(filepath.Join(t.TempDir(), "absent.yaml"))
}

func TestLoader_LoadDefaults(t *testing.T) {
	l := NewLoader(noFile(t))
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "netblock" {
		t.Errorf("expected app name 'netblock', got %s", cfg.App.Name)
	}
	if cfg.Solver.TargetFlow != 0 {
		t.Errorf("expected target flow 0, got %d", cfg.Solver.TargetFlow)
	}
	if cfg.Solver.Oracle != "gophersat" {
		t.Errorf("expected oracle gophersat, got %s", cfg.Solver.Oracle)
	}
	if !cfg.Solver.Verify {
		t.Error("verification should be on by default")
	}
	if cfg.Report.Format != "markdown" {
		t.Errorf("expected markdown report, got %s", cfg.Report.Format)
	}
	if cfg.Cache.DefaultTTL != 24*time.Hour {
		t.Errorf("expected cache ttl 24h, got %v", cfg.Cache.DefaultTTL)
	}
	if l.ConfigFile() != "" {
		t.Errorf("no file should be used, got %s", l.ConfigFile())
	}
}

func TestLoader_LoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
app:
  name: custom-blocker
  environment: staging
solver:
  target_flow: 5
  oracle: gini
  oracle_timeout: 30s
input:
  path: data/example
log:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	l := NewLoader(WithConfigPaths(configPath))
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "custom-blocker" {
		t.Errorf("expected app name 'custom-blocker', got %s", cfg.App.Name)
	}
	if cfg.Solver.TargetFlow != 5 {
		t.Errorf("expected target flow 5, got %d", cfg.Solver.TargetFlow)
	}
	if cfg.Solver.Oracle != "gini" {
		t.Errorf("expected oracle gini, got %s", cfg.Solver.Oracle)
	}
	if cfg.Solver.OracleTimeout != 30*time.Second {
		t.Errorf("expected oracle timeout 30s, got %v", cfg.Solver.OracleTimeout)
	}
	if cfg.Input.Path != "data/example" {
		t.Errorf("expected input path data/example, got %s", cfg.Input.Path)
	}
	if l.ConfigFile() == "" {
		t.Error("ConfigFile() should report the file")
	}
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("NETBLOCK_APP_NAME", "env-blocker")
	t.Setenv("NETBLOCK_SOLVER_TARGET_FLOW", "12")
	t.Setenv("NETBLOCK_SOLVER_ORACLE", "gini")
	t.Setenv("NETBLOCK_CACHE_DEFAULT_TTL", "1h")

	cfg, err := NewLoader(noFile(t)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "env-blocker" {
		t.Errorf("expected app name 'env-blocker', got %s", cfg.App.Name)
	}
	if cfg.Solver.TargetFlow != 12 {
		t.Errorf("expected target flow 12, got %d", cfg.Solver.TargetFlow)
	}
	if cfg.Solver.Oracle != "gini" {
		t.Errorf("expected oracle gini, got %s", cfg.Solver.Oracle)
	}
	if cfg.Cache.DefaultTTL != time.Hour {
		t.Errorf("expected cache ttl 1h, got %v", cfg.Cache.DefaultTTL)
	}
}

func TestLoader_EnvKeysWithUnderscores(t *testing.T) {
	t.Setenv("NETBLOCK_LOG_FILE_PATH", "/var/log/netblock.log")
	t.Setenv("NETBLOCK_DATABASE_CONN_MAX_IDLE_TIME", "90s")
	t.Setenv("NETBLOCK_TRACING_SAMPLE_RATE", "0.25")

	cfg, err := NewLoader(noFile(t)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Log.FilePath != "/var/log/netblock.log" {
		t.Errorf("expected log file path from env, got %q", cfg.Log.FilePath)
	}
	if cfg.Database.ConnMaxIdleTime != 90*time.Second {
		t.Errorf("expected conn max idle time 90s, got %v", cfg.Database.ConnMaxIdleTime)
	}
	if cfg.Tracing.SampleRate != 0.25 {
		t.Errorf("expected sample rate 0.25, got %v", cfg.Tracing.SampleRate)
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
app:
  name: file-blocker
report:
  format: json
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NETBLOCK_APP_NAME", "env-override")

	cfg, err := NewLoader(WithConfigPaths(configPath)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "env-override" {
		t.Errorf("expected env override, got %s", cfg.App.Name)
	}
	if cfg.Report.Format != "json" {
		t.Errorf("expected report format from file, got %s", cfg.Report.Format)
	}
}

func TestLoader_WithEnvPrefix(t *testing.T) {
	t.Setenv("CUSTOM_APP_NAME", "custom-prefix")

	cfg, err := NewLoader(noFile(t), WithEnvPrefix("CUSTOM_")).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "custom-prefix" {
		t.Errorf("expected 'custom-prefix', got %s", cfg.App.Name)
	}
}

func TestLoader_InvalidValueFromEnv(t *testing.T) {
	t.Setenv("NETBLOCK_SOLVER_ORACLE", "glucose")

	_, err := NewLoader(noFile(t)).Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !apperror.Is(err, apperror.CodeConfigInvalid) {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
}

func TestLoader_ConfigEnvVar(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "custom-config.yaml")

	configContent := `
app:
  name: config-env-var
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", configPath)

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "config-env-var" {
		t.Errorf("expected 'config-env-var', got %s", cfg.App.Name)
	}
}

func TestLoader_ConfigEnvVarMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := NewLoader().Load(); err == nil {
		t.Fatal("an explicit CONFIG_PATH that does not exist should fail")
	}
}

func TestMustLoad_Success(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustLoad should not panic with valid config")
		}
	}()

	if cfg := MustLoad(noFile(t)); cfg == nil {
		t.Error("expected non-nil config")
	}
}
