package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "NETBLOCK_"
	configEnvVar = "CONFIG_PATH"
)

// Loader загружает конфигурацию из разных источников
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
	usedFile    string
	envKeys     map[string]string // solver_target_flow -> solver.target_flow
}

// NewLoader создаёт новый загрузчик конфигурации
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/netblock/config.yaml",
		},
		envPrefix: envPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoaderOption - опция для конфигурации загрузчика
type LoaderOption func(*Loader)

// WithConfigPaths устанавливает пути поиска конфигурации
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// WithEnvPrefix устанавливает префикс переменных окружения
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// ConfigFile возвращает путь к прочитанному файлу или пустую строку,
// если использовались только значения по умолчанию и окружение
func (l *Loader) ConfigFile() string {
	return l.usedFile
}

// Load загружает конфигурацию с приоритетом:
// 1. Defaults (самый низкий)
// 2. Config file (yaml)
// 3. Environment variables (самый высокий)
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Файл не обязателен
	if err := l.loadConfigFile(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDefaults загружает значения по умолчанию и строит по их ключам
// индекс имён переменных окружения
func (l *Loader) loadDefaults() error {
	if err := l.k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return err
	}
	l.envKeys = make(map[string]string, len(l.k.Keys()))
	for _, key := range l.k.Keys() {
		l.envKeys[strings.ReplaceAll(key, ".", "_")] = key
	}
	return nil
}

// defaults значения по умолчанию. Каждый ключ конфига должен быть здесь,
// иначе его не задать через окружение, если в имени есть подчёркивание.
func defaults() map[string]any {
	return map[string]any{
		// App
		"app.name":        "netblock",
		"app.version":     "1.0.0",
		"app.environment": "development",

		// Log
		"log.level":       "info",
		"log.format":      "text",
		"log.output":      "stderr",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,
		"log.file_path":   "",

		// Input
		"input.path":   "input",
		"input.format": "auto",

		// Solver
		"solver.target_flow":    0,
		"solver.oracle":         "gophersat",
		"solver.oracle_timeout": time.Duration(0),
		"solver.ceiling":        0,
		"solver.verify":         true,
		"solver.parallelism":    4,

		// Report
		"report.format": "markdown",
		"report.output": "",
		"report.title":  "Network blocking report",
		"report.trace":  true,

		// Metrics
		"metrics.enabled":   false,
		"metrics.port":      9090,
		"metrics.path":      "/metrics",
		"metrics.namespace": "netblock",
		"metrics.subsystem": "solver",

		// Tracing
		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "netblock",
		"tracing.sample_rate":  1.0,
		"tracing.insecure":     true,

		// Database
		"database.enabled":            false,
		"database.host":               "localhost",
		"database.port":               5432,
		"database.database":           "netblock",
		"database.username":           "postgres",
		"database.password":           "",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     10,
		"database.max_idle_conns":     2,
		"database.conn_max_lifetime":  30 * time.Minute,
		"database.conn_max_idle_time": 5 * time.Minute,
		"database.auto_migrate":       true,

		// Cache
		"cache.enabled":     false,
		"cache.driver":      "memory",
		"cache.host":        "localhost",
		"cache.port":        6379,
		"cache.db":          0,
		"cache.default_ttl": 24 * time.Hour,
		"cache.max_entries": 1000,
	}
}

// loadConfigFile загружает конфигурацию из файла
func (l *Loader) loadConfigFile() error {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("%s=%s: %w", configEnvVar, configPath, err)
		}
		l.usedFile = configPath
		return l.k.Load(file.Provider(configPath), yaml.Parser())
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			l.usedFile = absPath
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return os.ErrNotExist
}

// loadEnv загружает переменные окружения: NETBLOCK_SOLVER_TARGET_FLOW
// попадает в solver.target_flow. Имена без совпадения в индексе делятся
// по каждому подчёркиванию.
func (l *Loader) loadEnv() error {
	return l.k.Load(env.ProviderWithValue(l.envPrefix, ".", func(envKey, value string) (string, any) {
		name := strings.ToLower(strings.TrimPrefix(envKey, l.envPrefix))
		if key, ok := l.envKeys[name]; ok {
			return key, value
		}
		return strings.ReplaceAll(name, "_", "."), value
	}), nil)
}

// MustLoad загружает конфигурацию или паникует
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load - удобная функция для загрузки с дефолтными настройками
func Load() (*Config, error) {
	return NewLoader().Load()
}
