package config

import (
	"fmt"
	"strings"
	"time"

	"netblock/pkg/apperror"
)

// Config - главная структура конфигурации
type Config struct {
	App      AppConfig      `koanf:"app"`
	Log      LogConfig      `koanf:"log"`
	Input    InputConfig    `koanf:"input"`
	Solver   SolverConfig   `koanf:"solver"`
	Report   ReportConfig   `koanf:"report"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Tracing  TracingConfig  `koanf:"tracing"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
}

// AppConfig - общие настройки приложения
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file, discard
	FilePath   string `koanf:"file_path"`   // путь к файлу логов
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // количество бэкапов
	MaxAge     int    `koanf:"max_age"`     // дней
	Compress   bool   `koanf:"compress"`
}

// InputConfig - источник описания сети
type InputConfig struct {
	Path   string `koanf:"path"`   // каталог с node.csv/link.csv/service.txt или файл .xlsx
	Format string `koanf:"format"` // auto, csv, xlsx
}

// SolverConfig - параметры поиска
type SolverConfig struct {
	TargetFlow    int64         `koanf:"target_flow"`
	Oracle        string        `koanf:"oracle"` // gophersat, gini
	OracleTimeout time.Duration `koanf:"oracle_timeout"`
	Ceiling       int64         `koanf:"ceiling"` // 0 - сумма стоимостей всех связей
	Verify        bool          `koanf:"verify"`
	Parallelism   int           `koanf:"parallelism"` // для пакетного решения
}

// ReportConfig - формат и назначение отчёта
type ReportConfig struct {
	Format string `koanf:"format"` // json, markdown, csv, xlsx, pdf
	Output string `koanf:"output"` // пустая строка - stdout
	Title  string `koanf:"title"`
	Trace  bool   `koanf:"trace"` // включать ли итерации поиска
}

// MetricsConfig - настройки Prometheus метрик
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig - настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
	Insecure    bool    `koanf:"insecure"`
}

// DatabaseConfig - настройки базы данных истории запусков
type DatabaseConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN возвращает строку подключения
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
	)
}

// CacheConfig - настройки кэширования результатов
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // для in-memory
}

// Address возвращает адрес кэша
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var (
	validLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validOracles  = map[string]bool{"gophersat": true, "gini": true}
	validFormats  = map[string]bool{"json": true, "markdown": true, "csv": true, "xlsx": true, "pdf": true}
	validInputs   = map[string]bool{"auto": true, "csv": true, "xlsx": true}
	validDrivers  = map[string]bool{"memory": true, "redis": true}
	binaryFormats = map[string]bool{"xlsx": true, "pdf": true}
)

// Validate проверяет конфигурацию и возвращает все найденные ошибки разом
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if !validInputs[c.Input.Format] {
		errs = append(errs, fmt.Sprintf("input.format must be one of: auto, csv, xlsx, got %s", c.Input.Format))
	}

	if c.Solver.TargetFlow < 0 {
		errs = append(errs, fmt.Sprintf("solver.target_flow must be non-negative, got %d", c.Solver.TargetFlow))
	}
	if !validOracles[c.Solver.Oracle] {
		errs = append(errs, fmt.Sprintf("solver.oracle must be one of: gophersat, gini, got %s", c.Solver.Oracle))
	}
	if c.Solver.OracleTimeout < 0 {
		errs = append(errs, "solver.oracle_timeout must be non-negative")
	}
	if c.Solver.Ceiling < 0 {
		errs = append(errs, "solver.ceiling must be non-negative")
	}
	if c.Solver.Parallelism < 1 {
		errs = append(errs, fmt.Sprintf("solver.parallelism must be at least 1, got %d", c.Solver.Parallelism))
	}

	if !validFormats[c.Report.Format] {
		errs = append(errs, fmt.Sprintf("report.format must be one of: json, markdown, csv, xlsx, pdf, got %s", c.Report.Format))
	}
	if binaryFormats[c.Report.Format] && c.Report.Output == "" {
		errs = append(errs, fmt.Sprintf("report.output is required for %s reports", c.Report.Format))
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Sprintf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port))
	}

	if c.Tracing.Enabled && (c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1) {
		errs = append(errs, fmt.Sprintf("tracing.sample_rate must be within [0, 1], got %g", c.Tracing.SampleRate))
	}

	if c.Cache.Enabled && !validDrivers[c.Cache.Driver] {
		errs = append(errs, fmt.Sprintf("cache.driver must be one of: memory, redis, got %s", c.Cache.Driver))
	}

	if c.Database.Enabled && c.Database.Host == "" {
		errs = append(errs, "database.host is required when database is enabled")
	}

	if len(errs) > 0 {
		return apperror.New(apperror.CodeConfigInvalid,
			fmt.Sprintf("configuration validation failed: %s", strings.Join(errs, "; "))).
			WithDetails("violations", errs)
	}

	return nil
}

// IsDevelopment проверяет режим разработки
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction проверяет продакшн режим
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
