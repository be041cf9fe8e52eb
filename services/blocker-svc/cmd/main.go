// Package main is the entry point for the netblock solver.
//
// netblock reads a network description and a source/destination pair and
// finds the cheapest set of links whose removal caps the maximum flow
// between them at a target value.
//
// # Usage
//
//	netblock [flags] [input ...]
//
// With no positional arguments the input path comes from the configuration
// (input.path). Several inputs are solved concurrently, at most
// solver.parallelism at a time, and -output then names a directory that
// receives one report per input.
//
// An input is either a directory holding node.csv, link.csv and service.txt
// or a single .xlsx workbook with node, link and service sheets.
//
// # Configuration
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Command line flags
//  2. Environment variables (prefix: NETBLOCK_)
//  3. Config file (CONFIG_PATH, -config, config.yaml, config/config.yaml)
//  4. Default values
//
// # Exit codes
//
//	0 - solved
//	1 - internal error
//	2 - malformed input or invalid configuration
//	3 - encoding or solver inconsistency
//	4 - no blocking set within the budget ceiling
//	5 - oracle gave no verdict (timeout or cancellation)
//	6 - verification of the answer failed
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"netblock/pkg/apperror"
	"netblock/pkg/cache"
	"netblock/pkg/config"
	"netblock/pkg/database"
	"netblock/pkg/logger"
	"netblock/pkg/metrics"
	"netblock/pkg/migrations"
	"netblock/pkg/telemetry"
	"netblock/services/blocker-svc/internal/oracle"
	"netblock/services/blocker-svc/internal/report"
	"netblock/services/blocker-svc/internal/repository"
	"netblock/services/blocker-svc/internal/service"
)

type flags struct {
	configPath string
	target     int64
	targetSet  bool
	oracle     string
	format     string
	output     string
	timeout    time.Duration
	noVerify   bool
	history    int
	inputs     []string
}

func parseFlags(args []string) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("netblock", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "path to a YAML config file")
	fs.Int64Var(&f.target, "target", 0, "maximum flow allowed after blocking")
	fs.StringVar(&f.oracle, "oracle", "", "SAT backend: "+strings.Join(oracle.Names(), ", "))
	fs.StringVar(&f.format, "format", "", "report format: "+strings.Join(report.Formats(), ", "))
	fs.StringVar(&f.output, "output", "", "report file, or directory for several inputs (default stdout)")
	fs.DurationVar(&f.timeout, "timeout", -1, "per-query oracle timeout (0 disables)")
	fs.BoolVar(&f.noVerify, "no-verify", false, "skip the max-flow check of the answer")
	fs.IntVar(&f.history, "history", 0, "list the N most recent runs and exit")

	if err := fs.Parse(args); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidArgument, "invalid command line")
	}
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "target" {
			f.targetSet = true
		}
	})
	f.inputs = fs.Args()
	return f, nil
}

// apply переносит флаги поверх загруженной конфигурации
func (f *flags) apply(cfg *config.Config) {
	if f.targetSet {
		cfg.Solver.TargetFlow = f.target
	}
	if f.oracle != "" {
		cfg.Solver.Oracle = f.oracle
	}
	if f.format != "" {
		cfg.Report.Format = f.format
	}
	if f.output != "" {
		cfg.Report.Output = f.output
	}
	if f.timeout >= 0 {
		cfg.Solver.OracleTimeout = f.timeout
	}
	if f.noVerify {
		cfg.Solver.Verify = false
	}
	if len(f.inputs) == 0 {
		f.inputs = []string{cfg.Input.Path}
	}
}

func loadConfig(f *flags) (*config.Config, error) {
	var opts []config.LoaderOption
	if f.configPath != "" {
		opts = append(opts, config.WithConfigPaths(f.configPath))
	}
	cfg, err := config.NewLoader(opts...).Load()
	if err != nil {
		if apperror.Code(err) == apperror.CodeInternal {
			return nil, apperror.Wrap(err, apperror.CodeConfigInvalid, "failed to load config")
		}
		return nil, err
	}
	f.apply(cfg)
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "netblock: %v\n", err)
		os.Exit(apperror.ExitCode(err))
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	// =========================================================================
	// Logger
	// =========================================================================
	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	// =========================================================================
	// Telemetry
	// =========================================================================
	if cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.FromConfig(cfg))
		if err != nil {
			logger.Log.Warn("failed to init telemetry", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Log.Warn("failed to shutdown telemetry", "error", err)
				}
			}()
		}
	}

	// =========================================================================
	// Metrics
	// =========================================================================
	var opts []service.Option
	if cfg.Metrics.Enabled {
		m := metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
		m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)
		opts = append(opts, service.WithMetrics(m))

		srv := metrics.NewServer(cfg.Metrics.Port, cfg.Metrics.Path)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Warn("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Log.Info("metrics server started", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
	}

	// =========================================================================
	// Run history (PostgreSQL)
	// =========================================================================
	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeUnavailable, "failed to connect to run history")
		}
		defer db.Close()

		if err := database.RunMigrations(ctx, db.Pool(), &cfg.Database, migrations.PostgresMigrations, migrations.PostgresDir); err != nil {
			return apperror.Wrap(err, apperror.CodeUnavailable, "failed to migrate run history")
		}
		opts = append(opts, service.WithRepository(repository.NewPostgresRunRepository(db)))
	}

	// =========================================================================
	// Solution cache
	// =========================================================================
	if cfg.Cache.Enabled {
		base, err := cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Log.Warn("failed to create cache, continuing without cache", "error", err)
		} else {
			defer base.Close()
			opts = append(opts, service.WithCache(cache.NewSolutionCache(base, cfg.Cache.DefaultTTL)))
			if cfg.Metrics.Enabled {
				prometheus.MustRegister(metrics.NewCacheCollector(
					cfg.Metrics.Namespace, cfg.Metrics.Subsystem, cfg.Cache.Driver, cacheStats(base)))
			}
			logger.Log.Info("solution cache initialized", "driver", cfg.Cache.Driver, "ttl", cfg.Cache.DefaultTTL)
		}
	}

	svc, err := service.New(service.ConfigFrom(cfg), opts...)
	if err != nil {
		return err
	}

	if f.history > 0 {
		return printHistory(ctx, svc, f.history, stdout)
	}

	logger.Log.Info("solving",
		"inputs", len(f.inputs),
		"target_flow", cfg.Solver.TargetFlow,
		"oracle", cfg.Solver.Oracle,
		"version", cfg.App.Version)

	reqs := make([]service.Request, len(f.inputs))
	for i, in := range f.inputs {
		reqs[i] = service.Request{InputPath: in, TargetFlow: cfg.Solver.TargetFlow}
	}

	ropts := report.Options{
		Title:        cfg.Report.Title,
		Author:       cfg.App.Name + " " + cfg.App.Version,
		IncludeTrace: cfg.Report.Trace,
	}

	if len(reqs) == 1 {
		out, err := svc.Solve(ctx, reqs[0])
		if err != nil {
			return err
		}
		return writeReport(ctx, svc, out, cfg.Report.Format, cfg.Report.Output, ropts, stdout)
	}

	outs, solveErr := svc.SolveBatch(ctx, reqs)
	if cfg.Report.Output != "" {
		if err := os.MkdirAll(cfg.Report.Output, 0o755); err != nil {
			return apperror.Wrap(err, apperror.CodeInternal, "failed to create report directory")
		}
	}
	for i, out := range outs {
		if out.Err != nil {
			continue
		}
		dest := ""
		if cfg.Report.Output != "" {
			dest = filepath.Join(cfg.Report.Output, reportName(i, out.InputPath, cfg.Report.Format))
		}
		if err := writeReport(ctx, svc, out, cfg.Report.Format, dest, ropts, stdout); err != nil {
			return err
		}
	}
	return solveErr
}

func writeReport(ctx context.Context, svc *service.BlockerService, out *service.Outcome, format, dest string, opts report.Options, stdout io.Writer) error {
	body, gen, err := svc.Report(ctx, out, format, opts)
	if err != nil {
		return err
	}
	if dest == "" {
		if gen.Binary() {
			return apperror.New(apperror.CodeInvalidArgument,
				fmt.Sprintf("%s reports need an output file", gen.Format())).
				WithField("report.output")
		}
		_, err := stdout.Write(body)
		return err
	}
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "failed to write report").
			WithDetails("file", dest)
	}
	logger.Log.Info("report written", "file", dest, "format", gen.Format(), "bytes", len(body))
	return nil
}

var extensions = map[string]string{
	report.FormatJSON:     ".json",
	report.FormatMarkdown: ".md",
	report.FormatCSV:      ".csv",
	report.FormatExcel:    ".xlsx",
	report.FormatPDF:      ".pdf",
}

// cacheStats читает счётчики бэкенда для CacheCollector
func cacheStats(c cache.Cache) func() (metrics.CacheStats, error) {
	return func() (metrics.CacheStats, error) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		st, err := c.Stats(ctx)
		if err != nil {
			return metrics.CacheStats{}, err
		}
		return metrics.CacheStats{Keys: st.TotalKeys, Hits: st.Hits, Misses: st.Misses}, nil
	}
}

// reportName строит имя файла отчёта для i-го входа пакета
func reportName(i int, input, format string) string {
	base := strings.TrimSuffix(filepath.Base(filepath.Clean(input)), filepath.Ext(input))
	ext, ok := extensions[format]
	if !ok {
		ext = ".out"
	}
	return fmt.Sprintf("%02d-%s%s", i+1, base, ext)
}

func printHistory(ctx context.Context, svc *service.BlockerService, limit int, w io.Writer) error {
	runs, err := svc.History(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSTATUS\tTARGET\tCOST\tBLOCKED\tCACHED\tDURATION\tINPUT")
	for _, r := range runs {
		cost := "-"
		if r.Cost != nil {
			cost = fmt.Sprint(*r.Cost)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\t%t\t%s\t%s\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.Status, r.TargetFlow, cost,
			len(r.Blocked), r.Cached, r.Duration.Round(time.Millisecond), r.InputPath)
	}
	return tw.Flush()
}
