// Package service wires loading, caching, searching, verification and run
// history into one solve pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"netblock/pkg/apperror"
	"netblock/pkg/cache"
	"netblock/pkg/config"
	"netblock/pkg/domain"
	"netblock/pkg/logger"
	"netblock/pkg/metrics"
	"netblock/pkg/telemetry"
	"netblock/services/blocker-svc/internal/loader"
	"netblock/services/blocker-svc/internal/maxflow"
	"netblock/services/blocker-svc/internal/oracle"
	"netblock/services/blocker-svc/internal/report"
	"netblock/services/blocker-svc/internal/repository"
	"netblock/services/blocker-svc/internal/search"
)

// ============================================================
// CONFIG
// ============================================================

// Config holds the solver settings the pipeline needs.
type Config struct {
	Oracle        string
	OracleTimeout time.Duration
	// Ceiling caps the search interval; 0 means the total link cost.
	Ceiling     int64
	Verify      bool
	InputFormat string
	Parallelism int
	CacheTTL    time.Duration
}

// ConfigFrom extracts the pipeline settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Oracle:        cfg.Solver.Oracle,
		OracleTimeout: cfg.Solver.OracleTimeout,
		Ceiling:       cfg.Solver.Ceiling,
		Verify:        cfg.Solver.Verify,
		InputFormat:   cfg.Input.Format,
		Parallelism:   cfg.Solver.Parallelism,
		CacheTTL:      cfg.Cache.DefaultTTL,
	}
}

// ============================================================
// SERVICE
// ============================================================

// Option configures a BlockerService.
type Option func(*BlockerService)

// WithCache enables the solution cache.
func WithCache(c *cache.SolutionCache) Option {
	return func(s *BlockerService) { s.cache = c }
}

// WithRepository sets where runs are recorded. The default keeps them in
// memory.
func WithRepository(r repository.RunRepository) Option {
	return func(s *BlockerService) { s.repo = r }
}

// WithMetrics enables Prometheus recording for the pipeline and the search.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *BlockerService) { s.metrics = m }
}

// WithOracleFactory replaces the oracle named in Config.
func WithOracleFactory(name string, f oracle.Factory) Option {
	return func(s *BlockerService) {
		s.oracleName = name
		s.factory = f
	}
}

// BlockerService runs solves. It is safe for concurrent use; every solve
// builds its own pool, formula and oracles.
type BlockerService struct {
	cfg        Config
	driver     *search.Driver
	oracleName string
	factory    oracle.Factory
	cache      *cache.SolutionCache
	repo       repository.RunRepository
	metrics    *metrics.Metrics
	tracker    *metrics.SolveTracker
}

// New builds the service and its search driver.
func New(cfg Config, opts ...Option) (*BlockerService, error) {
	if cfg.Ceiling < 0 {
		return nil, apperror.New(apperror.CodeInvalidArgument, "ceiling must be non-negative").
			WithField("solver.ceiling")
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}

	s := &BlockerService{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.factory == nil {
		f, err := oracle.New(cfg.Oracle, cfg.OracleTimeout)
		if err != nil {
			return nil, err
		}
		s.factory = f
		s.oracleName = cfg.Oracle
		if s.oracleName == "" {
			s.oracleName = oracle.GophersatName
		}
	}
	if s.repo == nil {
		s.repo = repository.NewMemoryRunRepository()
	}

	var gauge prometheus.Gauge
	if s.metrics != nil {
		gauge = s.metrics.SolvesInFlight
	}
	s.tracker = metrics.NewSolveTracker(gauge)

	dopts := []search.Option{search.WithOracle(s.factory)}
	if cfg.Ceiling > 0 {
		dopts = append(dopts, search.WithCeiling(cfg.Ceiling))
	}
	if s.metrics != nil {
		dopts = append(dopts, search.WithMetrics(s.metrics))
	}
	s.driver = search.New(dopts...)

	return s, nil
}

// ============================================================
// SOLVE
// ============================================================

// Request is one instance to solve.
type Request struct {
	InputPath string
	// Format overrides Config.InputFormat.
	Format     string
	TargetFlow int64
}

// Outcome is everything known about one solve. It is returned even when the
// solve fails, with Err set and the later fields left empty.
type Outcome struct {
	RunID        string
	InputPath    string
	TargetFlow   int64
	Network      *domain.Network
	Result       *search.Result
	Verification *maxflow.Verification
	Cached       bool
	Duration     time.Duration
	Err          error
}

// Solve loads the instance, answers it from the cache or by search,
// verifies the answer and records the run.
func (s *BlockerService) Solve(ctx context.Context, req Request) (*Outcome, error) {
	out := &Outcome{
		RunID:      uuid.NewString(),
		InputPath:  req.InputPath,
		TargetFlow: req.TargetFlow,
	}
	start := time.Now()

	ctx = logger.ContextWithRunID(ctx, out.RunID)
	ctx, span := telemetry.StartSpan(ctx, "BlockerService.Solve",
		telemetry.WithAttributes(
			attribute.String(telemetry.AttrInputPath, req.InputPath),
			attribute.Int64(telemetry.AttrTargetFlow, req.TargetFlow),
		),
	)

	s.tracker.Start(req.InputPath)
	err := s.solve(ctx, req, out)
	s.tracker.End(req.InputPath)

	out.Duration = time.Since(start)
	out.Err = err
	telemetry.End(span, err)

	s.record(ctx, out)
	s.observe(ctx, out)

	return out, err
}

func (s *BlockerService) solve(ctx context.Context, req Request, out *Outcome) error {
	format := req.Format
	if format == "" {
		format = s.cfg.InputFormat
	}
	net, err := loader.Load(ctx, req.InputPath, format)
	if err != nil {
		return err
	}
	out.Network = net
	if s.metrics != nil {
		s.metrics.RecordNetworkSize("solve", net.NodeCount(), net.LinkCount())
	}

	res, cached := s.lookup(ctx, net, req.TargetFlow)
	if !cached {
		res, err = s.driver.Run(ctx, net, req.TargetFlow)
		if err != nil {
			return err
		}
		s.store(ctx, net, req.TargetFlow, res)
	}
	out.Result = res
	out.Cached = cached

	// Cached answers are always verified.
	if s.cfg.Verify || cached {
		v, err := maxflow.Verify(ctx, net, res.Blocked, req.TargetFlow)
		out.Verification = v
		if s.metrics != nil {
			s.metrics.RecordVerification(err == nil)
		}
		telemetry.SetAttributes(ctx, telemetry.VerificationAttributes(residual(v), err == nil)...)
		if err != nil {
			if cached {
				s.invalidate(ctx, net)
			}
			return err
		}
	}
	return nil
}

// ============================================================
// CACHE
// ============================================================

// lookup returns a cached result rebuilt for net, or false on a miss.
// An entry whose links do not add up to its cost is dropped.
func (s *BlockerService) lookup(ctx context.Context, net *domain.Network, target int64) (*search.Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	log := logger.WithContext(ctx)

	sol, found, err := s.cache.Get(ctx, net, target, s.cfg.Ceiling)
	if err != nil {
		log.Warn("solution cache lookup failed", "error", err)
	}
	if s.metrics != nil {
		s.metrics.RecordCache(found)
	}
	telemetry.SetAttributes(ctx, attribute.Bool(telemetry.AttrCacheHit, found))
	if !found {
		return nil, false
	}

	if c := net.CostOf(sol.Blocked); c != sol.Cost {
		log.Warn("discarding inconsistent cached solution", "cost", sol.Cost, "blocked_cost", c)
		s.invalidate(ctx, net)
		return nil, false
	}

	log.Debug("solution served from cache", "cost", sol.Cost, "computed_at", sol.ComputedAt)
	return &search.Result{
		Cost:    sol.Cost,
		Blocked: sol.Blocked,
		Oracle:  sol.Oracle,
		Stats: search.Stats{
			Links:      net.LinkCount(),
			Nodes:      net.NodeCount(),
			Iterations: sol.Iterations,
			TargetFlow: target,
		},
	}, true
}

func (s *BlockerService) store(ctx context.Context, net *domain.Network, target int64, res *search.Result) {
	if s.cache == nil {
		return
	}
	sol := &cache.CachedSolution{
		Cost:       res.Cost,
		Blocked:    res.Blocked,
		Oracle:     res.Oracle,
		Iterations: res.Stats.Iterations,
	}
	if err := s.cache.Set(ctx, net, target, s.cfg.Ceiling, sol, s.cfg.CacheTTL); err != nil {
		logger.WithContext(ctx).Warn("failed to cache solution", "error", err)
	}
}

func (s *BlockerService) invalidate(ctx context.Context, net *domain.Network) {
	telemetry.AddEvent(ctx, "cache.invalidated")
	if _, err := s.cache.Invalidate(ctx, net); err != nil {
		logger.WithContext(ctx).Warn("failed to invalidate cached solution", "error", err)
	}
}

// ============================================================
// HISTORY
// ============================================================

// record stores the run; a storage failure is logged and does not fail the
// solve.
func (s *BlockerService) record(ctx context.Context, out *Outcome) {
	run := &repository.Run{
		ID:         out.RunID,
		InputPath:  out.InputPath,
		TargetFlow: out.TargetFlow,
		Ceiling:    s.cfg.Ceiling,
		Oracle:     s.oracleName,
		Cached:     out.Cached,
		Duration:   out.Duration,
		Status:     repository.StatusOf(out.Err),
	}
	if out.Network != nil {
		run.NetworkHash = cache.NetworkHash(out.Network)
		run.NodeCount = out.Network.NodeCount()
		run.LinkCount = out.Network.LinkCount()
	}
	if r := out.Result; r != nil && out.Err == nil {
		cost := r.Cost
		run.Cost = &cost
		run.Blocked = r.Blocked
		run.Iterations = r.Stats.Iterations
		if r.Oracle != "" {
			run.Oracle = r.Oracle
		}
	}
	if out.Err != nil {
		run.ErrorCode = string(apperror.Code(out.Err))
		run.ErrorMessage = out.Err.Error()
	}

	if err := s.repo.Save(ctx, run); err != nil {
		logger.WithContext(ctx).Warn("failed to record solve run", "error", err)
	}
}

// History returns the most recent runs, newest first.
func (s *BlockerService) History(ctx context.Context, limit int) ([]*repository.Run, error) {
	return s.repo.List(ctx, limit)
}

// GetRun returns one recorded run.
func (s *BlockerService) GetRun(ctx context.Context, id string) (*repository.Run, error) {
	return s.repo.Get(ctx, id)
}

func (s *BlockerService) observe(ctx context.Context, out *Outcome) {
	log := logger.WithContext(ctx).With("input", out.InputPath, "duration", out.Duration)
	if out.Err != nil {
		// critical separates program defects from bad input
		log.Error("solve failed",
			"code", apperror.Code(out.Err),
			"critical", apperror.IsCritical(out.Err),
			"error", out.Err)
	} else {
		log.Info("solve finished",
			"cost", out.Result.Cost,
			"blocked", len(out.Result.Blocked),
			"cached", out.Cached)
	}

	if s.metrics == nil {
		return
	}
	var cost int64
	var blocked int
	if out.Err == nil {
		cost, blocked = out.Result.Cost, len(out.Result.Blocked)
	}
	s.metrics.RecordSolveOperation(s.oracleName, out.Err == nil, out.Duration, cost, blocked)
}

// Active returns the number of solves in progress.
func (s *BlockerService) Active() int {
	return s.tracker.Active()
}

// ============================================================
// BATCH
// ============================================================

// SolveBatch solves the requests concurrently, at most Config.Parallelism at
// a time. Outcomes are returned in request order; a failed solve does not
// stop the others. The returned error joins every failure.
func (s *BlockerService) SolveBatch(ctx context.Context, reqs []Request) ([]*Outcome, error) {
	outs := make([]*Outcome, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.cfg.Parallelism)
	for i, req := range reqs {
		g.Go(func() error {
			out, _ := s.Solve(ctx, req)
			outs[i] = out
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, out := range outs {
		if out.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", out.InputPath, out.Err))
		}
	}
	return outs, errors.Join(errs...)
}

// ============================================================
// REPORT
// ============================================================

// Report renders an outcome in the given format.
func (s *BlockerService) Report(ctx context.Context, out *Outcome, format string, opts report.Options) ([]byte, report.Generator, error) {
	gen, err := report.New(format)
	if err != nil {
		return nil, nil, err
	}
	data := &report.Data{
		RunID:        out.RunID,
		InputPath:    out.InputPath,
		TargetFlow:   out.TargetFlow,
		Cached:       out.Cached,
		GeneratedAt:  time.Now().UTC(),
		Network:      out.Network,
		Result:       out.Result,
		Verification: out.Verification,
		Options:      opts,
	}
	body, err := gen.Generate(ctx, data)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeInternal, "failed to render report").
			WithDetails("format", gen.Format())
	}
	return body, gen, nil
}

func residual(v *maxflow.Verification) int64 {
	if v == nil {
		return 0
	}
	return v.ResidualMaxFlow
}
