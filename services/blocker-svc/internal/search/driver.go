// Package search finds the minimum blocking budget by binary search.
//
// # Algorithm
//
// The fixed prefix (cut clauses plus Σ cap·mc ≤ target_flow) is built and
// sealed once. Each step then:
//  1. rolls the formula back to the fixed prefix,
//  2. adds Σ cost·block ≤ mid for mid = lo + (hi-lo)/2,
//  3. asks a freshly built oracle.
//
// Sat moves hi to mid and records the model; Unsat moves lo to mid+1. When
// the interval closes without a recorded model, one confirming query at hi
// decides between a solution and UNSOLVABLE_INSTANCE.
//
// # Errors
//
//   - ORACLE_INCONCLUSIVE: timeout, cancellation or an undecided oracle;
//     Details carry the attempted budget
//   - UNSOLVABLE_INSTANCE: no budget up to the ceiling is feasible
//   - ENCODING_CONSISTENCY: pool or formula bookkeeping was violated, or an
//     oracle returned an assignment that is not a model
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"netblock/pkg/apperror"
	"netblock/pkg/domain"
	"netblock/pkg/logger"
	"netblock/pkg/metrics"
	"netblock/pkg/telemetry"
	"netblock/services/blocker-svc/internal/cnf"
	"netblock/services/blocker-svc/internal/encoding"
	"netblock/services/blocker-svc/internal/oracle"
	"netblock/services/blocker-svc/internal/pbenc"
)

// =============================================================================
// Options
// =============================================================================

// Option configures a Driver.
type Option func(*Driver)

// WithOracle sets the oracle factory. The default is gophersat without a
// timeout.
func WithOracle(f oracle.Factory) Option {
	return func(d *Driver) { d.factory = f }
}

// WithEncoder sets the PB→CNF encoder. The default is pbenc.BDD.
func WithEncoder(e pbenc.Encoder) Option {
	return func(d *Driver) { d.encoder = e }
}

// WithCeiling caps the upper end of the search interval instead of the
// total link cost.
func WithCeiling(c int64) Option {
	return func(d *Driver) {
		d.ceiling = c
		d.hasCeiling = true
	}
}

// WithMetrics enables Prometheus recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// =============================================================================
// Result
// =============================================================================

// Iteration records one oracle query.
type Iteration struct {
	Index     int            `json:"index"`
	Lo        int64          `json:"lo"`
	Hi        int64          `json:"hi"`
	Budget    int64          `json:"budget"`
	Verdict   oracle.Verdict `json:"verdict"`
	Clauses   int            `json:"clauses"`
	Variables int            `json:"variables"`
	Duration  time.Duration  `json:"duration_ns"`
	Confirm   bool           `json:"confirm,omitempty"`
}

// Stats summarises the size and cost of one run.
type Stats struct {
	Links         int           `json:"links"`
	Nodes         int           `json:"nodes"`
	FixedClauses  int           `json:"fixed_clauses"`
	FixedVars     int           `json:"fixed_variables"`
	MaxVariables  int           `json:"max_variables"`
	Iterations    int           `json:"iterations"`
	OracleTime    time.Duration `json:"oracle_time_ns"`
	TotalTime     time.Duration `json:"total_time_ns"`
	InitialHigh   int64         `json:"initial_hi"`
	TargetFlow    int64         `json:"target_flow"`
	ModelVerified bool          `json:"model_verified"`
}

// Result is a minimum-cost blocking set.
type Result struct {
	// Cost is the minimum feasible budget.
	Cost int64 `json:"cost"`

	// Blocked lists the links to remove, in input order.
	Blocked []domain.LinkKey `json:"blocked"`

	// Oracle names the backend that produced the model.
	Oracle string `json:"oracle"`

	Trace []Iteration `json:"trace"`
	Stats Stats       `json:"stats"`
}

// =============================================================================
// Driver
// =============================================================================

// Driver runs the binary search. A Driver holds only configuration and
// may be shared between goroutines; each Run owns its pool, formula and
// oracles.
type Driver struct {
	factory    oracle.Factory
	encoder    pbenc.Encoder
	ceiling    int64
	hasCeiling bool
	metrics    *metrics.Metrics
}

// New returns a driver with the given options applied.
func New(opts ...Option) *Driver {
	d := &Driver{}
	for _, opt := range opts {
		opt(d)
	}
	if d.factory == nil {
		d.factory = func() oracle.Oracle { return &oracle.Gophersat{} }
	}
	if d.encoder == nil {
		d.encoder = pbenc.NewBDD()
	}
	return d
}

// run is the mutable state of one Run.
type run struct {
	d       *Driver
	net     *domain.Network
	pool    *cnf.Pool
	formula *cnf.Formula
	cut     *encoding.CutVars
	con     *encoding.Constrainer
	res     *Result
}

// Run computes the cheapest set of links whose removal bounds the maximum
// source→destination flow by targetFlow.
func (d *Driver) Run(ctx context.Context, net *domain.Network, targetFlow int64) (res *Result, err error) {
	start := time.Now()
	req := net.Request()

	ctx, span := telemetry.StartSpan(ctx, "search.Run",
		telemetry.WithAttributes(telemetry.NetworkAttributes(net.NodeCount(), net.LinkCount(), req.Source, req.Destination)...),
		telemetry.WithAttributes(attribute.Int64(telemetry.AttrTargetFlow, targetFlow)),
	)
	defer func() { telemetry.End(span, err) }()

	log := logger.WithContext(ctx).With("target_flow", targetFlow)

	r := &run{
		d:    d,
		net:  net,
		pool: cnf.NewPool(),
		res:  &Result{},
	}
	r.formula = cnf.NewFormula(r.pool)
	r.con = encoding.NewConstrainer(d.encoder, r.pool, r.formula)

	if err := r.buildFixed(targetFlow); err != nil {
		return nil, err
	}

	lo, hi := int64(0), net.TotalCost()
	if d.hasCeiling {
		hi = d.ceiling
	}
	r.res.Stats = Stats{
		Links:        net.LinkCount(),
		Nodes:        net.NodeCount(),
		FixedClauses: r.formula.FixedLen(),
		FixedVars:    r.pool.Max(),
		InitialHigh:  hi,
		TargetFlow:   targetFlow,
	}
	log.Debug("search started",
		"lo", lo, "hi", hi,
		"fixed_clauses", r.formula.FixedLen(),
		"variables", r.pool.Max())

	var best oracle.Model
	found := false
	for lo < hi {
		mid := lo + (hi-lo)/2
		v, model, err := r.query(ctx, lo, hi, mid, false)
		if err != nil {
			return nil, err
		}
		if v == oracle.Sat {
			hi = mid
			best = model
			found = true
		} else {
			lo = mid + 1
		}
	}

	if !found {
		v, model, err := r.query(ctx, lo, hi, hi, true)
		if err != nil {
			return nil, err
		}
		if v != oracle.Sat {
			return nil, apperror.Unsolvable(
				fmt.Sprintf("no blocking set within budget %d bounds the flow by %d", hi, targetFlow)).
				WithDetails("budget", hi).
				WithDetails("target_flow", targetFlow)
		}
		best = model
	}

	// The oracle may block free links the cut does not need.
	blocked := r.cut.RequiredBlocks(net, best, targetFlow)
	if dropped := len(r.cut.BlockedLinks(best)) - len(blocked); dropped > 0 {
		log.Debug("unneeded blocks dropped", "count", dropped)
	}

	if c := net.CostOf(blocked); c > hi {
		return nil, apperror.Inconsistent(
			fmt.Sprintf("blocked links cost %d exceeds budget %d", c, hi)).
			WithDetails("budget", hi).
			WithDetails("blocked_cost", c)
	}

	r.res.Cost = hi
	r.res.Blocked = blocked
	r.res.Stats.Iterations = len(r.res.Trace)
	r.res.Stats.MaxVariables = r.pool.Max()
	r.res.Stats.TotalTime = time.Since(start)
	r.res.Stats.ModelVerified = true

	telemetry.SetAttributes(ctx, telemetry.SolutionAttributes(hi, len(blocked))...)
	log.Info("minimum blocking set found",
		"cost", hi,
		"blocked", keyStrings(blocked),
		"iterations", len(r.res.Trace),
		"duration", r.res.Stats.TotalTime)

	return r.res, nil
}

// buildFixed builds and seals the fixed prefix.
func (r *run) buildFixed(targetFlow int64) error {
	cut, err := encoding.BuildCut(r.net, r.pool, r.formula)
	if err != nil {
		return err
	}
	r.cut = cut
	if _, err := r.con.AddTargetFlow(cut, r.net, targetFlow); err != nil {
		return err
	}
	return r.formula.Seal()
}

// query asks a fresh oracle whether budget is feasible.
func (r *run) query(ctx context.Context, lo, hi, budget int64, confirm bool) (oracle.Verdict, oracle.Model, error) {
	it := Iteration{Index: len(r.res.Trace), Lo: lo, Hi: hi, Budget: budget, Confirm: confirm}

	ctx, span := telemetry.StartSpan(ctx, "search.iteration",
		telemetry.WithAttributes(telemetry.IterationAttributes(it.Index, lo, hi, budget)...))
	var err error
	defer func() { telemetry.End(span, err) }()

	if cerr := ctx.Err(); cerr != nil {
		err = inconclusive(cerr, budget, "search canceled")
		return oracle.Unknown, nil, err
	}

	if err = r.formula.Rollback(); err != nil {
		return oracle.Unknown, nil, err
	}
	if _, err = r.con.AddBudget(r.cut, r.net, budget); err != nil {
		return oracle.Unknown, nil, err
	}

	clauses := r.formula.Clauses()
	o := oracle.Checked(r.d.factory())
	it.Clauses = len(clauses)
	it.Variables = r.pool.Max()

	begin := time.Now()
	v, serr := o.Solve(ctx, clauses)
	it.Duration = time.Since(begin)
	it.Verdict = v

	r.res.Trace = append(r.res.Trace, it)
	r.res.Stats.OracleTime += it.Duration
	r.res.Oracle = o.Name()
	if r.d.metrics != nil {
		r.d.metrics.RecordIteration(o.Name(), v.String(), it.Duration, it.Clauses, it.Variables)
	}
	telemetry.SetAttributes(ctx, telemetry.FormulaAttributes(o.Name(), it.Clauses, it.Variables)...)
	telemetry.SetAttributes(ctx, attribute.String(telemetry.AttrVerdict, v.String()))

	logger.WithContext(ctx).Debug("search iteration",
		"iteration", it.Index,
		"budget", budget,
		"lo", lo,
		"hi", hi,
		"verdict", v.String(),
		"clauses", it.Clauses,
		"variables", it.Variables,
		"duration", it.Duration)

	switch {
	case serr != nil:
		err = classify(serr, budget)
		return oracle.Unknown, nil, err
	case v == oracle.Unknown:
		err = inconclusive(oracle.ErrInconclusive, budget, "oracle returned no verdict")
		return oracle.Unknown, nil, err
	case v == oracle.Sat:
		return v, o.Model(), nil
	default:
		return v, nil, nil
	}
}

// classify maps an oracle error onto the error taxonomy.
func classify(err error, budget int64) error {
	switch {
	case errors.Is(err, oracle.ErrInconclusive),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return inconclusive(err, budget, "oracle gave no verdict")
	case apperror.Code(err) != apperror.CodeInternal:
		return err
	default:
		return apperror.Wrap(err, apperror.CodeInternal, "oracle failed").
			WithDetails("budget", budget)
	}
}

func inconclusive(cause error, budget int64, msg string) error {
	return apperror.Inconclusive(cause, fmt.Sprintf("%s at budget %d", msg, budget)).
		WithDetails("budget", budget)
}

func keyStrings(keys []domain.LinkKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
