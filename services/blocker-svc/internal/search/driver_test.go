package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netblock/pkg/apperror"
	"netblock/pkg/domain"
	"netblock/services/blocker-svc/internal/maxflow"
	"netblock/services/blocker-svc/internal/oracle"
	"netblock/services/blocker-svc/internal/testutil"
)

func factory(t *testing.T, name string) oracle.Factory {
	t.Helper()
	f, err := oracle.New(name, 0)
	require.NoError(t, err)
	return f
}

// =============================================================================
// Known instances
// =============================================================================

func TestRun_KnownNetworks(t *testing.T) {
	tests := []struct {
		name     string
		net      *domain.Network
		target   int64
		wantCost int64
	}{
		{"single link blocked", testutil.SingleLink(), 0, 3},
		{"single link already below target", testutil.SingleLink(), 3, 0},
		{"diamond fully blocked", testutil.Diamond(), 0, 2},
		{"diamond halved", testutil.Diamond(), 1, 1},
		{"diamond untouched", testutil.Diamond(), 2, 0},
		{"bridge takes the cheap link", testutil.Bridge(), 0, 2},
		{"bridge narrow link suffices", testutil.Bridge(), 4, 0},
	}

	for _, name := range oracle.Names() {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				d := New(WithOracle(factory(t, name)))
				res, err := d.Run(context.Background(), tt.net, tt.target)
				require.NoError(t, err)

				assert.Equal(t, tt.wantCost, res.Cost)
				assert.Equal(t, tt.wantCost, tt.net.CostOf(res.Blocked))
				assert.Equal(t, name, res.Oracle)
				assert.True(t, res.Stats.ModelVerified)

				_, err = maxflow.Verify(context.Background(), tt.net, res.Blocked, tt.target)
				assert.NoError(t, err)
			})
		}
	}
}

func TestRun_ZeroCostIsEmptySet(t *testing.T) {
	res, err := New().Run(context.Background(), testutil.Diamond(), 5)
	require.NoError(t, err)
	assert.Zero(t, res.Cost)
	assert.Empty(t, res.Blocked)
}

func TestRun_Trace(t *testing.T) {
	res, err := New().Run(context.Background(), testutil.Diamond(), 0)
	require.NoError(t, err)

	// total cost 4: mids 2 (sat), 1 (unsat)
	require.Len(t, res.Trace, 2)
	assert.Equal(t, int64(2), res.Trace[0].Budget)
	assert.Equal(t, oracle.Sat, res.Trace[0].Verdict)
	assert.Equal(t, int64(1), res.Trace[1].Budget)
	assert.Equal(t, oracle.Unsat, res.Trace[1].Verdict)
	assert.Equal(t, 2, res.Stats.Iterations)
	assert.Equal(t, int64(4), res.Stats.InitialHigh)
	assert.Positive(t, res.Stats.FixedClauses)

	for i, it := range res.Trace {
		assert.Equal(t, i, it.Index)
		assert.Greater(t, it.Clauses, res.Stats.FixedClauses)
		assert.False(t, it.Confirm)
	}
}

func TestRun_ConfirmingQuery(t *testing.T) {
	// hi starts at 0, so the loop never runs.
	net := domain.MustNetwork(
		[]int64{1, 2},
		[]domain.Link{{Head: 1, Tail: 2, Capacity: 5, Cost: 0}},
		domain.ServiceRequest{Source: 1, Destination: 2},
	)
	res, err := New().Run(context.Background(), net, 0)
	require.NoError(t, err)

	assert.Zero(t, res.Cost)
	require.Len(t, res.Trace, 1)
	assert.True(t, res.Trace[0].Confirm)
	assert.Equal(t, []domain.LinkKey{{Head: 1, Tail: 2}}, res.Blocked)
}

// =============================================================================
// Reference comparison
// =============================================================================

func TestRun_MatchesBruteForce(t *testing.T) {
	for _, name := range oracle.Names() {
		rng := rand.New(rand.NewSource(11))
		d := New(WithOracle(factory(t, name)))

		for i := 0; i < 30; i++ {
			net := testutil.Random(rng, 3+rng.Intn(2), 0.5, 5, 4)
			target := rng.Int63n(4)

			t.Run(fmt.Sprintf("%s/case%02d", name, i), func(t *testing.T) {
				want, _, ok := testutil.BruteForce(net, target)
				require.True(t, ok)

				res, err := d.Run(context.Background(), net, target)
				require.NoError(t, err)
				assert.Equal(t, want, res.Cost, "links=%v target=%d", net.Links(), target)
				assert.Equal(t, want, net.CostOf(res.Blocked))

				_, err = maxflow.Verify(context.Background(), net, res.Blocked, target)
				assert.NoError(t, err)
			})
		}
	}
}

func TestRun_FreeLinksNotBlockedWhenUnneeded(t *testing.T) {
	net := domain.MustNetwork(
		[]int64{1, 2, 3},
		[]domain.Link{
			{Head: 1, Tail: 2, Capacity: 5, Cost: 0},
			{Head: 2, Tail: 3, Capacity: 7, Cost: 0},
			{Head: 1, Tail: 3, Capacity: 2, Cost: 4},
		},
		domain.ServiceRequest{Source: 1, Destination: 3},
	)

	for _, name := range oracle.Names() {
		t.Run(name, func(t *testing.T) {
			d := New(WithOracle(factory(t, name)))

			res, err := d.Run(context.Background(), net, 100)
			require.NoError(t, err)
			assert.Zero(t, res.Cost)
			assert.Empty(t, res.Blocked)

			// Only one free link is needed to get down to the direct link.
			res, err = d.Run(context.Background(), net, 2)
			require.NoError(t, err)
			assert.Zero(t, res.Cost)
			assert.Len(t, res.Blocked, 1)
		})
	}
}

// =============================================================================
// Determinism and ceiling
// =============================================================================

func TestRun_Idempotent(t *testing.T) {
	d := New()
	net := testutil.Diamond()

	first, err := d.Run(context.Background(), net, 0)
	require.NoError(t, err)
	second, err := d.Run(context.Background(), net, 0)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Blocked, second.Blocked); diff != "" {
		t.Errorf("blocked set changed between runs (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.Cost, second.Cost)
	assert.Len(t, second.Trace, len(first.Trace))
}

func TestRun_Ceiling(t *testing.T) {
	net := testutil.Diamond()
	for _, ceiling := range []int64{2, 3, 4, 100} {
		res, err := New(WithCeiling(ceiling)).Run(context.Background(), net, 0)
		require.NoError(t, err, "ceiling %d", ceiling)
		assert.Equal(t, int64(2), res.Cost, "ceiling %d", ceiling)
		assert.Equal(t, ceiling, res.Stats.InitialHigh)
	}

	_, err := New(WithCeiling(1)).Run(context.Background(), net, 0)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeUnsolvableInstance))
	assert.Equal(t, int64(1), apperror.DetailsOf(err)["budget"])
}

func TestRun_NegativeTargetIsUnsolvable(t *testing.T) {
	_, err := New().Run(context.Background(), testutil.Diamond(), -1)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeUnsolvableInstance))
	assert.Equal(t, int64(-1), apperror.DetailsOf(err)["target_flow"])
}

// =============================================================================
// Inconclusive oracles
// =============================================================================

func TestRun_OracleErrorIsInconclusive(t *testing.T) {
	oracles := testutil.NewScriptedOracles(
		testutil.Step{Err: fmt.Errorf("stub: %w: %w", oracle.ErrInconclusive, context.DeadlineExceeded)},
	)

	_, err := New(WithOracle(oracles.Factory())).Run(context.Background(), testutil.Diamond(), 0)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeOracleInconclusive))
	assert.True(t, errors.Is(err, oracle.ErrInconclusive))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, int64(2), apperror.DetailsOf(err)["budget"])
	assert.Equal(t, 1, oracles.CallCount())
}

func TestRun_UndecidedMidSearch(t *testing.T) {
	// The first query (budget 2) is answered, the second (budget 1) is not.
	calls := 0
	f := func() oracle.Oracle {
		calls++
		if calls == 2 {
			return undecided{}
		}
		return &oracle.Gophersat{}
	}

	_, err := New(WithOracle(f)).Run(context.Background(), testutil.Diamond(), 0)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeOracleInconclusive))
	assert.Equal(t, int64(1), apperror.DetailsOf(err)["budget"])
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	oracles := testutil.NewScriptedOracles()
	_, err := New(WithOracle(oracles.Factory())).Run(ctx, testutil.Diamond(), 0)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeOracleInconclusive))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, oracles.CallCount(), "no oracle should be asked after cancellation")
}

func TestRun_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := New().Run(ctx, testutil.Diamond(), 0)
	require.Error(t, err)
	assert.Equal(t, 5, apperror.ExitCode(err))
}

func TestRun_LyingOracleIsInconsistent(t *testing.T) {
	oracles := testutil.NewScriptedOracles(testutil.Step{Verdict: oracle.Sat})

	_, err := New(WithOracle(oracles.Factory())).Run(context.Background(), testutil.Diamond(), 0)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeEncodingConsistency))
	assert.Equal(t, "scripted", apperror.DetailsOf(err)["oracle"])
}

// undecided answers Unknown without an error.
type undecided struct{}

func (undecided) Solve(context.Context, [][]int) (oracle.Verdict, error) { return oracle.Unknown, nil }
func (undecided) Model() oracle.Model                                   { return nil }
func (undecided) Name() string                                          { return "undecided" }
