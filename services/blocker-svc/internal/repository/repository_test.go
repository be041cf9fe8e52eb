package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netblock/pkg/apperror"
	"netblock/pkg/domain"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{nil, StatusSolved},
		{apperror.Unsolvable("no set"), StatusUnsolvable},
		{apperror.Inconclusive(errors.New("timeout"), "oracle timed out"), StatusInconclusive},
		{apperror.Inconsistent("bad model"), StatusFailed},
		{errors.New("plain"), StatusFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), "%v", tt.err)
	}
}

func TestMemoryRunRepository_SaveGet(t *testing.T) {
	repo := NewMemoryRunRepository()
	ctx := context.Background()

	run := &Run{
		InputPath: "data/diamond",
		Cost:      costPtr(2),
		Blocked:   []domain.LinkKey{{Head: 1, Tail: 2}},
		Oracle:    "gophersat",
	}
	require.NoError(t, repo.Save(ctx, run))
	require.NotEmpty(t, run.ID)
	assert.Equal(t, StatusSolved, run.Status)

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.InputPath, got.InputPath)
	assert.Equal(t, int64(2), *got.Cost)

	// Хранилище отдаёт копии
	got.Blocked[0].Head = 99
	*got.Cost = 99
	again, _ := repo.Get(ctx, run.ID)
	assert.Equal(t, int64(1), again.Blocked[0].Head)
	assert.Equal(t, int64(2), *again.Cost)
}

func TestMemoryRunRepository_GetMissing(t *testing.T) {
	_, err := NewMemoryRunRepository().Get(context.Background(), "nope")
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
	assert.Equal(t, "nope", apperror.DetailsOf(err)["id"])
}

func TestMemoryRunRepository_List(t *testing.T) {
	repo := NewMemoryRunRepository()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, &Run{
			InputPath: fmt.Sprintf("in/%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := repo.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "in/4", runs[0].InputPath)
	assert.Equal(t, "in/3", runs[1].InputPath)
	assert.Equal(t, "in/2", runs[2].InputPath)

	all, _ := repo.List(ctx, 0)
	assert.Len(t, all, 5)
}

func TestMemoryRunRepository_InvalidID(t *testing.T) {
	err := NewMemoryRunRepository().Save(context.Background(), &Run{ID: "run-1"})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, clampLimit(0))
	assert.Equal(t, DefaultListLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, MaxListLimit, clampLimit(MaxListLimit+1))
}
