package cnf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netblock/pkg/apperror"
)

func TestPool_AllocateContiguous(t *testing.T) {
	p := NewPool()
	assert.Equal(t, 1, p.Next())
	assert.Equal(t, 0, p.Max())

	first, err := p.Allocate(3)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := p.Allocate(2)
	require.NoError(t, err)
	assert.Equal(t, 4, second)
	assert.Equal(t, 6, p.Next())
	assert.Equal(t, 5, p.Max())

	zero, err := p.Allocate(0)
	require.NoError(t, err)
	assert.Equal(t, 6, zero)
	assert.Equal(t, 6, p.Next(), "allocating zero must not advance the pool")
}

func TestPool_AllocateNegative(t *testing.T) {
	_, err := NewPool().Allocate(-1)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeEncodingConsistency))
}

func TestPool_Exhausted(t *testing.T) {
	p := &Pool{next: MaxVar}
	_, err := p.Allocate(1)
	require.NoError(t, err)
	_, err = p.Allocate(1)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeEncodingConsistency))
}

func TestPool_Sync(t *testing.T) {
	tests := []struct {
		name     string
		start    int
		reported int
		wantNext int
	}{
		{"encoder used ids beyond the mark", 5, 9, 10},
		{"encoder used no ids", 5, 4, 5},
		{"reported max behind the mark", 5, 2, 5},
		{"reported max equal to next", 5, 5, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Pool{next: tt.start}
			require.NoError(t, p.Sync(tt.reported))
			assert.Equal(t, tt.wantNext, p.Next())
		})
	}

	err := NewPool().Sync(MaxVar + 1)
	assert.True(t, apperror.Is(err, apperror.CodeEncodingConsistency))
}

func TestPool_Allocated(t *testing.T) {
	p := NewPool()
	_, _ = p.Allocate(2)
	assert.False(t, p.Allocated(0))
	assert.True(t, p.Allocated(1))
	assert.True(t, p.Allocated(2))
	assert.False(t, p.Allocated(3))
	assert.False(t, p.Allocated(-1))
}
