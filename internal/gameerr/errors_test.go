package gameerr

import (
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsufficientResources(t *testing.T) {
	err := NewInsufficientResources("rikis", 1000, 250)

	require.True(t, IsInsufficientResources(err))

	detail, ok := AsInsufficientResources(err)
	require.True(t, ok)
	assert.Equal(t, "rikis", detail.Resource)
	assert.Equal(t, int64(1000), detail.Required)
	assert.Equal(t, int64(250), detail.Current)
	assert.Contains(t, err.Error(), "insufficient rikis")
}

func TestInsufficientResourcesWrapped(t *testing.T) {
	err := fmt.Errorf("consume failed: %w", NewInsufficientResources("grace", 10, 0))
	assert.True(t, IsInsufficientResources(err))
}

func TestInvalidOperation(t *testing.T) {
	err := NewInvalidOperation("fusion", "inputs must share the same tier")
	assert.True(t, IsInvalidOperation(err))
	assert.False(t, IsInsufficientResources(err))
	assert.Contains(t, err.Error(), "fusion")
}

func TestCooldown(t *testing.T) {
	err := NewCooldown("prayer", 30*time.Second)
	assert.True(t, IsCooldown(err))

	var target *CooldownError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, 30*time.Second, target.RetryAfter)
}

func TestSentinels(t *testing.T) {
	wrapped := errors.Wrap(ErrPlayerNotFound, "load player 7")
	assert.True(t, errors.Is(wrapped, ErrPlayerNotFound))
	assert.False(t, errors.Is(wrapped, ErrMaidenNotFound))
}
