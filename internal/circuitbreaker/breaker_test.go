package circuitbreaker

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plugin-router/internal/common/errors"
	"plugin-router/internal/common/logging"
)

func TestBreaker(t *testing.T) {
	logger := logging.Nop()

	t.Run("basic operation", func(t *testing.T) {
		cb := New("test-basic", Config{MaxFailures: 2, Timeout: 100 * time.Millisecond, MaxConcurrentRequests: 1}, logger)
		assert.Equal(t, "closed", cb.State())

		result, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.False(t, cb.IsOpen())
	})

	t.Run("opens after consecutive failures", func(t *testing.T) {
		cb := New("test-failures", Config{MaxFailures: 3, Timeout: time.Minute, MaxConcurrentRequests: 1}, logger)

		for i := 0; i < 3; i++ {
			_, err := cb.Execute(func() (interface{}, error) { return nil, fmt.Errorf("failure %d", i) })
			require.Error(t, err)
			assert.False(t, stderrors.Is(err, ErrOpen))
		}
		assert.True(t, cb.IsOpen())

		_, err := cb.Execute(func() (interface{}, error) {
			t.Fatal("This should not be called")
			return nil, nil
		})
		assert.True(t, stderrors.Is(err, ErrOpen))
	})

	t.Run("half-open after timeout", func(t *testing.T) {
		cb := New("test-half-open", Config{MaxFailures: 1, Timeout: 50 * time.Millisecond, MaxConcurrentRequests: 1}, logger)
		_, _ = cb.Execute(func() (interface{}, error) { return nil, fmt.Errorf("failure") })
		assert.Equal(t, "open", cb.State())

		assert.Eventually(t, func() bool { return cb.State() == "half-open" }, time.Second, 10*time.Millisecond)

		_, err := cb.Execute(func() (interface{}, error) { return nil, nil })
		require.NoError(t, err)
		assert.Equal(t, "closed", cb.State())
	})

	t.Run("client errors do not trip", func(t *testing.T) {
		cb := New("test-client", Config{MaxFailures: 1, Timeout: time.Minute, MaxConcurrentRequests: 1}, logger)
		for i := 0; i < 3; i++ {
			_, _ = cb.Execute(func() (interface{}, error) { return nil, errors.ValidationError("bad input") })
		}
		assert.False(t, cb.IsOpen())
	})

	t.Run("invalid config uses defaults", func(t *testing.T) {
		cb := New("test-invalid", Config{}, logger)
		assert.Equal(t, "closed", cb.State())
	})
}

func TestManager(t *testing.T) {
	m := NewManager(Config{MaxFailures: 1, Timeout: time.Minute, MaxConcurrentRequests: 1}, logging.Nop())

	assert.Same(t, m.Get("a"), m.Get("a"))

	_, err := m.Execute("b", func() (interface{}, error) { return nil, fmt.Errorf("boom") })
	require.Error(t, err)
	_, err = m.Execute("b", func() (interface{}, error) { return "unused", nil })
	assert.True(t, stderrors.Is(err, ErrOpen))

	_, err = m.Execute("a", func() (interface{}, error) { return "ok", nil })
	assert.NoError(t, err)

	stats := m.AllStats()
	require.Len(t, stats, 2)
	assert.Equal(t, "a", stats[0].Name)
	assert.Equal(t, "open", stats[1].State)
}
