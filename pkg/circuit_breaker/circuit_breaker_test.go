package circuit_breaker_test

import (
	"testing"
	"time"

	"github.com/IvanGLS/library-service-project/pkg/circuit_breaker"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func Test_circuitBreaker_Call(t *testing.T) {
	successfulService := func() error {
		return nil
	}
	failingService := func() error {
		return errors.New("service error")
	}

	cb := circuit_breaker.New(10, 100*time.Millisecond, 0.30, 3)

	for i := 0; i < 20; i++ {
		require.NoError(t, cb.Call(successfulService))
	}

	// fill the tail with failures until the breaker opens
	for i := 0; i < 10; i++ {
		_ = cb.Call(failingService)
	}
	require.ErrorIs(t, cb.Call(successfulService), circuit_breaker.ErrOpenCB)

	// after the timeout the breaker probes in half-open
	time.Sleep(150 * time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, cb.Call(successfulService))
	}

	// closed again: a single failure must pass through, not ErrOpenCB
	err := cb.Call(failingService)
	require.Error(t, err)
	require.NotErrorIs(t, err, circuit_breaker.ErrOpenCB)
}
