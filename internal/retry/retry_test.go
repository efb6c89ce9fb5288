package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	out, err := Do(context.Background(), Config{MaxAttempts: 3, Delay: time.Millisecond}, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, 3, calls)
}

func TestDoReturnsLastError(t *testing.T) {
	calls := 0
	err := Run(context.Background(), Config{MaxAttempts: 2, Delay: time.Millisecond}, func(context.Context) error {
		calls++
		return errors.New("down")
	})
	require.EqualError(t, err, "down")
	require.Equal(t, 2, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	sentinel := errors.New("bad config")
	calls := 0
	_, err := Do(context.Background(), Config{MaxAttempts: 5, Delay: time.Millisecond}, func(context.Context) (int, error) {
		calls++
		return 0, Permanent(sentinel)
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
	require.NoError(t, Permanent(nil))
}

func TestDoHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Do(ctx, Config{MaxAttempts: 3, Delay: time.Second}, func(context.Context) (int, error) {
		return 0, errors.New("down")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDoDoublesDelay(t *testing.T) {
	started := time.Now()
	calls := 0
	err := Run(context.Background(), Config{MaxAttempts: 3, Delay: 20 * time.Millisecond}, func(context.Context) error {
		calls++
		return errors.New("down")
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.GreaterOrEqual(t, time.Since(started), 60*time.Millisecond)
}
