package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errFlaky = errors.New("flaky")

func TestDoSucceedsAfterRetries(t *testing.T) {
	calls := 0
	var waits []time.Duration
	p := Exponential(3, time.Millisecond)
	p.OnRetry = func(_ int, _ error, wait time.Duration) { waits = append(waits, wait) }

	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Exponential(3, time.Millisecond), func(context.Context) error {
		calls++
		return errFlaky
	})
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, calls)
}

func TestDoPermanentStopsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Exponential(5, time.Millisecond), func(context.Context) error {
		calls++
		return Permanent(errFlaky)
	})
	assert.Equal(t, errFlaky, err)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestDoCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Exponential(3, time.Hour), func(context.Context) error {
		calls++
		cancel()
		return errFlaky
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

type hintErr struct{ after time.Duration }

func (e hintErr) Error() string             { return "slow down" }
func (e hintErr) RetryAfter() time.Duration { return e.after }

func TestDoHonoursRetryAfterHint(t *testing.T) {
	var waits []time.Duration
	p := Policy{Attempts: 2, BaseDelay: time.Hour, MaxDelay: time.Hour}
	p.OnRetry = func(_ int, _ error, wait time.Duration) { waits = append(waits, wait) }

	calls := 0
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		if calls == 1 {
			return hintErr{after: time.Millisecond}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Millisecond}, waits)
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		attempt int
		want    time.Duration
	}{
		{"first exponential", Exponential(3, time.Second), 1, time.Second},
		{"second exponential", Exponential(3, time.Second), 2, 2 * time.Second},
		{"third exponential", Exponential(4, time.Second), 3, 4 * time.Second},
		{"capped", Policy{BaseDelay: time.Second, MaxDelay: 3 * time.Second}, 3, 3 * time.Second},
		{"schedule", Schedule(time.Second, 5*time.Second, 30*time.Second), 2, 5 * time.Second},
		{"schedule past end", Schedule(time.Second, 5*time.Second), 4, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Backoff(tt.attempt))
		})
	}
}

func TestScheduleAttempts(t *testing.T) {
	assert.Equal(t, 4, Schedule(time.Second, 5*time.Second, 30*time.Second).attempts())
	assert.Equal(t, 1, Policy{}.attempts())
}
