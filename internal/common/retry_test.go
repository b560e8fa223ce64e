package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	attempts := 0

	err := Do(context.Background(), func() error {
		attempts++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	tests := []struct {
		name             string
		failUntilN       int
		maxRetries       int
		expectedAttempts int
		shouldSucceed    bool
	}{
		{name: "第二次成功", failUntilN: 2, maxRetries: 3, expectedAttempts: 2, shouldSucceed: true},
		{name: "最后一次重试成功", failUntilN: 4, maxRetries: 3, expectedAttempts: 4, shouldSucceed: true},
		{name: "全部失败", failUntilN: 10, maxRetries: 3, expectedAttempts: 4, shouldSucceed: false},
		{name: "不重试", failUntilN: 10, maxRetries: 0, expectedAttempts: 1, shouldSucceed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0

			err := Do(context.Background(), func() error {
				attempts++
				if attempts < tt.failUntilN {
					return errors.New("temporary failure")
				}
				return nil
			}, WithMaxRetries(tt.maxRetries), WithInitialDelay(time.Millisecond))

			if tt.shouldSucceed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
			assert.Equal(t, tt.expectedAttempts, attempts)
		})
	}
}

func TestDo_RetryIf(t *testing.T) {
	tests := []struct {
		name             string
		err              error
		expectedAttempts int
	}{
		{
			name:             "网络错误会重试",
			err:              NewTransportError("https://api.github.com/users/x/repos", errors.New("connection reset")),
			expectedAttempts: 3,
		},
		{
			name:             "5xx 会重试",
			err:              NewStatusError("https://api.github.com/users/x/repos", 502, "bad gateway"),
			expectedAttempts: 3,
		},
		{
			name:             "404 不重试",
			err:              NewStatusError("https://api.github.com/users/x/repos", 404, "Not Found"),
			expectedAttempts: 1,
		},
		{
			name:             "超时不重试",
			err:              NewTransportError("https://api.github.com/users/x/repos", context.DeadlineExceeded),
			expectedAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0

			err := Do(context.Background(), func() error {
				attempts++
				return tt.err
			},
				WithMaxRetries(2),
				WithInitialDelay(time.Millisecond),
				WithRetryIf(IsRetryable),
			)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.expectedAttempts, attempts)
		})
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	attempts := 0
	err := Do(ctx, func() error {
		attempts++
		return errors.New("always fails")
	}, WithInitialDelay(100*time.Millisecond), WithMaxRetries(5))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, attempts, 1)
}

func TestDo_NilFunction(t *testing.T) {
	err := Do(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, "retry: function cannot be nil", err.Error())
}

func TestDo_InvalidOptionsKeepDefaults(t *testing.T) {
	err := Do(context.Background(), func() error { return nil },
		WithMaxRetries(-1),
		WithInitialDelay(-1),
		WithMaxDelay(-1),
		WithMultiplier(-1),
		WithRetryIf(nil),
	)

	assert.NoError(t, err)
}

func TestDo_ErrorWrapping(t *testing.T) {
	originalErr := errors.New("original error")

	err := Do(context.Background(), func() error {
		return originalErr
	}, WithMaxRetries(2), WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	assert.ErrorIs(t, err, originalErr)
	assert.Contains(t, err.Error(), "retry failed after 3 attempts")
}

func TestCalculateDelay(t *testing.T) {
	tests := []struct {
		name     string
		attempt  int
		initial  time.Duration
		max      time.Duration
		mult     float64
		expected time.Duration
	}{
		{name: "第一次重试", attempt: 1, initial: 100 * time.Millisecond, max: time.Second, mult: 2, expected: 100 * time.Millisecond},
		{name: "第三次重试", attempt: 3, initial: 100 * time.Millisecond, max: time.Second, mult: 2, expected: 400 * time.Millisecond},
		{name: "封顶", attempt: 5, initial: 100 * time.Millisecond, max: 500 * time.Millisecond, mult: 2, expected: 500 * time.Millisecond},
		{name: "倍数 1.5", attempt: 2, initial: 100 * time.Millisecond, max: time.Second, mult: 1.5, expected: 150 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calculateDelay(tt.attempt, tt.initial, tt.max, tt.mult))
		})
	}
}
