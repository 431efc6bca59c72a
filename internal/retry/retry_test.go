package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Policy{BaseDelay: time.Millisecond, MaxAttempts: 5}, nil, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDoExhaustsMaxAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Policy{BaseDelay: time.Millisecond, MaxAttempts: 3}, nil, func() error {
		attempts++
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("Do() expected error, got nil")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Do(ctx, Policy{BaseDelay: time.Millisecond}, nil, func() error {
		attempts++
		return errors.New("fails")
	})
	if err == nil {
		t.Fatal("Do() expected error from cancelled context")
	}
}

func TestDoCallsOnRetry(t *testing.T) {
	var seen []int
	attempts := 0
	_ = Do(context.Background(), Policy{BaseDelay: time.Millisecond, MaxAttempts: 3}, func(attempt int, err error) {
		seen = append(seen, attempt)
	}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("retry me")
		}
		return nil
	})
	if len(seen) != 2 {
		t.Errorf("onRetry called %d times, want 2", len(seen))
	}
}
