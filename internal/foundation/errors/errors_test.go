package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "worktime.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid configuration" {
			t.Errorf("expected message 'invalid configuration', got %s", err.Message())
		}

		file, exists := err.Context().GetString("file")
		if !exists || file != "worktime.yaml" {
			t.Errorf("expected context file=worktime.yaml, got %v", file)
		}
	})

	t.Run("Error detection", func(t *testing.T) {
		err := ConfigError("test error").Build()

		if !IsClassified(err) {
			t.Error("expected error to be classified")
		}
		if !HasCategory(err, CategoryConfig) {
			t.Error("expected error to have config category")
		}
		if !HasSeverity(err, SeverityFatal) {
			t.Error("expected error to have fatal severity")
		}
		if err.CanRetry() {
			t.Error("expected config error to not be retryable")
		}
		if !err.IsFatal() {
			t.Error("expected config error to be fatal")
		}
	})

	t.Run("Wrapped in fmt.Errorf", func(t *testing.T) {
		inner := PersistenceError("write failed").Build()
		wrapped := fmt.Errorf("persist tick: %w", inner)

		if !HasCategory(wrapped, CategoryPersistence) {
			t.Error("expected wrapped error to keep persistence category")
		}
		c, ok := AsClassified(wrapped)
		if !ok || c != inner {
			t.Fatalf("expected AsClassified to unwrap to the inner error")
		}
		if !c.IsTransient() {
			t.Error("persistence errors retry on the next tick")
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Fluent API", func(t *testing.T) {
		originalErr := errors.New("connection refused")
		err := WrapError(originalErr, CategoryCommit, "time entry submission failed").
			WithContext("endpoint", "http://backend/api/time-entries/").
			Build()

		if !errors.Is(err, originalErr) {
			t.Error("expected cause to be reachable via errors.Is")
		}
		if err.RetryStrategy() != RetryNever {
			t.Errorf("expected default retry never, got %s", err.RetryStrategy())
		}
		if got := err.Error(); got != "[commit:error] time entry submission failed: connection refused" {
			t.Errorf("unexpected error string %q", got)
		}
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		cases := []struct {
			err      *ClassifiedError
			category ErrorCategory
			retry    RetryStrategy
			severity ErrorSeverity
		}{
			{CommitError("x").Build(), CategoryCommit, RetryUserAction, SeverityError},
			{RemoteSyncError("x").Build(), CategoryRemoteSync, RetryNever, SeverityWarning},
			{PersistenceError("x").Build(), CategoryPersistence, RetryNextTick, SeverityError},
			{NetworkError("x").Build(), CategoryNetwork, RetryBackoff, SeverityError},
			{InternalError("x").Build(), CategoryInternal, RetryNever, SeverityFatal},
		}
		for _, tc := range cases {
			if tc.err.Category() != tc.category || tc.err.RetryStrategy() != tc.retry || tc.err.Severity() != tc.severity {
				t.Errorf("unexpected classification %s/%s/%s", tc.err.Category(), tc.err.RetryStrategy(), tc.err.Severity())
			}
		}
	})

	t.Run("Sentinel comparison", func(t *testing.T) {
		sentinel := CommitError("time entry submission failed").Build()
		err := WrapError(errors.New("boom"), CategoryCommit, "time entry submission failed").Build()
		if !errors.Is(err, sentinel) {
			t.Error("expected errors with same category and message to match")
		}
	})
}

func TestErrorContext(t *testing.T) {
	base := ErrorContext{"a": 1}
	merged := base.Merge(ErrorContext{"b": "two", "a": 3})
	if v, _ := merged.Get("a"); v != 3 {
		t.Errorf("expected other to take precedence, got %v", v)
	}
	if _, ok := base.Get("b"); ok {
		t.Error("merge must not mutate receiver")
	}

	var nilCtx ErrorContext
	if _, ok := nilCtx.Get("x"); ok {
		t.Error("nil context should report missing keys")
	}
	if s, ok := merged.GetString("b"); !ok || s != "two" {
		t.Errorf("expected b=two, got %q", s)
	}

	err := InternalError("x").Build()
	derived := err.WithContext("k", "v")
	if _, ok := err.Context().Get("k"); ok {
		t.Error("WithContext must return a copy")
	}
	if v, _ := derived.Context().GetString("k"); v != "v" {
		t.Errorf("expected derived context k=v, got %q", v)
	}
}
