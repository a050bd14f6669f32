package errors

import (
	stdErrors "errors"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation", ValidationError("invalid input").Build(), 2},
		{"config", ConfigError("bad config").Build(), 7},
		{"commit", CommitError("submission failed").Build(), 8},
		{"persistence", PersistenceError("write failed").Build(), 9},
		{"internal", InternalError("oops").Build(), 10},
		{"daemon", DaemonError("failed").Build(), 12},
		{"plain", stdErrors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	cfgErr := ConfigError("targets.daily must be positive").Build()
	if got := quiet.FormatError(cfgErr); got != "Error: targets.daily must be positive" {
		t.Errorf("unexpected quiet format %q", got)
	}
	if got := verbose.FormatError(cfgErr); !strings.Contains(got, "[config:fatal]") {
		t.Errorf("verbose format should include classification, got %q", got)
	}
	if got := quiet.FormatError(InternalError("nil engine").Build()); !strings.Contains(got, "use -v") {
		t.Errorf("internal errors should be hidden without -v, got %q", got)
	}
	if got := quiet.FormatError(nil); got != "" {
		t.Errorf("nil error should format empty, got %q", got)
	}
}
