package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   LogLevel
		wantOK bool
	}{
		{name: "debug", input: "debug", want: LevelDebug, wantOK: true},
		{name: "info", input: "info", want: LevelInfo, wantOK: true},
		{name: "warn", input: "warn", want: LevelWarn, wantOK: true},
		{name: "warning alias", input: "warning", want: LevelWarn, wantOK: true},
		{name: "error", input: "error", want: LevelError, wantOK: true},
		{name: "case insensitive", input: "DEBUG", want: LevelDebug, wantOK: true},
		{name: "surrounding space", input: "  error ", want: LevelError, wantOK: true},
		{name: "unknown falls back to info", input: "verbose", want: LevelInfo, wantOK: false},
		{name: "empty falls back to info", input: "", want: LevelInfo, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		debug    string
		logLevel string
		want     LogLevel
	}{
		{name: "defaults to info", want: LevelInfo},
		{name: "LOG_LEVEL warn", logLevel: "warn", want: LevelWarn},
		{name: "DEBUG wins over LOG_LEVEL", debug: "true", logLevel: "error", want: LevelDebug},
		{name: "DEBUG=0 is ignored", debug: "0", logLevel: "error", want: LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DEBUG", tt.debug)
			t.Setenv("LOG_LEVEL", tt.logLevel)
			if got := levelFromEnv(); got != tt.want {
				t.Errorf("levelFromEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	original := GetLevel()
	defer func() {
		SetLevel(original)
		SetOutput(os.Stderr)
	}()

	SetLevel(LevelWarn)
	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)
	Error("error %d", 4)

	out := buf.String()
	for _, unwanted := range []string{"[DEBUG] debug 1", "[INFO] info 2"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("output contains %q at warn level:\n%s", unwanted, out)
		}
	}
	for _, wanted := range []string{"[WARN] warn 3", "[ERROR] error 4"} {
		if !strings.Contains(out, wanted) {
			t.Errorf("output missing %q:\n%s", wanted, out)
		}
	}
}

func TestIsDebugEnabled(t *testing.T) {
	original := GetLevel()
	defer SetLevel(original)

	SetLevel(LevelDebug)
	if !IsDebugEnabled() {
		t.Error("IsDebugEnabled() = false at debug level")
	}
	SetLevel(LevelInfo)
	if IsDebugEnabled() {
		t.Error("IsDebugEnabled() = true at info level")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("LogLevel.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}
