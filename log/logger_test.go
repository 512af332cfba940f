package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kochabx/gmkit/errors"
	"github.com/kochabx/gmkit/log/writer"
)

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, WithLevel(zerolog.InfoLevel))
	logger.Debug().Msg("hidden")
	logger.Info().Str("operation", "sign").Msg("sm2 operation")
	logger.Error().Err(errors.Integrity("sm2: integrity check failed")).Msg("decrypt")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(out, `"operation":"sign"`) {
		t.Errorf("missing field in %s", out)
	}
	if !strings.Contains(out, "integrity check failed") {
		t.Errorf("missing error in %s", out)
	}
}

func TestGlobalLog(t *testing.T) {
	old := G
	defer SetGlobalLogger(old)

	if G.Hook() == nil {
		t.Error("global logger should mask key material")
	}
	SetGlobalLogger(nil)
	if G != old {
		t.Error("nil logger should be ignored")
	}

	var buf bytes.Buffer
	SetGlobalLogger(NewWithWriter(&buf))
	SetGlobalLevel(zerolog.WarnLevel)
	Info().Msg("skipped")
	Warn().Msgf("retry %d", 3)

	if strings.Contains(buf.String(), "skipped") || !strings.Contains(buf.String(), "retry 3") {
		t.Errorf("unexpected global output %s", buf.String())
	}
}

func TestLoggerOptions(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf,
		WithCaller(),
		WithFields(map[string]any{"service": "gmkit"}),
		WithFields(map[string]any{"env": "test"}),
	)
	logger.Info().Msg("ready")

	out := buf.String()
	for _, want := range []string{`"service":"gmkit"`, `"env":"test"`, `"caller":`, "logger_test.go"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
	if logger.Hook() != nil {
		t.Error("hook should be nil unless configured")
	}
}

func TestFileLog(t *testing.T) {
	dir := t.TempDir()
	config := FileConfig{
		Filepath:   dir,
		RotateMode: writer.RotateModeSize,
		Filename:   "sm2",
		LumberjackConfig: LumberjackConfig{
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}

	logger, err := NewFile(config, WithDesensitize(DefaultHook()))
	if err != nil {
		t.Fatalf("Failed to create file logger: %v", err)
	}
	logger.Info().Str("private_key", strings.Repeat("ab", 32)).Msg("loaded key")
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "sm2.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), strings.Repeat("ab", 32)) {
		t.Error("private key written to file")
	}
}

func TestNewFromConfig(t *testing.T) {
	logger, err := NewFromConfig(Config{Level: "debug", Fields: map[string]string{"service": "gmkit"}})
	if err != nil {
		t.Fatal(err)
	}
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %s", logger.GetLevel())
	}
	if logger.Hook() == nil {
		t.Error("desensitize should default to on")
	}

	logger, err = NewFromConfig(Config{
		Output: "multi",
		File: FileConfig{
			Filepath:   t.TempDir(),
			RotateMode: writer.RotateModeTime,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()
	logger.Info().Msg("multi output")
}
