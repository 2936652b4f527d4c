package common

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitializeLogger_ReplacesGlobal(t *testing.T) {
	prev := zap.L()
	defer zap.ReplaceGlobals(prev)

	zap.ReplaceGlobals(zap.NewNop())
	if zap.L().Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("Expected no-op global logger before initialization")
	}

	logger, cleanup := InitializeLogger()
	defer cleanup()

	if zap.L() != logger {
		t.Errorf("Expected InitializeLogger to install the returned logger globally")
	}
	if !zap.L().Core().Enabled(zapcore.ErrorLevel) {
		t.Errorf("Expected config load failures to be logged at error level")
	}
	if !zap.L().Core().Enabled(zapcore.FatalLevel) {
		t.Errorf("Expected fatal level to be enabled")
	}
}
