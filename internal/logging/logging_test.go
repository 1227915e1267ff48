package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"ERROR", zapcore.ErrorLevel, false},
		{"chatty", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !logger.Core().Enabled(tt.want) {
				t.Errorf("expected %s to be enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
				t.Errorf("expected %s to be disabled", tt.want-1)
			}
		})
	}
}

func TestMust_FallsBackToWarn(t *testing.T) {
	logger := Must("chatty")
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info to be disabled")
	}
	if !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Error("expected warn to be enabled")
	}
}
