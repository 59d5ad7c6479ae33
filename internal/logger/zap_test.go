package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestToZapLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		DebugLevel: zapcore.DebugLevel,
		InfoLevel:  zapcore.InfoLevel,
		WarnLevel:  zapcore.WarnLevel,
		ErrorLevel: zapcore.ErrorLevel,
		"bogus":    zapcore.DebugLevel,
	}
	for in, want := range cases {
		if got := toZapLevel(in); got != want {
			t.Fatalf("toZapLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNamedAddsComponent(t *testing.T) {
	l := Nop().Named("session")
	if l == nil || l.SugaredLogger == nil {
		t.Fatalf("expected named logger")
	}
	var nilLogger *Logger
	if nilLogger.Named("x") != nil {
		t.Fatalf("named on nil logger should stay nil")
	}
}
