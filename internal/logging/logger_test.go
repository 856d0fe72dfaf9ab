package logging

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	for _, cfg := range []Config{{}, {Level: "debug", Format: "json"}, {Level: "warn", Format: "console"}} {
		l, err := New(cfg)
		if err != nil {
			t.Fatalf("new %+v: %v", cfg, err)
		}
		l.WithComponent("test").WithFields("k", "v").Debugw("hello")
		l.WithError(errors.New("boom")).Debugw("failed")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Config{Level: "verbose"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
