package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/temperature-logger/internal/api/http"
	"github.com/i474232898/temperature-logger/internal/store"
	"github.com/i474232898/temperature-logger/internal/telemetry"
)

func newTestServerURL(t *testing.T) string {
	t.Helper()
	app := httpapi.NewApp(httpapi.AppConfig{})
	httpapi.RegisterRoutes(app, telemetry.NewService(store.NewMemoryStore(time.Now())), httpapi.Options{})
	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)
	return srv.URL
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRemoteCommands(t *testing.T) {
	url := newTestServerURL(t)

	if _, err := execute(t, newExportCommand(), "--url", url); !errors.Is(err, telemetry.ErrNoData) {
		t.Fatalf("expected ErrNoData from empty server, got %v", err)
	}

	if _, err := execute(t, newSendCommand(), "--url", url, "--set", "tempC1=21.5", "--set", "tempF1=70.7"); err != nil {
		t.Fatalf("send: %v", err)
	}

	out, err := execute(t, newReadingsCommand(), "--url", url)
	if err != nil {
		t.Fatalf("readings: %v", err)
	}
	var doc telemetry.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode readings output: %v\n%s", err, out)
	}
	if len(doc.Data) != 1 || doc.Data[0]["tempC1"] != 21.5 {
		t.Fatalf("unexpected readings: %+v", doc)
	}

	out, err = execute(t, newExportCommand(), "--url", url)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[1], ",21.5,70.7,,,,,,,,") {
		t.Fatalf("unexpected csv: %q", out)
	}

	out, err = execute(t, newResetCommand(), "--url", url)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if strings.TrimSpace(out) != "Data reset successfully" {
		t.Fatalf("unexpected reset output %q", out)
	}

	out, err = execute(t, newReadingsCommand(), "--url", url)
	if err != nil {
		t.Fatalf("readings: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil || len(doc.Data) != 0 {
		t.Fatalf("expected empty log after reset, got %s (%v)", out, err)
	}
}

func TestExportRejectsFileAndURL(t *testing.T) {
	if _, err := execute(t, newExportCommand(), "--url", "http://localhost:3000", "--file", "data.json"); err == nil {
		t.Fatalf("expected error when both --url and --file are set")
	}
}

func TestRemoteOptionsValidation(t *testing.T) {
	if _, err := execute(t, newResetCommand(), "--url", "not a url"); err == nil {
		t.Fatalf("expected validation error for a bad url")
	}
}
