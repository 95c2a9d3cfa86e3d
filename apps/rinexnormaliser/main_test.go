package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goblimey/go-tools/clock"
	"github.com/goblimey/go-tools/switchwriter"

	"github.com/goblimey/go-rinex/apps/rinexnormaliser/config"
)

const sampleFile = "../../rinex/testdata/arlm200a.15o"

// testConfig creates the directories for a config and puts the sample file
// in the input directory.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	sample, err := os.ReadFile(sampleFile)
	if err != nil {
		t.Fatal(err)
	}

	base := t.TempDir()
	cfg := &config.Config{
		InputDirectory:  filepath.Join(base, "in"),
		OutputDirectory: filepath.Join(base, "out"),
		IndexFile:       filepath.Join(base, "index.db"),
		Schedule:        config.DefaultSchedule,
		TimeoutSeconds:  config.DefaultTimeoutSeconds,
	}
	for _, dir := range []string{cfg.InputDirectory, cfg.OutputDirectory} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	err = os.WriteFile(filepath.Join(cfg.InputDirectory, "arlm200a.15o"), sample, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

// TestScan checks that a scan writes the normalised file and logs it.
func TestScan(t *testing.T) {
	cfg := testConfig(t)

	var logBuffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuffer, nil))
	now := []time.Time{time.Date(2015, time.July, 20, 2, 0, 0, 0, time.UTC)}

	svc, err := newService(cfg, logger, clock.NewSteppingClock(&now))
	if err != nil {
		t.Fatal(err)
	}

	svc.scan(context.Background())
	svc.stop()

	if _, err := os.Stat(filepath.Join(cfg.OutputDirectory, "arlm200a.15o")); err != nil {
		t.Errorf("want the normalised file - %v", err)
	}

	logText := logBuffer.String()
	if !strings.Contains(logText, "scan complete") || !strings.Contains(logText, "processed=1") {
		t.Errorf("want the scan logged, got\n%s", logText)
	}
}

// TestStartAndStop checks that the service starts with a valid schedule and
// stops cleanly, and that it won't start with a bad one.
func TestStartAndStop(t *testing.T) {
	cfg := testConfig(t)

	writer := switchwriter.New()
	logger := slog.New(slog.NewTextHandler(writer, nil))

	svc, err := newService(cfg, logger, clock.NewSystemClock())
	if err != nil {
		t.Fatal(err)
	}
	if svc.server != nil {
		t.Error("want no metrics server")
	}

	if err := svc.start(context.Background(), "junk"); err == nil {
		t.Error("expected an error from a bad schedule")
	}

	if err := svc.start(context.Background(), "@every 1h"); err != nil {
		t.Fatal(err)
	}
	svc.stop()
}

// TestMetricsServer checks that the service creates a metrics server when
// the config gives an address.
func TestMetricsServer(t *testing.T) {
	cfg := testConfig(t)
	cfg.MetricsAddress = "localhost:9100"

	logger := slog.New(slog.NewTextHandler(switchwriter.New(), nil))
	svc, err := newService(cfg, logger, clock.NewSystemClock())
	if err != nil {
		t.Fatal(err)
	}
	defer svc.index.Close()

	if svc.server == nil {
		t.Fatal("want a metrics server")
	}
	if svc.server.Addr != "localhost:9100" {
		t.Errorf("want localhost:9100 got %s", svc.server.Addr)
	}
}

// TestNewEventLogger checks that the event log directory is created.
func TestNewEventLogger(t *testing.T) {
	cfg := testConfig(t)
	cfg.EventLogDirectory = filepath.Join(t.TempDir(), "logs")

	logger, err := newEventLogger(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if logger == nil {
		t.Fatal("want a logger")
	}

	info, err := os.Stat(cfg.EventLogDirectory)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Error("want a directory")
	}
}
