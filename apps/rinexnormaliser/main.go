// The rinexnormaliser watches a directory for RINEX 3 observation files and
// writes a normalised copy of each to another directory.  It's intended to
// sit downstream of a tool that converts a day's log of RTCM messages into
// RINEX, so that the files sent off for Precise Point Positioning (PPP)
// processing are clean and in a consistent layout.
//
// The program takes its settings from a config file, JSON by default or
// YAML if the name ends ".yaml" or ".yml":
//
//	rinexnormaliser -c normaliser.yaml
//
// For example:
//
//	input_directory: rinex
//	output_directory: rinex/normalised
//	index_file: normaliser.db
//	schedule: "@every 5m"
//	strict: false
//	timeout_seconds: 30
//	metrics_address: localhost:9100
//	event_log_directory: logs
//
// On each tick of the cron schedule it scans the input directory.  Files
// that it has already processed are ignored unless they have changed since.
// With "strict" false, lines that can't be used are skipped and reported in
// the event log.  With "strict" true, a file with any problem is not
// written.  The outcome for every file is kept in the index.
//
// The event log is rolled over each day and has a datestamped name such as
// "rinexnormaliser.2024-08-31.log".  If metrics_address is set, Prometheus
// metrics are served on /metrics at that address.
//
// With -once the program does a single scan and stops.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goblimey/go-tools/clock"
	"github.com/goblimey/go-tools/dailylogger"
	"github.com/robfig/cron"

	"github.com/goblimey/go-rinex/apps/rinexnormaliser/config"
	"github.com/goblimey/go-rinex/apps/rinexnormaliser/index"
	"github.com/goblimey/go-rinex/apps/rinexnormaliser/metrics"
	"github.com/goblimey/go-rinex/apps/rinexnormaliser/normaliser"
)

// shutdownTimeout is the time allowed for the metrics server to stop.
const shutdownTimeout = 2 * time.Second

func main() {

	// Get the name of the config file (mandatory).
	var configFileName string
	var once bool
	flag.StringVar(&configFileName, "c", "", "JSON or YAML config file")
	flag.StringVar(&configFileName, "config", "", "JSON or YAML config file")
	flag.BoolVar(&once, "once", false, "scan the input directory once and stop")

	flag.Parse()

	if len(configFileName) == 0 {
		os.Stderr.Write([]byte("missing config file: -c or --config\n"))
		os.Exit(-1)
	}

	// Get the config.
	cfg, errConfig := config.GetConfig(configFileName)
	if errConfig != nil {
		os.Stderr.Write([]byte(errConfig.Error() + "\n"))
		os.Exit(-1)
	}

	eventLogger, errLogger := newEventLogger(cfg)
	if errLogger != nil {
		os.Stderr.Write([]byte(errLogger.Error() + "\n"))
		os.Exit(-1)
	}

	svc, errService := newService(cfg, eventLogger, clock.NewSystemClock())
	if errService != nil {
		eventLogger.Error("cannot start", "error", errService)
		os.Exit(-1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if once {
		svc.scan(ctx)
		svc.stop()
		return
	}

	if err := svc.start(ctx, cfg.Schedule); err != nil {
		eventLogger.Error("cannot start", "error", err)
		svc.stop()
		os.Exit(-1)
	}

	// Run until interrupted.
	<-ctx.Done()
	eventLogger.Info("stopping")
	svc.stop()
}

// newEventLogger creates the event logger.  If the config names an event
// log directory, it uses structured logging and switches to a new file each
// day with a datestamped name.  Otherwise it writes to stderr.
func newEventLogger(cfg *config.Config) (*slog.Logger, error) {
	if len(cfg.EventLogDirectory) == 0 {
		return slog.New(slog.NewTextHandler(os.Stderr, nil)), nil
	}

	if err := os.MkdirAll(cfg.EventLogDirectory, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create event log directory: %w", err)
	}
	dailyEventLogger := dailylogger.New(cfg.EventLogDirectory, "rinexnormaliser.", ".log")
	return slog.New(slog.NewTextHandler(dailyEventLogger, nil)), nil
}

// service holds the parts of the running normaliser.
type service struct {
	normaliser *normaliser.Normaliser
	index      *index.Index
	server     *http.Server // nil if metrics are not served.
	cronjob    *cron.Cron
	logger     *slog.Logger
}

// newService opens the index and creates the normaliser.
func newService(cfg *config.Config, logger *slog.Logger, clk clock.Clock) (*service, error) {
	ix, err := index.Open(cfg.IndexFile)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	svc := &service{
		normaliser: normaliser.New(cfg, ix, m, logger, clk),
		index:      ix,
		logger:     logger,
	}
	if len(cfg.MetricsAddress) > 0 {
		svc.server = m.NewServer(cfg.MetricsAddress)
	}
	return svc, nil
}

// scan runs the normaliser once and logs the outcome.
func (svc *service) scan(ctx context.Context) {
	processed, err := svc.normaliser.Run(ctx)
	if err != nil {
		svc.logger.Error("scan failed", "error", err, "processed", processed)
		return
	}
	if processed > 0 {
		svc.logger.Info("scan complete", "processed", processed)
	}
}

// start runs a scan on each tick of the schedule and starts the metrics
// server, if there is one.  The scans stop when the context is done or
// when stop is called.
func (svc *service) start(ctx context.Context, schedule string) error {
	svc.cronjob = cron.New()
	err := svc.cronjob.AddFunc(schedule, func() { svc.scan(ctx) })
	if err != nil {
		return fmt.Errorf("bad schedule %q: %w", schedule, err)
	}
	svc.cronjob.Start()

	if svc.server != nil {
		go func() {
			svc.logger.Info("serving metrics", "address", svc.server.Addr)
			err := svc.server.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				svc.logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	return nil
}

// stop stops the schedule and the metrics server and closes the index.
func (svc *service) stop() {
	if svc.cronjob != nil {
		svc.cronjob.Stop()
	}

	if svc.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.server.Shutdown(ctx); err != nil {
			svc.logger.Error("metrics server shutdown failed", "error", err)
		}
	}

	if err := svc.index.Close(); err != nil {
		svc.logger.Error("cannot close index", "error", err)
	}
}
