// Command housecup-load submits random event results to a running server and
// checks that house scores and ranks match what was submitted.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/natefinch/atomic"
	"github.com/okian/housecup/internal/loadtest"
	"github.com/okian/housecup/pkg/logger"

	flag "github.com/spf13/pflag"
)

// Default configuration constants.
const (
	defaultNumEvents   = 500
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	flagSet := flag.NewFlagSet("housecup-load", flag.ContinueOnError)
	var (
		baseURL   = flagSet.String("url", "http://localhost:9080", "Base URL of the service")
		numEvents = flagSet.Int("events", defaultNumEvents, "Number of distinct events to submit")
		workers   = flagSet.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		dupRate   = flagSet.Float64("duplicates", 0.1, "Fraction of events submitted twice with the same key")
		timeout   = flagSet.Duration("timeout", loadtest.DefaultTimeout, "HTTP request timeout")
		settle    = flagSet.Duration("settle", loadtest.DefaultSettleTimeout, "How long to wait for scores to settle")
		seed      = flagSet.Uint64("seed", 0, "Random seed (0 picks one)")
		report    = flagSet.StringP("report", "o", "", "Write the JSON report to this file")
		format    = flagSet.String("log-format", "text", "Log format: text or json")
		verbose   = flagSet.BoolP("verbose", "v", false, "Enable verbose logging")
	)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if err := logger.Init(logger.WithFormat(*format), logger.WithOutput(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := loadtest.Run(ctx, loadtest.Config{
		BaseURL:       *baseURL,
		NumEvents:     *numEvents,
		Workers:       *workers,
		Timeout:       *timeout,
		DuplicateRate: *dupRate,
		SettleTimeout: *settle,
		BusyRetries:   loadtest.DefaultBusyRetries,
		Seed:          *seed,
		Verbose:       *verbose,
	}, logger.Get().Named("loadtest"))

	if *report != "" && res != nil {
		if werr := writeReport(*report, res); werr != nil {
			logger.Get().Warn(ctx, "failed to write report", logger.Error(werr))
		}
	}
	if err != nil {
		os.Stderr.WriteString("load test failed: " + err.Error() + "\n")
		return 1
	}
	return 0
}

func writeReport(path string, res *loadtest.Report) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}
