// Command backfill runs a one-shot sync of the core sources and reports
// the results. It exits non-zero if any source reported an error.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/alert-comb/app/bootstrap"
	"github.com/lysyi3m/alert-comb/app/cfg"
	"github.com/lysyi3m/alert-comb/app/ingest"
)

const maxReportedErrors = 3

type options struct {
	Days    int      `long:"days" default:"30" description:"Number of days to backfill"`
	Sources []string `long:"source" description:"Sync only this source (repeatable); defaults to FDA, FSIS, CDC and EPA"`
}

type syncer interface {
	SyncAllSources(ctx context.Context, daysBack int) []ingest.SyncResult
	SyncSource(ctx context.Context, name string, daysBack int) (ingest.SyncResult, error)
}

func main() {
	var opts options

	appCfg, err := cfg.Load(&opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if appCfg == nil {
		return
	}
	if opts.Days < 0 {
		fmt.Fprintf(os.Stderr, "--days must be non-negative, got %d\n", opts.Days)
		os.Exit(2)
	}

	bootstrap.SetupLogger(appCfg.Debug)

	app, err := bootstrap.New(appCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, app.Service, opts, os.Stdout)
	stop()

	app.Close()
	os.Exit(code)
}

func run(ctx context.Context, s syncer, opts options, w io.Writer) int {
	fmt.Fprintf(w, "Backfilling the last %d days\n", opts.Days)

	var results []ingest.SyncResult
	if len(opts.Sources) == 0 {
		results = s.SyncAllSources(ctx, opts.Days)
	} else {
		for _, name := range opts.Sources {
			result, err := s.SyncSource(ctx, name, opts.Days)
			if err != nil {
				fmt.Fprintf(w, "%s: %v\n", name, err)
				return 1
			}
			results = append(results, result)
		}
	}

	if errorCount := report(w, results); errorCount > 0 {
		return 1
	}
	return 0
}

// report prints per-source counts and the first few errors of each source,
// and returns the total number of errors.
func report(w io.Writer, results []ingest.SyncResult) int {
	var inserted, updated, skipped, errorCount int

	for _, r := range results {
		fmt.Fprintf(w, "%s: %s in %s, fetched %d, inserted %d, updated %d, skipped %d\n",
			r.Source, r.Status, r.Duration().Round(time.Millisecond), r.AlertsFetched, r.AlertsInserted, r.AlertsUpdated, r.AlertsSkipped)

		for i, e := range r.Errors {
			if i == maxReportedErrors {
				fmt.Fprintf(w, "  ... and %d more errors\n", len(r.Errors)-maxReportedErrors)
				break
			}
			fmt.Fprintf(w, "  error: %s\n", e)
		}

		inserted += r.AlertsInserted
		updated += r.AlertsUpdated
		skipped += r.AlertsSkipped
		errorCount += len(r.Errors)
	}

	fmt.Fprintf(w, "Total: inserted %d, updated %d, skipped %d, errors %d\n", inserted, updated, skipped, errorCount)
	return errorCount
}
