package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/grupodatos/dwh_backend/bccrsync"
	"bitbucket.org/grupodatos/dwh_backend/config"
)

func main() {
	fromStr := flag.String("from", "", "Required: backfill start date (YYYY-MM-DD)")
	toStr := flag.String("to", "", "Optional: backfill end date (YYYY-MM-DD), defaults to today")
	flag.Parse()

	if strings.TrimSpace(*fromStr) == "" {
		fmt.Fprintln(os.Stderr, "--from is required")
		os.Exit(1)
	}
	from, err := time.Parse("2006-01-02", strings.TrimSpace(*fromStr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid from date: %v\n", err)
		os.Exit(1)
	}
	to := time.Now().UTC()
	if strings.TrimSpace(*toStr) != "" {
		to, err = time.Parse("2006-01-02", strings.TrimSpace(*toStr))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid to date: %v\n", err)
			os.Exit(1)
		}
	}
	if to.Before(from) {
		fmt.Fprintln(os.Stderr, "--to must not precede --from")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	worker, err := bccrsync.NewWorker(db, config.GetLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "rate worker init failed: %v\n", err)
		os.Exit(1)
	}

	promoted, err := worker.BackfillHistorical(context.Background(), from, to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rate backfill failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("rate backfill complete: %d rates in dimension\n", promoted)
}
