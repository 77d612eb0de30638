package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/grupodatos/dwh_backend/bccrsync"
	"bitbucket.org/grupodatos/dwh_backend/config"
)

func main() {
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

	promoted, err := worker.UpdateCurrent(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "rate update failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("rate update complete: %d rates in dimension\n", promoted)
}
