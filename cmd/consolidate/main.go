package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/grupodatos/dwh_backend/config"
	"bitbucket.org/grupodatos/dwh_backend/models"
	"bitbucket.org/grupodatos/dwh_backend/workflow"
)

func main() {
	reportingCurrency := flag.String("currency", "USD", "Reporting currency for fact amounts")
	missingRate := flag.String("missing-rate", "drop", "Policy for lines without a usable rate: drop or keep-original")
	migrate := flag.Bool("migrate", false, "Run schema migration before the pipeline")
	showLast := flag.Bool("show-last", false, "Print the cached summary of the last successful run and exit")
	flag.Parse()

	var policy workflow.MissingRatePolicy
	switch strings.TrimSpace(*missingRate) {
	case "drop":
		policy = workflow.MissingRateDrop
	case "keep-original":
		policy = workflow.MissingRateKeepOriginal
	default:
		fmt.Fprintf(os.Stderr, "invalid --missing-rate %q (want drop or keep-original)\n", *missingRate)
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if strings.TrimSpace(os.Getenv("REDIS_ADDRESS")) != "" {
		config.ConnectRedisWithRetry()
	}
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := config.GetLogger()

	if *showLast {
		summary, found, err := config.GetRedisValue("dwh:last_run_summary")
		if err != nil {
			fmt.Fprintf(os.Stderr, "read cached summary: %v\n", err)
			os.Exit(1)
		}
		if !found {
			fmt.Println("no cached run summary")
			return
		}
		fmt.Println(summary)
		return
	}

	if *migrate {
		models.MigrateTable()
	}

	result, err := workflow.RunConsolidation(context.Background(), db, logger, workflow.RunOptions{
		ReportingCurrency: strings.ToUpper(strings.TrimSpace(*reportingCurrency)),
		MissingRatePolicy: policy,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "consolidation run %s failed: %v\n", result.RunUID, err)
		os.Exit(1)
	}

	for _, stage := range result.Stages {
		fmt.Printf("%-22s read=%d loaded=%d dropped=%d\n",
			stage.Stage, stage.Read, stage.Loaded, stage.TotalDropped())
	}
	fmt.Printf("consolidation run %s done\n", result.RunUID)
}
