// cmd/tools/integrity-check/main.go
//
// Loads the full infraction table once and prints an integrity report,
// without starting the server. Useful after upstream dataset updates.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"infraction-insights/internal/common/config"
	"infraction-insights/internal/common/database"
	"infraction-insights/internal/common/logger"
	"infraction-insights/internal/dataset"
)

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	log := logger.NewZapAdapter(zapLog)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	var (
		source   dataset.PageSource
		supabase *database.SupabaseClient
	)
	switch cfg.Database.Backend {
	case "sql":
		sqlClient, err := database.NewSQL(cfg.Database.SQL)
		if err != nil {
			zapLog.Fatal("sql open failed", zap.Error(err))
		}
		defer sqlClient.Close()
		source = sqlClient
	default:
		supabase = database.NewSupabase(cfg.Database.Supabase)
		source = supabase
	}

	fetcher, err := dataset.NewFetcher(source, dataset.Config{
		Table:    cfg.Dataset.Table,
		PageSize: cfg.Dataset.PageSize,
		MaxPages: cfg.Dataset.MaxPages,
	}, log)
	if err != nil {
		zapLog.Fatal("fetcher init failed", zap.Error(err))
	}

	ds := fetcher.FetchAll(ctx)
	report := dataset.Inspect(ds.Records)

	fmt.Printf("table:    %s\n", cfg.Dataset.Table)
	fmt.Printf("records:  %d\n", len(ds.Records))
	fmt.Printf("partial:  %v", ds.Partial)
	if ds.Partial {
		fmt.Printf(" (%s)", ds.PartialReason)
	}
	fmt.Println()
	fmt.Printf("report:   %s\n", report.Summary())

	// The remote exact count exposes rows the pager never reached.
	if supabase != nil {
		if remote, err := supabase.CountExact(ctx, cfg.Dataset.Table); err == nil {
			fmt.Printf("remote:   %d rows (%d not loaded)\n", remote, remote-len(ds.Records))
		}
	}

	for _, dup := range report.TopDuplicates {
		fmt.Printf("  duplicate citation %s seen %d times\n", dup.CitationNumber, dup.Count)
	}

	if ds.Empty() {
		os.Exit(1)
	}
}
