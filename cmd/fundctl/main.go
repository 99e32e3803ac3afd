// fundctl runs one collection or maintenance action and exits, for
// cron-less operation and manual backfills.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/fundwatch/internal/app"
	"github.com/aristath/fundwatch/internal/config"
	"github.com/aristath/fundwatch/internal/database"
	"github.com/aristath/fundwatch/pkg/logger"
)

const usage = `Usage: fundctl -action <action>

Actions:
  list       sync the fund catalogue
  basic      enrich fund attributes (manager, scale, fee)
  nav        collect daily NAV history into staging
  portfolio  collect quarterly holdings
  validate   run validation on pending staged rows without merging
  pipeline   validate staged rows and merge into production
  metrics    recompute fund metrics
  score      rescore funds from their latest metrics
  alert      evaluate alert conditions
  health     print the health snapshot
`

func main() {
	action := flag.String("action", "", "action to run")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if *action == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Error().Err(err).Msg("Failed to run migrations")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := app.Build(db, cfg, log)

	start := time.Now()
	err = runAction(ctx, a, cfg, *action)

	switch {
	case err == nil:
		log.Info().Str("action", *action).Dur("elapsed", time.Since(start)).Msg("Done")
	case errors.Is(err, context.Canceled):
		log.Warn().Str("action", *action).Msg("Interrupted")
		os.Exit(130)
	default:
		log.Error().Err(err).Str("action", *action).Msg("Action failed")
		os.Exit(1)
	}
}

func runAction(ctx context.Context, a *app.App, cfg *config.Config, action string) error {
	switch action {
	case "list":
		_, err := a.CollectSvc.SyncFundList(ctx)
		return err
	case "basic":
		_, err := a.CollectSvc.EnrichFundBasics(ctx)
		return err
	case "nav":
		_, err := a.CollectSvc.CollectDailyNav(ctx)
		return err
	case "portfolio":
		_, err := a.CollectSvc.CollectPortfolios(ctx)
		return err
	case "validate":
		rows, err := a.StagingRepo.ListPending()
		if err != nil {
			return err
		}
		// Dry run: rows keep their PENDING status, nothing merges.
		return printJSON(a.Validator.Validate(rows))
	case "pipeline":
		result, err := a.Pipeline.Run(ctx)
		if err != nil {
			return err
		}
		return printJSON(result)
	case "metrics":
		_, err := a.Engine.BatchCompute(ctx, cfg.WatchlistLimit)
		return err
	case "score":
		codes, err := a.NavRepo.FundCodesWithDataSince(time.Now().AddDate(0, 0, -30), cfg.WatchlistLimit)
		if err != nil {
			return err
		}
		_, err = a.ScoringSvc.ScoreAll(ctx, codes)
		return err
	case "alert":
		alerts, err := a.Trigger.CheckAll(ctx)
		if err != nil {
			return err
		}
		return printJSON(alerts)
	case "health":
		return printJSON(a.Health.Check())
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
