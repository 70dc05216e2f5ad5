package commands

import (
	"context"
	"fmt"

	"github.com/jhango/pricesync/internal/catalog"
	"github.com/jhango/pricesync/internal/rates"
	"github.com/jhango/pricesync/internal/report"
	"github.com/jhango/pricesync/internal/updater"
	"github.com/jhango/pricesync/pkg/config"
	"github.com/jhango/pricesync/pkg/database"
	"github.com/jhango/pricesync/pkg/httputil"
	"github.com/jhango/pricesync/pkg/logger"
)

// deps bundles the wired components every command starts from.
type deps struct {
	cfg          *config.Config
	log          *logger.Logger
	orchestrator *updater.Orchestrator
	repository   *updater.Repository
	emailer      *report.Emailer
	db           *database.DB
}

// initDeps loads configuration and wires the orchestrator with its catalog
// client, rate sources, and optional run-history database.
func initDeps(ctx context.Context) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	// The catalog client installs the store's rate limit on its client;
	// the rate sources get their own so market fetches are not throttled.
	catalogClient := catalog.NewClient(cfg, httputil.New(log), log)

	ratesHTTP := httputil.New(log)
	rateSource := rates.NewChain(log,
		rates.NewGoldAPIClient(cfg, ratesHTTP, log),
		rates.NewScraper(cfg, ratesHTTP, log),
	)

	d := &deps{
		cfg:          cfg,
		log:          log,
		orchestrator: updater.New(catalogClient, rateSource, log),
		emailer:      report.NewEmailer(cfg, log),
	}

	if cfg.Database.URL != "" {
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		d.db = db
		d.repository = updater.NewRepository(db, log)
		if err := d.repository.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return d, nil
}

func (d *deps) close() {
	if d.db != nil {
		d.db.Close()
	}
}

// finishRun persists and mails a finished run report.
func (d *deps) finishRun(ctx context.Context, runReport *updater.RunReport) {
	if d.repository != nil {
		if err := d.repository.Save(ctx, runReport); err != nil {
			d.log.WithError(err).Error("Run history save failed")
		}
	}
	d.emailer.Notify(ctx, runReport)
}
