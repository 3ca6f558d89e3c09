// Package common wires the shared dependencies used by every subcommand.
package common

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/bookwatch/internal/config"
	"github.com/jonesrussell/bookwatch/internal/crawler"
	"github.com/jonesrussell/bookwatch/internal/fetcher"
	"github.com/jonesrussell/bookwatch/internal/logger"
	"github.com/jonesrussell/bookwatch/internal/parser"
	"github.com/jonesrussell/bookwatch/internal/report"
	"github.com/jonesrussell/bookwatch/internal/storage"
)

// Deps holds the dependencies shared by subcommands.
type Deps struct {
	Config  *config.Config
	Logger  logger.Interface
	DB      *sqlx.DB
	Store   *storage.Store
	Crawler *crawler.Crawler
}

// Setup loads configuration, connects to the database, runs migrations,
// and assembles the crawler. Overrides are applied to the loaded config
// before anything is built. The caller owns Close.
func Setup(ctx context.Context, cfgFile string, overrides ...func(*config.Config)) (*Deps, error) {
	cfg, cfgErr := config.Load(cfgFile)
	if cfgErr != nil {
		return nil, fmt.Errorf("load config: %w", cfgErr)
	}
	for _, override := range overrides {
		override(cfg)
	}

	logCfg := cfg.LoggerSettings()
	log, logErr := logger.New(&logCfg)
	if logErr != nil {
		return nil, fmt.Errorf("create logger: %w", logErr)
	}

	db, dbErr := storage.NewPostgresConnection(cfg.Database)
	if dbErr != nil {
		return nil, fmt.Errorf("connect database: %w", dbErr)
	}

	if err := storage.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	store := storage.NewStore(db)
	reporter := report.NewReporter(cfg.ReportSettings(), log)
	f := fetcher.New(cfg.FetcherSettings(), log)

	return &Deps{
		Config:  cfg,
		Logger:  log,
		DB:      db,
		Store:   store,
		Crawler: crawler.New(f, parser.New(), store, reporter, log, cfg.CrawlerSettings()),
	}, nil
}

// Close releases held resources.
func (d *Deps) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
