// Command cashcue runs the portfolio valuation and reconciliation batch
// tools: daily snapshots, cash balance recalculation and financial audits.
package main

import (
	"fmt"
	"os"

	"github.com/billoven/CashCue/internal/config"
	"github.com/billoven/CashCue/internal/logger"
	"github.com/billoven/CashCue/internal/repository"
	"github.com/billoven/CashCue/internal/repository/dryrun"
	"github.com/billoven/CashCue/internal/repository/memory"
	"github.com/billoven/CashCue/internal/repository/postgres"
	"github.com/billoven/CashCue/internal/repository/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cashcue",
	Short: "Portfolio valuation and reconciliation tools",
	Long: `CashCue maintains a relational ledger of brokerage portfolios.

This command recomputes positions (FIFO lot tracking), values portfolios
against historical prices, reconciles cash balances against transaction
history, writes daily snapshots, and audits the ledger for discrepancies.`,
	SilenceUsage: true,
}

var flagDryRun bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false,
		"simulate execution: log would-be writes without persisting")
}

// app bundles the wiring shared by all commands.
type app struct {
	cfg    config.Config
	log    *logrus.Logger
	repo   repository.Ledger
	closer func() error
}

func newApp(dryRun bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Environment, cfg.LogFile)

	var (
		repo   repository.Ledger
		closer = func() error { return nil }
	)
	switch {
	case cfg.DatabaseURL != "":
		pg, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repo, closer = pg, pg.Close
		log.Info("connected to postgres")
	case cfg.SQLitePath != "":
		lite, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		repo, closer = lite, lite.Close
		log.WithField("path", cfg.SQLitePath).Info("using sqlite ledger")
	default:
		log.Warn("DATABASE_URL not set, using in-memory store. Data will reset on exit.")
		repo = memory.New()
	}

	if dryRun {
		log.Info("dry-run mode: all writes are suppressed")
		repo = dryrun.Wrap(repo, log)
	}
	return &app{cfg: cfg, log: log, repo: repo, closer: closer}, nil
}

func (a *app) close() {
	if err := a.closer(); err != nil {
		a.log.WithError(err).Warn("closing ledger store failed")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
