package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/billoven/CashCue/internal/audit"
	"github.com/billoven/CashCue/internal/batch"
	"github.com/billoven/CashCue/internal/cash"
	"github.com/billoven/CashCue/internal/models"
	"github.com/billoven/CashCue/internal/position"
	"github.com/billoven/CashCue/internal/repository"
	"github.com/billoven/CashCue/internal/snapshot"
	"github.com/billoven/CashCue/internal/valuation"
	"github.com/spf13/cobra"
)

var (
	flagAccount int64
	flagDate    string
	flagVerbose bool
	flagJSON    bool
	flagAnchor  string
)

func init() {
	snapshotCmd.Flags().Int64Var(&flagAccount, "account", 0, "restrict to one account id (0 = all)")
	snapshotCmd.Flags().StringVar(&flagDate, "date", "", "snapshot date YYYY-MM-DD (default today)")
	rootCmd.AddCommand(snapshotCmd)

	recalcCmd.Flags().Int64Var(&flagAccount, "account", 0, "restrict to one account id (0 = all)")
	rootCmd.AddCommand(recalcCmd)

	auditCmd.Flags().Int64Var(&flagAccount, "account", 0, "restrict to one account id (0 = all)")
	auditCmd.Flags().BoolVar(&flagVerbose, "super-verbose", false, "emit line-by-line trace")
	auditCmd.Flags().BoolVar(&flagJSON, "json", false, "machine-parseable output")
	auditCmd.Flags().StringVar(&flagAnchor, "anchor", string(cash.AnchorInitialBalance),
		"starting balance policy: zero or initial-balance")
	rootCmd.AddCommand(auditCmd)

	positionsCmd.Flags().Int64Var(&flagAccount, "account", 0, "account id (required)")
	_ = positionsCmd.MarkFlagRequired("account")
	rootCmd.AddCommand(positionsCmd)

	valuationCmd.Flags().Int64Var(&flagAccount, "account", 0, "account id (required)")
	valuationCmd.Flags().StringVar(&flagDate, "date", "", "valuation date YYYY-MM-DD (default today)")
	_ = valuationCmd.MarkFlagRequired("account")
	rootCmd.AddCommand(valuationCmd)
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Compute and upsert the daily portfolio snapshot per account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagDryRun)
		if err != nil {
			return err
		}
		defer a.close()

		date, err := parseDate(flagDate)
		if err != nil {
			return err
		}
		writer := snapshot.NewWriter(a.repo, valuation.New(a.repo, a.log), a.log)

		runner := batch.NewRunner(a.repo, a.log, a.cfg.Workers)
		res, err := runner.Run(cmd.Context(), accountFilter(flagAccount),
			func(ctx context.Context, acc models.Account) error {
				_, err := writer.Write(ctx, acc.ID, date)
				return err
			})
		if err != nil {
			return err
		}
		if !res.OK() {
			return fmt.Errorf("snapshot failed for %d account(s)", len(res.Failures))
		}
		return nil
	},
}

var recalcCmd = &cobra.Command{
	Use:   "recalc-cash",
	Short: "Recompute and persist cash balances for accounts with a cash ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagDryRun)
		if err != nil {
			return err
		}
		defer a.close()

		latest, err := a.repo.LatestSnapshotDate(cmd.Context())
		if err != nil {
			if errors.Is(err, repository.ErrNoSnapshot) {
				a.log.Warn("no portfolio snapshot available, exiting")
				return nil
			}
			return err
		}

		recalc := cash.NewRecalculator(a.repo, a.log)
		runner := batch.NewRunner(a.repo, a.log, a.cfg.Workers)
		filter := func(acc models.Account) bool {
			if flagAccount != 0 && acc.ID != flagAccount {
				return false
			}
			return acc.HasCashLedger
		}
		res, err := runner.Run(cmd.Context(), filter,
			func(ctx context.Context, acc models.Account) error {
				_, err := recalc.Recalculate(ctx, acc.ID, latest)
				return err
			})
		if err != nil {
			return err
		}
		if !res.OK() {
			return fmt.Errorf("recalculation failed for %d account(s)", len(res.Failures))
		}
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Recompute balances and positions, reporting discrepancies",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true) // auditing never writes
		if err != nil {
			return err
		}
		defer a.close()

		opts := audit.Options{
			Verbose: flagVerbose,
			Anchor:  cash.AnchorPolicy(flagAnchor),
		}
		auditor := audit.New(a.repo, a.log)

		var report *audit.Report
		if flagAccount != 0 {
			report, err = auditor.Audit(cmd.Context(), flagAccount, opts)
		} else {
			report, err = auditor.AuditAll(cmd.Context(), opts)
		}
		if err != nil {
			return err
		}
		if flagJSON {
			return audit.WriteJSON(os.Stdout, report)
		}
		return audit.WriteText(os.Stdout, report)
	},
}

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Recompute FIFO positions and realized P/L for one account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		orders, err := a.repo.ListOrders(cmd.Context(), flagAccount)
		if err != nil {
			return err
		}
		res := position.Compute(flagAccount, orders)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

var valuationCmd = &cobra.Command{
	Use:   "valuation",
	Short: "Value one account's open positions as of a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		date, err := parseDate(flagDate)
		if err != nil {
			return err
		}
		res, err := valuation.New(a.repo, a.log).Valuate(cmd.Context(), flagAccount, date)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return snapshot.Day(time.Now()), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func accountFilter(id int64) func(models.Account) bool {
	if id == 0 {
		return nil
	}
	return func(acc models.Account) bool { return acc.ID == id }
}
