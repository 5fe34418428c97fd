// Package snapshot orchestrates valuation, dividends and the persisted cash
// balance into one immutable-per-day record, upserted idempotently.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billoven/CashCue/internal/models"
	"github.com/billoven/CashCue/internal/repository"
	"github.com/billoven/CashCue/internal/valuation"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Writer builds and persists per-day portfolio snapshots.
type Writer struct {
	repo   repository.Ledger
	engine *valuation.Engine
	log    *logrus.Entry
}

func NewWriter(repo repository.Ledger, engine *valuation.Engine, logger *logrus.Logger) *Writer {
	return &Writer{
		repo:   repo,
		engine: engine,
		log:    logger.WithField("component", "snapshot-writer"),
	}
}

// Write computes and upserts the snapshot for (account, date). The cash
// balance is read from the persisted cash account, never recomputed here; a
// recalculation, if wanted, is a separate step that runs before this one.
// Re-running for the same day replaces all fields exactly.
func (w *Writer) Write(ctx context.Context, accountID int64, date time.Time) (models.Snapshot, error) {
	day := Day(date)

	cashBalance, err := w.repo.GetPersistedCashBalance(ctx, accountID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return models.Snapshot{}, fmt.Errorf("fetch cash balance for account %d: %w", accountID, err)
		}
		// Accounts without a cash ledger snapshot with a zero balance.
		cashBalance = decimal.Zero
		w.log.WithField("account", accountID).Warn("no cash account, snapshot cash balance set to 0")
	}

	val, err := w.engine.Valuate(ctx, accountID, endOfDay(day))
	if err != nil {
		return models.Snapshot{}, err
	}

	snap := models.Snapshot{
		AccountID:         accountID,
		Date:              day,
		TotalValue:        val.TotalValue,
		InvestedAmount:    val.InvestedAmount,
		UnrealizedPL:      val.UnrealizedPL,
		RealizedPL:        val.RealizedPL,
		DividendsReceived: val.DividendsReceived,
		CashBalance:       cashBalance,
	}

	if err := w.repo.UpsertSnapshot(ctx, snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("upsert snapshot for account %d: %w", accountID, err)
	}

	w.log.WithFields(logrus.Fields{
		"account":    accountID,
		"date":       day.Format("2006-01-02"),
		"totalValue": snap.TotalValue.StringFixed(2),
		"anomalies":  len(val.Anomalies),
	}).Info("portfolio snapshot written")
	return snap, nil
}

// Day truncates a timestamp to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// endOfDay makes intraday trades and prices on the snapshot date visible to
// the valuation cutoff.
func endOfDay(day time.Time) time.Time {
	return day.Add(24*time.Hour - time.Nanosecond)
}
