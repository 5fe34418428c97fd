package cash

import (
	"context"
	"fmt"
	"time"

	"github.com/billoven/CashCue/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Recalculator rebuilds the persisted cash balance of accounts that carry a
// cash ledger and writes the result back to the cash account and to the
// latest snapshot. Unlike the Reconciler it does mutate; dry-run is handled
// by the repository decorator at the boundary.
type Recalculator struct {
	repo repository.Ledger
	log  *logrus.Entry
}

func NewRecalculator(repo repository.Ledger, logger *logrus.Logger) *Recalculator {
	return &Recalculator{
		repo: repo,
		log:  logger.WithField("component", "cash-recalc"),
	}
}

// Recalculate recomputes the zero-anchored balance from the transaction
// history and persists it to the cash account and to the snapshot row at
// snapshotDate. Returns the recomputed balance.
func (r *Recalculator) Recalculate(ctx context.Context, accountID int64, snapshotDate time.Time) (decimal.Decimal, error) {
	txs, err := r.repo.ListCashTransactions(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch cash transactions for account %d: %w", accountID, err)
	}

	balance := decimal.Zero
	for _, t := range txs {
		impact, known := Impact(t.Type, t.Amount)
		if !known {
			r.log.WithFields(logrus.Fields{
				"account":     accountID,
				"transaction": t.ID,
				"type":        t.Type,
			}).Warn("unknown cash transaction type, zero impact")
		}
		balance = balance.Add(impact)
	}

	if err := r.repo.UpdateCashBalance(ctx, accountID, balance); err != nil {
		return decimal.Zero, fmt.Errorf("update cash balance for account %d: %w", accountID, err)
	}
	if err := r.repo.UpdateSnapshotCash(ctx, accountID, snapshotDate, balance); err != nil {
		return decimal.Zero, fmt.Errorf("update snapshot cash for account %d: %w", accountID, err)
	}

	r.log.WithFields(logrus.Fields{
		"account": accountID,
		"balance": balance.StringFixed(2),
	}).Info("cash balance recalculated")
	return balance, nil
}
