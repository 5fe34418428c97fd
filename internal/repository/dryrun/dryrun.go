// Package dryrun wraps a Ledger so every write becomes a no-op that logs the
// would-be statement instead. Reads pass through untouched, which keeps the
// engines oblivious to the execution mode.
package dryrun

import (
	"context"
	"sync"
	"time"

	"github.com/billoven/CashCue/internal/models"
	"github.com/billoven/CashCue/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Ledger struct {
	repository.Ledger
	log *logrus.Entry

	mu        sync.Mutex
	snapshots []models.Snapshot
}

func Wrap(inner repository.Ledger, logger *logrus.Logger) *Ledger {
	return &Ledger{
		Ledger: inner,
		log:    logger.WithField("component", "dry-run"),
	}
}

func (l *Ledger) UpsertSnapshot(ctx context.Context, snap models.Snapshot) error {
	l.mu.Lock()
	l.snapshots = append(l.snapshots, snap)
	l.mu.Unlock()
	l.log.WithFields(logrus.Fields{
		"account":     snap.AccountID,
		"date":        snap.Date.Format("2006-01-02"),
		"totalValue":  snap.TotalValue.StringFixed(2),
		"invested":    snap.InvestedAmount.StringFixed(2),
		"cashBalance": snap.CashBalance.StringFixed(2),
	}).Info("[dry-run] would upsert portfolio snapshot")
	return nil
}

func (l *Ledger) UpdateCashBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	l.log.WithFields(logrus.Fields{
		"account": accountID,
		"balance": balance.StringFixed(2),
	}).Info("[dry-run] would update cash account balance")
	return nil
}

func (l *Ledger) UpdateSnapshotCash(ctx context.Context, accountID int64, date time.Time, balance decimal.Decimal) error {
	l.log.WithFields(logrus.Fields{
		"account": accountID,
		"date":    date.Format("2006-01-02"),
		"balance": balance.StringFixed(2),
	}).Info("[dry-run] would update snapshot cash balance")
	return nil
}

// Snapshots returns the would-be snapshot writes, in call order, for
// inspection by the caller.
func (l *Ledger) Snapshots() []models.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Snapshot(nil), l.snapshots...)
}
