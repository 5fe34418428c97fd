package repository

import (
	"context"
	"errors"
	"time"

	"github.com/billoven/CashCue/internal/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoPrice indicates no price was observed at or before the asked date.
	ErrNoPrice = errors.New("no price at or before date")
	// ErrNoSnapshot indicates no portfolio snapshot has been written yet.
	ErrNoSnapshot = errors.New("no snapshot recorded")
)

// Ledger abstracts persistence for the portfolio ledger: accounts,
// instruments, orders, cash movements, dividends, prices and snapshots.
// Engines receive it explicitly; nothing reaches into ambient state.
type Ledger interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
	GetAccount(ctx context.Context, accountID int64) (models.Account, error)
	GetInstrument(ctx context.Context, instrumentID int64) (models.Instrument, error)

	// ListOrders returns the account's orders ascending by trade date, ties
	// broken by row id, so FIFO consumption is deterministic.
	ListOrders(ctx context.Context, accountID int64) ([]models.Order, error)
	// ListCashTransactions returns the account's cash movements ascending by
	// date, ties broken by row id.
	ListCashTransactions(ctx context.Context, accountID int64) ([]models.CashTransaction, error)
	ListDividends(ctx context.Context, accountID int64, asOf time.Time) ([]models.Dividend, error)

	// LatestPriceAt returns the most recent observed price with a timestamp
	// at or before asOf, never a future one. ErrNoPrice when none exists.
	LatestPriceAt(ctx context.Context, instrumentID int64, asOf time.Time) (decimal.Decimal, error)

	GetCashAccount(ctx context.Context, accountID int64) (models.CashAccount, error)
	// GetPersistedCashBalance returns the authoritative current balance of
	// the account's cash ledger.
	GetPersistedCashBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)

	GetSnapshot(ctx context.Context, accountID int64, date time.Time) (models.Snapshot, error)
	LatestSnapshotDate(ctx context.Context) (time.Time, error)
	// UpsertSnapshot inserts or fully replaces the snapshot keyed by
	// (account, date). Re-running for the same day must be idempotent.
	UpsertSnapshot(ctx context.Context, snap models.Snapshot) error

	// UpdateCashBalance overwrites the persisted current balance of the
	// account's cash ledger.
	UpdateCashBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error
	// UpdateSnapshotCash patches the cash_balance field of an existing
	// snapshot row without touching the valuation fields.
	UpdateSnapshotCash(ctx context.Context, accountID int64, date time.Time, balance decimal.Decimal) error
}
