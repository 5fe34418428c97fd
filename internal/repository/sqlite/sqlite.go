// Package sqlite implements the Ledger on a local sqlite file, bootstrapping
// the schema on open. Intended for development and single-user setups.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/billoven/CashCue/internal/models"
	"github.com/billoven/CashCue/internal/repository"
	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3"
)

// Repository implements repository.Ledger backed by sqlite.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// DB exposes the handle for seeding tools.
func (r *Repository) DB() *sql.DB {
	return r.db
}

func (r *Repository) ListAccounts(ctx context.Context) ([]models.Account, error) {
	const query = `
		SELECT id, name, COALESCE(account_number,''), account_type, currency, has_cash_account
		FROM broker_account
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Account{}
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Number, &a.Type, &a.Currency, &a.HasCashLedger); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) GetAccount(ctx context.Context, accountID int64) (models.Account, error) {
	const query = `
		SELECT id, name, COALESCE(account_number,''), account_type, currency, has_cash_account
		FROM broker_account
		WHERE id = ?
	`
	var a models.Account
	err := r.db.QueryRowContext(ctx, query, accountID).
		Scan(&a.ID, &a.Name, &a.Number, &a.Type, &a.Currency, &a.HasCashLedger)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, repository.ErrNotFound
	}
	return a, err
}

func (r *Repository) GetInstrument(ctx context.Context, instrumentID int64) (models.Instrument, error) {
	const query = `
		SELECT id, symbol, COALESCE(isin,''), COALESCE(label,''), type, currency, status
		FROM instrument
		WHERE id = ?
	`
	var i models.Instrument
	var status string
	err := r.db.QueryRowContext(ctx, query, instrumentID).
		Scan(&i.ID, &i.Symbol, &i.ISIN, &i.Label, &i.Type, &i.Currency, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Instrument{}, repository.ErrNotFound
	}
	i.Status = models.InstrumentStatus(status)
	return i, err
}

func (r *Repository) ListOrders(ctx context.Context, accountID int64) ([]models.Order, error) {
	const query = `
		SELECT id, broker_id, instrument_id, order_type, quantity, price, fees, total_cost, trade_date
		FROM order_transaction
		WHERE broker_id = ?
		ORDER BY trade_date ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Order{}
	for rows.Next() {
		var o models.Order
		var otype string
		if err := rows.Scan(&o.ID, &o.AccountID, &o.InstrumentID, &otype,
			&o.Quantity, &o.Price, &o.Fees, &o.TotalCost, &o.TradeDate); err != nil {
			return nil, err
		}
		o.Type = models.OrderType(otype)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repository) ListCashTransactions(ctx context.Context, accountID int64) ([]models.CashTransaction, error) {
	const query = `
		SELECT id, broker_account_id, type, amount, date, reference_id, COALESCE(comment,'')
		FROM cash_transaction
		WHERE broker_account_id = ?
		ORDER BY date ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.CashTransaction{}
	for rows.Next() {
		var t models.CashTransaction
		var ttype string
		var ref sql.NullInt64
		if err := rows.Scan(&t.ID, &t.AccountID, &ttype, &t.Amount, &t.Date, &ref, &t.Comment); err != nil {
			return nil, err
		}
		t.Type = models.CashTransactionType(ttype)
		if ref.Valid {
			t.ReferenceID = &ref.Int64
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) ListDividends(ctx context.Context, accountID int64, asOf time.Time) ([]models.Dividend, error) {
	const query = `
		SELECT id, broker_id, instrument_id, COALESCE(gross_amount, amount), COALESCE(taxes_withheld, '0'), payment_date
		FROM dividend
		WHERE broker_id = ? AND payment_date <= ?
		ORDER BY payment_date ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Dividend{}
	for rows.Next() {
		var d models.Dividend
		if err := rows.Scan(&d.ID, &d.AccountID, &d.InstrumentID,
			&d.GrossAmount, &d.TaxesWithheld, &d.PaymentDate); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) LatestPriceAt(ctx context.Context, instrumentID int64, asOf time.Time) (decimal.Decimal, error) {
	const query = `
		SELECT close_price
		FROM daily_price
		WHERE instrument_id = ? AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`
	var price decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, instrumentID, asOf).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, repository.ErrNoPrice
	}
	return price, err
}

func (r *Repository) GetCashAccount(ctx context.Context, accountID int64) (models.CashAccount, error) {
	const query = `
		SELECT id, broker_account_id, COALESCE(name,''), initial_balance, current_balance
		FROM cash_account
		WHERE broker_account_id = ?
	`
	var c models.CashAccount
	err := r.db.QueryRowContext(ctx, query, accountID).
		Scan(&c.ID, &c.AccountID, &c.Name, &c.InitialBalance, &c.CurrentBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CashAccount{}, repository.ErrNotFound
	}
	return c, err
}

func (r *Repository) GetPersistedCashBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	acc, err := r.GetCashAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.CurrentBalance, nil
}

func (r *Repository) GetSnapshot(ctx context.Context, accountID int64, date time.Time) (models.Snapshot, error) {
	const query = `
		SELECT broker_id, date, total_value, invested_amount, unrealized_pl, realized_pl, dividends_received, cash_balance
		FROM portfolio_snapshot
		WHERE broker_id = ? AND date = ?
	`
	var s models.Snapshot
	err := r.db.QueryRowContext(ctx, query, accountID, date).
		Scan(&s.AccountID, &s.Date, &s.TotalValue, &s.InvestedAmount,
			&s.UnrealizedPL, &s.RealizedPL, &s.DividendsReceived, &s.CashBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, repository.ErrNoSnapshot
	}
	return s, err
}

func (r *Repository) LatestSnapshotDate(ctx context.Context) (time.Time, error) {
	const query = `SELECT MAX(date) FROM portfolio_snapshot`
	var latest sql.NullTime
	if err := r.db.QueryRowContext(ctx, query).Scan(&latest); err != nil {
		return time.Time{}, err
	}
	if !latest.Valid {
		return time.Time{}, repository.ErrNoSnapshot
	}
	return latest.Time, nil
}

func (r *Repository) UpsertSnapshot(ctx context.Context, snap models.Snapshot) error {
	const query = `
		INSERT INTO portfolio_snapshot
		(broker_id, date, total_value, invested_amount, unrealized_pl, realized_pl, dividends_received, cash_balance)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT (broker_id, date) DO UPDATE SET
			total_value        = excluded.total_value,
			invested_amount    = excluded.invested_amount,
			unrealized_pl      = excluded.unrealized_pl,
			realized_pl        = excluded.realized_pl,
			dividends_received = excluded.dividends_received,
			cash_balance       = excluded.cash_balance
	`
	_, err := r.db.ExecContext(ctx, query,
		snap.AccountID, snap.Date, snap.TotalValue, snap.InvestedAmount,
		snap.UnrealizedPL, snap.RealizedPL, snap.DividendsReceived, snap.CashBalance)
	return err
}

func (r *Repository) UpdateCashBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	const query = `
		UPDATE cash_account
		SET current_balance = ?
		WHERE broker_account_id = ?
	`
	_, err := r.db.ExecContext(ctx, query, balance, accountID)
	return err
}

func (r *Repository) UpdateSnapshotCash(ctx context.Context, accountID int64, date time.Time, balance decimal.Decimal) error {
	const query = `
		UPDATE portfolio_snapshot
		SET cash_balance = ?
		WHERE broker_id = ? AND date = ?
	`
	_, err := r.db.ExecContext(ctx, query, balance, accountID, date)
	return err
}
