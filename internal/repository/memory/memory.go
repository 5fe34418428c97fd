// Package memory provides an in-memory Ledger used for tests and for running
// without a database. Data resets on restart.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/billoven/CashCue/internal/models"
	"github.com/billoven/CashCue/internal/repository"
	"github.com/shopspring/decimal"
)

type pricePoint struct {
	at    time.Time
	price decimal.Decimal
}

type snapKey struct {
	account int64
	date    string
}

type Store struct {
	mu           sync.RWMutex
	accounts     map[int64]models.Account
	instruments  map[int64]models.Instrument
	orders       map[int64][]models.Order
	cashTxs      map[int64][]models.CashTransaction
	dividends    map[int64][]models.Dividend
	cashAccounts map[int64]models.CashAccount
	prices       map[int64][]pricePoint
	snapshots    map[snapKey]models.Snapshot
}

func New() *Store {
	return &Store{
		accounts:     make(map[int64]models.Account),
		instruments:  make(map[int64]models.Instrument),
		orders:       make(map[int64][]models.Order),
		cashTxs:      make(map[int64][]models.CashTransaction),
		dividends:    make(map[int64][]models.Dividend),
		cashAccounts: make(map[int64]models.CashAccount),
		prices:       make(map[int64][]pricePoint),
		snapshots:    make(map[snapKey]models.Snapshot),
	}
}

// Seeding helpers, also used by tests.

func (s *Store) AddAccount(a models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
}

func (s *Store) AddInstrument(i models.Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruments[i.ID] = i
}

func (s *Store) AddOrder(o models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.AccountID] = append(s.orders[o.AccountID], o)
}

func (s *Store) AddCashTransaction(t models.CashTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cashTxs[t.AccountID] = append(s.cashTxs[t.AccountID], t)
}

func (s *Store) AddDividend(d models.Dividend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dividends[d.AccountID] = append(s.dividends[d.AccountID], d)
}

func (s *Store) SetCashAccount(c models.CashAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cashAccounts[c.AccountID] = c
}

func (s *Store) AddPrice(instrumentID int64, at time.Time, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[instrumentID] = append(s.prices[instrumentID], pricePoint{at: at, price: price})
}

func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b models.Account) int {
		return cmpID(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) GetAccount(ctx context.Context, accountID int64) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return models.Account{}, repository.ErrNotFound
	}
	return a, nil
}

func (s *Store) GetInstrument(ctx context.Context, instrumentID int64) (models.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.instruments[instrumentID]
	if !ok {
		return models.Instrument{}, repository.ErrNotFound
	}
	return i, nil
}

func (s *Store) ListOrders(ctx context.Context, accountID int64) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.Order(nil), s.orders[accountID]...)
	slices.SortStableFunc(out, func(a, b models.Order) int {
		if !a.TradeDate.Equal(b.TradeDate) {
			if a.TradeDate.Before(b.TradeDate) {
				return -1
			}
			return 1
		}
		return cmpID(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) ListCashTransactions(ctx context.Context, accountID int64) ([]models.CashTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.CashTransaction(nil), s.cashTxs[accountID]...)
	slices.SortStableFunc(out, func(a, b models.CashTransaction) int {
		if !a.Date.Equal(b.Date) {
			if a.Date.Before(b.Date) {
				return -1
			}
			return 1
		}
		return cmpID(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) ListDividends(ctx context.Context, accountID int64, asOf time.Time) ([]models.Dividend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Dividend{}
	for _, d := range s.dividends[accountID] {
		if !d.PaymentDate.After(asOf) {
			out = append(out, d)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Dividend) int {
		if !a.PaymentDate.Equal(b.PaymentDate) {
			if a.PaymentDate.Before(b.PaymentDate) {
				return -1
			}
			return 1
		}
		return cmpID(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) LatestPriceAt(ctx context.Context, instrumentID int64, asOf time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *pricePoint
	for i := range s.prices[instrumentID] {
		p := s.prices[instrumentID][i]
		if p.at.After(asOf) {
			continue
		}
		if best == nil || p.at.After(best.at) {
			best = &s.prices[instrumentID][i]
		}
	}
	if best == nil {
		return decimal.Zero, repository.ErrNoPrice
	}
	return best.price, nil
}

func (s *Store) GetCashAccount(ctx context.Context, accountID int64) (models.CashAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cashAccounts[accountID]
	if !ok {
		return models.CashAccount{}, repository.ErrNotFound
	}
	return c, nil
}

func (s *Store) GetPersistedCashBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	c, err := s.GetCashAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return c.CurrentBalance, nil
}

func (s *Store) GetSnapshot(ctx context.Context, accountID int64, date time.Time) (models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[key(accountID, date)]
	if !ok {
		return models.Snapshot{}, repository.ErrNoSnapshot
	}
	return snap, nil
}

func (s *Store) LatestSnapshotDate(ctx context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest time.Time
	for k := range s.snapshots {
		if t, err := time.Parse("2006-01-02", k.date); err == nil && t.After(latest) {
			latest = t
		}
	}
	if latest.IsZero() {
		return time.Time{}, repository.ErrNoSnapshot
	}
	return latest, nil
}

func (s *Store) UpsertSnapshot(ctx context.Context, snap models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[key(snap.AccountID, snap.Date)] = snap
	return nil
}

func (s *Store) UpdateCashBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cashAccounts[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	c.CurrentBalance = balance
	s.cashAccounts[accountID] = c
	return nil
}

func (s *Store) UpdateSnapshotCash(ctx context.Context, accountID int64, date time.Time, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(accountID, date)
	snap, ok := s.snapshots[k]
	if !ok {
		// Mirrors a SQL UPDATE touching zero rows.
		return nil
	}
	snap.CashBalance = balance
	s.snapshots[k] = snap
	return nil
}

// SnapshotCount reports how many snapshot rows exist, for idempotency checks.
func (s *Store) SnapshotCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

func cmpID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func key(accountID int64, date time.Time) snapKey {
	return snapKey{account: accountID, date: date.UTC().Format("2006-01-02")}
}
