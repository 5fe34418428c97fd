package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/billoven/CashCue/internal/models"
	"github.com/billoven/CashCue/internal/repository/dryrun"
	"github.com/billoven/CashCue/internal/repository/memory"
	"github.com/billoven/CashCue/internal/valuation"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(offset int) time.Time {
	return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func seededStore() *memory.Store {
	store := memory.New()
	store.AddAccount(models.Account{ID: 1, Name: "PEA Bourso", Currency: "EUR", HasCashLedger: true})
	store.AddInstrument(models.Instrument{ID: 10, Symbol: "TTE", Currency: "EUR", Status: models.InstrumentActive})
	store.SetCashAccount(models.CashAccount{AccountID: 1, CurrentBalance: d("1500.00")})
	store.AddOrder(models.Order{ID: 1, AccountID: 1, InstrumentID: 10, Type: models.OrderBuy,
		Quantity: d("100"), Price: d("10"), Fees: d("2"), TotalCost: d("1002.00"), TradeDate: day(0)})
	store.AddPrice(10, day(1), d("12"))
	store.AddDividend(models.Dividend{ID: 1, AccountID: 1, InstrumentID: 10,
		GrossAmount: d("100.00"), TaxesWithheld: d("20.00"), PaymentDate: day(1)})
	return store
}

func newWriter(store *memory.Store) *Writer {
	log := testLogger()
	return NewWriter(store, valuation.New(store, log), log)
}

func TestWriteSnapshot(t *testing.T) {
	t.Parallel()

	store := seededStore()
	snap, err := newWriter(store).Write(context.Background(), 1, day(2))
	require.NoError(t, err)

	assert.True(t, snap.TotalValue.Equal(d("1200")), "total=%s", snap.TotalValue)
	assert.True(t, snap.InvestedAmount.Equal(d("1000")))
	assert.True(t, snap.UnrealizedPL.Equal(d("200")))
	assert.True(t, snap.RealizedPL.IsZero())
	assert.True(t, snap.DividendsReceived.Equal(d("80.00")))
	// The persisted balance is authoritative, never recomputed here.
	assert.True(t, snap.CashBalance.Equal(d("1500.00")))
	assert.Equal(t, day(2), snap.Date)

	stored, err := store.GetSnapshot(context.Background(), 1, day(2))
	require.NoError(t, err)
	assert.Equal(t, snap, stored)
}

// Scenario D: re-running for the same day replaces the row with identical
// values; no duplicate rows, no accumulation.
func TestWriteSnapshotIdempotent(t *testing.T) {
	t.Parallel()

	store := seededStore()
	w := newWriter(store)

	first, err := w.Write(context.Background(), 1, day(2))
	require.NoError(t, err)
	second, err := w.Write(context.Background(), 1, day(2))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.SnapshotCount())

	stored, err := store.GetSnapshot(context.Background(), 1, day(2))
	require.NoError(t, err)
	assert.Equal(t, first, stored)
}

func TestWriteSnapshotIncludesSameDayTrades(t *testing.T) {
	t.Parallel()

	store := seededStore()
	// Trade at 15:00 on the snapshot date must be inside the cutoff.
	store.AddOrder(models.Order{ID: 2, AccountID: 1, InstrumentID: 10, Type: models.OrderBuy,
		Quantity: d("10"), Price: d("11"), TotalCost: d("110.00"),
		TradeDate: day(2).Add(15 * time.Hour)})

	snap, err := newWriter(store).Write(context.Background(), 1, day(2))
	require.NoError(t, err)
	assert.True(t, snap.InvestedAmount.Equal(d("1110")), "invested=%s", snap.InvestedAmount)
}

func TestWriteSnapshotNoCashAccount(t *testing.T) {
	t.Parallel()

	store := memory.New()
	store.AddAccount(models.Account{ID: 2, Name: "CTO", Currency: "EUR"})

	snap, err := newWriter(store).Write(context.Background(), 2, day(2))
	require.NoError(t, err)
	assert.True(t, snap.CashBalance.IsZero())
}

func TestWriteSnapshotDryRun(t *testing.T) {
	t.Parallel()

	store := seededStore()
	log := testLogger()
	dry := dryrun.Wrap(store, log)
	w := NewWriter(dry, valuation.New(dry, log), log)

	snap, err := w.Write(context.Background(), 1, day(2))
	require.NoError(t, err)
	assert.True(t, snap.TotalValue.Equal(d("1200")))

	// Nothing persisted; the would-be write is surfaced for inspection.
	assert.Equal(t, 0, store.SnapshotCount())
	wouldBe := dry.Snapshots()
	require.Len(t, wouldBe, 1)
	assert.Equal(t, snap, wouldBe[0])
}
