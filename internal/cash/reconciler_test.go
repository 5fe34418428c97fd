package cash

import (
	"context"
	"testing"
	"time"

	"github.com/billoven/CashCue/internal/models"
	"github.com/billoven/CashCue/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(offset int) time.Time {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func tx(id int64, ttype models.CashTransactionType, amount string, t time.Time) models.CashTransaction {
	return models.CashTransaction{ID: id, AccountID: 1, Type: ttype, Amount: d(amount), Date: t}
}

func TestImpact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ttype models.CashTransactionType
		want  string
		known bool
	}{
		{models.CashDeposit, "100", true},
		{models.CashDividend, "100", true},
		{models.CashSell, "100", true},
		{models.CashBuy, "-100", true},
		{models.CashWithdrawal, "-100", true},
		{models.CashFees, "-100", true},
		{models.CashAdjustment, "-100", true},
		{models.CashTransactionType("MYSTERY"), "0", false},
	}
	for _, tc := range tests {
		impact, known := Impact(tc.ttype, d("100"))
		assert.True(t, impact.Equal(d(tc.want)), "%s impact=%s", tc.ttype, impact)
		assert.Equal(t, tc.known, known, string(tc.ttype))
	}
}

// Scenario A: BUY 100 @10.0 fee 2.0 then SELL 50 @20.0 fee 2.0 leaves the
// account 4.00 short of flat.
func TestReconcileRunningBalance(t *testing.T) {
	t.Parallel()

	store := memory.New()
	store.SetCashAccount(models.CashAccount{AccountID: 1, CurrentBalance: d("-4.00")})
	store.AddCashTransaction(tx(1, models.CashBuy, "1002.00", day(0)))
	store.AddCashTransaction(tx(2, models.CashSell, "998.00", day(1)))

	res, err := New(store, testLogger()).Reconcile(context.Background(), 1, AnchorZero, true)
	require.NoError(t, err)

	assert.True(t, res.RunningBalance.Equal(d("-4.00")), "running=%s", res.RunningBalance)
	assert.True(t, res.Balanced())
	assert.Empty(t, res.Anomalies)
	require.Len(t, res.Trace, 2)
	assert.True(t, res.Trace[0].Impact.Equal(d("-1002.00")))
	assert.True(t, res.Trace[1].Impact.Equal(d("998.00")))
	assert.True(t, res.Trace[1].RunningBalance.Equal(d("-4.00")))
	assert.True(t, res.Totals[models.CashBuy].Equal(d("-1002.00")))
	assert.True(t, res.Totals[models.CashSell].Equal(d("998.00")))
}

func TestReconcileDiscrepancy(t *testing.T) {
	t.Parallel()

	store := memory.New()
	store.SetCashAccount(models.CashAccount{AccountID: 1, CurrentBalance: d("1000.00")})
	store.AddCashTransaction(tx(1, models.CashDeposit, "900.00", day(0)))

	res, err := New(store, testLogger()).Reconcile(context.Background(), 1, AnchorZero, false)
	require.NoError(t, err)

	assert.False(t, res.Balanced())
	assert.True(t, res.Delta.Equal(d("100.00")), "delta=%s", res.Delta)
	assert.Equal(t, DiscrepancyHint, res.Hint)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, models.AnomalyBalanceDiscrepancy, res.Anomalies[0].Kind)
}

// A transaction followed by its cancellation nets to exactly zero and the
// balance returns to its pre-creation value.
func TestReconcileCancellationZeroSum(t *testing.T) {
	t.Parallel()

	store := memory.New()
	store.SetCashAccount(models.CashAccount{AccountID: 1, CurrentBalance: d("500.00")})
	store.AddCashTransaction(tx(1, models.CashDeposit, "500.00", day(0)))
	store.AddCashTransaction(tx(2, models.CashBuy, "1002.00", day(1)))
	store.AddCashTransaction(models.CashTransaction{
		ID: 3, AccountID: 1, Type: models.CashSell, Amount: d("1002.00"),
		Date: day(1), Comment: "cancel order 42",
	})

	res, err := New(store, testLogger()).Reconcile(context.Background(), 1, AnchorZero, false)
	require.NoError(t, err)

	sum := res.Totals[models.CashBuy].Add(res.Totals[models.CashSell])
	assert.True(t, sum.Equal(d("0.00")), "pair sum=%s", sum)
	assert.True(t, res.RunningBalance.Equal(d("500.00")))
	assert.True(t, res.Balanced())
}

// Scenario B: dividend cash impact follows the net amount, gross minus taxes.
func TestReconcileDividendNetAmounts(t *testing.T) {
	t.Parallel()

	gross, taxes := d("100.00"), d("20.00")
	div := models.Dividend{GrossAmount: gross, TaxesWithheld: taxes}
	assert.True(t, div.NetAmount().Equal(d("80.00")))

	// Taxes revised: gross 200, taxes 50 nets 150.
	div.GrossAmount, div.TaxesWithheld = d("200.00"), d("50.00")
	assert.True(t, div.NetAmount().Equal(d("150.00")))

	store := memory.New()
	store.SetCashAccount(models.CashAccount{AccountID: 1, CurrentBalance: d("80.00")})
	store.AddCashTransaction(tx(1, models.CashDividend, "80.00", day(0)))

	res, err := New(store, testLogger()).Reconcile(context.Background(), 1, AnchorZero, false)
	require.NoError(t, err)
	assert.True(t, res.RunningBalance.Equal(d("80.00")))
	assert.True(t, res.Balanced())
}

func TestReconcileAnchorPolicies(t *testing.T) {
	t.Parallel()

	store := memory.New()
	store.SetCashAccount(models.CashAccount{
		AccountID:      1,
		InitialBalance: d("250.00"),
		CurrentBalance: d("350.00"),
	})
	store.AddCashTransaction(tx(1, models.CashDeposit, "100.00", day(0)))

	rec := New(store, testLogger())

	zero, err := rec.Reconcile(context.Background(), 1, AnchorZero, false)
	require.NoError(t, err)
	assert.True(t, zero.StartingBalance.IsZero())
	assert.True(t, zero.RunningBalance.Equal(d("100.00")))
	assert.True(t, zero.Delta.Equal(d("250.00")))

	initial, err := rec.Reconcile(context.Background(), 1, AnchorInitialBalance, false)
	require.NoError(t, err)
	assert.True(t, initial.StartingBalance.Equal(d("250.00")))
	assert.True(t, initial.RunningBalance.Equal(d("350.00")))
	assert.True(t, initial.Balanced())
}

func TestReconcileUnknownTypeZeroImpact(t *testing.T) {
	t.Parallel()

	store := memory.New()
	store.SetCashAccount(models.CashAccount{AccountID: 1, CurrentBalance: d("100.00")})
	store.AddCashTransaction(tx(1, models.CashDeposit, "100.00", day(0)))
	store.AddCashTransaction(tx(2, models.CashTransactionType("TRANSFER"), "400.00", day(1)))

	res, err := New(store, testLogger()).Reconcile(context.Background(), 1, AnchorZero, false)
	require.NoError(t, err)

	assert.True(t, res.RunningBalance.Equal(d("100.00")), "unknown type must not move the balance")
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, models.AnomalyUnknownTransactionType, res.Anomalies[0].Kind)
	assert.Equal(t, int64(2), res.Anomalies[0].TransactionID)
	assert.True(t, res.Balanced())
}

func TestRecalculatorPersistsBalance(t *testing.T) {
	t.Parallel()

	store := memory.New()
	store.SetCashAccount(models.CashAccount{AccountID: 1, CurrentBalance: d("0")})
	store.AddCashTransaction(tx(1, models.CashDeposit, "1000.00", day(0)))
	store.AddCashTransaction(tx(2, models.CashBuy, "400.00", day(1)))
	require.NoError(t, store.UpsertSnapshot(context.Background(), models.Snapshot{
		AccountID: 1, Date: day(5),
	}))

	balance, err := NewRecalculator(store, testLogger()).Recalculate(context.Background(), 1, day(5))
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("600.00")), "balance=%s", balance)

	persisted, err := store.GetPersistedCashBalance(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, persisted.Equal(d("600.00")))

	snap, err := store.GetSnapshot(context.Background(), 1, day(5))
	require.NoError(t, err)
	assert.True(t, snap.CashBalance.Equal(d("600.00")))
}
