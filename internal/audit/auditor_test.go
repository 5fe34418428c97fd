package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/billoven/CashCue/internal/cash"
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
	return time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func seededStore() *memory.Store {
	store := memory.New()
	store.AddAccount(models.Account{ID: 1, Name: "PEA Bourso", Currency: "EUR", HasCashLedger: true})
	store.AddAccount(models.Account{ID: 2, Name: "CTO Degiro", Currency: "EUR", HasCashLedger: true})

	store.SetCashAccount(models.CashAccount{AccountID: 1, CurrentBalance: d("-4.00")})
	store.AddCashTransaction(models.CashTransaction{ID: 1, AccountID: 1,
		Type: models.CashBuy, Amount: d("1002.00"), Date: day(0), Comment: "buy TTE"})
	store.AddCashTransaction(models.CashTransaction{ID: 2, AccountID: 1,
		Type: models.CashSell, Amount: d("998.00"), Date: day(1), Comment: "sell TTE"})
	store.AddOrder(models.Order{ID: 1, AccountID: 1, InstrumentID: 10, Type: models.OrderBuy,
		Quantity: d("100"), Price: d("10"), Fees: d("2"), TotalCost: d("1002.00"), TradeDate: day(0)})
	store.AddOrder(models.Order{ID: 2, AccountID: 1, InstrumentID: 10, Type: models.OrderSell,
		Quantity: d("50"), Price: d("20"), Fees: d("2"), TotalCost: d("998.00"), TradeDate: day(1)})

	// Account 2 carries a deliberate discrepancy and an oversell.
	store.SetCashAccount(models.CashAccount{AccountID: 2, CurrentBalance: d("100.00")})
	store.AddCashTransaction(models.CashTransaction{ID: 3, AccountID: 2,
		Type: models.CashDeposit, Amount: d("50.00"), Date: day(0)})
	store.AddOrder(models.Order{ID: 3, AccountID: 2, InstrumentID: 20, Type: models.OrderSell,
		Quantity: d("10"), Price: d("5"), TotalCost: d("50.00"), TradeDate: day(0)})
	return store
}

func TestAuditAll(t *testing.T) {
	t.Parallel()

	rep, err := New(seededStore(), testLogger()).AuditAll(context.Background(),
		Options{Anchor: cash.AnchorZero})
	require.NoError(t, err)

	assert.NotEmpty(t, rep.ID)
	require.Len(t, rep.Accounts, 2)

	one := rep.Accounts[0]
	require.NotNil(t, one.Cash)
	assert.True(t, one.Cash.Balanced())
	assert.True(t, one.Orders.TotalBuy.Equal(d("1002.00")))
	assert.True(t, one.Orders.TotalSell.Equal(d("998.00")))
	assert.True(t, one.Orders.TotalFees.Equal(d("4")))
	require.Len(t, one.Positions, 1)
	assert.True(t, one.Positions[0].NetQuantity.Equal(d("50")))
	assert.True(t, one.Positions[0].RealizedPL.Equal(d("500")))
	assert.Empty(t, one.Anomalies)

	two := rep.Accounts[1]
	require.NotNil(t, two.Cash)
	assert.True(t, two.Cash.Delta.Equal(d("50.00")))
	kinds := map[models.AnomalyKind]bool{}
	for _, a := range two.Anomalies {
		kinds[a.Kind] = true
	}
	assert.True(t, kinds[models.AnomalyBalanceDiscrepancy])
	assert.True(t, kinds[models.AnomalyInsufficientLots])
}

func TestAuditSingleAccountFilter(t *testing.T) {
	t.Parallel()

	rep, err := New(seededStore(), testLogger()).Audit(context.Background(), 2,
		Options{Anchor: cash.AnchorZero})
	require.NoError(t, err)
	require.Len(t, rep.Accounts, 1)
	assert.Equal(t, int64(2), rep.Accounts[0].AccountID)
	assert.Equal(t, "CTO Degiro", rep.Accounts[0].AccountName)
}

func TestAuditVerboseTrace(t *testing.T) {
	t.Parallel()

	rep, err := New(seededStore(), testLogger()).Audit(context.Background(), 1,
		Options{Anchor: cash.AnchorZero, Verbose: true})
	require.NoError(t, err)

	acc := rep.Accounts[0]
	require.NotNil(t, acc.Cash)
	assert.Len(t, acc.Cash.Trace, 2)
	assert.Len(t, acc.OrderTrace, 2)

	// Non-verbose runs carry no trace lines.
	quiet, err := New(seededStore(), testLogger()).Audit(context.Background(), 1,
		Options{Anchor: cash.AnchorZero})
	require.NoError(t, err)
	assert.Empty(t, quiet.Accounts[0].Cash.Trace)
	assert.Empty(t, quiet.Accounts[0].OrderTrace)
}

func TestAuditNoCashAccount(t *testing.T) {
	t.Parallel()

	store := memory.New()
	store.AddAccount(models.Account{ID: 5, Name: "Orders only", Currency: "EUR"})
	store.AddOrder(models.Order{ID: 1, AccountID: 5, InstrumentID: 10, Type: models.OrderBuy,
		Quantity: d("1"), Price: d("10"), TotalCost: d("10.00"), TradeDate: day(0)})

	rep, err := New(store, testLogger()).Audit(context.Background(), 5, DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, rep.Accounts[0].Cash)
	assert.True(t, rep.Accounts[0].Orders.TotalBuy.Equal(d("10.00")))
}

func TestWriteJSONRoundTrip(t *testing.T) {
	t.Parallel()

	rep, err := New(seededStore(), testLogger()).AuditAll(context.Background(),
		Options{Anchor: cash.AnchorZero, Verbose: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, rep))

	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, rep.ID, decoded.ID)
	require.Len(t, decoded.Accounts, 2)
	assert.True(t, decoded.Accounts[0].Cash.RunningBalance.Equal(d("-4.00")))
}

func TestWriteTextLayout(t *testing.T) {
	t.Parallel()

	rep, err := New(seededStore(), testLogger()).AuditAll(context.Background(),
		Options{Anchor: cash.AnchorZero, Verbose: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, rep))
	out := buf.String()

	assert.True(t, strings.Contains(out, "[CASH AUDIT]"))
	assert.True(t, strings.Contains(out, "[ORDERS / POSITIONS AUDIT]"))
	assert.True(t, strings.Contains(out, "Delta             : 0.00 (OK)"))
	assert.True(t, strings.Contains(out, "INCONSISTENCY DETECTED"))
	assert.True(t, strings.Contains(out, cash.DiscrepancyHint))
}
