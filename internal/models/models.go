package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType discriminates the two sides of an order.
type OrderType string

const (
	OrderBuy  OrderType = "BUY"
	OrderSell OrderType = "SELL"
)

// InstrumentStatus tracks whether an instrument is still quotable.
type InstrumentStatus string

const (
	InstrumentActive    InstrumentStatus = "ACTIVE"
	InstrumentSuspended InstrumentStatus = "SUSPENDED"
	InstrumentDelisted  InstrumentStatus = "DELISTED"
)

// CashTransactionType classifies a cash movement. The sign of its impact on
// the balance is decided by the classifier, never stored in the amount.
type CashTransactionType string

const (
	CashDeposit    CashTransactionType = "DEPOSIT"
	CashWithdrawal CashTransactionType = "WITHDRAWAL"
	CashBuy        CashTransactionType = "BUY"
	CashSell       CashTransactionType = "SELL"
	CashDividend   CashTransactionType = "DIVIDEND"
	CashFees       CashTransactionType = "FEES"
	CashAdjustment CashTransactionType = "ADJUSTMENT"
)

// Account is a broker account holding orders, cash movements and dividends.
type Account struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Number        string `json:"number,omitempty"`
	Type          string `json:"type,omitempty"`
	Currency      string `json:"currency"`
	HasCashLedger bool   `json:"hasCashLedger"`
}

// Instrument is a tradable security. Only ACTIVE and SUSPENDED instruments
// are valued; DELISTED ones are skipped with a warning.
type Instrument struct {
	ID       int64            `json:"id"`
	Symbol   string           `json:"symbol"`
	ISIN     string           `json:"isin,omitempty"`
	Label    string           `json:"label,omitempty"`
	Type     string           `json:"type,omitempty"`
	Currency string           `json:"currency"`
	Status   InstrumentStatus `json:"status"`
}

// Valued reports whether the instrument participates in valuations.
func (i Instrument) Valued() bool {
	return i.Status == InstrumentActive || i.Status == InstrumentSuspended
}

// Order is one BUY or SELL recorded against an account. TotalCost is the
// signed, fees-inclusive cash amount of the trade.
type Order struct {
	ID           int64           `json:"id"`
	AccountID    int64           `json:"accountId"`
	InstrumentID int64           `json:"instrumentId"`
	Type         OrderType       `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Fees         decimal.Decimal `json:"fees"`
	TotalCost    decimal.Decimal `json:"totalCost"`
	TradeDate    time.Time       `json:"tradeDate"`
}

// CashTransaction is one cash movement on an account. Amount is always a
// non-negative magnitude; the direction follows from Type.
type CashTransaction struct {
	ID          int64               `json:"id"`
	AccountID   int64               `json:"accountId"`
	Type        CashTransactionType `json:"type"`
	Amount      decimal.Decimal     `json:"amount"`
	Date        time.Time           `json:"date"`
	ReferenceID *int64              `json:"referenceId,omitempty"`
	Comment     string              `json:"comment,omitempty"`
}

// Dividend is a dividend payment credited to an account for one instrument.
type Dividend struct {
	ID            int64           `json:"id"`
	AccountID     int64           `json:"accountId"`
	InstrumentID  int64           `json:"instrumentId"`
	GrossAmount   decimal.Decimal `json:"grossAmount"`
	TaxesWithheld decimal.Decimal `json:"taxesWithheld"`
	PaymentDate   time.Time       `json:"paymentDate"`
}

// NetAmount is the cash actually received: gross minus taxes withheld.
func (d Dividend) NetAmount() decimal.Decimal {
	return d.GrossAmount.Sub(d.TaxesWithheld)
}

// CashAccount is the cash ledger attached to a broker account.
// CurrentBalance is the persisted, authoritative balance; InitialBalance is
// the optional anchor the reconciler can start from.
type CashAccount struct {
	ID             int64           `json:"id"`
	AccountID      int64           `json:"accountId"`
	Name           string          `json:"name,omitempty"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
}

// Snapshot is the immutable-per-day record of an account's financial state.
// Upsert key is (AccountID, Date); rewriting the same day replaces all fields.
type Snapshot struct {
	AccountID         int64           `json:"accountId"`
	Date              time.Time       `json:"date"`
	TotalValue        decimal.Decimal `json:"totalValue"`
	InvestedAmount    decimal.Decimal `json:"investedAmount"`
	UnrealizedPL      decimal.Decimal `json:"unrealizedPl"`
	RealizedPL        decimal.Decimal `json:"realizedPl"`
	DividendsReceived decimal.Decimal `json:"dividendsReceived"`
	CashBalance       decimal.Decimal `json:"cashBalance"`
}
