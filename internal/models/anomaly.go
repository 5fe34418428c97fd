package models

import "github.com/shopspring/decimal"

// AnomalyKind enumerates the data-integrity findings the engines can report.
// Anomalies accumulate in result objects; they never abort a run.
type AnomalyKind string

const (
	// AnomalyInsufficientLots flags a SELL that exceeds the tracked holdings.
	AnomalyInsufficientLots AnomalyKind = "INSUFFICIENT_LOTS"
	// AnomalyMissingPrice flags an instrument excluded from valuation for
	// want of a price at or before the reference date.
	AnomalyMissingPrice AnomalyKind = "MISSING_PRICE"
	// AnomalyUnknownTransactionType flags a cash transaction whose type the
	// reconciler does not classify; it contributes zero impact.
	AnomalyUnknownTransactionType AnomalyKind = "UNKNOWN_TRANSACTION_TYPE"
	// AnomalyBalanceDiscrepancy flags a non-zero delta between the recomputed
	// and the persisted cash balance.
	AnomalyBalanceDiscrepancy AnomalyKind = "BALANCE_DISCREPANCY"
)

// Anomaly is one flagged finding. Only the fields relevant to the kind are
// populated.
type Anomaly struct {
	Kind          AnomalyKind     `json:"kind"`
	InstrumentID  int64           `json:"instrumentId,omitempty"`
	OrderID       int64           `json:"orderId,omitempty"`
	TransactionID int64           `json:"transactionId,omitempty"`
	Amount        decimal.Decimal `json:"amount,omitempty"`
	Detail        string          `json:"detail,omitempty"`
}
