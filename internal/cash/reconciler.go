// Package cash independently recomputes an account's running cash balance
// from its transaction history and compares it against the persisted figure.
// Reconciliation only reports; it never mutates the ledger.
package cash

import (
	"context"
	"fmt"
	"time"

	"github.com/billoven/CashCue/internal/models"
	"github.com/billoven/CashCue/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AnchorPolicy selects the balance the recomputation starts from. The
// surrounding tooling historically used both conventions, so the choice is
// always explicit.
type AnchorPolicy string

const (
	// AnchorZero starts the running balance at 0.
	AnchorZero AnchorPolicy = "zero"
	// AnchorInitialBalance starts from the cash account's initial balance.
	AnchorInitialBalance AnchorPolicy = "initial-balance"
)

// DiscrepancyHint accompanies every non-zero delta.
const DiscrepancyHint = "check for missing cash transactions or a manual balance override"

// Impact returns the signed effect of a cash transaction on the balance.
// Amount is always a non-negative magnitude; the sign comes from the type.
// The second return is false for unclassified types, which contribute zero.
func Impact(ttype models.CashTransactionType, amount decimal.Decimal) (decimal.Decimal, bool) {
	switch ttype {
	case models.CashDeposit, models.CashDividend, models.CashSell:
		return amount, true
	case models.CashBuy, models.CashWithdrawal, models.CashFees, models.CashAdjustment:
		return amount.Neg(), true
	default:
		return decimal.Zero, false
	}
}

// TraceLine is one transaction's contribution, captured in verbose runs.
type TraceLine struct {
	Date           time.Time                  `json:"date"`
	Type           models.CashTransactionType `json:"type"`
	Amount         decimal.Decimal            `json:"amount"`
	Impact         decimal.Decimal            `json:"impact"`
	RunningBalance decimal.Decimal            `json:"runningBalance"`
	Comment        string                     `json:"comment,omitempty"`
}

// Result is one account's reconciliation outcome. A non-zero Delta is a
// reportable inconsistency, not an error.
type Result struct {
	AccountID        int64                                          `json:"accountId"`
	Anchor           AnchorPolicy                                   `json:"anchor"`
	StartingBalance  decimal.Decimal                                `json:"startingBalance"`
	RunningBalance   decimal.Decimal                                `json:"runningBalance"`
	PersistedBalance decimal.Decimal                                `json:"persistedBalance"`
	Delta            decimal.Decimal                                `json:"delta"`
	Totals           map[models.CashTransactionType]decimal.Decimal `json:"totals"`
	Trace            []TraceLine                                    `json:"trace,omitempty"`
	Anomalies        []models.Anomaly                               `json:"anomalies,omitempty"`
	Hint             string                                         `json:"hint,omitempty"`
}

// Balanced reports whether the recomputed and persisted balances agree.
func (r *Result) Balanced() bool {
	return r.Delta.IsZero()
}

// Reconciler recomputes cash balances against a ledger repository.
type Reconciler struct {
	repo repository.Ledger
	log  *logrus.Entry
}

func New(repo repository.Ledger, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		repo: repo,
		log:  logger.WithField("component", "cash-reconciler"),
	}
}

// Reconcile replays the account's cash transactions in chronological order
// and compares the result with the persisted balance. withTrace captures a
// per-transaction line for verbose auditing.
func (r *Reconciler) Reconcile(ctx context.Context, accountID int64, anchor AnchorPolicy, withTrace bool) (*Result, error) {
	acc, err := r.repo.GetCashAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetch cash account %d: %w", accountID, err)
	}
	txs, err := r.repo.ListCashTransactions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetch cash transactions for account %d: %w", accountID, err)
	}

	starting := decimal.Zero
	if anchor == AnchorInitialBalance {
		starting = acc.InitialBalance
	}

	res := &Result{
		AccountID:        accountID,
		Anchor:           anchor,
		StartingBalance:  starting,
		RunningBalance:   starting,
		PersistedBalance: acc.CurrentBalance,
		Totals:           make(map[models.CashTransactionType]decimal.Decimal),
	}

	for _, t := range txs {
		impact, known := Impact(t.Type, t.Amount)
		if !known {
			r.log.WithFields(logrus.Fields{
				"account":     accountID,
				"transaction": t.ID,
				"type":        t.Type,
			}).Warn("unknown cash transaction type, zero impact")
			res.Anomalies = append(res.Anomalies, models.Anomaly{
				Kind:          models.AnomalyUnknownTransactionType,
				TransactionID: t.ID,
				Amount:        t.Amount,
				Detail:        fmt.Sprintf("unhandled transaction type %q", t.Type),
			})
		}
		res.RunningBalance = res.RunningBalance.Add(impact)
		res.Totals[t.Type] = res.Totals[t.Type].Add(impact)

		if withTrace {
			res.Trace = append(res.Trace, TraceLine{
				Date:           t.Date,
				Type:           t.Type,
				Amount:         t.Amount,
				Impact:         impact,
				RunningBalance: res.RunningBalance,
				Comment:        t.Comment,
			})
		}
	}

	res.Delta = res.PersistedBalance.Sub(res.RunningBalance)
	if !res.Delta.IsZero() {
		res.Hint = DiscrepancyHint
		res.Anomalies = append(res.Anomalies, models.Anomaly{
			Kind:   models.AnomalyBalanceDiscrepancy,
			Amount: res.Delta,
			Detail: fmt.Sprintf("persisted %s vs recomputed %s", res.PersistedBalance, res.RunningBalance),
		})
		r.log.WithFields(logrus.Fields{
			"account":   accountID,
			"persisted": res.PersistedBalance.StringFixed(2),
			"computed":  res.RunningBalance.StringFixed(2),
			"delta":     res.Delta.StringFixed(2),
		}).Error("cash balance discrepancy detected")
	}
	return res, nil
}
