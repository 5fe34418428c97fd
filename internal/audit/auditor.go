// Package audit reruns the position engine and the cash reconciler with
// line-by-line tracing and produces structured discrepancy reports. Auditing
// is strictly read-only.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/billoven/CashCue/internal/cash"
	"github.com/billoven/CashCue/internal/models"
	"github.com/billoven/CashCue/internal/position"
	"github.com/billoven/CashCue/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Options tunes one audit run.
type Options struct {
	// Verbose captures per-transaction and per-order trace lines.
	Verbose bool
	// Anchor selects the reconciler's starting-balance policy.
	Anchor cash.AnchorPolicy
}

// DefaultOptions matches the financial audit tool: the recomputation starts
// from the cash account's initial balance, without tracing.
func DefaultOptions() Options {
	return Options{Anchor: cash.AnchorInitialBalance}
}

// OrderFlow sums the gross order activity of an account.
type OrderFlow struct {
	TotalBuy  decimal.Decimal `json:"totalBuy"`
	TotalSell decimal.Decimal `json:"totalSell"`
	TotalFees decimal.Decimal `json:"totalFees"`
}

// OrderTraceLine is one order's contribution, captured in verbose runs.
type OrderTraceLine struct {
	Date         time.Time        `json:"date"`
	Type         models.OrderType `json:"type"`
	InstrumentID int64            `json:"instrumentId"`
	Quantity     decimal.Decimal  `json:"quantity"`
	TotalCost    decimal.Decimal  `json:"totalCost"`
	Fees         decimal.Decimal  `json:"fees"`
}

// PositionLine summarizes one recomputed position.
type PositionLine struct {
	InstrumentID int64           `json:"instrumentId"`
	NetQuantity  decimal.Decimal `json:"netQuantity"`
	RealizedPL   decimal.Decimal `json:"realizedPl"`
}

// AccountReport is the audit outcome for one account. Cash is nil when the
// account carries no cash ledger.
type AccountReport struct {
	AccountID   int64            `json:"accountId"`
	AccountName string           `json:"accountName"`
	Cash        *cash.Result     `json:"cash,omitempty"`
	Orders      OrderFlow        `json:"orders"`
	Positions   []PositionLine   `json:"positions"`
	OrderTrace  []OrderTraceLine `json:"orderTrace,omitempty"`
	Anomalies   []models.Anomaly `json:"anomalies,omitempty"`
}

// Report is a full audit run across one or all accounts.
type Report struct {
	ID          string          `json:"id"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Accounts    []AccountReport `json:"accounts"`
}

// Auditor produces reports against a ledger repository.
type Auditor struct {
	repo       repository.Ledger
	reconciler *cash.Reconciler
	log        *logrus.Entry
	now        func() time.Time
}

func New(repo repository.Ledger, logger *logrus.Logger) *Auditor {
	return &Auditor{
		repo:       repo,
		reconciler: cash.New(repo, logger),
		log:        logger.WithField("component", "auditor"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Audit runs the audit for a single account.
func (a *Auditor) Audit(ctx context.Context, accountID int64, opts Options) (*Report, error) {
	acc, err := a.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetch account %d: %w", accountID, err)
	}
	rep := a.newReport()
	accRep, err := a.auditAccount(ctx, acc, opts)
	if err != nil {
		return nil, err
	}
	rep.Accounts = append(rep.Accounts, accRep)
	return rep, nil
}

// AuditAll runs the audit across every account.
func (a *Auditor) AuditAll(ctx context.Context, opts Options) (*Report, error) {
	accounts, err := a.repo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	rep := a.newReport()
	for _, acc := range accounts {
		accRep, err := a.auditAccount(ctx, acc, opts)
		if err != nil {
			return nil, err
		}
		rep.Accounts = append(rep.Accounts, accRep)
	}
	return rep, nil
}

func (a *Auditor) newReport() *Report {
	return &Report{
		ID:          uuid.NewString(),
		GeneratedAt: a.now(),
	}
}

func (a *Auditor) auditAccount(ctx context.Context, acc models.Account, opts Options) (AccountReport, error) {
	rep := AccountReport{AccountID: acc.ID, AccountName: acc.Name}

	cashRes, err := a.reconciler.Reconcile(ctx, acc.ID, opts.Anchor, opts.Verbose)
	switch {
	case err == nil:
		rep.Cash = cashRes
		rep.Anomalies = append(rep.Anomalies, cashRes.Anomalies...)
	case errors.Is(err, repository.ErrNotFound):
		a.log.WithField("account", acc.ID).Warn("no cash account found, cash audit skipped")
	default:
		return rep, err
	}

	orders, err := a.repo.ListOrders(ctx, acc.ID)
	if err != nil {
		return rep, fmt.Errorf("fetch orders for account %d: %w", acc.ID, err)
	}
	for _, o := range orders {
		rep.Orders.TotalFees = rep.Orders.TotalFees.Add(o.Fees)
		if o.Type == models.OrderBuy {
			rep.Orders.TotalBuy = rep.Orders.TotalBuy.Add(o.TotalCost)
		} else {
			rep.Orders.TotalSell = rep.Orders.TotalSell.Add(o.TotalCost)
		}
		if opts.Verbose {
			rep.OrderTrace = append(rep.OrderTrace, OrderTraceLine{
				Date:         o.TradeDate,
				Type:         o.Type,
				InstrumentID: o.InstrumentID,
				Quantity:     o.Quantity,
				TotalCost:    o.TotalCost,
				Fees:         o.Fees,
			})
		}
	}

	positions := position.Compute(acc.ID, orders)
	rep.Anomalies = append(rep.Anomalies, positions.Anomalies...)
	for _, p := range positions.Positions {
		rep.Positions = append(rep.Positions, PositionLine{
			InstrumentID: p.InstrumentID,
			NetQuantity:  p.NetQuantity,
			RealizedPL:   p.RealizedPL,
		})
	}
	sort.Slice(rep.Positions, func(i, j int) bool {
		return rep.Positions[i].InstrumentID < rep.Positions[j].InstrumentID
	})
	return rep, nil
}
