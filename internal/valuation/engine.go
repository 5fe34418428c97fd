// Package valuation combines recomputed positions with price lookups to
// produce market value and unrealized P/L per instrument, aggregated per
// account as of a reference date.
package valuation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billoven/CashCue/internal/models"
	"github.com/billoven/CashCue/internal/position"
	"github.com/billoven/CashCue/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// InstrumentValuation is the valued state of one open position.
type InstrumentValuation struct {
	InstrumentID   int64           `json:"instrumentId"`
	Symbol         string          `json:"symbol"`
	NetQuantity    decimal.Decimal `json:"netQuantity"`
	Price          decimal.Decimal `json:"price"`
	MarketValue    decimal.Decimal `json:"marketValue"`
	AvgCost        decimal.Decimal `json:"avgCost"`
	InvestedAmount decimal.Decimal `json:"investedAmount"`
	UnrealizedPL   decimal.Decimal `json:"unrealizedPl"`
}

// Result is one account's valuation as of a reference date. Instruments
// without a usable price are absent from the aggregates and recorded as
// anomalies; partial valuation is acceptable.
type Result struct {
	AccountID         int64                 `json:"accountId"`
	AsOf              time.Time             `json:"asOf"`
	TotalValue        decimal.Decimal       `json:"totalValue"`
	InvestedAmount    decimal.Decimal       `json:"investedAmount"`
	UnrealizedPL      decimal.Decimal       `json:"unrealizedPl"`
	RealizedPL        decimal.Decimal       `json:"realizedPl"`
	DividendsReceived decimal.Decimal       `json:"dividendsReceived"`
	Instruments       []InstrumentValuation `json:"instruments"`
	Anomalies         []models.Anomaly      `json:"anomalies,omitempty"`
}

// Engine values accounts against a ledger repository.
type Engine struct {
	repo repository.Ledger
	log  *logrus.Entry
}

func New(repo repository.Ledger, logger *logrus.Logger) *Engine {
	return &Engine{
		repo: repo,
		log:  logger.WithField("component", "valuation-engine"),
	}
}

// Valuate recomputes the account's positions from orders traded at or before
// asOf, then values every open position at the most recent price observed at
// or before asOf. Future prices are never used. Invested amount is the net
// cost basis of the currently open lots, FIFO-consistent.
func (e *Engine) Valuate(ctx context.Context, accountID int64, asOf time.Time) (*Result, error) {
	orders, err := e.repo.ListOrders(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetch orders for account %d: %w", accountID, err)
	}
	inScope := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if !o.TradeDate.After(asOf) {
			inScope = append(inScope, o)
		}
	}
	positions := position.Compute(accountID, inScope)

	res := &Result{
		AccountID:  accountID,
		AsOf:       asOf,
		RealizedPL: positions.RealizedPL(),
		Anomalies:  append([]models.Anomaly(nil), positions.Anomalies...),
	}

	for _, pos := range positions.Open() {
		instr, err := e.repo.GetInstrument(ctx, pos.InstrumentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				e.log.WithFields(logrus.Fields{
					"account":    accountID,
					"instrument": pos.InstrumentID,
				}).Warn("instrument missing from reference data, skipped")
				continue
			}
			return nil, fmt.Errorf("fetch instrument %d: %w", pos.InstrumentID, err)
		}
		if !instr.Valued() {
			e.log.WithFields(logrus.Fields{
				"account": accountID,
				"symbol":  instr.Symbol,
				"status":  instr.Status,
			}).Warn("delisted instrument excluded from valuation")
			continue
		}

		price, err := e.repo.LatestPriceAt(ctx, pos.InstrumentID, asOf)
		if err != nil {
			if errors.Is(err, repository.ErrNoPrice) {
				e.log.WithFields(logrus.Fields{
					"account": accountID,
					"symbol":  instr.Symbol,
					"asOf":    asOf.Format("2006-01-02"),
				}).Warn("no market price, instrument excluded from valuation")
				res.Anomalies = append(res.Anomalies, models.Anomaly{
					Kind:         models.AnomalyMissingPrice,
					InstrumentID: pos.InstrumentID,
					Detail:       fmt.Sprintf("no price for %s at or before %s", instr.Symbol, asOf.Format("2006-01-02")),
				})
				continue
			}
			return nil, fmt.Errorf("fetch price for instrument %d: %w", pos.InstrumentID, err)
		}

		avgCost := pos.AvgCost()
		invested := pos.InvestedAmount()
		marketValue := pos.NetQuantity.Mul(price)
		res.Instruments = append(res.Instruments, InstrumentValuation{
			InstrumentID:   pos.InstrumentID,
			Symbol:         instr.Symbol,
			NetQuantity:    pos.NetQuantity,
			Price:          price,
			MarketValue:    marketValue,
			AvgCost:        avgCost,
			InvestedAmount: invested,
			UnrealizedPL:   marketValue.Sub(pos.NetQuantity.Mul(avgCost)),
		})
		res.TotalValue = res.TotalValue.Add(marketValue)
		res.InvestedAmount = res.InvestedAmount.Add(invested)
	}

	// Recomputed at the aggregate; must match the per-instrument sum.
	res.UnrealizedPL = res.TotalValue.Sub(res.InvestedAmount)

	dividends, err := e.repo.ListDividends(ctx, accountID, asOf)
	if err != nil {
		return nil, fmt.Errorf("fetch dividends for account %d: %w", accountID, err)
	}
	for _, d := range dividends {
		res.DividendsReceived = res.DividendsReceived.Add(d.NetAmount())
	}
	return res, nil
}
