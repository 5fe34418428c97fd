// Package position recomputes per-instrument positions from the full order
// history of one account: FIFO lot tracking, net quantity and realized P/L.
// State is rebuilt from scratch on every pass; nothing is persisted.
package position

import (
	"fmt"
	"sort"

	"github.com/billoven/CashCue/internal/models"
	"github.com/shopspring/decimal"
)

// Lot is a quantity of an instrument acquired at a specific unit cost,
// consumed in FIFO order by sells. Lots live only for one computation pass.
type Lot struct {
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unitCost"`
}

// lotQueue is an explicit FIFO queue: buys append at the tail, sells consume
// from the head.
type lotQueue struct {
	lots []Lot
}

func (q *lotQueue) push(l Lot) {
	q.lots = append(q.lots, l)
}

// consume removes up to qty from the head of the queue at the given sell
// price. It returns the realized P/L on the consumed lots and the quantity
// actually consumed; the caller handles any shortfall.
func (q *lotQueue) consume(qty, sellPrice decimal.Decimal) (realized, consumed decimal.Decimal) {
	remaining := qty
	for remaining.IsPositive() && len(q.lots) > 0 {
		head := &q.lots[0]
		take := decimal.Min(head.Quantity, remaining)
		realized = realized.Add(sellPrice.Sub(head.UnitCost).Mul(take))
		consumed = consumed.Add(take)
		remaining = remaining.Sub(take)
		head.Quantity = head.Quantity.Sub(take)
		if head.Quantity.IsZero() {
			q.lots = q.lots[1:]
		}
	}
	return realized, consumed
}

// Position is the derived state for one (account, instrument) pair.
type Position struct {
	InstrumentID int64           `json:"instrumentId"`
	NetQuantity  decimal.Decimal `json:"netQuantity"`
	Lots         []Lot           `json:"lots"`
	RealizedPL   decimal.Decimal `json:"realizedPl"`
}

// InvestedAmount is the net cost basis of the remaining lots.
func (p Position) InvestedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.Lots {
		total = total.Add(l.Quantity.Mul(l.UnitCost))
	}
	return total
}

// AvgCost is the quantity-weighted unit cost of the remaining lots, or zero
// when nothing is held.
func (p Position) AvgCost() decimal.Decimal {
	qty := decimal.Zero
	for _, l := range p.Lots {
		qty = qty.Add(l.Quantity)
	}
	if qty.IsZero() {
		return decimal.Zero
	}
	return p.InvestedAmount().Div(qty)
}

// Result aggregates the positions of one account plus any anomalies found
// while replaying the order stream.
type Result struct {
	AccountID int64               `json:"accountId"`
	Positions map[int64]*Position `json:"positions"`
	Anomalies []models.Anomaly    `json:"anomalies,omitempty"`
}

// Open returns the positions with strictly positive net quantity, sorted by
// instrument id for deterministic iteration.
func (r *Result) Open() []*Position {
	out := make([]*Position, 0, len(r.Positions))
	for _, p := range r.Positions {
		if p.NetQuantity.IsPositive() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstrumentID < out[j].InstrumentID })
	return out
}

// RealizedPL sums realized profit and loss across all instruments.
func (r *Result) RealizedPL() decimal.Decimal {
	total := decimal.Zero
	for _, p := range r.Positions {
		total = total.Add(p.RealizedPL)
	}
	return total
}

// Compute replays the account's complete order stream and returns the
// resulting positions. Orders are sorted by trade date ascending with row id
// as the stable tie-break, so FIFO consumption is deterministic even when
// the caller's ordering is unreliable.
//
// A SELL that exceeds the tracked lot quantity is never matched against an
// assumed zero-cost lot: realized P/L is computed on the available quantity
// only and the shortfall is recorded as an InsufficientLots anomaly.
// Processing always continues with the next order.
func Compute(accountID int64, orders []models.Order) *Result {
	sorted := make([]models.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].TradeDate.Equal(sorted[j].TradeDate) {
			return sorted[i].TradeDate.Before(sorted[j].TradeDate)
		}
		return sorted[i].ID < sorted[j].ID
	})

	res := &Result{
		AccountID: accountID,
		Positions: make(map[int64]*Position),
	}
	queues := make(map[int64]*lotQueue)

	for _, o := range sorted {
		pos, ok := res.Positions[o.InstrumentID]
		if !ok {
			pos = &Position{InstrumentID: o.InstrumentID}
			res.Positions[o.InstrumentID] = pos
			queues[o.InstrumentID] = &lotQueue{}
		}
		q := queues[o.InstrumentID]

		switch o.Type {
		case models.OrderBuy:
			q.push(Lot{Quantity: o.Quantity, UnitCost: o.Price})
			pos.NetQuantity = pos.NetQuantity.Add(o.Quantity)
		case models.OrderSell:
			realized, consumed := q.consume(o.Quantity, o.Price)
			pos.RealizedPL = pos.RealizedPL.Add(realized)
			pos.NetQuantity = pos.NetQuantity.Sub(o.Quantity)
			if shortfall := o.Quantity.Sub(consumed); shortfall.IsPositive() {
				res.Anomalies = append(res.Anomalies, models.Anomaly{
					Kind:         models.AnomalyInsufficientLots,
					InstrumentID: o.InstrumentID,
					OrderID:      o.ID,
					Amount:       shortfall,
					Detail: fmt.Sprintf("sell of %s exceeds tracked holdings by %s",
						o.Quantity.String(), shortfall.String()),
				})
			}
		}
	}

	for id, pos := range res.Positions {
		pos.Lots = queues[id].lots
	}
	return res
}
