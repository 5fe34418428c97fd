package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/billoven/CashCue/internal/models"
)

// WriteJSON emits the report as machine-parseable JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText emits the report in the sectioned, human-readable layout of the
// original audit tool.
func WriteText(w io.Writer, r *Report) error {
	fmt.Fprintf(w, "=== FINANCIAL AUDIT %s (%s) ===\n", r.ID, r.GeneratedAt.Format("2006-01-02 15:04:05"))
	for _, acc := range r.Accounts {
		fmt.Fprintln(w, separator)
		fmt.Fprintf(w, "Account '%s' (ID=%d)\n", acc.AccountName, acc.AccountID)

		if acc.Cash != nil {
			fmt.Fprintln(w, "[CASH AUDIT]")
			for _, line := range acc.Cash.Trace {
				fmt.Fprintf(w, "%s | %-10s | amount=%10s | impact=%10s | running=%10s | %s\n",
					line.Date.Format("2006-01-02"), line.Type,
					line.Amount.StringFixed(2), line.Impact.StringFixed(2),
					line.RunningBalance.StringFixed(2), line.Comment)
			}
			types := make([]string, 0, len(acc.Cash.Totals))
			for t := range acc.Cash.Totals {
				types = append(types, string(t))
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Fprintf(w, "Total %-10s: %10s\n", t, acc.Cash.Totals[models.CashTransactionType(t)].StringFixed(2))
			}
			fmt.Fprintf(w, "Computed balance  : %s\n", acc.Cash.RunningBalance.StringFixed(2))
			fmt.Fprintf(w, "Persisted balance : %s\n", acc.Cash.PersistedBalance.StringFixed(2))
			if acc.Cash.Balanced() {
				fmt.Fprintln(w, "Delta             : 0.00 (OK)")
			} else {
				fmt.Fprintf(w, "Delta             : %s (INCONSISTENCY DETECTED)\n", acc.Cash.Delta.StringFixed(2))
				fmt.Fprintf(w, "Hint: %s\n", acc.Cash.Hint)
			}
		} else {
			fmt.Fprintln(w, "[CASH AUDIT] no cash account")
		}

		fmt.Fprintln(w, "[ORDERS / POSITIONS AUDIT]")
		for _, line := range acc.OrderTrace {
			fmt.Fprintf(w, "%s | %-4s | instr=%d | qty=%s | total_cost=%s | fees=%s\n",
				line.Date.Format("2006-01-02"), line.Type, line.InstrumentID,
				line.Quantity.String(), line.TotalCost.StringFixed(2), line.Fees.StringFixed(2))
		}
		fmt.Fprintf(w, "Total BUY  : %s\n", acc.Orders.TotalBuy.StringFixed(2))
		fmt.Fprintf(w, "Total SELL : %s\n", acc.Orders.TotalSell.StringFixed(2))
		fmt.Fprintf(w, "Total FEES : %s\n", acc.Orders.TotalFees.StringFixed(2))
		for _, p := range acc.Positions {
			fmt.Fprintf(w, "Position instr=%d qty=%s realized_pl=%s\n",
				p.InstrumentID, p.NetQuantity.String(), p.RealizedPL.StringFixed(2))
		}

		if len(acc.Anomalies) > 0 {
			fmt.Fprintln(w, "[ANOMALIES]")
			for _, an := range acc.Anomalies {
				fmt.Fprintf(w, "  %-24s %s\n", an.Kind, an.Detail)
			}
		}
	}
	fmt.Fprintln(w, "=== FINANCIAL AUDIT COMPLETED ===")
	return nil
}

const separator = "----------------------------------------------------------------------"
