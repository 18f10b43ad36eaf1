package loyalty

import "github.com/shopspring/decimal"

// NetTransactions sums the totals of credit invoices and subtracts payments
// allocated to those invoices. Standalone payments (no invoice link) are
// excluded on purpose: they settle the opening balance, not invoice-linked
// credit. Pure function of its inputs.
//
// Sums run through decimal so long payment histories do not accumulate
// binary floating point error.
func NetTransactions(invoices []InvoiceView, payments []PaymentView) float64 {
	creditIDs := make(map[int64]struct{}, len(invoices))
	total := decimal.Zero
	for _, inv := range invoices {
		if !inv.Credit {
			continue
		}
		creditIDs[inv.ID] = struct{}{}
		total = total.Add(decimal.NewFromFloat(inv.Total))
	}
	for _, p := range payments {
		if p.InvoiceID == nil {
			continue
		}
		if _, ok := creditIDs[*p.InvoiceID]; !ok {
			continue
		}
		total = total.Sub(decimal.NewFromFloat(p.Amount))
	}
	return total.InexactFloat64()
}

// TotalBalance is the customer's total outstanding monetary balance: the
// opening balance plus the running credit balance maintained on the customer
// row.
func TotalBalance(c Counters) float64 {
	return decimal.NewFromFloat(c.OpeningBalance).
		Add(decimal.NewFromFloat(c.CreditBalance)).
		InexactFloat64()
}

// CurrentPoints derives the point balance from the cumulative counters.
func CurrentPoints(c Counters) int64 {
	return c.PointsEarned - c.PointsRedeemed
}
