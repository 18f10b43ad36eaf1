package loyalty

// IneligibilityReason distinguishes why a redemption is blocked. The two
// causes are always reported separately, never merged.
type IneligibilityReason string

const (
	ReasonInsufficientPoints IneligibilityReason = "insufficient_points"
	ReasonUnpaidInvoices     IneligibilityReason = "unpaid_invoices"
)

// Message returns the user-facing text for the reason.
func (r IneligibilityReason) Message() string {
	switch r {
	case ReasonInsufficientPoints:
		return "customer has no points available to redeem"
	case ReasonUnpaidInvoices:
		return "customer has unpaid invoices"
	default:
		return string(r)
	}
}

// Eligibility is the outcome of a redemption gate check.
type Eligibility struct {
	Eligible bool                  `json:"eligible"`
	Reasons  []IneligibilityReason `json:"reasons,omitempty"`
}

// CheckEligibility gates redemption creation: the customer must hold points
// and have no invoice that is not fully settled. Side-effect free; writers
// must re-validate under a row lock at commit time.
func CheckEligibility(currentPoints int64, invoices []InvoiceView) Eligibility {
	var reasons []IneligibilityReason
	if currentPoints <= 0 {
		reasons = append(reasons, ReasonInsufficientPoints)
	}
	for _, inv := range invoices {
		if !inv.Settled {
			reasons = append(reasons, ReasonUnpaidInvoices)
			break
		}
	}
	return Eligibility{Eligible: len(reasons) == 0, Reasons: reasons}
}
