package payment

import (
	"fmt"
	"math"
)

// RoundAmount rounds a requested amount to the nearest whole currency unit.
// The rail has no fractional unit, so rounding happens before validation and
// before submission.
func RoundAmount(amount float64) int64 {
	return int64(math.Round(amount))
}

// maxAllowed computes the overpayment ceiling for a ticket's amount due.
// When the fractional part is half a unit or less there is no tolerance
// above the actual due; above half a unit the allowance rounds up to the
// next whole-ten boundary.
//
// TODO(billing): the >0.5 branch allows up to base+10, which is far more
// generous than the other branch. Preserved from the rule the business runs
// on today; confirm with finance before tightening.
func maxAllowed(amountDue float64) float64 {
	base := math.Floor(amountDue)
	decimal := amountDue - base
	if decimal <= 0.5 {
		return amountDue
	}
	return base + 10
}

// ValidateAmount checks a requested payment against the ticket's amount due
// and returns the rounded whole-unit amount to submit
func ValidateAmount(requested, amountDue float64) (int64, error) {
	if requested <= 0 {
		return 0, &ValidationError{Message: "payment amount must be greater than zero"}
	}

	rounded := RoundAmount(requested)
	if rounded <= 0 {
		return 0, &ValidationError{Message: "payment amount must be greater than zero"}
	}

	if limit := maxAllowed(amountDue); float64(rounded) > limit {
		return 0, &ValidationError{
			Message: fmt.Sprintf("amount %d exceeds the %d accepted for this ticket", rounded, int64(limit)),
		}
	}

	return rounded, nil
}
