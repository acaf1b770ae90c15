package pricing

import "github.com/shopspring/decimal"

// LedgerInput carries everything the loyalty ledger needs for one sale.
type LedgerInput struct {
	Subtotal        decimal.Decimal
	AvailablePoints int
	Redeem          bool
	PointValue      decimal.Decimal
	EarnRate        decimal.Decimal
	Paused          bool
}

// LedgerResult is the points outcome of a sale. FinalTotal is the subtotal
// net of the points discount; both redemption and earning use it.
type LedgerResult struct {
	Discount     decimal.Decimal
	PointsUsed   int
	PointsEarned int
	FinalTotal   decimal.Decimal
}

// ComputeLedger applies the loyalty economy to a subtotal.
//
// When paused, points are neither spent nor earned. Otherwise redeemable
// points are capped by both the balance and the subtotal, so the discount
// never exceeds the subtotal and never spends more than is available.
func ComputeLedger(in LedgerInput) LedgerResult {
	res := LedgerResult{
		Discount:   decimal.Zero,
		FinalTotal: in.Subtotal,
	}
	if in.Paused {
		return res
	}

	if in.Redeem && in.AvailablePoints > 0 && in.PointValue.IsPositive() && in.Subtotal.IsPositive() {
		usable := in.Subtotal.Div(in.PointValue).Floor().IntPart()
		if int64(in.AvailablePoints) < usable {
			usable = int64(in.AvailablePoints)
		}
		res.PointsUsed = int(usable)
		res.Discount = in.PointValue.Mul(decimal.NewFromInt(usable))
		res.FinalTotal = in.Subtotal.Sub(res.Discount)
	}

	res.PointsEarned = earnedPoints(res.FinalTotal, in.EarnRate)
	return res
}

func earnedPoints(total, earnRate decimal.Decimal) int {
	if !earnRate.IsPositive() || !total.IsPositive() {
		return 0
	}
	return int(total.Div(earnRate).Floor().IntPart())
}

// Balance returns the customer's balance after a sale.
func (r LedgerResult) Balance(before int) int {
	return before - r.PointsUsed + r.PointsEarned
}
