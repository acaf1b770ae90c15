package pricing

import (
	"phone-pos/internal/domain"

	"github.com/shopspring/decimal"
)

// USDThreshold separates USD-denominated prices (below) from prices already
// stored in local currency (at or above). It is global policy, not product state.
var USDThreshold = decimal.NewFromInt(3500)

// IsUSD reports whether a stored price is treated as USD-denominated.
func IsUSD(price decimal.Decimal) bool {
	return price.LessThan(USDThreshold)
}

// ToDisplayCurrency converts a stored price to local currency. The rate is
// not validated here; callers reject non-positive rates before using it.
func ToDisplayCurrency(price, rate decimal.Decimal) decimal.Decimal {
	if IsUSD(price) {
		return price.Mul(rate)
	}
	return price
}

// OriginCurrency returns the currency code implied by a stored price.
func OriginCurrency(price decimal.Decimal) string {
	if IsUSD(price) {
		return domain.CurrencyUSD
	}
	return domain.CurrencyARS
}

// ToUSD converts a local-currency amount to USD at the given rate,
// rounded to cents. A non-positive rate yields zero.
func ToUSD(amount, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() {
		return decimal.Zero
	}
	return amount.Div(rate).Round(2)
}
