package metrics

import "github.com/shopspring/decimal"

// FormatMoney renders an amount with two decimals, e.g. "$12.30" or "-$5.00".
func FormatMoney(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// FormatPercent renders a signed percentage with two decimals, e.g. "+5.00%".
func FormatPercent(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsNegative() {
		return d.StringFixed(2) + "%"
	}
	return "+" + d.StringFixed(2) + "%"
}

// FormatNumber renders an unsigned two-decimal number.
func FormatNumber(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
