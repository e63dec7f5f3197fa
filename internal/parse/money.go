package parse

import (
	"strings"

	"github.com/shopspring/decimal"
)

var moneyNoise = strings.NewReplacer(
	"$", "",
	"€", "",
	"£", "",
	"¥", "",
	",", "",
	" ", "",
	"\u00a0", "",
)

var currencyCodes = []string{"USD", "EUR", "GBP", "CAD", "AUD"}

// Money converts a loosely formatted currency string such as "$1,234.50" into
// its numeric value. Empty or unparseable input yields 0, so callers cannot
// tell a real zero from missing data.
func Money(s string) float64 {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return 0
	}
	for _, code := range currencyCodes {
		v = strings.TrimPrefix(v, code)
		v = strings.TrimSuffix(v, code)
	}
	v = moneyNoise.Replace(v)
	return number(v)
}

// Percent converts strings like "+7.0%" or "-4%" into 7.0 and -4.
// Unparseable input yields 0.
func Percent(s string) float64 {
	v := strings.TrimSpace(s)
	if v == "" {
		return 0
	}
	v = strings.ReplaceAll(v, "%", "")
	v = strings.ReplaceAll(v, " ", "")
	return number(v)
}

func number(v string) float64 {
	v = strings.TrimPrefix(v, "+")
	if v == "" {
		return 0
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}
