// Package format renders amounts and dates the way the firm's French
// documents print them.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// group separator used by fr-FR number formatting
	narrowNoBreakSpace = "\u202f"
	noBreakSpace       = "\u00a0"
)

var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$US",
	"GBP": "£GB",
	"CAD": "$CA",
	"CHF": "CHF",
}

var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"XOF": true,
	"XAF": true,
}

// Currency formats amount in fr-FR currency style, e.g. "1 500,50 €" where the
// group separator is U+202F and the symbol is preceded by U+00A0.
// An empty currency code is treated as EUR.
func Currency(amount float64, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = "EUR"
	}

	places := int32(2)
	if zeroDecimalCurrencies[code] {
		places = 0
	}

	d := decimal.NewFromFloat(amount).Round(places)
	negative := d.IsNegative()
	fixed := d.Abs().StringFixed(places)

	intPart, fracPart := fixed, ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i+1:]
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString(groupThousands(intPart))
	if fracPart != "" {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}
	b.WriteString(noBreakSpace)
	if sym, ok := currencySymbols[code]; ok {
		b.WriteString(sym)
	} else {
		b.WriteString(code)
	}
	return b.String()
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(narrowNoBreakSpace)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
