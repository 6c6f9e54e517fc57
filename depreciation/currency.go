package depreciation

import (
	"fmt"
	"strings"
)

// PrecisionProvider resolves the minor-unit precision of a currency code.
type PrecisionProvider interface {
	Precision(code string) (int32, bool)
}

// CurrencyTable is a PrecisionProvider backed by a static map.
type CurrencyTable map[string]int32

// DefaultCurrencies lists ISO 4217 minor units. Callers needing other codes
// build their own table.
var DefaultCurrencies = CurrencyTable{
	"EUR": 2, "USD": 2, "GBP": 2, "CHF": 2, "CAD": 2, "AUD": 2, "NZD": 2,
	"SEK": 2, "NOK": 2, "DKK": 2, "PLN": 2, "CZK": 2, "HUF": 2, "RON": 2,
	"BRL": 2, "MXN": 2, "ARS": 2, "ZAR": 2, "MAD": 2, "XOF": 0, "XAF": 0,
	"XPF": 0, "CNY": 2, "INR": 2, "SGD": 2, "HKD": 2, "MYR": 2, "THB": 2,
	"JPY": 0, "KRW": 0, "VND": 0, "CLP": 0, "ISK": 0, "UGX": 0,
	"KWD": 3, "BHD": 3, "OMR": 3, "JOD": 3, "TND": 3, "LYD": 3, "IQD": 3,
}

func (t CurrencyTable) Precision(code string) (int32, bool) {
	p, ok := t[strings.ToUpper(code)]
	return p, ok
}

// ResolveCurrency builds a Currency from a code using the provider.
func ResolveCurrency(p PrecisionProvider, code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	precision, ok := p.Precision(code)
	if !ok {
		return Currency{}, &InvalidArgumentError{Argument: "currency", Reason: fmt.Sprintf("unknown currency %q", code)}
	}
	return Currency{Code: code, Precision: precision}, nil
}
