package domain

import (
	"fmt"
	"strings"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// Currency represents a supported ISO-4217 currency.
type Currency struct {
	CurrencyCode string `json:"currencyCode"` // e.g., "USD"
	Name         string `json:"name"`
	MinorUnits   int32  `json:"minorUnits"` // digits after the decimal point
}

var currencyCatalog = map[string]Currency{
	"AED": {CurrencyCode: "AED", Name: "UAE Dirham", MinorUnits: 2},
	"AFN": {CurrencyCode: "AFN", Name: "Afghani", MinorUnits: 2},
	"AUD": {CurrencyCode: "AUD", Name: "Australian Dollar", MinorUnits: 2},
	"BHD": {CurrencyCode: "BHD", Name: "Bahraini Dinar", MinorUnits: 3},
	"CAD": {CurrencyCode: "CAD", Name: "Canadian Dollar", MinorUnits: 2},
	"CHF": {CurrencyCode: "CHF", Name: "Swiss Franc", MinorUnits: 2},
	"CNY": {CurrencyCode: "CNY", Name: "Yuan Renminbi", MinorUnits: 2},
	"EUR": {CurrencyCode: "EUR", Name: "Euro", MinorUnits: 2},
	"GBP": {CurrencyCode: "GBP", Name: "Pound Sterling", MinorUnits: 2},
	"INR": {CurrencyCode: "INR", Name: "Indian Rupee", MinorUnits: 2},
	"IQD": {CurrencyCode: "IQD", Name: "Iraqi Dinar", MinorUnits: 3},
	"IRR": {CurrencyCode: "IRR", Name: "Iranian Rial", MinorUnits: 0},
	"JPY": {CurrencyCode: "JPY", Name: "Yen", MinorUnits: 0},
	"KRW": {CurrencyCode: "KRW", Name: "Won", MinorUnits: 0},
	"KWD": {CurrencyCode: "KWD", Name: "Kuwaiti Dinar", MinorUnits: 3},
	"OMR": {CurrencyCode: "OMR", Name: "Rial Omani", MinorUnits: 3},
	"PKR": {CurrencyCode: "PKR", Name: "Pakistan Rupee", MinorUnits: 2},
	"SAR": {CurrencyCode: "SAR", Name: "Saudi Riyal", MinorUnits: 2},
	"TRY": {CurrencyCode: "TRY", Name: "Turkish Lira", MinorUnits: 2},
	"USD": {CurrencyCode: "USD", Name: "US Dollar", MinorUnits: 2},
}

// LookupCurrency resolves a currency code. Unknown codes are validation errors on field.
func LookupCurrency(code, field string) (Currency, error) {
	c, ok := currencyCatalog[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Currency{}, apperrors.NewValidationError(field, fmt.Sprintf("unsupported currency %q", code))
	}
	return c, nil
}

// Round rounds amount half away from zero to the currency's minor unit.
func (c Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.MinorUnits)
}

// CheckScale rejects amounts carrying more fractional digits than the currency allows.
func (c Currency) CheckScale(amount decimal.Decimal, field string) error {
	if !amount.Equal(c.Round(amount)) {
		return apperrors.NewValidationError(field, fmt.Sprintf("%s allows at most %d decimal places", c.CurrencyCode, c.MinorUnits))
	}
	return nil
}

// Format renders amount with exactly the currency's minor units.
func (c Currency) Format(amount decimal.Decimal) string {
	return amount.StringFixed(c.MinorUnits)
}

// RequirePositive validates amount > 0.
func RequirePositive(amount decimal.Decimal, field string) error {
	if !amount.IsPositive() {
		return apperrors.NewValidationError(field, "must be greater than zero")
	}
	return nil
}
