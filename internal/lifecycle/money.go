package lifecycle

import (
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/safehold/escrowpay/pkg/errors"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"NGN": "₦",
}

// ParseAmount converts a 2-decimal string like "123.45" into minor units.
// More than two fraction digits, negatives and non-numeric input are rejected;
// amounts always enter the system exact.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, pkgerrors.ErrInvalidAmount
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, pkgerrors.ErrInvalidAmount
	}
	// Digits only: ParseInt would happily take a signed fraction like "-5".
	for i := 0; i < len(frac); i++ {
		if frac[i] < '0' || frac[i] > '9' {
			return 0, pkgerrors.ErrInvalidAmount
		}
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, pkgerrors.ErrInvalidAmount
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, pkgerrors.ErrInvalidAmount
	}
	return units*100 + cents, nil
}

// FormatAmount renders minor units with the currency symbol and two decimals,
// e.g. FormatAmount(10250, "USD") == "$102.50". Unknown currency codes fall
// back to "CODE 102.50".
func FormatAmount(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	value := fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
	if symbol, ok := currencySymbols[currency]; ok {
		return symbol + value
	}
	return currency + " " + value
}
