package amount

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	clierr "github.com/gzale/wrapcycle/internal/errors"
)

// WrappedTokenDecimals is the precision of the wrapped token (and the native
// currency it represents).
const WrappedTokenDecimals = 18

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ToBaseUnits converts a human-readable decimal string like "0.05" into the
// token's smallest unit. All arithmetic is on big.Int; large values never pass
// through a float.
func ToBaseUnits(decimal string, decimals int) (*big.Int, error) {
	clean := strings.TrimSpace(decimal)
	if clean == "" {
		return nil, clierr.New(clierr.CodeConfig, "amount is required")
	}
	if decimals < 0 {
		return nil, clierr.New(clierr.CodeConfig, "decimals must be >= 0")
	}
	if !decimalPattern.MatchString(clean) {
		return nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("amount %q must be in decimal form like 0.05", decimal))
	}

	parts := strings.SplitN(clean, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if len(fracPart) > decimals {
		return nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("amount precision exceeds token decimals (%d)", decimals))
	}

	combined := intPart + fracPart + strings.Repeat("0", decimals-len(fracPart))
	combined = strings.TrimLeft(combined, "0")
	if combined == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, clierr.New(clierr.CodeConfig, "invalid decimal amount")
	}
	return v, nil
}

// FromBaseUnits renders a base-unit value back into decimal form for display.
func FromBaseUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	s := new(big.Int).Abs(v).String()
	if decimals == 0 {
		return v.String()
	}
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")
	sign := ""
	if v.Sign() < 0 {
		sign = "-"
	}
	if fracPart == "" {
		return sign + intPart
	}
	return sign + intPart + "." + fracPart
}
