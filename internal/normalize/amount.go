package normalize

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MinorToMajor converts an upstream minor-unit amount (satang) into major
// units. Missing, unparsable, non-finite, zero and negative inputs all map to
// zero; there is no rounding beyond the division itself.
func MinorToMajor(raw any) decimal.Decimal {
	v, ok := parseMinor(raw)
	if !ok || !v.IsPositive() {
		return decimal.Zero
	}
	return v.Div(hundred)
}

// FormatMajor renders a major-unit amount with two decimal places.
func FormatMajor(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// MinorInt returns the raw minor-unit amount as an integer when it is one.
func MinorInt(raw any) (int64, bool) {
	v, ok := parseMinor(raw)
	if !ok || !v.IsInteger() {
		return 0, false
	}
	return v.IntPart(), true
}

func parseMinor(raw any) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return v, true
	case float64:
		return fromFloat(v)
	case float32:
		return fromFloat(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int8:
		return decimal.NewFromInt(int64(v)), true
	case int16:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint:
		return fromUint(uint64(v)), true
	case uint8:
		return fromUint(uint64(v)), true
	case uint16:
		return fromUint(uint64(v)), true
	case uint32:
		return fromUint(uint64(v)), true
	case uint64:
		return fromUint(v), true
	case json.Number:
		return parseString(string(v))
	case string:
		return parseString(v)
	}
	return decimal.Zero, false
}

func parseString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d, true
	}
	// Accept the looser forms ParseFloat understands, e.g. "+15e2".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return decimal.Zero, false
	}
	return fromFloat(f)
}

func fromUint(u uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0)
}

func fromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}
