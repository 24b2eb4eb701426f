package money

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// 小数部の桁数（セント）
const MinorUnitExponent = 2

var ErrOverflow = errors.New("amount overflows int64")

// 29999 -> "299.99"
func Format(minor int64) string {
	return decimal.New(minor, -MinorUnitExponent).StringFixed(MinorUnitExponent)
}

// qty * 単価。どちらも0以上が前提、int64を超えたらErrOverflow。
func LineTotal(qty int64, unit int64) (int64, error) {
	if qty < 0 || unit < 0 {
		return 0, errors.New("negative amount")
	}
	if qty != 0 && unit > math.MaxInt64/qty {
		return 0, ErrOverflow
	}
	return qty * unit, nil
}

// 0以上の金額の加算（超えたらErrOverflow）
func Add(a int64, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, errors.New("negative amount")
	}
	if a > math.MaxInt64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}
