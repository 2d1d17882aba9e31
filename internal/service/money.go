package service

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// TaxRate is the flat sales tax applied to every order and invoice.
var TaxRate = decimal.NewFromFloat(0.15)

// moneyScale is the fixed-point scale for all monetary values.
const moneyScale = 2

// roundMoney rounds to two decimal places with banker's rounding, matching
// the accounting convention the books were kept with (3.825 -> 3.82,
// 10.555 -> 10.56).
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(moneyScale)
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(moneyScale))
	return n
}
