package importer

import "github.com/shopspring/decimal"

func cents(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

// RoundMoney rounds half away from zero to two decimal places.
func RoundMoney(f float64) float64 {
	v, _ := cents(f).Float64()
	return v
}

// SameMoney compares two amounts after rounding both to cents.
func SameMoney(a, b float64) bool {
	return cents(a).Equal(cents(b))
}

func sameOptionalMoney(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return SameMoney(*a, *b)
}

func FormatMoney(f float64) string {
	return cents(f).StringFixed(2)
}
