package book

import (
	"math"
	"strconv"
)

// ConvertPrice returns price*rate rounded half away from zero to two decimals.
func ConvertPrice(price, rate float64) float64 {
	return math.Round(price*rate*100) / 100
}

// FormatPrice renders an amount with exactly two decimals.
func FormatPrice(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
