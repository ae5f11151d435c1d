package db

import "github.com/shopspring/decimal"

// Balances are stored as TEXT to keep full precision through sqlite.
func decimalFromDB(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
