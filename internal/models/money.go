package models

import "github.com/shopspring/decimal"

// Round2 rounds a GB$ amount to 2 decimal places. All money arithmetic
// must round immediately after each operation so repeated credits and
// debits cannot accumulate drift.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MoneyString formats a GB$ amount with exactly 2 decimal places.
// Canonical ledger payloads and persisted balances both use this form
// so hashes are reproducible across engines.
func MoneyString(d decimal.Decimal) string {
	return d.StringFixed(2)
}
