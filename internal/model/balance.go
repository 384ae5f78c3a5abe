package model

import "strings"

// Balances holds the two amounts the platform tracks for one currency.
type Balances struct {
	Available float64 `json:"available"`
	Vault     float64 `json:"vault"`
}

// BalanceSheet maps a lowercase currency code to its balances.
type BalanceSheet map[string]Balances

// Get looks a currency up case-insensitively.
func (s BalanceSheet) Get(currency string) (Balances, bool) {
	b, ok := s[strings.ToLower(currency)]
	return b, ok
}
