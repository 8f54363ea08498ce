package ports

import "context"

// WalletUpdate is a single chip change for a user, usually one seat's share of
// a round settlement.
type WalletUpdate struct {
	UserID   string
	Amount   int64
	Metadata map[string]interface{}
}

// EconomyPort books round settlements against player wallets.
type EconomyPort interface {
	// UpdateBalances applies the per-seat deltas of a finished round.
	// Zero amounts are skipped.
	UpdateBalances(ctx context.Context, updates []WalletUpdate) error
}
