package wallet

import "context"

type Repository interface {
	GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error)
	Credit(ctx context.Context, userID int, amount int64, feature string, metadata Metadata) (int64, error)
	GetLedgerEntries(ctx context.Context, userID int, limit, offset int) ([]LedgerEntry, error)
	Reconcile(ctx context.Context, userID int) (*Reconciliation, error)

	// GetUserContact returns the email and display name for a user, for
	// grant notifications.
	GetUserContact(ctx context.Context, userID int) (email, name string, err error)
}
