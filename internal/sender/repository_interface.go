package sender

import "context"

type Repository interface {
	GetByUser(ctx context.Context, userID int) (*SenderIdentity, error)

	// Upsert writes the user's single identity row, replacing email, provider
	// identity id, status and change count in place.
	Upsert(ctx context.Context, userID int, email, identityID string, status Status, changeCount int) (*SenderIdentity, error)

	// UpdateStatus writes back a provider-reported status. It never touches
	// the change count.
	UpdateStatus(ctx context.Context, userID int, status Status) error
}
