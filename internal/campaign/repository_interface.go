package campaign

import "context"

type Repository interface {
	Create(ctx context.Context, c *Campaign) (*Campaign, error)
	GetByID(ctx context.Context, ownerID int, id int64) (*Campaign, error)
	ListByOwner(ctx context.Context, ownerID int, limit, offset int) ([]Campaign, error)

	// ChargeAndMarkSending atomically debits the owner's wallet by cost,
	// flips the campaign from draft to sending and records the resolved
	// recipient snapshot, all in one transaction under the wallet row lock.
	// A campaign that is not a draft fails with ErrNotDraft; a second charge
	// for the same campaign fails with ErrAlreadyCharged. Returns the
	// balance after the debit.
	ChargeAndMarkSending(ctx context.Context, c *Campaign, snapshot []int64, cost int64) (int64, error)

	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
}
