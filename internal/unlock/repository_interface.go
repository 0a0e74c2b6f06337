package unlock

import "context"

type Repository interface {
	// UnlockSingle charges price once for (userID, resourceID, resourceType)
	// and records the unlock, all in one wallet transaction. Calling it again
	// for the same key returns AlreadyUnlocked with an unchanged balance.
	UnlockSingle(ctx context.Context, userID int, resourceID int64, resourceType string, price int64) (*SingleResult, error)

	// UnlockBulk charges pricePerItem for every not-yet-unlocked id, or
	// nothing at all when the balance cannot cover the whole locked set.
	UnlockBulk(ctx context.Context, userID int, resourceIDs []int64, resourceType string, pricePerItem int64) (*BulkResult, error)

	IsUnlocked(ctx context.Context, userID int, resourceID int64, resourceType string) (bool, error)
}
