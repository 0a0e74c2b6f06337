package unlock

import "time"

const (
	TypeContact = "contact"
	TypeCompany = "company"
)

// UnlockRecord is the idempotency key for a paid unlock: its existence is
// definitional proof that the resource is unlocked for the user. Rows are
// created exactly once and never updated or deleted.
type UnlockRecord struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int       `db:"user_id" json:"user_id"`
	ResourceID   int64     `db:"resource_id" json:"resource_id"`
	ResourceType string    `db:"resource_type" json:"resource_type"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SingleResult reports one unlock attempt. A repeat unlock is a no-op
// success, not an error.
type SingleResult struct {
	AlreadyUnlocked bool  `json:"already_unlocked"`
	Balance         int64 `json:"balance"`
}

// BulkResult reports an all-or-nothing batch unlock.
type BulkResult struct {
	UnlockedIDs     []int64 `json:"unlocked_ids"`
	AlreadyUnlocked []int64 `json:"already_unlocked"`
	TotalCharged    int64   `json:"total_charged"`
	Balance         int64   `json:"balance"`
}

func ValidResourceType(resourceType string) bool {
	return resourceType == TypeContact || resourceType == TypeCompany
}
