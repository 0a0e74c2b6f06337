package sender

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusUnset    Status = "unset"
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
	StatusError    Status = "error"
)

// SenderIdentity is the single outbound identity of a user. At most one row
// per user; replacing the email updates the row in place, so no history of
// old addresses is kept. ChangeCount only grows, and only when the stored
// email actually changes.
type SenderIdentity struct {
	ID          int       `db:"id" json:"id"`
	UserID      int       `db:"user_id" json:"user_id"`
	Email       string    `db:"email" json:"email"`
	IdentityID  string    `db:"identity_id" json:"-"`
	Status      Status    `db:"status" json:"status"`
	ChangeCount int       `db:"change_count" json:"change_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type VerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type StatusResponse struct {
	Email            string `json:"email,omitempty"`
	Status           Status `json:"status"`
	ChangeCount      int    `json:"change_count"`
	ChangesRemaining int    `json:"changes_remaining"`
}

// ChangeLimitExceededError is terminal until an out-of-band reset.
type ChangeLimitExceededError struct {
	Limit int
	Used  int
}

func (e *ChangeLimitExceededError) Error() string {
	return fmt.Sprintf("sender change limit exceeded: %d of %d used", e.Used, e.Limit)
}
