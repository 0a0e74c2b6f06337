package campaign

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type Status string

const (
	StatusDraft   Status = "draft"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// ResolveMode selects how a campaign's recipient set is computed at send
// time. Resolution always runs against the owner's unlocked contacts.
type ResolveMode string

const (
	ModeAll      ResolveMode = "all"
	ModeFiltered ResolveMode = "filtered"
	ModeSelected ResolveMode = "selected"
)

func (m ResolveMode) Valid() bool {
	switch m {
	case ModeAll, ModeFiltered, ModeSelected:
		return true
	}
	return false
}

// FilterSpec is the stored recipient filter for filtered mode. Persisted as
// JSONB so drafts survive schema-free filter additions.
type FilterSpec struct {
	Query    string `json:"query,omitempty"`
	Company  string `json:"company,omitempty"`
	Title    string `json:"title,omitempty"`
	Location string `json:"location,omitempty"`
}

func (f FilterSpec) Value() (driver.Value, error) {
	return json.Marshal(f)
}

func (f *FilterSpec) Scan(src interface{}) error {
	if src == nil {
		*f = FilterSpec{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported filter spec type %T", src)
	}
	return json.Unmarshal(b, f)
}

type Campaign struct {
	ID            int64       `db:"id" json:"id"`
	OwnerID       int         `db:"owner_id" json:"owner_id"`
	Name          string      `db:"name" json:"name"`
	Subject       string      `db:"subject" json:"subject"`
	Body          string      `db:"body" json:"body"`
	FromEmail     string      `db:"from_email" json:"from_email"`
	Status        Status      `db:"status" json:"status"`
	RecipientMode ResolveMode `db:"recipient_mode" json:"recipient_mode"`
	Filter        FilterSpec  `db:"recipient_filter" json:"recipient_filter"`

	// SelectedIDs holds the draft's hand-picked contact ids for selected
	// mode. It is a request, not a guarantee: ids that are missing or locked
	// at send time are dropped during resolution.
	SelectedIDs pq.Int64Array `db:"selected_ids" json:"selected_ids,omitempty"`

	// RecipientSnapshot records the resolved contact ids the campaign was
	// actually charged for, written in the same transaction as the debit.
	RecipientSnapshot pq.Int64Array `db:"recipient_snapshot" json:"recipient_snapshot,omitempty"`

	ChargedCredits int64      `db:"charged_credits" json:"charged_credits"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	SentAt         *time.Time `db:"sent_at" json:"sent_at,omitempty"`
}

// Recipient is one resolved delivery target.
type Recipient struct {
	ContactID int64  `json:"contact_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

// Resolution is the outcome of recipient resolution: the deduplicated
// recipient list and the credits a send of it would cost.
type Resolution struct {
	Recipients []Recipient `json:"recipients"`
	Cost       int64       `json:"cost"`
}

func (r *Resolution) ContactIDs() []int64 {
	ids := make([]int64, len(r.Recipients))
	for i, rec := range r.Recipients {
		ids[i] = rec.ContactID
	}
	return ids
}

type CreateRequest struct {
	Name        string      `json:"name" binding:"required,notblank,max=200"`
	Subject     string      `json:"subject" binding:"required,notblank,max=500"`
	Body        string      `json:"body" binding:"required,notblank"`
	FromEmail   string      `json:"from_email" binding:"required,email"`
	Mode        ResolveMode `json:"recipient_mode" binding:"required,oneof=all filtered selected"`
	Filter      FilterSpec  `json:"recipient_filter"`
	SelectedIDs []int64     `json:"selected_ids" binding:"omitempty,max=1000"`
}

type PreviewRequest struct {
	Mode        ResolveMode `json:"recipient_mode" binding:"required,oneof=all filtered selected"`
	Filter      FilterSpec  `json:"recipient_filter"`
	SelectedIDs []int64     `json:"selected_ids" binding:"omitempty,max=1000"`
}

// PreviewResponse is advisory only: the recipient set is resolved again at
// send time and may differ.
type PreviewResponse struct {
	RecipientCount int   `json:"recipient_count"`
	Cost           int64 `json:"cost"`
}

type SendResponse struct {
	Campaign       *Campaign `json:"campaign"`
	RecipientCount int       `json:"recipient_count"`
	Charged        int64     `json:"charged"`
	Balance        int64     `json:"balance"`
}

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrNotDraft         = errors.New("campaign is not a draft")
	ErrAlreadyCharged   = errors.New("campaign already charged")
	ErrNoRecipients     = errors.New("campaign resolves to zero recipients")
	ErrSenderNotReady   = errors.New("sender identity is not verified")
	ErrFromMismatch     = errors.New("from address does not match verified sender")
)
