package wallet

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Wallet holds a user's credit balance. The balance column is a materialized
// projection of the ledger sum; every mutation goes through ApplyEntryTx so
// the two can never diverge.
type Wallet struct {
	ID             int       `db:"id" json:"id"`
	UserID         int       `db:"user_id" json:"user_id"`
	BalanceCredits int64     `db:"balance_credits" json:"balance_credits"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// LedgerEntry is append-only. Negative amounts are debits, positive credits.
type LedgerEntry struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Feature   string    `db:"feature" json:"feature"`
	Amount    int64     `db:"amount" json:"amount"`
	Metadata  Metadata  `db:"metadata" json:"metadata"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Metadata is stored as JSONB.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
}

type Reconciliation struct {
	UserID     int   `json:"user_id"`
	Balance    int64 `json:"balance"`
	LedgerSum  int64 `json:"ledger_sum"`
	Consistent bool  `json:"consistent"`
}

var ErrWalletNotFound = errors.New("wallet not found")

// InsufficientCreditsError carries the shortfall so callers can render an
// actionable message.
type InsufficientCreditsError struct {
	Needed int64
	Have   int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d", e.Needed, e.Have)
}
