package unlock

import (
	"context"
	"errors"
	"strconv"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/wallet"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) UnlockSingle(ctx context.Context, userID int, resourceID int64, resourceType string, price int64) (*SingleResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := wallet.LockForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	unlocked, err := existsTx(ctx, tx, userID, resourceID, resourceType)
	if err != nil {
		return nil, err
	}
	if unlocked {
		// no-op success; nothing to commit
		return &SingleResult{AlreadyUnlocked: true, Balance: w.BalanceCredits}, nil
	}

	if w.BalanceCredits < price {
		return nil, &wallet.InsufficientCreditsError{Needed: price, Have: w.BalanceCredits}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO unlock_records (user_id, resource_id, resource_type)
		 VALUES ($1, $2, $3)`,
		userID, resourceID, resourceType,
	)
	if err != nil {
		// A concurrent request won the insert race. The unique constraint,
		// not the existence check above, is what guarantees a single charge;
		// its violation is the success path.
		if isUniqueViolation(err) {
			return r.alreadyUnlockedResult(ctx, userID)
		}
		return nil, err
	}

	balance, err := wallet.ApplyEntryTx(ctx, tx, w, "unlock_"+resourceType, -price, wallet.Metadata{
		"resource_id": strconv.FormatInt(resourceID, 10),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &SingleResult{AlreadyUnlocked: false, Balance: balance}, nil
}

func (r *repository) UnlockBulk(ctx context.Context, userID int, resourceIDs []int64, resourceType string, pricePerItem int64) (*BulkResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := wallet.LockForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	alreadyUnlocked := []int64{}
	err = tx.SelectContext(ctx, &alreadyUnlocked,
		`SELECT resource_id FROM unlock_records
		 WHERE user_id = $1 AND resource_type = $2 AND resource_id = ANY($3)
		 ORDER BY resource_id`,
		userID, resourceType, pq.Array(resourceIDs),
	)
	if err != nil {
		return nil, err
	}

	locked := subtract(resourceIDs, alreadyUnlocked)
	if len(locked) == 0 {
		return &BulkResult{
			UnlockedIDs:     []int64{},
			AlreadyUnlocked: alreadyUnlocked,
			Balance:         w.BalanceCredits,
		}, nil
	}

	total := pricePerItem * int64(len(locked))
	if w.BalanceCredits < total {
		// all-or-nothing: unlock nothing, charge nothing
		return nil, &wallet.InsufficientCreditsError{Needed: total, Have: w.BalanceCredits}
	}

	for _, id := range locked {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO unlock_records (user_id, resource_id, resource_type)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, resource_id, resource_type) DO NOTHING`,
			userID, id, resourceType,
		)
		if err != nil {
			return nil, err
		}
	}

	balance, err := wallet.ApplyEntryTx(ctx, tx, w, "unlock_"+resourceType+"_bulk", -total, wallet.Metadata{
		"resource_type": resourceType,
		"count":         strconv.Itoa(len(locked)),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &BulkResult{
		UnlockedIDs:     locked,
		AlreadyUnlocked: alreadyUnlocked,
		TotalCharged:    total,
		Balance:         balance,
	}, nil
}

func (r *repository) IsUnlocked(ctx context.Context, userID int, resourceID int64, resourceType string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(
		     SELECT 1 FROM unlock_records
		     WHERE user_id = $1 AND resource_id = $2 AND resource_type = $3
		 )`,
		userID, resourceID, resourceType,
	)
	return exists, err
}

func (r *repository) alreadyUnlockedResult(ctx context.Context, userID int) (*SingleResult, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance,
		`SELECT balance_credits FROM wallets WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	return &SingleResult{AlreadyUnlocked: true, Balance: balance}, nil
}

func existsTx(ctx context.Context, tx *sqlx.Tx, userID int, resourceID int64, resourceType string) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists,
		`SELECT EXISTS(
		     SELECT 1 FROM unlock_records
		     WHERE user_id = $1 AND resource_id = $2 AND resource_type = $3
		 )`,
		userID, resourceID, resourceType,
	)
	return exists, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// subtract returns the ids in all that are not in remove, preserving order.
func subtract(all, remove []int64) []int64 {
	removed := make(map[int64]struct{}, len(remove))
	for _, id := range remove {
		removed[id] = struct{}{}
	}

	out := []int64{}
	seen := make(map[int64]struct{}, len(all))
	for _, id := range all {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := removed[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
