package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var ErrNotFound = errors.New("resource not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const contactColumns = `c.id, c.full_name, c.email, c.phone, c.title, c.company, c.location, c.created_at`

func (r *repository) GetContactByID(ctx context.Context, userID int, id int64) (*Contact, error) {
	c := &Contact{}
	err := r.db.GetContext(ctx, c, `
		SELECT `+contactColumns+`,
		       EXISTS(
		           SELECT 1 FROM unlock_records u
		           WHERE u.user_id = $1 AND u.resource_id = c.id AND u.resource_type = 'contact'
		       ) AS unlocked
		FROM contacts c
		WHERE c.id = $2
	`, userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repository) ContactExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM contacts WHERE id = $1)`, id)
	return exists, err
}

func (r *repository) SearchContacts(ctx context.Context, userID int, params SearchParams) ([]Contact, error) {
	where, args := buildContactFilter(params, 2)

	query := `
		SELECT ` + contactColumns + `,
		       EXISTS(
		           SELECT 1 FROM unlock_records u
		           WHERE u.user_id = $1 AND u.resource_id = c.id AND u.resource_type = 'contact'
		       ) AS unlocked
		FROM contacts c` + where + `
		ORDER BY c.id
		LIMIT ` + fmt.Sprintf("%d OFFSET %d", normalizeLimit(params.Limit), params.Offset)

	contacts := []Contact{}
	err := r.db.SelectContext(ctx, &contacts, query, append([]interface{}{userID}, args...)...)
	return contacts, err
}

func (r *repository) ListUnlockedContacts(ctx context.Context, userID int) ([]Contact, error) {
	contacts := []Contact{}
	err := r.db.SelectContext(ctx, &contacts, `
		SELECT `+contactColumns+`, TRUE AS unlocked
		FROM contacts c
		JOIN unlock_records u
		  ON u.resource_id = c.id AND u.resource_type = 'contact' AND u.user_id = $1
		ORDER BY c.id
	`, userID)
	return contacts, err
}

func (r *repository) SearchUnlockedContacts(ctx context.Context, userID int, params SearchParams) ([]Contact, error) {
	where, args := buildContactFilter(params, 2)

	query := `
		SELECT ` + contactColumns + `, TRUE AS unlocked
		FROM contacts c
		JOIN unlock_records u
		  ON u.resource_id = c.id AND u.resource_type = 'contact' AND u.user_id = $1` +
		where + `
		ORDER BY c.id`

	contacts := []Contact{}
	err := r.db.SelectContext(ctx, &contacts, query, append([]interface{}{userID}, args...)...)
	return contacts, err
}

func (r *repository) SelectUnlockedByIDs(ctx context.Context, userID int, ids []int64) ([]Contact, error) {
	if len(ids) == 0 {
		return []Contact{}, nil
	}

	contacts := []Contact{}
	err := r.db.SelectContext(ctx, &contacts, `
		SELECT `+contactColumns+`, TRUE AS unlocked
		FROM contacts c
		JOIN unlock_records u
		  ON u.resource_id = c.id AND u.resource_type = 'contact' AND u.user_id = $1
		WHERE c.id = ANY($2)
		ORDER BY c.id
	`, userID, pq.Array(ids))
	return contacts, err
}

func (r *repository) GetCompanyByID(ctx context.Context, userID int, id int64) (*Company, error) {
	co := &Company{}
	err := r.db.GetContext(ctx, co, `
		SELECT c.id, c.name, c.domain, c.industry, c.size, c.location, c.created_at,
		       EXISTS(
		           SELECT 1 FROM unlock_records u
		           WHERE u.user_id = $1 AND u.resource_id = c.id AND u.resource_type = 'company'
		       ) AS unlocked
		FROM companies c
		WHERE c.id = $2
	`, userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return co, nil
}

func (r *repository) CompanyExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM companies WHERE id = $1)`, id)
	return exists, err
}

func (r *repository) FilterExisting(ctx context.Context, resourceType string, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return []int64{}, nil
	}

	table := "contacts"
	if resourceType == "company" {
		table = "companies"
	}

	existing := []int64{}
	err := r.db.SelectContext(ctx, &existing,
		`SELECT id FROM `+table+` WHERE id = ANY($1) ORDER BY id`,
		pq.Array(ids))
	return existing, err
}

// buildContactFilter renders WHERE clauses for the optional search fields.
// firstArg is the first free positional parameter index.
func buildContactFilter(params SearchParams, firstArg int) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	arg := firstArg

	add := func(clause string, value interface{}) {
		clauses = append(clauses, fmt.Sprintf(clause, arg))
		args = append(args, value)
		arg++
	}

	if params.Query != "" {
		clauses = append(clauses, fmt.Sprintf("(c.full_name ILIKE $%d OR c.company ILIKE $%d)", arg, arg))
		args = append(args, "%"+params.Query+"%")
		arg++
	}
	if params.Company != "" {
		add("c.company ILIKE $%d", "%"+params.Company+"%")
	}
	if params.Title != "" {
		add("c.title ILIKE $%d", "%"+params.Title+"%")
	}
	if params.Location != "" {
		add("c.location ILIKE $%d", "%"+params.Location+"%")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(clauses, " AND "), args
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}
