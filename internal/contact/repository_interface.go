package contact

import "context"

type Repository interface {
	GetContactByID(ctx context.Context, userID int, id int64) (*Contact, error)
	ContactExists(ctx context.Context, id int64) (bool, error)
	SearchContacts(ctx context.Context, userID int, params SearchParams) ([]Contact, error)

	// ListUnlockedContacts returns every contact the user has paid for,
	// ordered by id. Feeds the "all" recipient mode.
	ListUnlockedContacts(ctx context.Context, userID int) ([]Contact, error)

	// SearchUnlockedContacts applies SearchParams over the unlocked set only.
	// Feeds the "filtered" recipient mode.
	SearchUnlockedContacts(ctx context.Context, userID int, params SearchParams) ([]Contact, error)

	// SelectUnlockedByIDs returns the subset of ids that exist and are
	// unlocked for the user, in id order. Feeds the "selected" mode.
	SelectUnlockedByIDs(ctx context.Context, userID int, ids []int64) ([]Contact, error)

	GetCompanyByID(ctx context.Context, userID int, id int64) (*Company, error)
	CompanyExists(ctx context.Context, id int64) (bool, error)

	// FilterExisting returns the subset of ids present in the contacts or
	// companies table, depending on resourceType.
	FilterExisting(ctx context.Context, resourceType string, ids []int64) ([]int64, error)
}
