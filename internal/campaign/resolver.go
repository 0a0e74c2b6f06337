package campaign

import (
	"context"
	"fmt"
	"strings"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/contact"
)

// Resolver computes a campaign's recipient set from the owner's unlocked
// contacts. It is invoked twice in a campaign's life: once for a non-binding
// preview and once, authoritatively, inside Send.
type Resolver struct {
	contacts contact.Repository
	price    int64
}

func NewResolver(contacts contact.Repository, pricePerRecipient int64) *Resolver {
	return &Resolver{contacts: contacts, price: pricePerRecipient}
}

func (r *Resolver) Resolve(ctx context.Context, userID int, mode ResolveMode, filter FilterSpec, selected []int64) (*Resolution, error) {
	var (
		matches []contact.Contact
		err     error
	)

	switch mode {
	case ModeAll:
		matches, err = r.contacts.ListUnlockedContacts(ctx, userID)
	case ModeFiltered:
		matches, err = r.contacts.SearchUnlockedContacts(ctx, userID, contact.SearchParams{
			Query:    filter.Query,
			Company:  filter.Company,
			Title:    filter.Title,
			Location: filter.Location,
		})
	case ModeSelected:
		// Ids that are missing or still locked are silently dropped; the
		// caller pays only for what actually resolves.
		matches, err = r.contacts.SelectUnlockedByIDs(ctx, userID, selected)
	default:
		return nil, fmt.Errorf("unknown recipient mode %q", mode)
	}
	if err != nil {
		return nil, err
	}

	recipients := dedupeByEmail(matches)
	return &Resolution{
		Recipients: recipients,
		Cost:       r.price * int64(len(recipients)),
	}, nil
}

// dedupeByEmail keeps the first contact for each distinct address, compared
// case-insensitively, so a person unlocked twice is charged and mailed once.
func dedupeByEmail(matches []contact.Contact) []Recipient {
	recipients := []Recipient{}
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		email := strings.ToLower(strings.TrimSpace(m.Email))
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		recipients = append(recipients, Recipient{
			ContactID: m.ID,
			Email:     email,
			Name:      m.FullName,
		})
	}
	return recipients
}
