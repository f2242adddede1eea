// Package identity resolves user identifiers across the two record systems:
// course-system ids are integers, engagement-system ids opaque strings. A
// user may legitimately exist in only one system.
package identity

import (
	"context"

	"github.com/trezcool/kipimo/core"
)

// ErrNotFound is what the account lookups report for a missing or unlinked
// mapping.
var ErrNotFound = core.ErrAccountNotFound

type (
	Repository interface {
		// GetAccountByInternalID returns ErrNotFound when no account links to
		// the given course-system id.
		GetAccountByInternalID(ctx context.Context, internalID int) (core.Account, error)
		GetAccountByExternalID(ctx context.Context, externalID string) (core.Account, error)
		QueryAccountsByExternalIDs(ctx context.Context, externalIDs []string) ([]core.Account, error)
	}

	Resolver struct {
		repo Repository
	}
)

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// ResolveExternalID maps a course-system id to its engagement-system id.
func (r *Resolver) ResolveExternalID(ctx context.Context, internalID int) (string, error) {
	acct, err := r.repo.GetAccountByInternalID(ctx, internalID)
	if err != nil {
		return "", err
	}
	return acct.ExternalID, nil
}

// ResolveInternalID maps an engagement-system id to its course-system id.
// An unlinked account resolves to ErrNotFound, same as a missing one.
func (r *Resolver) ResolveInternalID(ctx context.Context, externalID string) (int, error) {
	acct, err := r.repo.GetAccountByExternalID(ctx, core.CleanString(externalID))
	if err != nil {
		return 0, err
	}
	if acct.InternalID == 0 {
		return 0, ErrNotFound
	}
	return acct.InternalID, nil
}

// ResolveMany returns the accounts of the ids that resolved, keyed by
// external id. Unresolved ids are omitted: absence means "unknown", not zero.
func (r *Resolver) ResolveMany(ctx context.Context, externalIDs []string) (map[string]core.Account, error) {
	accts, err := r.repo.QueryAccountsByExternalIDs(ctx, externalIDs)
	if err != nil {
		return nil, err
	}
	m := make(map[string]core.Account, len(accts))
	for _, a := range accts {
		m[a.ExternalID] = a
	}
	return m, nil
}
