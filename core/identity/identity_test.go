package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/kipimo/core"
	dummydb "github.com/trezcool/kipimo/storage/database/dummy"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatal(err)
	}
	db.AddAccount(core.Account{
		ExternalID: "stu-1", InternalID: 7, Username: "amina", Role: "student",
		CreatedAt: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	db.AddAccount(core.Account{ExternalID: "inv-1", Username: "wanjiru", Role: "investor"})
	return NewResolver(dummydb.NewEngagementRepository(db))
}

func TestResolver_ResolveExternalID(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	extID, err := r.ResolveExternalID(ctx, 7)
	assert.NoError(t, err)
	assert.Equal(t, "stu-1", extID)

	_, err = r.ResolveExternalID(ctx, 999)
	assert.Equal(t, ErrNotFound, err)
}

func TestResolver_ResolveInternalID(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	id, err := r.ResolveInternalID(ctx, "stu-1")
	assert.NoError(t, err)
	assert.Equal(t, 7, id)

	// surrounding whitespace is tolerated
	id, err = r.ResolveInternalID(ctx, "  stu-1  ")
	assert.NoError(t, err)
	assert.Equal(t, 7, id)

	// community-only accounts have no course-system id
	_, err = r.ResolveInternalID(ctx, "inv-1")
	assert.Equal(t, ErrNotFound, err)

	_, err = r.ResolveInternalID(ctx, "nobody")
	assert.Equal(t, ErrNotFound, err)
}

func TestResolver_ResolveMany(t *testing.T) {
	r := newResolver(t)

	accounts, err := r.ResolveMany(context.Background(), []string{"stu-1", "inv-1", "nobody"})
	assert.NoError(t, err)
	assert.Len(t, accounts, 2)
	assert.Equal(t, 7, accounts["stu-1"].InternalID)
	assert.Equal(t, "wanjiru", accounts["inv-1"].Username)
	_, ok := accounts["nobody"]
	assert.False(t, ok)
}
