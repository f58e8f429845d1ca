package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestAdminResolverReturnsOnlyAdmins(t *testing.T) {
	conn := dbtest.Open(t)
	admin1 := dbtest.MustCreateUser(t, conn, "root", enums.UserRoleAdmin)
	admin2 := dbtest.MustCreateUser(t, conn, "ops", enums.UserRoleAdmin)
	dbtest.MustCreateUser(t, conn, "buyer", enums.UserRoleCustomer)

	resolver, err := NewAdminResolver(NewRepository(conn))
	require.NoError(t, err)

	ids, err := resolver.ResolveAdmins(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{admin1.ID, admin2.ID}, ids)
}

func TestFindByIDs(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	user := dbtest.MustCreateUser(t, conn, "buyer", enums.UserRoleCustomer)

	found, err := repo.FindByIDs(context.Background(), []uuid.UUID{user.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "buyer", found[user.ID].Name)

	empty, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStaticAdmins(t *testing.T) {
	id := uuid.New()
	ids, err := StaticAdmins{id}.ResolveAdmins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, ids)
}

func TestNewAdminResolverRequiresRepo(t *testing.T) {
	_, err := NewAdminResolver(nil)
	assert.Error(t, err)
}
