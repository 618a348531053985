package seed

import (
	"context"
	"testing"

	"marketplace-api/internal/domain"
	usersvc "marketplace-api/internal/service/user"
	"marketplace-api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	repos := s.Repos()
	users := usersvc.New(repos.Users, repos.Tokens, 0)

	require.NoError(t, Apply(ctx, users, repos.Users, repos.Products))
	require.NoError(t, Apply(ctx, users, repos.Users, repos.Products))

	seller, err := repos.Users.GetByLogin(ctx, "seller1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSeller, seller.Role)

	list, total, err := repos.Products.List(ctx, domain.ProductFilter{SellerID: seller.ID})
	require.NoError(t, err)
	assert.Equal(t, len(products), total)
	for _, p := range list {
		assert.True(t, p.IsActive)
		assert.Equal(t, domain.CategoryElectronics, p.Category)
	}

	session, err := users.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, session.User.Role)
}
