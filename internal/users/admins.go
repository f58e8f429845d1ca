package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// AdminResolver answers "who are the administrators right now".
type AdminResolver interface {
	ResolveAdmins(ctx context.Context) ([]uuid.UUID, error)
}

type adminLister interface {
	ListIDsByRole(ctx context.Context, role enums.UserRole) ([]uuid.UUID, error)
}

type adminResolver struct {
	repo adminLister
}

// NewAdminResolver resolves admins from the users table on every call.
func NewAdminResolver(repo adminLister) (AdminResolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &adminResolver{repo: repo}, nil
}

func (r *adminResolver) ResolveAdmins(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := r.repo.ListIDsByRole(ctx, enums.UserRoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return ids, nil
}

// StaticAdmins is a fixed admin list, handy for tools and tests.
type StaticAdmins []uuid.UUID

func (s StaticAdmins) ResolveAdmins(context.Context) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(s))
	copy(out, s)
	return out, nil
}
