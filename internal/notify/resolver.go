package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskward/internal/store"
)

// userStoreResolver resolves contact addresses from the mirrored identity
// records in the user store.
type userStoreResolver struct {
	users store.UserStore
}

// NewUserStoreResolver returns a ContactResolver backed by the user store.
func NewUserStoreResolver(users store.UserStore) ContactResolver {
	return &userStoreResolver{users: users}
}

func (r *userStoreResolver) ResolveContact(ctx context.Context, ownerID uuid.UUID) (string, error) {
	user, err := r.users.GetByID(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}
