package driven

import (
	"context"

	"github.com/northgate-labs/docsync/internal/core/domain"
)

// PermissionService reads permission grants and group memberships from
// the identity backend.
type PermissionService interface {
	// Permissions returns all grants on an item, direct and inherited.
	Permissions(ctx context.Context, ref domain.ItemRef) ([]domain.Grant, error)

	// UserGroups returns the group identifiers the user is a member of.
	UserGroups(ctx context.Context, userID string) ([]string, error)
}
