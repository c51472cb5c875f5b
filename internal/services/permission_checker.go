package services

import (
	"context"

	"github.com/charlesng35/inkhub/internal/permissions"
)

// PermissionChecker abstracts role-global permission evaluation for services.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID string, permission permissions.ID) (bool, error)
	HasAnyPermission(ctx context.Context, userID string, perms ...permissions.ID) (bool, error)
}
