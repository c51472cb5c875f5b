package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/inkhub/internal/models"
	"github.com/charlesng35/inkhub/pkg/logger"
	"github.com/charlesng35/inkhub/pkg/metrics"
)

// Checker evaluates a user's role-global permissions. It knows nothing about
// individual content; group-scoped decisions live in the claim resolver.
type Checker struct {
	db *gorm.DB
}

// NewChecker constructs a permission checker backed by the provided database.
func NewChecker(db *gorm.DB) (*Checker, error) {
	if db == nil {
		return nil, errors.New("permission checker: db is required")
	}
	return &Checker{db: db}, nil
}

// HasPermission reports whether the user's role grants the permission, considering
// implications and dependencies. Users without a role, unknown users and unknown
// permissions all resolve to false.
func (c *Checker) HasPermission(ctx context.Context, userID string, permission ID) (bool, error) {
	return c.HasAnyPermission(ctx, userID, permission)
}

// HasAnyPermission reports whether at least one of the permissions is granted.
func (c *Checker) HasAnyPermission(ctx context.Context, userID string, perms ...ID) (bool, error) {
	ctx = ensureContext(ctx)

	if len(perms) == 0 {
		return false, nil
	}

	granted, err := c.effectivePermissions(ctx, userID)
	if err != nil {
		for _, perm := range perms {
			metrics.PermissionChecks.WithLabelValues(string(perm), "error").Inc()
		}
		return false, err
	}

	allowed := false
	for _, perm := range perms {
		if !Known(perm) {
			logger.WithModule("permissions").Warn("check for unknown permission", zap.String("permission", string(perm)))
			continue
		}
		if _, ok := granted[perm]; ok {
			allowed = true
			break
		}
	}

	result := "denied"
	if allowed {
		result = "allowed"
	}
	for _, perm := range perms {
		metrics.PermissionChecks.WithLabelValues(string(perm), result).Inc()
	}
	return allowed, nil
}

// GetUserPermissions returns the distinct effective permission IDs of the user.
func (c *Checker) GetUserPermissions(ctx context.Context, userID string) ([]ID, error) {
	ctx = ensureContext(ctx)

	granted, err := c.effectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]ID, 0, len(granted))
	for id := range granted {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids, nil
}

func (c *Checker) effectivePermissions(ctx context.Context, userID string) (map[ID]struct{}, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return map[ID]struct{}{}, nil
	}

	var user models.User
	err := c.db.WithContext(ctx).
		Preload("Role.Permissions").
		First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[ID]struct{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("permission checker: load user: %w", err)
	}

	if user.Role == nil {
		return map[ID]struct{}{}, nil
	}

	granted := make([]ID, 0, len(user.Role.Permissions))
	for _, perm := range user.Role.Permissions {
		id := ID(perm.ID)
		if !Known(id) {
			logger.WithModule("permissions").Warn("role grants unknown permission",
				zap.String("role_id", user.Role.ID),
				zap.String("permission", perm.ID),
			)
			continue
		}
		granted = append(granted, id)
	}

	expanded, err := expandImplied(granted)
	if err != nil {
		return nil, err
	}

	effective := make(map[ID]struct{}, len(expanded))
	for id := range expanded {
		deps, err := ResolveDependencies(id)
		if err != nil {
			return nil, err
		}
		satisfied := true
		for _, dep := range deps {
			if _, ok := expanded[dep]; !ok {
				satisfied = false
				break
			}
		}
		if satisfied {
			effective[id] = struct{}{}
		}
	}

	return effective, nil
}

func expandImplied(ids []ID) (map[ID]struct{}, error) {
	perms := make(map[ID]struct{})

	var visit func(ID) error
	visit = func(id ID) error {
		id = ID(strings.TrimSpace(string(id)))
		if id == "" {
			return nil
		}
		if _, exists := perms[id]; exists {
			return nil
		}

		def, ok := Get(id)
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownPermission, id)
		}

		perms[id] = struct{}{}
		for _, implied := range def.Implies {
			if err := visit(implied); err != nil {
				return err
			}
		}
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}

	return perms, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
