package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/inkhub/internal/models"
	"github.com/charlesng35/inkhub/internal/permissions"
	apperrors "github.com/charlesng35/inkhub/pkg/errors"
)

// CreateRoleInput describes the payload accepted by Create.
type CreateRoleInput struct {
	Name        string
	Description string
	Permissions []string
}

// UpdateRoleInput describes mutable fields on a role.
type UpdateRoleInput struct {
	Name        *string
	Description *string
}

// RoleService manages platform roles and their permission grants.
type RoleService struct {
	db       *gorm.DB
	activity *ActivityService
}

// NewRoleService constructs a RoleService using the provided database handle.
func NewRoleService(db *gorm.DB, activity *ActivityService) (*RoleService, error) {
	if db == nil {
		return nil, errors.New("role service: db is required")
	}
	if activity == nil {
		return nil, errors.New("role service: activity service is required")
	}
	return &RoleService{db: db, activity: activity}, nil
}

// List returns all roles with their grants ordered by creation date.
func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	var roles []models.Role
	if err := s.db.WithContext(ctx).Preload("Permissions").Order("created_at ASC").Order("id").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("role service: list roles: %w", err)
	}
	return roles, nil
}

// Get loads a role with its grants.
func (s *RoleService) Get(ctx context.Context, roleID string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	var role models.Role
	err := s.db.WithContext(ctx).Preload("Permissions").Take(&role, "id = ?", roleID).Error
	if isNotFound(err) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("role service: load role: %w", err)
	}
	return &role, nil
}

// Create registers a new non-system role with an optional initial grant set.
func (s *RoleService) Create(ctx context.Context, actorID string, input CreateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("role name is required")
	}
	grants, err := validateGrants(input.Permissions)
	if err != nil {
		return nil, err
	}

	role := &models.Role{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(role).Error; err != nil {
			return err
		}
		if err := replaceGrants(tx, role, grants); err != nil {
			return err
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "role.create",
			EntityType:  EntityRole,
			EntityID:    role.ID,
			Details:     map[string]any{"name": role.Name, "permissions": grants},
		})
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			recordConflict("role", err)
			return nil, ErrRoleNameTaken
		}
		return nil, fmt.Errorf("role service: create role: %w", err)
	}

	return s.Get(ctx, role.ID)
}

// Update renames or re-describes a role. System roles keep their name.
func (s *RoleService) Update(ctx context.Context, actorID, roleID string, input UpdateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	role, err := s.Get(ctx, roleID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("role name cannot be empty")
		}
		if name != role.Name {
			if role.IsSystem {
				return nil, ErrSystemRoleImmutable
			}
			updates["name"] = name
		}
	}
	if input.Description != nil {
		if desc := strings.TrimSpace(*input.Description); desc != role.Description {
			updates["description"] = desc
		}
	}
	if len(updates) == 0 {
		return role, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Role{BaseModel: models.BaseModel{ID: role.ID}}).Updates(updates).Error; err != nil {
			return err
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "role.update",
			EntityType:  EntityRole,
			EntityID:    role.ID,
			Details:     map[string]any{"fields": updatedFields(updates)},
		})
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			recordConflict("role", err)
			return nil, ErrRoleNameTaken
		}
		return nil, fmt.Errorf("role service: update role: %w", err)
	}

	return s.Get(ctx, role.ID)
}

// Delete removes a non-system role. Users holding it are left without a role.
func (s *RoleService) Delete(ctx context.Context, actorID, roleID string) error {
	ctx = ensureContext(ctx)

	role, err := s.Get(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRoleImmutable
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("role_id = ?", role.ID).Update("role_id", nil).Error; err != nil {
			return fmt.Errorf("role service: detach users: %w", err)
		}
		if err := tx.Model(role).Association("Permissions").Clear(); err != nil {
			return fmt.Errorf("role service: clear role permissions: %w", err)
		}
		if err := tx.Delete(&models.Role{}, "id = ?", role.ID).Error; err != nil {
			return fmt.Errorf("role service: delete role: %w", err)
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "role.delete",
			EntityType:  EntityRole,
			EntityID:    role.ID,
			Details:     map[string]any{"name": role.Name},
		})
	})
}

// SetPermissions replaces the role's grants. Every id must be in the catalog and
// every dependency of a grant must be granted too.
func (s *RoleService) SetPermissions(ctx context.Context, actorID, roleID string, permissionIDs []string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	grants, err := validateGrants(permissionIDs)
	if err != nil {
		return nil, err
	}
	role, err := s.Get(ctx, roleID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := replaceGrants(tx, role, grants); err != nil {
			return err
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "role.set_permissions",
			EntityType:  EntityRole,
			EntityID:    role.ID,
			Details:     map[string]any{"permissions": grants},
		})
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, role.ID)
}

// AssignUserRole sets the user's role; an empty roleID removes it.
func (s *RoleService) AssignUserRole(ctx context.Context, actorID, userID, roleID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	roleID = strings.TrimSpace(roleID)
	if roleID != "" {
		if _, err := s.Get(ctx, roleID); err != nil {
			return nil, err
		}
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Take(&user, "id = ?", userID).Error
		if isNotFound(err) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("role service: load user: %w", err)
		}

		var previous string
		if user.RoleID != nil {
			previous = *user.RoleID
		}
		var next any
		if roleID != "" {
			next = roleID
		}
		if err := tx.Model(&user).Update("role_id", next).Error; err != nil {
			return fmt.Errorf("role service: assign role: %w", err)
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "user.assign_role",
			EntityType:  EntityUser,
			EntityID:    user.ID,
			Details:     map[string]any{"previous": previous, "role_id": roleID},
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Preload("Role").Take(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("role service: reload user: %w", err)
	}
	return &user, nil
}

// validateGrants parses ids against the catalog and rejects sets with unmet dependencies.
func validateGrants(values []string) ([]string, error) {
	values = normaliseIDs(values)

	ids := make([]permissions.ID, 0, len(values))
	for _, value := range values {
		id, err := permissions.Parse(value)
		if err != nil {
			return nil, apperrors.NewBadRequest(err.Error())
		}
		ids = append(ids, id)
	}

	missing, err := permissions.MissingDependencies(ids)
	if err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}
	if len(missing) > 0 {
		problems := make([]string, 0, len(missing))
		for id, deps := range missing {
			names := make([]string, 0, len(deps))
			for _, dep := range deps {
				names = append(names, dep.String())
			}
			problems = append(problems, fmt.Sprintf("%s requires %s", id, strings.Join(names, ", ")))
		}
		sort.Strings(problems)
		return nil, apperrors.NewBadRequest("missing permission dependencies: " + strings.Join(problems, "; "))
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out, nil
}

func replaceGrants(tx *gorm.DB, role *models.Role, ids []string) error {
	target := &models.Role{BaseModel: models.BaseModel{ID: role.ID}}
	if len(ids) == 0 {
		if err := tx.Model(target).Association("Permissions").Clear(); err != nil {
			return fmt.Errorf("role service: clear permissions: %w", err)
		}
		return nil
	}

	var perms []models.Permission
	if err := tx.Where("id IN ?", ids).Find(&perms).Error; err != nil {
		return fmt.Errorf("role service: load permissions: %w", err)
	}
	if len(perms) != len(ids) {
		return errors.New("role service: permission catalog is not synced")
	}
	if err := tx.Model(target).Association("Permissions").Replace(perms); err != nil {
		return fmt.Errorf("role service: update permissions: %w", err)
	}
	return nil
}
