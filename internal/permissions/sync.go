package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/inkhub/internal/models"
)

// Sync persists the catalog to the backing database.
func Sync(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("permission: db is required")
	}
	ctx = ensureContext(ctx)

	perms := GetAll()
	if len(perms) == 0 {
		return nil
	}

	tx := db.WithContext(ctx)
	for _, perm := range perms {
		dependsJSON, err := json.Marshal(perm.DependsOn)
		if err != nil {
			return fmt.Errorf("permission: marshal depends_on for %s: %w", perm.ID, err)
		}
		impliesJSON, err := json.Marshal(perm.Implies)
		if err != nil {
			return fmt.Errorf("permission: marshal implies for %s: %w", perm.ID, err)
		}

		record := models.Permission{
			BaseModel:   models.BaseModel{ID: string(perm.ID)},
			Category:    perm.ID.Category(),
			Description: perm.Description,
			DependsOn:   string(dependsJSON),
			Implies:     string(impliesJSON),
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"category", "description", "depends_on", "implies"}),
		}).Create(&record).Error; err != nil {
			return fmt.Errorf("permission: sync %s: %w", perm.ID, err)
		}
	}

	return nil
}

// ValidateCatalog checks the persisted catalog against the compiled one. Every
// stored permission row and every role grant must name a catalog entry, and every
// catalog entry must be stored. All problems are reported together.
func ValidateCatalog(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("permission: db is required")
	}
	ctx = ensureContext(ctx)

	var stored []models.Permission
	if err := db.WithContext(ctx).Find(&stored).Error; err != nil {
		return fmt.Errorf("permission: load catalog: %w", err)
	}

	var errs error
	seen := make(map[ID]struct{}, len(stored))
	for _, perm := range stored {
		id := ID(perm.ID)
		seen[id] = struct{}{}
		if !Known(id) {
			errs = multierr.Append(errs, fmt.Errorf("%w %q stored in permissions table", ErrUnknownPermission, perm.ID))
		}
	}
	for _, id := range IDs() {
		if _, ok := seen[id]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("permission: %s is not synced", id))
		}
	}

	type grant struct {
		RoleID       string
		PermissionID string
	}
	var grants []grant
	if err := db.WithContext(ctx).
		Table("role_permissions").
		Select("role_id, permission_id").
		Scan(&grants).Error; err != nil {
		return multierr.Append(errs, fmt.Errorf("permission: load role grants: %w", err))
	}
	for _, g := range grants {
		if !Known(ID(g.PermissionID)) {
			errs = multierr.Append(errs, fmt.Errorf("%w %q granted to role %s", ErrUnknownPermission, g.PermissionID, g.RoleID))
		}
	}

	return errs
}
