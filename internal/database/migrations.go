package database

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/charlesng35/inkhub/internal/models"
	"github.com/charlesng35/inkhub/internal/permissions"
)

//go:embed seed/roles.yaml
var rolesSeed []byte

type roleSeed struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
}

type seedFile struct {
	Roles []roleSeed `yaml:"roles"`
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Permission{},
		&models.Role{},
		&models.User{},
		&models.ScanlationGroup{},
		&models.GroupMember{},
		&models.GroupInvite{},
		&models.Author{},
		&models.Work{},
		&models.WorkGroupClaim{},
		&models.Chapter{},
		&models.ActivityLog{},
	)
}

// SeedData syncs the permission catalog and the system roles, then verifies the
// stored catalog. It is safe to run on every start.
func SeedData(db *gorm.DB) error {
	ctx := context.Background()

	if err := permissions.Sync(ctx, db); err != nil {
		return err
	}

	roles, err := loadRoleSeed(rolesSeed)
	if err != nil {
		return err
	}

	for _, seed := range roles {
		role := models.Role{
			BaseModel:   models.BaseModel{ID: seed.ID},
			Name:        seed.Name,
			Description: seed.Description,
			IsSystem:    true,
		}
		if err := db.Where(models.Role{BaseModel: models.BaseModel{ID: role.ID}}).Attrs(role).FirstOrCreate(&models.Role{}).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", seed.ID, err)
		}
		if err := assignRolePermissions(db, seed.ID, seed.Permissions); err != nil {
			return fmt.Errorf("seed role %s permissions: %w", seed.ID, err)
		}
	}

	return permissions.ValidateCatalog(ctx, db)
}

// loadRoleSeed decodes the role seed. Every permission name must be part of the catalog.
func loadRoleSeed(raw []byte) ([]roleSeed, error) {
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode role seed: %w", err)
	}

	for i := range file.Roles {
		role := &file.Roles[i]
		role.ID = strings.TrimSpace(role.ID)
		if role.ID == "" || strings.TrimSpace(role.Name) == "" {
			return nil, fmt.Errorf("role seed %d: id and name are required", i)
		}
		for j, name := range role.Permissions {
			id, err := permissions.Parse(name)
			if err != nil {
				return nil, fmt.Errorf("role seed %s: %w", role.ID, err)
			}
			role.Permissions[j] = id.String()
		}
	}

	return file.Roles, nil
}

func assignRolePermissions(db *gorm.DB, roleID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}

	var role models.Role
	if err := db.Where("id = ?", roleID).First(&role).Error; err != nil {
		return err
	}

	var perms []models.Permission
	if err := db.Where("id IN ?", permissionIDs).Find(&perms).Error; err != nil {
		return err
	}
	if len(perms) != len(permissionIDs) {
		return fmt.Errorf("role %s references permissions missing from the catalog table", roleID)
	}

	var existing []models.Permission
	if err := db.Model(&role).Association("Permissions").Find(&existing); err != nil {
		return err
	}
	current := make(map[string]struct{}, len(existing))
	for _, perm := range existing {
		current[perm.ID] = struct{}{}
	}

	toAttach := make([]models.Permission, 0, len(perms))
	for _, perm := range perms {
		if _, ok := current[perm.ID]; !ok {
			toAttach = append(toAttach, perm)
		}
	}
	if len(toAttach) == 0 {
		return nil
	}

	return db.Model(&role).Association("Permissions").Append(toAttach)
}
