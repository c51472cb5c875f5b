package monitoring

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/charlesng35/inkhub/internal/permissions"
)

// DatabaseCheck pings the database handle.
func DatabaseCheck(db *gorm.DB) Check {
	return Check{
		Name: "database",
		Run: func(ctx context.Context) error {
			if db == nil {
				return errors.New("database not configured")
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

// CatalogCheck verifies that the stored permission catalog and role grants
// still match the compiled catalog.
func CatalogCheck(db *gorm.DB) Check {
	return Check{
		Name: "permission_catalog",
		Run: func(ctx context.Context) error {
			return permissions.ValidateCatalog(ctx, db)
		},
	}
}
