package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/charlesng35/inkhub/internal/models"
	"github.com/charlesng35/inkhub/internal/permissions"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestAutoMigrateAndSeedData(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrateAndSeed(db))

	var permissionCount int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&permissionCount).Error)
	require.EqualValues(t, len(permissions.IDs()), permissionCount)

	var admin models.Role
	require.NoError(t, db.Preload("Permissions").First(&admin, "id = ?", "admin").Error)
	require.True(t, admin.IsSystem)
	granted := make([]string, 0, len(admin.Permissions))
	for _, perm := range admin.Permissions {
		granted = append(granted, perm.ID)
	}
	require.Contains(t, granted, string(permissions.ContentManageAll))
	require.Contains(t, granted, string(permissions.RolesManage))

	var user models.Role
	require.NoError(t, db.Preload("Permissions").First(&user, "id = ?", "user").Error)
	require.Empty(t, user.Permissions)

	// second run is a no-op
	require.NoError(t, AutoMigrateAndSeed(db))
	var roleCount int64
	require.NoError(t, db.Model(&models.Role{}).Count(&roleCount).Error)
	require.EqualValues(t, 3, roleCount)
}

func TestSeedRejectsUnknownPermission(t *testing.T) {
	_, err := loadRoleSeed([]byte(`
roles:
  - id: editor
    name: Editor
    permissions: [webtoons.publish]
`))
	require.ErrorIs(t, err, permissions.ErrUnknownPermission)

	_, err = loadRoleSeed([]byte(`
roles:
  - id: ""
    name: Nameless
`))
	require.Error(t, err)
}

func TestSeedFailsWhenCatalogHasStrayRows(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))
	require.NoError(t, db.Create(&models.Permission{
		BaseModel: models.BaseModel{ID: "vault.share"},
		Category:  "vault",
	}).Error)

	err := SeedData(db)
	require.ErrorIs(t, err, permissions.ErrUnknownPermission)
}

func TestSQLiteUniqueViolationIsTranslated(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	first := &models.ScanlationGroup{Name: "Moonlit", Slug: "moonlit"}
	require.NoError(t, db.Create(first).Error)

	err := db.Create(&models.ScanlationGroup{Name: "Moonlit again", Slug: "moonlit"}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestPostgresUniqueViolationIsTranslated(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig())
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO work_group_claims").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_work_group_claims_work_group"})

	err = db.WithContext(context.Background()).
		Exec("INSERT INTO work_group_claims (id, work_id, group_id) VALUES (?, ?, ?)", "c1", "w1", "g1").Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUniqueViolationIsTranslated(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), gormConfig())
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO chapters").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err = db.Exec("INSERT INTO chapters (id) VALUES (?)", "ch1").Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{
		Driver: "sqlite",
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString()),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
