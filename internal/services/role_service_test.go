package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/inkhub/internal/models"
	"github.com/charlesng35/inkhub/internal/permissions"
	apperrors "github.com/charlesng35/inkhub/pkg/errors"
)

func TestRoleCreateValidatesGrants(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin", "admin")

	_, err := f.roles.Create(ctx, admin.ID, CreateRoleInput{Name: "Editors", Permissions: []string{"webtoons.delete"}})
	require.True(t, apperrors.IsStatus(err, http.StatusBadRequest))
	require.Contains(t, err.Error(), "webtoons.delete requires webtoons.edit")

	_, err = f.roles.Create(ctx, admin.ID, CreateRoleInput{Name: "Editors", Permissions: []string{"vault.share"}})
	require.True(t, apperrors.IsStatus(err, http.StatusBadRequest))

	role, err := f.roles.Create(ctx, admin.ID, CreateRoleInput{
		Name:        "Editors",
		Permissions: []string{"webtoons.delete", "webtoons.edit", "webtoons.edit"},
	})
	require.NoError(t, err)
	require.False(t, role.IsSystem)
	require.Len(t, role.Permissions, 2)

	_, err = f.roles.Create(ctx, admin.ID, CreateRoleInput{Name: "Editors"})
	require.ErrorIs(t, err, ErrRoleNameTaken)

	// an implied grant satisfies a dependency
	_, err = f.roles.Create(ctx, admin.ID, CreateRoleInput{Name: "Managers", Permissions: []string{"content.manage_all", "webtoons.delete"}})
	require.NoError(t, err)

	roles, err := f.roles.List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 5)
}

func TestSystemRolesKeepIdentity(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin", "admin")

	name := "Superuser"
	_, err := f.roles.Update(ctx, admin.ID, "admin", UpdateRoleInput{Name: &name})
	require.ErrorIs(t, err, ErrSystemRoleImmutable)
	require.ErrorIs(t, f.roles.Delete(ctx, admin.ID, "moderator"), ErrSystemRoleImmutable)

	desc := "Everyone signed in"
	role, err := f.roles.Update(ctx, admin.ID, "user", UpdateRoleInput{Description: &desc})
	require.NoError(t, err)
	require.Equal(t, desc, role.Description)

	role, err = f.roles.SetPermissions(ctx, admin.ID, "user", []string{"activity.view"})
	require.NoError(t, err)
	require.Len(t, role.Permissions, 1)

	reader := f.user(t, "reader", "user")
	ok, err := f.checker.HasPermission(ctx, reader.ID, permissions.ActivityView)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.roles.SetPermissions(ctx, admin.ID, "user", []string{"roles.manage"})
	require.True(t, apperrors.IsStatus(err, http.StatusBadRequest))

	role, err = f.roles.SetPermissions(ctx, admin.ID, "user", nil)
	require.NoError(t, err)
	require.Empty(t, role.Permissions)

	_, err = f.roles.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrRoleNotFound)
}

func TestAssignUserRoleAndDeleteRole(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin", "admin")
	target := f.user(t, "target", "user")

	role, err := f.roles.Create(ctx, admin.ID, CreateRoleInput{Name: "Novel Editors", Permissions: []string{"novels.edit"}})
	require.NoError(t, err)

	_, err = f.roles.AssignUserRole(ctx, admin.ID, target.ID, "missing")
	require.ErrorIs(t, err, ErrRoleNotFound)
	_, err = f.roles.AssignUserRole(ctx, admin.ID, "missing", role.ID)
	require.ErrorIs(t, err, ErrUserNotFound)

	user, err := f.roles.AssignUserRole(ctx, admin.ID, target.ID, role.ID)
	require.NoError(t, err)
	require.NotNil(t, user.Role)
	require.Equal(t, "Novel Editors", user.Role.Name)

	ok, err := f.checker.HasPermission(ctx, target.ID, permissions.NovelsEdit)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, f.roles.Delete(ctx, admin.ID, role.ID))

	var reloaded models.User
	require.NoError(t, f.db.Take(&reloaded, "id = ?", target.ID).Error)
	require.Nil(t, reloaded.RoleID)
	require.EqualValues(t, 0, f.count(t, &models.Role{}, "id = ?", role.ID))

	user, err = f.roles.AssignUserRole(ctx, admin.ID, target.ID, "moderator")
	require.NoError(t, err)
	require.Equal(t, "moderator", *user.RoleID)

	user, err = f.roles.AssignUserRole(ctx, admin.ID, target.ID, "")
	require.NoError(t, err)
	require.Nil(t, user.RoleID)
	require.Nil(t, user.Role)

	require.EqualValues(t, 3, f.count(t, &models.ActivityLog{}, "entity_type = ? AND entity_id = ?", EntityUser, target.ID))
}
