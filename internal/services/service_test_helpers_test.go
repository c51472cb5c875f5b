package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/inkhub/internal/database/testutil"
	"github.com/charlesng35/inkhub/internal/models"
	"github.com/charlesng35/inkhub/internal/permissions"
	"github.com/charlesng35/inkhub/internal/slug"
)

type stubPermissionChecker struct {
	grants map[permissions.ID]bool
	err    error
}

func (m *stubPermissionChecker) HasPermission(_ context.Context, _ string, permission permissions.ID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.grants[permission], nil
}

func (m *stubPermissionChecker) HasAnyPermission(ctx context.Context, userID string, perms ...permissions.ID) (bool, error) {
	for _, perm := range perms {
		ok, err := m.HasPermission(ctx, userID, perm)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// serviceFixture wires every service against a seeded in-memory database.
type serviceFixture struct {
	db         *gorm.DB
	checker    *permissions.Checker
	activity   *ActivityService
	membership *MembershipService
	claims     *ClaimService
	chapters   *ChapterService
	works      *WorkService
	authors    *AuthorService
	groups     *GroupService
	roles      *RoleService
	users      *UserService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	return newServiceFixtureWithChecker(t, db, nil)
}

func newServiceFixtureWithChecker(t *testing.T, db *gorm.DB, override PermissionChecker) *serviceFixture {
	t.Helper()

	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)
	var active PermissionChecker = checker
	if override != nil {
		active = override
	}

	f := &serviceFixture{db: db, checker: checker}
	slugs := slug.NewAllocator(slug.DefaultConfig())

	f.activity, err = NewActivityService(db)
	require.NoError(t, err)
	f.membership, err = NewMembershipService(db)
	require.NoError(t, err)
	f.claims, err = NewClaimService(db, active, f.activity)
	require.NoError(t, err)
	f.chapters, err = NewChapterService(db, f.claims, f.activity)
	require.NoError(t, err)
	f.works, err = NewWorkService(db, active, f.claims, f.activity, slugs)
	require.NoError(t, err)
	f.authors, err = NewAuthorService(db, active, f.activity, slugs)
	require.NoError(t, err)
	f.groups, err = NewGroupService(db, active, f.activity, slugs)
	require.NoError(t, err)
	f.roles, err = NewRoleService(db, f.activity)
	require.NoError(t, err)
	f.users, err = NewUserService(db, f.activity)
	require.NoError(t, err)
	return f
}

// user creates a user holding the seeded role ("admin", "moderator", "user") or none.
func (f *serviceFixture) user(t *testing.T, name, roleID string) *models.User {
	t.Helper()

	user := &models.User{Username: name + "-" + uuid.NewString()[:6]}
	if roleID != "" {
		user.RoleID = &roleID
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

// group creates a group led by leader through the service.
func (f *serviceFixture) group(t *testing.T, leader *models.User, name string) *models.ScanlationGroup {
	t.Helper()

	group, err := f.groups.Create(context.Background(), leader.ID, CreateGroupInput{Name: name})
	require.NoError(t, err)
	return group
}

func (f *serviceFixture) join(t *testing.T, group *models.ScanlationGroup, user *models.User, role models.GroupRole) {
	t.Helper()

	require.NoError(t, f.db.Create(&models.GroupMember{UserID: user.ID, GroupID: group.ID, Role: role}).Error)
}

// work inserts a work row directly, claimed by the given groups.
func (f *serviceFixture) work(t *testing.T, title string, claimedBy ...*models.ScanlationGroup) *models.Work {
	t.Helper()

	work := &models.Work{
		Kind:   models.WorkKindWebtoon,
		Title:  title,
		Slug:   slug.Slugify(title, 200) + "-" + uuid.NewString()[:6],
		Status: models.WorkStatusOngoing,
	}
	require.NoError(t, f.db.Create(work).Error)
	for _, group := range claimedBy {
		require.NoError(t, f.db.Create(&models.WorkGroupClaim{WorkID: work.ID, GroupID: group.ID}).Error)
	}
	return work
}

func (f *serviceFixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}
