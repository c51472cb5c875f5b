package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/charlesng35/inkhub/internal/models"
	"github.com/charlesng35/inkhub/internal/permissions"
	apperrors "github.com/charlesng35/inkhub/pkg/errors"
)

func TestResolveOverrideAllowsRegardlessOfClaims(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	leader := f.user(t, "leader", "user")
	g1 := f.group(t, leader, "Claiming Group")
	claimed := f.work(t, "Claimed Work", g1)
	unclaimed := f.work(t, "Unclaimed Work")

	for _, roleID := range []string{"admin", "moderator"} {
		actor := f.user(t, roleID, roleID)
		for _, work := range []*models.Work{claimed, unclaimed} {
			for _, action := range []ClaimAction{ActionEdit, ActionDelete, ActionCreateChapter, ActionEditChapter, ActionDeleteChapter} {
				decision, err := f.claims.ResolveClaimAuthorization(ctx, actor.ID, work.ID, action)
				require.NoError(t, err)
				require.True(t, decision.Allowed, "%s should be allowed to %s", roleID, action)
				require.True(t, decision.ViaOverride)
			}
		}
	}
}

func TestResolveOverrideIsScopedToKind(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	role, err := f.roles.Create(ctx, "system", CreateRoleInput{Name: "novel-editor", Permissions: []string{"novels.edit"}})
	require.NoError(t, err)
	editor := f.user(t, "editor", role.ID)

	leader := f.user(t, "leader", "user")
	g1 := f.group(t, leader, "Group One")
	webtoon := f.work(t, "A Webtoon", g1)
	novel := f.work(t, "A Novel", g1)
	require.NoError(t, f.db.Model(novel).Update("kind", models.WorkKindNovel).Error)

	decision, err := f.claims.ResolveClaimAuthorization(ctx, editor.ID, novel.ID, ActionEdit)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.True(t, decision.ViaOverride)

	decision, err = f.claims.ResolveClaimAuthorization(ctx, editor.ID, webtoon.ID, ActionEdit)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
}

func TestResolveUnclaimedWork(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	member := f.user(t, "member", "user")
	f.group(t, member, "Any Group")
	loner := f.user(t, "loner", "user")
	work := f.work(t, "Open Work")

	decision, err := f.claims.ResolveClaimAuthorization(ctx, member.ID, work.ID, ActionEdit)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.True(t, decision.Unclaimed)
	require.False(t, decision.ViaOverride)

	decision, err = f.claims.ResolveClaimAuthorization(ctx, loner.ID, work.ID, ActionEdit)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.False(t, decision.Unclaimed)
	require.Equal(t, ReasonNoGroup, decision.Reason)
	require.True(t, apperrors.IsStatus(decision.Err(), http.StatusForbidden))
}

func TestResolveClaimedWorkRequiresClaimingMembership(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	g1 := f.group(t, f.user(t, "lead1", "user"), "Group One")
	g2 := f.group(t, f.user(t, "lead2", "user"), "Group Two")
	g3 := f.group(t, f.user(t, "lead3", "user"), "Group Three")
	work := f.work(t, "Shared Work", g1, g2)

	inG2 := f.user(t, "g2-member", "user")
	f.join(t, g2, inG2, models.GroupRoleMember)
	inG3 := f.user(t, "g3-member", "user")
	f.join(t, g3, inG3, models.GroupRoleMember)

	decision, err := f.claims.ResolveClaimAuthorization(ctx, inG2.ID, work.ID, ActionCreateChapter)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.False(t, decision.Unclaimed)

	decision, err = f.claims.ResolveClaimAuthorization(ctx, inG3.ID, work.ID, ActionCreateChapter)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonNotManaging, decision.Reason)
	require.NotContains(t, decision.Reason, g1.Name)
}

func TestResolveMissingWorkHidesExistence(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	moderator := f.user(t, "mod", "moderator")
	member := f.user(t, "member", "user")
	f.group(t, member, "Some Group")
	outsider := f.user(t, "outsider", "user")

	_, err := f.claims.ResolveClaimAuthorization(ctx, moderator.ID, "missing", ActionEdit)
	require.ErrorIs(t, err, ErrWorkNotFound)

	_, err = f.claims.ResolveClaimAuthorization(ctx, member.ID, "missing", ActionEdit)
	require.ErrorIs(t, err, ErrWorkNotFound)

	decision, err := f.claims.ResolveClaimAuthorization(ctx, outsider.ID, "missing", ActionEdit)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonNoGroup, decision.Reason)

	claimed := f.work(t, "Claimed Work", f.group(t, f.user(t, "lead", "user"), "Claimers"))
	unclaimed := f.work(t, "Open Work")
	for _, work := range []*models.Work{claimed, unclaimed} {
		for _, action := range []ClaimAction{ActionEdit, ActionDelete, ActionCreateChapter} {
			missing, err := f.claims.ResolveClaimAuthorization(ctx, outsider.ID, "missing", action)
			require.NoError(t, err)
			existing, err := f.claims.ResolveClaimAuthorization(ctx, outsider.ID, work.ID, action)
			require.NoError(t, err)
			require.Equal(t, missing, existing, "%s on %s", action, work.Title)
		}
	}
}

func TestClaimChangesHideExistenceFromGrouplessActors(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	leader := f.user(t, "leader", "user")
	g1 := f.group(t, leader, "Group One")
	work := f.work(t, "Known Work", g1)
	outsider := f.user(t, "outsider", "user")

	_, missingErr := f.claims.ClaimWork(ctx, outsider.ID, "missing", g1.ID)
	require.True(t, apperrors.IsStatus(missingErr, http.StatusForbidden))
	_, existingErr := f.claims.ClaimWork(ctx, outsider.ID, work.ID, g1.ID)
	require.True(t, apperrors.IsStatus(existingErr, http.StatusForbidden))
	require.Equal(t, missingErr.Error(), existingErr.Error())

	missingErr = f.claims.ReleaseClaim(ctx, outsider.ID, "missing", g1.ID)
	existingErr = f.claims.ReleaseClaim(ctx, outsider.ID, work.ID, g1.ID)
	require.True(t, apperrors.IsStatus(existingErr, http.StatusForbidden))
	require.Equal(t, missingErr.Error(), existingErr.Error())

	// Members of some group still learn that the work is missing.
	_, err := f.claims.ClaimWork(ctx, leader.ID, "missing", g1.ID)
	require.ErrorIs(t, err, ErrWorkNotFound)
	require.EqualValues(t, 1, f.count(t, &models.WorkGroupClaim{}, "work_id = ?", work.ID))
}

func TestResolvePropagatesCheckerErrors(t *testing.T) {
	f := newServiceFixture(t)
	boom := errors.New("checker offline")
	broken := newServiceFixtureWithChecker(t, f.db, &stubPermissionChecker{err: boom})

	work := f.work(t, "Any Work")
	_, err := broken.claims.ResolveClaimAuthorization(context.Background(), "someone", work.ID, ActionEdit)
	require.ErrorIs(t, err, boom)
}

func TestClaimWorkIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	leader := f.user(t, "leader", "user")
	g1 := f.group(t, leader, "Group One")
	work := f.work(t, "Idempotent Work")

	first, err := f.claims.ClaimWork(ctx, leader.ID, work.ID, g1.ID)
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := f.claims.ClaimWork(ctx, leader.ID, work.ID, g1.ID)
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.Claim.ID, second.Claim.ID)

	require.EqualValues(t, 1, f.count(t, &models.WorkGroupClaim{}, "work_id = ? AND group_id = ?", work.ID, g1.ID))
	require.EqualValues(t, 1, f.count(t, &models.ActivityLog{}, "action = ? AND entity_id = ?", "work.claim", work.ID))
}

func TestClaimWorkConcurrentCallsBothSucceed(t *testing.T) {
	f := newServiceFixture(t)

	leader := f.user(t, "leader", "user")
	g1 := f.group(t, leader, "Group One")
	work := f.work(t, "Raced Work")

	results := make([]*ClaimResult, 2)
	var eg errgroup.Group
	for i := range results {
		i := i
		eg.Go(func() error {
			res, err := f.claims.ClaimWork(context.Background(), leader.ID, work.ID, g1.ID)
			results[i] = res
			return err
		})
	}
	require.NoError(t, eg.Wait())

	created := 0
	for _, res := range results {
		if res.Created {
			created++
		}
	}
	require.Equal(t, 1, created)
	require.EqualValues(t, 1, f.count(t, &models.WorkGroupClaim{}, "work_id = ?", work.ID))
}

func TestClaimWorkRequiresLeaderOrOverride(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	leader := f.user(t, "leader", "user")
	g1 := f.group(t, leader, "Group One")
	member := f.user(t, "member", "user")
	f.join(t, g1, member, models.GroupRoleMember)
	moderator := f.user(t, "mod", "moderator")
	work := f.work(t, "Gated Work")

	_, err := f.claims.ClaimWork(ctx, member.ID, work.ID, g1.ID)
	require.True(t, apperrors.IsStatus(err, http.StatusForbidden))
	require.EqualValues(t, 0, f.count(t, &models.WorkGroupClaim{}, "work_id = ?", work.ID))

	res, err := f.claims.ClaimWork(ctx, leader.ID, work.ID, g1.ID)
	require.NoError(t, err)
	require.True(t, res.Created)

	other := f.work(t, "Assigned Work")
	res, err = f.claims.ClaimWork(ctx, moderator.ID, other.ID, g1.ID)
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, moderator.ID, res.Claim.ClaimedByID)
}

func TestClaimWorkUnknownTargets(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	leader := f.user(t, "leader", "user")
	g1 := f.group(t, leader, "Group One")
	work := f.work(t, "Known Work")

	_, err := f.claims.ClaimWork(ctx, leader.ID, "missing", g1.ID)
	require.ErrorIs(t, err, ErrWorkNotFound)

	_, err = f.claims.ClaimWork(ctx, leader.ID, work.ID, "missing")
	require.ErrorIs(t, err, ErrGroupNotFound)
}

func TestReleaseClaimAndListClaimingGroups(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	lead1 := f.user(t, "lead1", "user")
	g1 := f.group(t, lead1, "Group One")
	lead2 := f.user(t, "lead2", "user")
	g2 := f.group(t, lead2, "Group Two")
	work := f.work(t, "Released Work")

	_, err := f.claims.ClaimWork(ctx, lead1.ID, work.ID, g1.ID)
	require.NoError(t, err)
	_, err = f.claims.ClaimWork(ctx, lead2.ID, work.ID, g2.ID)
	require.NoError(t, err)

	groups, err := f.claims.ListClaimingGroups(ctx, work.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	err = f.claims.ReleaseClaim(ctx, lead2.ID, work.ID, g1.ID)
	require.True(t, apperrors.IsStatus(err, http.StatusForbidden))

	require.NoError(t, f.claims.ReleaseClaim(ctx, lead1.ID, work.ID, g1.ID))
	require.ErrorIs(t, f.claims.ReleaseClaim(ctx, lead1.ID, work.ID, g1.ID), ErrClaimNotFound)

	groups, err = f.claims.ListClaimingGroups(ctx, work.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, g2.ID, groups[0].ID)

	_, err = f.claims.ListClaimingGroups(ctx, "missing")
	require.ErrorIs(t, err, ErrWorkNotFound)
}

func TestParseClaimAction(t *testing.T) {
	action, ok := ParseClaimAction(" Create_Chapter ")
	require.True(t, ok)
	require.Equal(t, ActionCreateChapter, action)

	_, ok = ParseClaimAction("publish")
	require.False(t, ok)
}

func TestOverridePermissionMapping(t *testing.T) {
	require.Equal(t, permissions.NovelsDelete, overridePermission(models.WorkKindNovel, ActionDelete))
	require.Equal(t, permissions.WebtoonsEdit, overridePermission(models.WorkKindWebtoon, ActionEdit))
	require.Equal(t, permissions.ChaptersEdit, overridePermission(models.WorkKindNovel, ActionEditChapter))
}
