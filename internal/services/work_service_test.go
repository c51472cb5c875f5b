package services

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/inkhub/internal/models"
	apperrors "github.com/charlesng35/inkhub/pkg/errors"
)

func TestWorkCreateClaimsListedGroups(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	leader := f.user(t, "leader", "user")
	g1 := f.group(t, leader, "Group One")

	author, err := f.authors.Create(ctx, leader.ID, CreateAuthorInput{Name: "Chugong"})
	require.NoError(t, err)

	work, err := f.works.Create(ctx, leader.ID, CreateWorkInput{
		Kind:        "Webtoon",
		Title:       "Solo Leveling",
		Description: `<p>Hunters<img src=x onerror=alert(1)></p>`,
		GroupIDs:    []string{g1.ID},
		AuthorIDs:   []string{author.ID},
	})
	require.NoError(t, err)
	require.Equal(t, "solo-leveling", work.Slug)
	require.Equal(t, models.WorkStatusOngoing, work.Status)
	require.NotContains(t, work.Description, "onerror")
	require.Len(t, work.Claims, 1)
	require.Equal(t, g1.ID, work.Claims[0].GroupID)
	require.Len(t, work.Authors, 1)

	require.EqualValues(t, 1, f.count(t, &models.ActivityLog{}, "action = ? AND entity_id = ?", "work.create", work.ID))
}

func TestWorkCreateAuthorisation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	loner := f.user(t, "loner", "user")
	_, err := f.works.Create(ctx, loner.ID, CreateWorkInput{Kind: "novel", Title: "Lonely"})
	require.True(t, apperrors.IsStatus(err, http.StatusForbidden))

	leader := f.user(t, "leader", "user")
	f.group(t, leader, "Mine")
	foreign := f.group(t, f.user(t, "other", "user"), "Theirs")

	_, err = f.works.Create(ctx, leader.ID, CreateWorkInput{Kind: "novel", Title: "Not Yours", GroupIDs: []string{foreign.ID}})
	require.True(t, apperrors.IsStatus(err, http.StatusForbidden))

	moderator := f.user(t, "mod", "moderator")
	work, err := f.works.Create(ctx, moderator.ID, CreateWorkInput{Kind: "novel", Title: "Assigned", GroupIDs: []string{foreign.ID}})
	require.NoError(t, err)
	require.Len(t, work.Claims, 1)

	_, err = f.works.Create(ctx, moderator.ID, CreateWorkInput{Kind: "comic", Title: "Bad Kind"})
	require.True(t, apperrors.IsStatus(err, http.StatusBadRequest))
	_, err = f.works.Create(ctx, moderator.ID, CreateWorkInput{Kind: "novel", Title: "Bad Status", Status: "paused"})
	require.True(t, apperrors.IsStatus(err, http.StatusBadRequest))
	_, err = f.works.Create(ctx, moderator.ID, CreateWorkInput{Kind: "novel", Title: "   "})
	require.True(t, apperrors.IsStatus(err, http.StatusBadRequest))
}

func TestWorkSlugsAreUniqueAcrossKinds(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	moderator := f.user(t, "mod", "moderator")
	seen := map[string]bool{}
	for i, kind := range []string{"webtoon", "novel", "webtoon"} {
		work, err := f.works.Create(ctx, moderator.ID, CreateWorkInput{Kind: kind, Title: "My Title"})
		require.NoError(t, err)
		require.NotEmpty(t, work.Slug)
		require.True(t, strings.HasPrefix(work.Slug, "my-title"))
		require.False(t, seen[work.Slug], "slug %s reused on call %d", work.Slug, i)
		seen[work.Slug] = true
	}
	require.True(t, seen["my-title"])
}

func TestWorkUpdateAndDeleteUseClaims(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	leader := f.user(t, "leader", "user")
	g1 := f.group(t, leader, "Group One")
	outsider := f.user(t, "outsider", "user")
	f.group(t, outsider, "Elsewhere")

	work, err := f.works.Create(ctx, leader.ID, CreateWorkInput{Kind: "webtoon", Title: "Tower", GroupIDs: []string{g1.ID}})
	require.NoError(t, err)
	_, err = f.chapters.CreateChapterBatch(ctx, leader.ID, CreateChapterBatchInput{WorkID: work.ID, Number: 1, GroupIDs: []string{g1.ID}})
	require.NoError(t, err)

	title := "Tower of God"
	_, err = f.works.Update(ctx, outsider.ID, work.ID, UpdateWorkInput{Title: &title})
	require.True(t, apperrors.IsStatus(err, http.StatusForbidden))

	status := "completed"
	updated, err := f.works.Update(ctx, leader.ID, work.ID, UpdateWorkInput{Title: &title, Status: &status})
	require.NoError(t, err)
	require.Equal(t, title, updated.Title)
	require.Equal(t, models.WorkStatusCompleted, updated.Status)
	require.Equal(t, "tower", updated.Slug)

	require.True(t, apperrors.IsStatus(f.works.Delete(ctx, outsider.ID, work.ID), http.StatusForbidden))
	require.NoError(t, f.works.Delete(ctx, leader.ID, work.ID))

	_, err = f.works.Get(ctx, work.ID)
	require.ErrorIs(t, err, ErrWorkNotFound)
	require.EqualValues(t, 0, f.count(t, &models.Chapter{}, "work_id = ?", work.ID))
	require.EqualValues(t, 0, f.count(t, &models.WorkGroupClaim{}, "work_id = ?", work.ID))
	// the ledger outlives the work
	require.EqualValues(t, 1, f.count(t, &models.ActivityLog{}, "action = ? AND entity_id = ?", "work.delete", work.ID))
}

func TestWorkList(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	leader := f.user(t, "leader", "user")
	g1 := f.group(t, leader, "Group One")
	_, err := f.works.Create(ctx, leader.ID, CreateWorkInput{Kind: "webtoon", Title: "Beta", GroupIDs: []string{g1.ID}})
	require.NoError(t, err)
	_, err = f.works.Create(ctx, leader.ID, CreateWorkInput{Kind: "novel", Title: "Alpha"})
	require.NoError(t, err)

	works, total, err := f.works.List(ctx, WorkListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, "Alpha", works[0].Title)

	works, total, err = f.works.List(ctx, WorkListOptions{Kind: "webtoon"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "Beta", works[0].Title)

	_, total, err = f.works.List(ctx, WorkListOptions{GroupID: g1.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)

	_, _, err = f.works.List(ctx, WorkListOptions{Kind: "comic"})
	require.True(t, apperrors.IsStatus(err, http.StatusBadRequest))
}
