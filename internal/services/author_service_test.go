package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/inkhub/internal/models"
	apperrors "github.com/charlesng35/inkhub/pkg/errors"
)

func TestAuthorSelfProfileOnce(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	writer := f.user(t, "writer", "user")
	author, err := f.authors.Create(ctx, writer.ID, CreateAuthorInput{Name: "Jae Writer", LinkToSelf: true})
	require.NoError(t, err)
	require.NotNil(t, author.UserID)
	require.Equal(t, writer.ID, *author.UserID)
	require.Equal(t, "jae-writer", author.Slug)

	_, err = f.authors.Create(ctx, writer.ID, CreateAuthorInput{Name: "Another Me", LinkToSelf: true})
	require.ErrorIs(t, err, ErrAuthorProfileExists)
}

func TestAuthorUnlinkedProfilesNeedGroupOrGrant(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	loner := f.user(t, "loner", "user")
	_, err := f.authors.Create(ctx, loner.ID, CreateAuthorInput{Name: "Someone"})
	require.True(t, apperrors.IsStatus(err, http.StatusForbidden))

	f.group(t, loner, "Now Grouped")
	_, err = f.authors.Create(ctx, loner.ID, CreateAuthorInput{Name: "Someone"})
	require.NoError(t, err)

	moderator := f.user(t, "mod", "moderator")
	created, err := f.authors.Create(ctx, moderator.ID, CreateAuthorInput{Name: "Someone"})
	require.NoError(t, err)
	require.NotEqual(t, "someone", created.Slug)

	_, err = f.authors.Create(ctx, moderator.ID, CreateAuthorInput{Name: "  "})
	require.True(t, apperrors.IsStatus(err, http.StatusBadRequest))

	authors, total, err := f.authors.List(ctx, "some", 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, authors, 2)
}

func TestAuthorUpdateAndDeleteRules(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner", "user")
	other := f.user(t, "other", "user")
	f.group(t, other, "Other Group")
	moderator := f.user(t, "mod", "moderator")

	author, err := f.authors.Create(ctx, owner.ID, CreateAuthorInput{Name: "Owner Pen", LinkToSelf: true})
	require.NoError(t, err)

	bio := "<p>Writes <em>things</em></p><script>x()</script>"
	_, err = f.authors.Update(ctx, other.ID, author.ID, UpdateAuthorInput{Bio: &bio})
	require.True(t, apperrors.IsStatus(err, http.StatusForbidden))

	updated, err := f.authors.Update(ctx, owner.ID, author.ID, UpdateAuthorInput{Bio: &bio})
	require.NoError(t, err)
	require.Contains(t, updated.Bio, "<em>things</em>")
	require.NotContains(t, updated.Bio, "script")

	name := "Pen Name"
	updated, err = f.authors.Update(ctx, moderator.ID, author.ID, UpdateAuthorInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Pen Name", updated.Name)
	require.Equal(t, "owner-pen", updated.Slug)

	work, err := f.works.Create(ctx, moderator.ID, CreateWorkInput{Kind: "novel", Title: "Credited", AuthorIDs: []string{author.ID}})
	require.NoError(t, err)
	require.Len(t, work.Authors, 1)

	require.True(t, apperrors.IsStatus(f.authors.Delete(ctx, other.ID, author.ID), http.StatusForbidden))
	require.NoError(t, f.authors.Delete(ctx, owner.ID, author.ID))

	_, err = f.authors.Get(ctx, author.ID)
	require.ErrorIs(t, err, ErrAuthorNotFound)

	reloaded, err := f.works.Get(ctx, work.ID)
	require.NoError(t, err)
	require.Empty(t, reloaded.Authors)
	require.EqualValues(t, 1, f.count(t, &models.ActivityLog{}, "action = ? AND entity_id = ?", "author.delete", author.ID))
}
