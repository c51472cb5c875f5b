package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/inkhub/internal/models"
	"github.com/charlesng35/inkhub/internal/permissions"
	"github.com/charlesng35/inkhub/internal/slug"
	apperrors "github.com/charlesng35/inkhub/pkg/errors"
	"github.com/charlesng35/inkhub/pkg/sanitize"
)

// CreateAuthorInput captures a new author profile. LinkToSelf ties the profile
// to the acting user.
type CreateAuthorInput struct {
	Name       string
	Bio        string
	LinkToSelf bool
}

// UpdateAuthorInput describes mutable author fields.
type UpdateAuthorInput struct {
	Name *string
	Bio  *string
}

// AuthorService manages author credit profiles.
type AuthorService struct {
	db       *gorm.DB
	checker  PermissionChecker
	activity *ActivityService
	slugs    *slug.Allocator
}

// NewAuthorService constructs an AuthorService.
func NewAuthorService(db *gorm.DB, checker PermissionChecker, activity *ActivityService, slugs *slug.Allocator) (*AuthorService, error) {
	if db == nil {
		return nil, errors.New("author service: db is required")
	}
	if checker == nil || activity == nil {
		return nil, errors.New("author service: checker and activity service are required")
	}
	if slugs == nil {
		slugs = slug.NewAllocator(slug.DefaultConfig())
	}
	return &AuthorService{db: db, checker: checker, activity: activity, slugs: slugs}, nil
}

// Create adds an author profile. Anyone may create their own profile once;
// unlinked profiles need a group membership or authors.create. When a
// concurrent writer takes the slug first, the existing author is returned.
func (s *AuthorService) Create(ctx context.Context, actorID string, input CreateAuthorInput) (*models.Author, error) {
	ctx = ensureContext(ctx)

	name := sanitize.Text(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("author name is required")
	}

	db := s.db.WithContext(ctx)
	if input.LinkToSelf {
		var count int64
		if err := db.Model(&models.Author{}).Where("user_id = ?", actorID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("author service: check profile: %w", err)
		}
		if count > 0 {
			return nil, ErrAuthorProfileExists
		}
	} else {
		allowed, err := s.checker.HasPermission(ctx, actorID, permissions.AuthorsCreate)
		if err != nil {
			return nil, fmt.Errorf("author service: check override: %w", err)
		}
		if !allowed {
			allowed, err = isInAnyGroup(db, actorID)
			if err != nil {
				return nil, err
			}
		}
		if !allowed {
			return nil, apperrors.NewForbidden(ReasonNoGroup)
		}
	}

	authorSlug, err := s.slugs.Allocate(ctx, s.db, name, slug.ScopeAuthors)
	if err != nil {
		return nil, fmt.Errorf("author service: allocate slug: %w", err)
	}

	author := &models.Author{
		Name: name,
		Slug: authorSlug,
		Bio:  sanitize.HTML(input.Bio),
	}
	if input.LinkToSelf {
		owner := actorID
		author.UserID = &owner
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(author).Error; err != nil {
			return err
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "author.create",
			EntityType:  EntityAuthor,
			EntityID:    author.ID,
			Details: map[string]any{
				"slug":   author.Slug,
				"linked": input.LinkToSelf,
			},
		})
	})
	if err == nil {
		return author, nil
	}
	if !isUniqueConstraintError(err) {
		return nil, fmt.Errorf("author service: create author: %w", err)
	}

	recordConflict("author", err)
	if input.LinkToSelf {
		var mine int64
		if countErr := db.Model(&models.Author{}).Where("user_id = ?", actorID).Count(&mine).Error; countErr == nil && mine > 0 {
			return nil, ErrAuthorProfileExists
		}
	}
	var existing models.Author
	if err := db.Take(&existing, "slug = ?", authorSlug).Error; err != nil {
		return nil, fmt.Errorf("author service: load colliding author: %w", err)
	}
	return &existing, nil
}

// Update edits a profile owned by the actor, or any profile with authors.edit.
func (s *AuthorService) Update(ctx context.Context, actorID, authorID string, input UpdateAuthorInput) (*models.Author, error) {
	ctx = ensureContext(ctx)

	author, err := s.authorize(ctx, actorID, authorID, permissions.AuthorsEdit)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := sanitize.Text(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("author name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Bio != nil {
		updates["bio"] = sanitize.HTML(*input.Bio)
	}
	if len(updates) == 0 {
		return author, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(author).Updates(updates).Error; err != nil {
			return err
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "author.update",
			EntityType:  EntityAuthor,
			EntityID:    author.ID,
			Details:     map[string]any{"fields": updatedFields(updates)},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("author service: update author: %w", err)
	}
	return s.Get(ctx, author.ID)
}

// Delete removes a profile owned by the actor, or any profile with authors.delete.
// Credits on works are dropped with it.
func (s *AuthorService) Delete(ctx context.Context, actorID, authorID string) error {
	ctx = ensureContext(ctx)

	author, err := s.authorize(ctx, actorID, authorID, permissions.AuthorsDelete)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM work_credits WHERE author_id = ?", author.ID).Error; err != nil {
			return fmt.Errorf("author service: delete credits: %w", err)
		}
		if err := tx.Delete(&models.Author{}, "id = ?", author.ID).Error; err != nil {
			return fmt.Errorf("author service: delete author: %w", err)
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "author.delete",
			EntityType:  EntityAuthor,
			EntityID:    author.ID,
			Details:     map[string]any{"slug": author.Slug},
		})
	})
}

// Get loads an author by id or slug.
func (s *AuthorService) Get(ctx context.Context, idOrSlug string) (*models.Author, error) {
	ctx = ensureContext(ctx)

	var author models.Author
	err := s.db.WithContext(ctx).Where("id = ? OR slug = ?", idOrSlug, idOrSlug).Take(&author).Error
	if isNotFound(err) {
		return nil, ErrAuthorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("author service: load author: %w", err)
	}
	return &author, nil
}

// List returns authors ordered by name, optionally filtered by a name prefix.
func (s *AuthorService) List(ctx context.Context, search string, page, pageSize int) ([]models.Author, int64, error) {
	ctx = ensureContext(ctx)
	offset, limit := pageBounds(page, pageSize)

	query := s.db.WithContext(ctx).Model(&models.Author{})
	if v := strings.TrimSpace(search); v != "" {
		query = query.Where("LOWER(name) LIKE ?", strings.ToLower(v)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("author service: count authors: %w", err)
	}

	var authors []models.Author
	if err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&authors).Error; err != nil {
		return nil, 0, fmt.Errorf("author service: list authors: %w", err)
	}
	return authors, total, nil
}

func (s *AuthorService) authorize(ctx context.Context, actorID, authorID string, override permissions.ID) (*models.Author, error) {
	var author models.Author
	err := s.db.WithContext(ctx).Take(&author, "id = ?", authorID).Error
	if isNotFound(err) {
		return nil, ErrAuthorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("author service: load author: %w", err)
	}

	if author.UserID != nil && *author.UserID == actorID {
		return &author, nil
	}
	allowed, err := s.checker.HasPermission(ctx, actorID, override)
	if err != nil {
		return nil, fmt.Errorf("author service: check override: %w", err)
	}
	if !allowed {
		return nil, apperrors.NewForbidden("not the owner of this author profile")
	}
	return &author, nil
}
