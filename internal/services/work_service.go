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

// CreateWorkInput captures new work metadata. GroupIDs become claims.
type CreateWorkInput struct {
	Kind        string
	Title       string
	Description string
	Status      string
	GroupIDs    []string
	AuthorIDs   []string
}

// UpdateWorkInput describes mutable work fields. The slug never changes.
type UpdateWorkInput struct {
	Title       *string
	Description *string
	Status      *string
	AuthorIDs   *[]string
}

// WorkListOptions filters and paginates work listings.
type WorkListOptions struct {
	Kind     string
	GroupID  string
	Page     int
	PageSize int
}

// WorkService manages webtoons and novels.
type WorkService struct {
	db       *gorm.DB
	checker  PermissionChecker
	claims   *ClaimService
	activity *ActivityService
	slugs    *slug.Allocator
}

// NewWorkService constructs a WorkService.
func NewWorkService(db *gorm.DB, checker PermissionChecker, claims *ClaimService, activity *ActivityService, slugs *slug.Allocator) (*WorkService, error) {
	if db == nil {
		return nil, errors.New("work service: db is required")
	}
	if checker == nil || claims == nil || activity == nil {
		return nil, errors.New("work service: checker, claim and activity services are required")
	}
	if slugs == nil {
		slugs = slug.NewAllocator(slug.DefaultConfig())
	}
	return &WorkService{db: db, checker: checker, claims: claims, activity: activity, slugs: slugs}, nil
}

// Create registers a work. Without the kind's create override the actor must
// belong to a group, and every listed group must be one of theirs. Listed groups
// claim the work in the same transaction; without any the work starts unclaimed.
func (s *WorkService) Create(ctx context.Context, actorID string, input CreateWorkInput) (*models.Work, error) {
	ctx = ensureContext(ctx)

	kind, ok := models.ParseWorkKind(input.Kind)
	if !ok {
		return nil, apperrors.NewBadRequest("kind must be webtoon or novel")
	}
	title := sanitize.Text(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}
	status := models.WorkStatusOngoing
	if v := strings.TrimSpace(input.Status); v != "" {
		status = models.WorkStatus(strings.ToLower(v))
		if !status.Valid() {
			return nil, apperrors.NewBadRequest("unknown work status")
		}
	}
	groupIDs := normaliseIDs(input.GroupIDs)

	override, err := s.checker.HasPermission(ctx, actorID, createPermission(kind))
	if err != nil {
		return nil, fmt.Errorf("work service: check override: %w", err)
	}

	db := s.db.WithContext(ctx)
	if len(groupIDs) > 0 {
		var known int64
		if err := db.Model(&models.ScanlationGroup{}).Where("id IN ?", groupIDs).Count(&known).Error; err != nil {
			return nil, fmt.Errorf("work service: count groups: %w", err)
		}
		if int(known) != len(groupIDs) {
			return nil, apperrors.NewBadRequest("unknown scanlation group")
		}
	}
	if !override {
		memberOf, err := memberGroupIDs(db, actorID, nil)
		if err != nil {
			return nil, err
		}
		if len(memberOf) == 0 {
			return nil, apperrors.NewForbidden(ReasonNoGroup)
		}
		for _, groupID := range groupIDs {
			if !containsString(memberOf, groupID) {
				return nil, apperrors.NewForbidden("not a member of every listed group")
			}
		}
	}

	authors, err := s.loadAuthors(ctx, normaliseIDs(input.AuthorIDs))
	if err != nil {
		return nil, err
	}

	workSlug, err := s.slugs.Allocate(ctx, s.db, title, slug.ScopeWorks)
	if err != nil {
		return nil, fmt.Errorf("work service: allocate slug: %w", err)
	}

	work := &models.Work{
		Kind:        kind,
		Title:       title,
		Slug:        workSlug,
		Status:      status,
		Description: sanitize.HTML(input.Description),
		CreatedByID: actorID,
		Authors:     authors,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Authors.*").Create(work).Error; err != nil {
			return err
		}
		for _, groupID := range groupIDs {
			if _, _, err := s.claims.claimWithin(tx, actorID, work.ID, groupID, map[string]any{"implicit": true}); err != nil {
				return err
			}
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "work.create",
			EntityType:  EntityWork,
			EntityID:    work.ID,
			Details: map[string]any{
				"kind":      string(kind),
				"slug":      work.Slug,
				"group_ids": groupIDs,
			},
		})
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			recordConflict("work", err)
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("work service: create work: %w", err)
	}

	return s.Get(ctx, work.ID)
}

// Update modifies a work the actor may edit.
func (s *WorkService) Update(ctx context.Context, actorID, workID string, input UpdateWorkInput) (*models.Work, error) {
	ctx = ensureContext(ctx)

	decision, err := s.claims.ResolveClaimAuthorization(ctx, actorID, workID, ActionEdit)
	if err != nil {
		return nil, err
	}
	if err := decision.Err(); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := sanitize.Text(*input.Title)
		if title == "" {
			return nil, apperrors.NewBadRequest("title cannot be empty")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = sanitize.HTML(*input.Description)
	}
	if input.Status != nil {
		status := models.WorkStatus(strings.ToLower(strings.TrimSpace(*input.Status)))
		if !status.Valid() {
			return nil, apperrors.NewBadRequest("unknown work status")
		}
		updates["status"] = status
	}

	var authors []models.Author
	if input.AuthorIDs != nil {
		authors, err = s.loadAuthors(ctx, normaliseIDs(*input.AuthorIDs))
		if err != nil {
			return nil, err
		}
	}

	if len(updates) == 0 && input.AuthorIDs == nil {
		return s.Get(ctx, workID)
	}

	work := &models.Work{BaseModel: models.BaseModel{ID: workID}}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(work).Updates(updates).Error; err != nil {
				return err
			}
		}
		if input.AuthorIDs != nil {
			if err := tx.Model(work).Association("Authors").Replace(authors); err != nil {
				return err
			}
		}
		fields := updatedFields(updates)
		if input.AuthorIDs != nil {
			fields = append(fields, "authors")
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "work.update",
			EntityType:  EntityWork,
			EntityID:    workID,
			Details: map[string]any{
				"fields":       fields,
				"via_override": decision.ViaOverride,
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("work service: update work: %w", err)
	}

	return s.Get(ctx, workID)
}

// Delete removes a work together with its chapters, claims and credits.
func (s *WorkService) Delete(ctx context.Context, actorID, workID string) error {
	ctx = ensureContext(ctx)

	decision, err := s.claims.ResolveClaimAuthorization(ctx, actorID, workID, ActionDelete)
	if err != nil {
		return err
	}
	if err := decision.Err(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		work := &models.Work{BaseModel: models.BaseModel{ID: workID}}
		if err := tx.Where("work_id = ?", workID).Delete(&models.Chapter{}).Error; err != nil {
			return fmt.Errorf("work service: delete chapters: %w", err)
		}
		if err := tx.Where("work_id = ?", workID).Delete(&models.WorkGroupClaim{}).Error; err != nil {
			return fmt.Errorf("work service: delete claims: %w", err)
		}
		if err := tx.Model(work).Association("Authors").Clear(); err != nil {
			return fmt.Errorf("work service: clear credits: %w", err)
		}
		if err := tx.Delete(work).Error; err != nil {
			return fmt.Errorf("work service: delete work: %w", err)
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "work.delete",
			EntityType:  EntityWork,
			EntityID:    workID,
			Details:     map[string]any{"via_override": decision.ViaOverride},
		})
	})
}

// Get loads a work by id or slug with its claims and credits.
func (s *WorkService) Get(ctx context.Context, idOrSlug string) (*models.Work, error) {
	ctx = ensureContext(ctx)

	var work models.Work
	err := s.db.WithContext(ctx).
		Preload("Claims", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Claims.Group").
		Preload("Authors").
		Where("id = ? OR slug = ?", idOrSlug, idOrSlug).
		Take(&work).Error
	if isNotFound(err) {
		return nil, ErrWorkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("work service: load work: %w", err)
	}
	return &work, nil
}

// List returns works ordered by title.
func (s *WorkService) List(ctx context.Context, opts WorkListOptions) ([]models.Work, int64, error) {
	ctx = ensureContext(ctx)
	offset, limit := pageBounds(opts.Page, opts.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Work{})
	if v := strings.TrimSpace(opts.Kind); v != "" {
		kind, ok := models.ParseWorkKind(v)
		if !ok {
			return nil, 0, apperrors.NewBadRequest("kind must be webtoon or novel")
		}
		query = query.Where("kind = ?", kind)
	}
	if v := strings.TrimSpace(opts.GroupID); v != "" {
		query = query.Where("id IN (?)", s.db.Model(&models.WorkGroupClaim{}).Select("work_id").Where("group_id = ?", v))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("work service: count works: %w", err)
	}

	var works []models.Work
	if err := query.Order("title ASC").Offset(offset).Limit(limit).Find(&works).Error; err != nil {
		return nil, 0, fmt.Errorf("work service: list works: %w", err)
	}
	return works, total, nil
}

func (s *WorkService) loadAuthors(ctx context.Context, ids []string) ([]models.Author, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var authors []models.Author
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&authors).Error; err != nil {
		return nil, fmt.Errorf("work service: load authors: %w", err)
	}
	if len(authors) != len(ids) {
		return nil, apperrors.NewBadRequest("unknown author")
	}
	return authors, nil
}

func createPermission(kind models.WorkKind) permissions.ID {
	if kind == models.WorkKindNovel {
		return permissions.NovelsCreate
	}
	return permissions.WebtoonsCreate
}
