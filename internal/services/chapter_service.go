package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/inkhub/internal/models"
	apperrors "github.com/charlesng35/inkhub/pkg/errors"
	"github.com/charlesng35/inkhub/pkg/sanitize"
)

// CreateChapterBatchInput describes one chapter number released by one or more groups.
// A row is written per group.
type CreateChapterBatchInput struct {
	WorkID   string
	Number   float64
	Title    string
	Content  string
	Language string
	GroupIDs []string
}

// UpdateChapterInput describes mutable chapter fields.
type UpdateChapterInput struct {
	Number   *float64
	Title    *string
	Content  *string
	Language *string
}

// ChapterService publishes and maintains chapters.
type ChapterService struct {
	db       *gorm.DB
	claims   *ClaimService
	activity *ActivityService
}

// NewChapterService constructs a ChapterService.
func NewChapterService(db *gorm.DB, claims *ClaimService, activity *ActivityService) (*ChapterService, error) {
	if db == nil {
		return nil, errors.New("chapter service: db is required")
	}
	if claims == nil {
		return nil, errors.New("chapter service: claim service is required")
	}
	if activity == nil {
		return nil, errors.New("chapter service: activity service is required")
	}
	return &ChapterService{db: db, claims: claims, activity: activity}, nil
}

// CreateChapterBatch writes one chapter row per listed group in a single
// transaction. When the work was unclaimed at decision time, the listed groups the
// actor belongs to claim it in the same transaction.
func (s *ChapterService) CreateChapterBatch(ctx context.Context, userID string, input CreateChapterBatchInput) ([]models.Chapter, error) {
	ctx = ensureContext(ctx)

	if math.IsNaN(input.Number) || math.IsInf(input.Number, 0) || input.Number < 0 {
		return nil, apperrors.NewBadRequest("chapter number must be zero or greater")
	}
	groupIDs := normaliseIDs(input.GroupIDs)
	if len(groupIDs) == 0 {
		return nil, apperrors.NewBadRequest("at least one scanlation group is required")
	}

	subject, err := s.claims.prepare(ctx, userID, input.WorkID, ActionCreateChapter)
	if err != nil {
		return nil, err
	}

	var known int64
	if err := s.db.WithContext(ctx).Model(&models.ScanlationGroup{}).Where("id IN ?", groupIDs).Count(&known).Error; err != nil {
		return nil, fmt.Errorf("chapter service: count groups: %w", err)
	}
	if int(known) != len(groupIDs) {
		return nil, apperrors.NewBadRequest("unknown scanlation group")
	}

	title := sanitize.Text(strings.TrimSpace(input.Title))
	content := sanitize.HTML(input.Content)
	language := strings.ToLower(strings.TrimSpace(input.Language))

	var chapters []models.Chapter
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		decision, err := s.claims.decide(tx, userID, subject, ActionCreateChapter)
		if err != nil {
			return err
		}
		if err := decision.Err(); err != nil {
			return err
		}

		memberOf, err := memberGroupIDs(tx, userID, groupIDs)
		if err != nil {
			return err
		}
		if len(memberOf) == 0 && !subject.override {
			return apperrors.NewForbidden("not a member of any listed group")
		}

		var existing int64
		if err := tx.Model(&models.Chapter{}).
			Where("work_id = ? AND number = ? AND scanlation_group_id IN ?", subject.work.ID, input.Number, groupIDs).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("chapter service: check existing chapters: %w", err)
		}
		if existing > 0 {
			return ErrChapterNumberExists
		}

		if decision.Unclaimed {
			for _, groupID := range memberOf {
				if _, _, err := s.claims.claimWithin(tx, userID, subject.work.ID, groupID, map[string]any{"implicit": true}); err != nil {
					return err
				}
			}
		}

		chapters = make([]models.Chapter, 0, len(groupIDs))
		for _, groupID := range groupIDs {
			chapters = append(chapters, models.Chapter{
				WorkID:            subject.work.ID,
				Number:            input.Number,
				ScanlationGroupID: groupID,
				Title:             title,
				Content:           content,
				Language:          language,
				UploadedByID:      userID,
			})
		}
		if err := tx.Create(&chapters).Error; err != nil {
			return err
		}

		chapterIDs := make([]string, 0, len(chapters))
		for _, chapter := range chapters {
			chapterIDs = append(chapterIDs, chapter.ID)
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: userID,
			Action:      "chapter.create",
			EntityType:  EntityWork,
			EntityID:    subject.work.ID,
			Details: map[string]any{
				"number":      input.Number,
				"group_ids":   groupIDs,
				"chapter_ids": chapterIDs,
			},
		})
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			recordConflict("chapter", err)
			return nil, ErrChapterNumberExists
		}
		return nil, err
	}

	return chapters, nil
}

// UpdateChapter edits a chapter. Without an override the actor needs the claim
// decision on the work and membership of the chapter's group.
func (s *ChapterService) UpdateChapter(ctx context.Context, userID, chapterID string, input UpdateChapterInput) (*models.Chapter, error) {
	ctx = ensureContext(ctx)

	chapter, subject, err := s.authorizeChapter(ctx, userID, chapterID, ActionEditChapter)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Number != nil {
		number := *input.Number
		if math.IsNaN(number) || math.IsInf(number, 0) || number < 0 {
			return nil, apperrors.NewBadRequest("chapter number must be zero or greater")
		}
		if number != chapter.Number {
			updates["number"] = number
		}
	}
	if input.Title != nil {
		updates["title"] = sanitize.Text(strings.TrimSpace(*input.Title))
	}
	if input.Content != nil {
		updates["content"] = sanitize.HTML(*input.Content)
	}
	if input.Language != nil {
		updates["language"] = strings.ToLower(strings.TrimSpace(*input.Language))
	}
	if len(updates) == 0 {
		return chapter, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(chapter).Updates(updates).Error; err != nil {
			return err
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: userID,
			Action:      "chapter.update",
			EntityType:  EntityChapter,
			EntityID:    chapter.ID,
			Details: map[string]any{
				"work_id":      subject.work.ID,
				"fields":       updatedFields(updates),
				"via_override": subject.override,
			},
		})
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			recordConflict("chapter", err)
			return nil, ErrChapterNumberExists
		}
		return nil, fmt.Errorf("chapter service: update chapter: %w", err)
	}

	return s.get(ctx, chapter.ID)
}

// DeleteChapter removes a chapter. Without an override the actor needs the claim
// decision on the work and must lead the chapter's group.
func (s *ChapterService) DeleteChapter(ctx context.Context, userID, chapterID string) error {
	ctx = ensureContext(ctx)

	chapter, subject, err := s.authorizeChapter(ctx, userID, chapterID, ActionDeleteChapter)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Chapter{}, "id = ?", chapter.ID).Error; err != nil {
			return fmt.Errorf("chapter service: delete chapter: %w", err)
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: userID,
			Action:      "chapter.delete",
			EntityType:  EntityChapter,
			EntityID:    chapter.ID,
			Details: map[string]any{
				"work_id":      subject.work.ID,
				"number":       chapter.Number,
				"group_id":     chapter.ScanlationGroupID,
				"via_override": subject.override,
			},
		})
	})
}

// ListChapters returns the work's chapters ordered by number, then release time.
func (s *ChapterService) ListChapters(ctx context.Context, workID string) ([]models.Chapter, error) {
	ctx = ensureContext(ctx)

	if err := s.db.WithContext(ctx).Select("id").Take(&models.Work{}, "id = ?", workID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrWorkNotFound
		}
		return nil, fmt.Errorf("chapter service: load work: %w", err)
	}

	var chapters []models.Chapter
	if err := s.db.WithContext(ctx).
		Preload("Group").
		Where("work_id = ?", workID).
		Order("number ASC").
		Order("created_at ASC").
		Find(&chapters).Error; err != nil {
		return nil, fmt.Errorf("chapter service: list chapters: %w", err)
	}
	return chapters, nil
}

func (s *ChapterService) authorizeChapter(ctx context.Context, userID, chapterID string, action ClaimAction) (*models.Chapter, *claimSubject, error) {
	var chapter models.Chapter
	err := s.db.WithContext(ctx).Take(&chapter, "id = ?", chapterID).Error
	if isNotFound(err) {
		return nil, nil, s.claims.concealMissing(ctx, userID, ErrChapterNotFound,
			overridePermission(models.WorkKindWebtoon, action),
			overridePermission(models.WorkKindNovel, action),
		)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("chapter service: load chapter: %w", err)
	}

	subject, err := s.claims.prepare(ctx, userID, chapter.WorkID, action)
	if err != nil {
		return nil, nil, err
	}
	if subject.override {
		return &chapter, subject, nil
	}

	db := s.db.WithContext(ctx)
	decision, err := s.claims.decide(db, userID, subject, action)
	if err != nil {
		return nil, nil, err
	}
	if err := decision.Err(); err != nil {
		return nil, nil, err
	}

	role, ok, err := memberRole(db, userID, chapter.ScanlationGroupID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, apperrors.NewForbidden("not a member of the group that released this chapter")
	}
	if action == ActionDeleteChapter && role != models.GroupRoleLeader {
		return nil, nil, apperrors.NewForbidden("only group leaders can delete chapters")
	}
	return &chapter, subject, nil
}

func (s *ChapterService) get(ctx context.Context, id string) (*models.Chapter, error) {
	var chapter models.Chapter
	if err := s.db.WithContext(ctx).Take(&chapter, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrChapterNotFound
		}
		return nil, fmt.Errorf("chapter service: load chapter: %w", err)
	}
	return &chapter, nil
}

func updatedFields(updates map[string]any) []string {
	fields := make([]string, 0, len(updates))
	for key := range updates {
		fields = append(fields, key)
	}
	sort.Strings(fields)
	return fields
}
