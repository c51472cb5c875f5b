package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/inkhub/internal/models"
	"github.com/charlesng35/inkhub/internal/permissions"
	apperrors "github.com/charlesng35/inkhub/pkg/errors"
	"github.com/charlesng35/inkhub/pkg/logger"
	"github.com/charlesng35/inkhub/pkg/metrics"
)

// ClaimAction is an operation gated by a work's claiming groups.
type ClaimAction string

const (
	ActionEdit          ClaimAction = "edit"
	ActionDelete        ClaimAction = "delete"
	ActionCreateChapter ClaimAction = "create_chapter"
	ActionEditChapter   ClaimAction = "edit_chapter"
	ActionDeleteChapter ClaimAction = "delete_chapter"
)

// ParseClaimAction normalises a textual action; ok is false for unknown values.
func ParseClaimAction(value string) (ClaimAction, bool) {
	switch action := ClaimAction(strings.ToLower(strings.TrimSpace(value))); action {
	case ActionEdit, ActionDelete, ActionCreateChapter, ActionEditChapter, ActionDeleteChapter:
		return action, true
	default:
		return "", false
	}
}

// Deny reasons. They never name the groups involved.
const (
	ReasonNoGroup     = "not a member of any group"
	ReasonNotManaging = "not a member of any group managing this content"
)

// Decision is the outcome of a claim authorisation check.
type Decision struct {
	Allowed     bool   `json:"allowed"`
	Reason      string `json:"reason,omitempty"`
	ViaOverride bool   `json:"via_override"`
	Unclaimed   bool   `json:"unclaimed"`
}

// Err converts a denied decision into a forbidden error.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperrors.NewForbidden(d.Reason)
}

// ClaimResult reports the claim row and whether this call inserted it.
type ClaimResult struct {
	Claim   models.WorkGroupClaim `json:"claim"`
	Created bool                  `json:"created"`
}

// ClaimService resolves who may act on a work and manages the groups claiming it.
type ClaimService struct {
	db       *gorm.DB
	checker  PermissionChecker
	activity *ActivityService
}

// NewClaimService constructs a ClaimService.
func NewClaimService(db *gorm.DB, checker PermissionChecker, activity *ActivityService) (*ClaimService, error) {
	if db == nil {
		return nil, errors.New("claim service: db is required")
	}
	if checker == nil {
		return nil, errors.New("claim service: permission checker is required")
	}
	if activity == nil {
		return nil, errors.New("claim service: activity service is required")
	}
	return &ClaimService{db: db, checker: checker, activity: activity}, nil
}

// claimSubject is a loaded work plus the actor's override for one action.
type claimSubject struct {
	work     *models.Work
	override bool
}

// ResolveClaimAuthorization decides whether userID may perform action on the work.
// An RBAC override wins first. Otherwise an unclaimed work is open to anyone in at
// least one group and a claimed work only to members of a claiming group.
func (s *ClaimService) ResolveClaimAuthorization(ctx context.Context, userID, workID string, action ClaimAction) (Decision, error) {
	ctx = ensureContext(ctx)

	subject, err := s.prepare(ctx, userID, workID, action)
	if err != nil {
		if apperrors.IsStatus(err, http.StatusForbidden) {
			return Decision{Reason: ReasonNoGroup}, nil
		}
		return Decision{}, err
	}
	return s.decide(s.db.WithContext(ctx), userID, subject, action)
}

// prepare loads the work and evaluates the override. It talks to the permission
// checker, so it must run before any transaction is opened.
func (s *ClaimService) prepare(ctx context.Context, userID, workID string, action ClaimAction) (*claimSubject, error) {
	workID = strings.TrimSpace(workID)

	var work models.Work
	err := s.db.WithContext(ctx).Take(&work, "id = ?", workID).Error
	if isNotFound(err) || workID == "" {
		return nil, s.missingWork(ctx, userID, action)
	}
	if err != nil {
		return nil, fmt.Errorf("claim service: load work: %w", err)
	}

	override, err := s.checker.HasPermission(ctx, userID, overridePermission(work.Kind, action))
	if err != nil {
		return nil, fmt.Errorf("claim service: check override: %w", err)
	}
	return &claimSubject{work: &work, override: override}, nil
}

// missingWork answers NotFound only to actors who could have acted on some work.
func (s *ClaimService) missingWork(ctx context.Context, userID string, action ClaimAction) error {
	return s.concealMissing(ctx, userID, ErrWorkNotFound,
		overridePermission(models.WorkKindWebtoon, action),
		overridePermission(models.WorkKindNovel, action),
	)
}

// concealMissing returns notFound to actors holding one of the overrides or at
// least one membership. Anyone else gets the denial an existing target would give.
func (s *ClaimService) concealMissing(ctx context.Context, userID string, notFound error, overrides ...permissions.ID) error {
	override, err := s.checker.HasAnyPermission(ctx, userID, overrides...)
	if err != nil {
		return fmt.Errorf("claim service: check override: %w", err)
	}
	if override {
		return notFound
	}

	member, err := isInAnyGroup(s.db.WithContext(ctx), userID)
	if err != nil {
		return err
	}
	if member {
		return notFound
	}
	return apperrors.NewForbidden(ReasonNoGroup)
}

// decide evaluates the claim rules on db, which may be an open transaction.
func (s *ClaimService) decide(db *gorm.DB, userID string, subject *claimSubject, action ClaimAction) (Decision, error) {
	claimed, err := claimGroupIDs(db, subject.work.ID)
	if err != nil {
		return Decision{}, err
	}

	var decision Decision
	path := "denied"

	if subject.override {
		decision.Allowed = true
		decision.ViaOverride = true
		path = "override"
	} else {
		member, err := isInAnyGroup(db, userID)
		if err != nil {
			return Decision{}, err
		}
		switch {
		case !member:
			decision.Reason = ReasonNoGroup
		case len(claimed) == 0:
			decision.Allowed = true
			path = "unclaimed"
		default:
			shared, err := memberGroupIDs(db, userID, claimed)
			if err != nil {
				return Decision{}, err
			}
			if len(shared) > 0 {
				decision.Allowed = true
				path = "claimed"
			} else {
				decision.Reason = ReasonNotManaging
			}
		}
	}
	// Claim state is only reported to actors allowed to act on the work.
	decision.Unclaimed = decision.Allowed && len(claimed) == 0

	metrics.ClaimDecisions.WithLabelValues(string(action), path).Inc()
	if !decision.Allowed {
		logger.WithActor("claims", userID).Debug("claim authorisation denied",
			zap.String("work_id", subject.work.ID),
			zap.String("action", string(action)),
			zap.String("reason", decision.Reason),
		)
	}
	return decision, nil
}

// ClaimWork records that groupID manages the work. Repeating a claim succeeds
// without inserting a second row.
func (s *ClaimService) ClaimWork(ctx context.Context, userID, workID, groupID string) (*ClaimResult, error) {
	ctx = ensureContext(ctx)

	if err := s.authorizeClaimChange(ctx, userID, workID, groupID); err != nil {
		return nil, err
	}

	var result ClaimResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, created, err := s.claimWithin(tx, userID, workID, groupID, nil)
		if err != nil {
			return err
		}
		result = ClaimResult{Claim: claim, Created: created}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ReleaseClaim removes groupID from the work's claiming groups.
func (s *ClaimService) ReleaseClaim(ctx context.Context, userID, workID, groupID string) error {
	ctx = ensureContext(ctx)

	if err := s.authorizeClaimChange(ctx, userID, workID, groupID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("work_id = ? AND group_id = ?", workID, groupID).Delete(&models.WorkGroupClaim{})
		if res.Error != nil {
			return fmt.Errorf("claim service: release claim: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrClaimNotFound
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: userID,
			Action:      "work.release",
			EntityType:  EntityWork,
			EntityID:    workID,
			Details:     map[string]any{"group_id": groupID},
		})
	})
}

// ListClaimingGroups returns the groups managing the work, oldest claim first.
func (s *ClaimService) ListClaimingGroups(ctx context.Context, workID string) ([]models.ScanlationGroup, error) {
	ctx = ensureContext(ctx)

	if err := s.db.WithContext(ctx).Select("id").Take(&models.Work{}, "id = ?", workID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrWorkNotFound
		}
		return nil, fmt.Errorf("claim service: load work: %w", err)
	}

	var groups []models.ScanlationGroup
	if err := s.db.WithContext(ctx).
		Joins("JOIN work_group_claims ON work_group_claims.group_id = scanlation_groups.id").
		Where("work_group_claims.work_id = ?", workID).
		Order("work_group_claims.created_at ASC").
		Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("claim service: list claiming groups: %w", err)
	}
	return groups, nil
}

// authorizeClaimChange requires the actor to lead the group or hold
// content.assign_groups. Actors in no group are denied before the work or group
// is looked up.
func (s *ClaimService) authorizeClaimChange(ctx context.Context, userID, workID, groupID string) error {
	db := s.db.WithContext(ctx)

	override, err := s.checker.HasPermission(ctx, userID, permissions.ContentAssignGroups)
	if err != nil {
		return fmt.Errorf("claim service: check override: %w", err)
	}
	if !override {
		member, err := isInAnyGroup(db, userID)
		if err != nil {
			return err
		}
		if !member {
			return apperrors.NewForbidden(ReasonNoGroup)
		}
	}

	if err := db.Select("id").Take(&models.Work{}, "id = ?", workID).Error; err != nil {
		if isNotFound(err) {
			return ErrWorkNotFound
		}
		return fmt.Errorf("claim service: load work: %w", err)
	}
	if err := db.Select("id").Take(&models.ScanlationGroup{}, "id = ?", groupID).Error; err != nil {
		if isNotFound(err) {
			return ErrGroupNotFound
		}
		return fmt.Errorf("claim service: load group: %w", err)
	}
	if override {
		return nil
	}

	role, ok, err := memberRole(db, userID, groupID)
	if err != nil {
		return err
	}
	if !ok || role != models.GroupRoleLeader {
		return apperrors.NewForbidden("only group leaders can change claims")
	}
	return nil
}

// claimWithin inserts the claim on tx unless it already exists and records the
// ledger entry when a row was created.
func (s *ClaimService) claimWithin(tx *gorm.DB, userID, workID, groupID string, details map[string]any) (models.WorkGroupClaim, bool, error) {
	claim := models.WorkGroupClaim{
		WorkID:      workID,
		GroupID:     groupID,
		ClaimedByID: userID,
	}

	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&claim)
	if res.Error != nil {
		return models.WorkGroupClaim{}, false, fmt.Errorf("claim service: create claim: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var existing models.WorkGroupClaim
		if err := tx.Where("work_id = ? AND group_id = ?", workID, groupID).Take(&existing).Error; err != nil {
			return models.WorkGroupClaim{}, false, fmt.Errorf("claim service: load claim: %w", err)
		}
		return existing, false, nil
	}

	if details == nil {
		details = map[string]any{}
	}
	details["group_id"] = groupID
	if err := s.activity.Record(tx, ActivityEntry{
		PerformedBy: userID,
		Action:      "work.claim",
		EntityType:  EntityWork,
		EntityID:    workID,
		Details:     details,
	}); err != nil {
		return models.WorkGroupClaim{}, false, err
	}
	return claim, true, nil
}

func claimGroupIDs(db *gorm.DB, workID string) ([]string, error) {
	var ids []string
	if err := db.Model(&models.WorkGroupClaim{}).
		Where("work_id = ?", workID).
		Order("group_id").
		Pluck("group_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("claim service: list claims: %w", err)
	}
	return ids, nil
}

func overridePermission(kind models.WorkKind, action ClaimAction) permissions.ID {
	switch action {
	case ActionEdit:
		if kind == models.WorkKindNovel {
			return permissions.NovelsEdit
		}
		return permissions.WebtoonsEdit
	case ActionDelete:
		if kind == models.WorkKindNovel {
			return permissions.NovelsDelete
		}
		return permissions.WebtoonsDelete
	case ActionCreateChapter:
		return permissions.ChaptersCreate
	case ActionEditChapter:
		return permissions.ChaptersEdit
	default:
		return permissions.ChaptersDelete
	}
}
