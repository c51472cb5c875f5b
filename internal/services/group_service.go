package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/inkhub/internal/models"
	"github.com/charlesng35/inkhub/internal/permissions"
	"github.com/charlesng35/inkhub/internal/slug"
	apperrors "github.com/charlesng35/inkhub/pkg/errors"
	"github.com/charlesng35/inkhub/pkg/sanitize"
)

// CreateGroupInput captures new group metadata.
type CreateGroupInput struct {
	Name        string
	Description string
	Website     string
}

// UpdateGroupInput describes mutable group fields. The slug never changes.
type UpdateGroupInput struct {
	Name        *string
	Description *string
	Website     *string
}

// GroupService handles scanlation group lifecycle and membership management.
type GroupService struct {
	db       *gorm.DB
	checker  PermissionChecker
	activity *ActivityService
	slugs    *slug.Allocator
}

// NewGroupService constructs a GroupService instance.
func NewGroupService(db *gorm.DB, checker PermissionChecker, activity *ActivityService, slugs *slug.Allocator) (*GroupService, error) {
	if db == nil {
		return nil, errors.New("group service: db is required")
	}
	if checker == nil || activity == nil {
		return nil, errors.New("group service: checker and activity service are required")
	}
	if slugs == nil {
		slugs = slug.NewAllocator(slug.DefaultConfig())
	}
	return &GroupService{db: db, checker: checker, activity: activity, slugs: slugs}, nil
}

// Create registers a group led by its creator.
func (s *GroupService) Create(ctx context.Context, actorID string, input CreateGroupInput) (*models.ScanlationGroup, error) {
	ctx = ensureContext(ctx)

	name := sanitize.Text(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("group name is required")
	}

	groupSlug, err := s.slugs.Allocate(ctx, s.db, name, slug.ScopeGroups)
	if err != nil {
		return nil, fmt.Errorf("group service: allocate slug: %w", err)
	}

	group := &models.ScanlationGroup{
		Name:        name,
		Slug:        groupSlug,
		Description: sanitize.HTML(input.Description),
		Website:     strings.TrimSpace(input.Website),
		CreatedByID: actorID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		leader := models.GroupMember{UserID: actorID, GroupID: group.ID, Role: models.GroupRoleLeader}
		if err := tx.Create(&leader).Error; err != nil {
			return err
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "group.create",
			EntityType:  EntityGroup,
			EntityID:    group.ID,
			Details:     map[string]any{"name": group.Name, "slug": group.Slug},
		})
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			recordConflict("group", err)
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("group service: create group: %w", err)
	}

	return group, nil
}

// Get loads a group by id or slug.
func (s *GroupService) Get(ctx context.Context, idOrSlug string) (*models.ScanlationGroup, error) {
	ctx = ensureContext(ctx)

	var group models.ScanlationGroup
	err := s.db.WithContext(ctx).Where("id = ? OR slug = ?", idOrSlug, idOrSlug).Take(&group).Error
	if isNotFound(err) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("group service: load group: %w", err)
	}
	return &group, nil
}

// List returns groups ordered by name.
func (s *GroupService) List(ctx context.Context, page, pageSize int) ([]models.ScanlationGroup, int64, error) {
	ctx = ensureContext(ctx)
	offset, limit := pageBounds(page, pageSize)

	query := s.db.WithContext(ctx).Model(&models.ScanlationGroup{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("group service: count groups: %w", err)
	}

	var groups []models.ScanlationGroup
	if err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&groups).Error; err != nil {
		return nil, 0, fmt.Errorf("group service: list groups: %w", err)
	}
	return groups, total, nil
}

// Update modifies group metadata. Requires LEADER or groups.edit.
func (s *GroupService) Update(ctx context.Context, actorID, groupID string, input UpdateGroupInput) (*models.ScanlationGroup, error) {
	ctx = ensureContext(ctx)

	group, err := s.authorizeAdmin(ctx, actorID, groupID, permissions.GroupsEdit)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := sanitize.Text(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("group name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = sanitize.HTML(*input.Description)
	}
	if input.Website != nil {
		updates["website"] = strings.TrimSpace(*input.Website)
	}
	if len(updates) == 0 {
		return group, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(group).Updates(updates).Error; err != nil {
			return err
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "group.update",
			EntityType:  EntityGroup,
			EntityID:    group.ID,
			Details:     map[string]any{"fields": updatedFields(updates)},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("group service: update group: %w", err)
	}
	return s.Get(ctx, group.ID)
}

// Delete removes a group with its memberships, invites and claims. Groups that
// still own chapters cannot be deleted. Requires LEADER or groups.delete.
func (s *GroupService) Delete(ctx context.Context, actorID, groupID string) error {
	ctx = ensureContext(ctx)

	group, err := s.authorizeAdmin(ctx, actorID, groupID, permissions.GroupsDelete)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chapters int64
		if err := tx.Model(&models.Chapter{}).Where("scanlation_group_id = ?", group.ID).Count(&chapters).Error; err != nil {
			return fmt.Errorf("group service: count chapters: %w", err)
		}
		if chapters > 0 {
			return ErrGroupHasChapters
		}

		for _, model := range []any{&models.WorkGroupClaim{}, &models.GroupInvite{}, &models.GroupMember{}} {
			if err := tx.Where("group_id = ?", group.ID).Delete(model).Error; err != nil {
				return fmt.Errorf("group service: delete dependants: %w", err)
			}
		}
		if err := tx.Delete(&models.ScanlationGroup{}, "id = ?", group.ID).Error; err != nil {
			return fmt.Errorf("group service: delete group: %w", err)
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "group.delete",
			EntityType:  EntityGroup,
			EntityID:    group.ID,
			Details:     map[string]any{"name": group.Name, "slug": group.Slug},
		})
	})
}

// ListMembers returns the group's members with their user records, leaders first.
func (s *GroupService) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	ctx = ensureContext(ctx)

	if _, err := s.Get(ctx, groupID); err != nil {
		return nil, err
	}

	var members []models.GroupMember
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("group_id = ?", groupID).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "CASE role WHEN ? THEN 0 WHEN ? THEN 1 ELSE 2 END, created_at ASC",
			Vars: []any{models.GroupRoleLeader, models.GroupRoleUploader},
		}}).
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("group service: list members: %w", err)
	}
	return members, nil
}

// Invite offers inviteeID a membership with role. Requires LEADER or groups.manage_members.
func (s *GroupService) Invite(ctx context.Context, actorID, groupID, inviteeID string, role models.GroupRole) (*models.GroupInvite, error) {
	ctx = ensureContext(ctx)

	role, ok := models.ParseGroupRole(string(role))
	if !ok {
		return nil, apperrors.NewBadRequest("unknown group role")
	}
	group, err := s.authorizeAdmin(ctx, actorID, groupID, permissions.GroupsManageMembers)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := db.Select("id").Take(&models.User{}, "id = ?", inviteeID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("group service: load invitee: %w", err)
	}
	if _, member, err := memberRole(db, inviteeID, group.ID); err != nil {
		return nil, err
	} else if member {
		return nil, ErrAlreadyMember
	}

	invite := &models.GroupInvite{
		GroupID:     group.ID,
		InviteeID:   inviteeID,
		InvitedByID: actorID,
		Role:        role,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(invite).Error; err != nil {
			return err
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "group.invite",
			EntityType:  EntityGroup,
			EntityID:    group.ID,
			Details:     map[string]any{"invitee_id": inviteeID, "role": string(role)},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("group service: create invite: %w", err)
	}
	return invite, nil
}

// AcceptInvite turns a pending invite addressed to userID into a membership.
// Accepting twice returns the existing membership.
func (s *GroupService) AcceptInvite(ctx context.Context, userID, inviteID string) (*models.GroupMember, error) {
	ctx = ensureContext(ctx)

	var member models.GroupMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invite models.GroupInvite
		err := tx.Take(&invite, "id = ? AND invitee_id = ?", inviteID, userID).Error
		if isNotFound(err) {
			return ErrInviteNotFound
		}
		if err != nil {
			return fmt.Errorf("group service: load invite: %w", err)
		}
		if invite.AcceptedAt != nil {
			err := tx.Take(&member, "user_id = ? AND group_id = ?", userID, invite.GroupID).Error
			if isNotFound(err) {
				return ErrInviteNotFound
			}
			return err
		}

		member = models.GroupMember{UserID: userID, GroupID: invite.GroupID, Role: invite.Role}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member)
		if res.Error != nil {
			return fmt.Errorf("group service: create membership: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return tx.Take(&member, "user_id = ? AND group_id = ?", userID, invite.GroupID).Error
		}

		now := time.Now()
		if err := tx.Model(&invite).Update("accepted_at", &now).Error; err != nil {
			return fmt.Errorf("group service: mark invite accepted: %w", err)
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: userID,
			Action:      "group.join",
			EntityType:  EntityGroup,
			EntityID:    invite.GroupID,
			Details:     map[string]any{"invite_id": invite.ID, "role": string(invite.Role)},
		})
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// RemoveMember removes userID from the group. Requires LEADER or groups.manage_members.
func (s *GroupService) RemoveMember(ctx context.Context, actorID, groupID, userID string) error {
	ctx = ensureContext(ctx)

	group, err := s.authorizeAdmin(ctx, actorID, groupID, permissions.GroupsManageMembers)
	if err != nil {
		return err
	}
	return s.removeMember(ctx, actorID, group.ID, userID, "group.remove_member")
}

// Leave removes the actor from the group.
func (s *GroupService) Leave(ctx context.Context, userID, groupID string) error {
	ctx = ensureContext(ctx)

	group, err := s.Get(ctx, groupID)
	if err != nil {
		return err
	}
	return s.removeMember(ctx, userID, group.ID, userID, "group.leave")
}

// SetMemberRole changes a member's role. Requires LEADER or groups.manage_members.
func (s *GroupService) SetMemberRole(ctx context.Context, actorID, groupID, userID string, role models.GroupRole) (*models.GroupMember, error) {
	ctx = ensureContext(ctx)

	role, ok := models.ParseGroupRole(string(role))
	if !ok {
		return nil, apperrors.NewBadRequest("unknown group role")
	}
	group, err := s.authorizeAdmin(ctx, actorID, groupID, permissions.GroupsManageMembers)
	if err != nil {
		return nil, err
	}

	var member models.GroupMember
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Take(&member, "user_id = ? AND group_id = ?", userID, group.ID).Error
		if isNotFound(err) {
			return ErrMemberNotFound
		}
		if err != nil {
			return fmt.Errorf("group service: load membership: %w", err)
		}
		if member.Role == role {
			return nil
		}
		if member.Role == models.GroupRoleLeader {
			if err := ensureOtherLeader(tx, group.ID, userID); err != nil {
				return err
			}
		}

		previous := member.Role
		if err := tx.Model(&member).Update("role", role).Error; err != nil {
			return fmt.Errorf("group service: update role: %w", err)
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      "group.set_role",
			EntityType:  EntityGroup,
			EntityID:    group.ID,
			Details: map[string]any{
				"user_id":  userID,
				"previous": string(previous),
				"role":     string(role),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *GroupService) removeMember(ctx context.Context, actorID, groupID, userID, action string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.GroupMember
		err := tx.Take(&member, "user_id = ? AND group_id = ?", userID, groupID).Error
		if isNotFound(err) {
			return ErrMemberNotFound
		}
		if err != nil {
			return fmt.Errorf("group service: load membership: %w", err)
		}
		if member.Role == models.GroupRoleLeader {
			if err := ensureOtherLeader(tx, groupID, userID); err != nil {
				return err
			}
		}

		if err := tx.Delete(&models.GroupMember{}, "id = ?", member.ID).Error; err != nil {
			return fmt.Errorf("group service: delete membership: %w", err)
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: actorID,
			Action:      action,
			EntityType:  EntityGroup,
			EntityID:    groupID,
			Details:     map[string]any{"user_id": userID, "role": string(member.Role)},
		})
	})
}

// authorizeAdmin loads the group and requires the actor to lead it or hold override.
func (s *GroupService) authorizeAdmin(ctx context.Context, actorID, groupID string, override permissions.ID) (*models.ScanlationGroup, error) {
	group, err := s.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.checker.HasPermission(ctx, actorID, override)
	if err != nil {
		return nil, fmt.Errorf("group service: check override: %w", err)
	}
	if allowed {
		return group, nil
	}

	role, ok, err := memberRole(s.db.WithContext(ctx), actorID, group.ID)
	if err != nil {
		return nil, err
	}
	if !ok || role != models.GroupRoleLeader {
		return nil, apperrors.NewForbidden("only group leaders can manage this group")
	}
	return group, nil
}

// ensureOtherLeader locks the group's leader rows for the rest of tx and fails
// with ErrLastLeader when userID is the only one.
func ensureOtherLeader(tx *gorm.DB, groupID, userID string) error {
	var leaders []string
	if err := tx.Model(&models.GroupMember{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("group_id = ? AND role = ?", groupID, models.GroupRoleLeader).
		Pluck("user_id", &leaders).Error; err != nil {
		return fmt.Errorf("group service: lock leaders: %w", err)
	}
	for _, leaderID := range leaders {
		if leaderID != userID {
			return nil
		}
	}
	return ErrLastLeader
}
