package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/inkhub/internal/models"
)

// MembershipService answers questions about a user's scanlation group memberships.
// Every query accepts the handle it runs on so callers inside a transaction can
// keep reads on the same connection.
type MembershipService struct {
	db *gorm.DB
}

// NewMembershipService constructs a MembershipService.
func NewMembershipService(db *gorm.DB) (*MembershipService, error) {
	if db == nil {
		return nil, errors.New("membership service: db is required")
	}
	return &MembershipService{db: db}, nil
}

// IsUserMemberOfGroup reports whether the user belongs to the group with any role.
func (s *MembershipService) IsUserMemberOfGroup(ctx context.Context, userID, groupID string) (bool, error) {
	_, ok, err := s.MemberRole(ctx, userID, groupID)
	return ok, err
}

// IsUserInAnyGroup reports whether the user belongs to at least one group.
func (s *MembershipService) IsUserInAnyGroup(ctx context.Context, userID string) (bool, error) {
	return isInAnyGroup(s.db.WithContext(ensureContext(ctx)), userID)
}

// MemberRole returns the user's role in the group; ok is false for non-members.
func (s *MembershipService) MemberRole(ctx context.Context, userID, groupID string) (models.GroupRole, bool, error) {
	return memberRole(s.db.WithContext(ensureContext(ctx)), userID, groupID)
}

// IsLeader reports whether the user leads the group.
func (s *MembershipService) IsLeader(ctx context.Context, userID, groupID string) (bool, error) {
	role, ok, err := s.MemberRole(ctx, userID, groupID)
	if err != nil {
		return false, err
	}
	return ok && role == models.GroupRoleLeader, nil
}

// PrimaryGroupID returns the group the user joined first. Ties on join time are
// broken by group id so the answer is stable.
func (s *MembershipService) PrimaryGroupID(ctx context.Context, userID string) (string, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", false, nil
	}

	var member models.GroupMember
	err := s.db.WithContext(ensureContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("group_id ASC").
		First(&member).Error
	if isNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("membership service: primary group: %w", err)
	}
	return member.GroupID, true, nil
}

// GroupIDs lists every group the user belongs to.
func (s *MembershipService) GroupIDs(ctx context.Context, userID string) ([]string, error) {
	return memberGroupIDs(s.db.WithContext(ensureContext(ctx)), userID, nil)
}

func isInAnyGroup(db *gorm.DB, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, nil
	}

	var count int64
	if err := db.Model(&models.GroupMember{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("membership service: count memberships: %w", err)
	}
	return count > 0, nil
}

func memberRole(db *gorm.DB, userID, groupID string) (models.GroupRole, bool, error) {
	userID = strings.TrimSpace(userID)
	groupID = strings.TrimSpace(groupID)
	if userID == "" || groupID == "" {
		return "", false, nil
	}

	var member models.GroupMember
	err := db.Where("user_id = ? AND group_id = ?", userID, groupID).Take(&member).Error
	if isNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("membership service: load membership: %w", err)
	}
	return member.Role, true, nil
}

// memberGroupIDs returns the groups the user belongs to, restricted to within
// when it is non-empty.
func memberGroupIDs(db *gorm.DB, userID string, within []string) ([]string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}

	query := db.Model(&models.GroupMember{}).Where("user_id = ?", userID)
	if len(within) > 0 {
		query = query.Where("group_id IN ?", within)
	}

	var ids []string
	if err := query.Order("group_id").Pluck("group_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("membership service: list memberships: %w", err)
	}
	return ids, nil
}
