package models

import "strings"

// GroupRole is the role a member holds inside one scanlation group.
type GroupRole string

const (
	GroupRoleLeader   GroupRole = "LEADER"
	GroupRoleMember   GroupRole = "MEMBER"
	GroupRoleUploader GroupRole = "UPLOADER"
)

// ParseGroupRole normalises a textual role; ok is false for unknown values.
func ParseGroupRole(value string) (GroupRole, bool) {
	switch role := GroupRole(strings.ToUpper(strings.TrimSpace(value))); role {
	case GroupRoleLeader, GroupRoleMember, GroupRoleUploader:
		return role, true
	default:
		return "", false
	}
}

// GroupMember records a user's membership in a group. (user_id, group_id) is unique.
type GroupMember struct {
	BaseModel

	UserID  string    `gorm:"size:64;not null;uniqueIndex:idx_group_members_user_group,priority:1" json:"user_id"`
	GroupID string    `gorm:"size:64;not null;index;uniqueIndex:idx_group_members_user_group,priority:2" json:"group_id"`
	Role    GroupRole `gorm:"size:16;not null;default:MEMBER" json:"role"`

	User  *User            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Group *ScanlationGroup `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}
