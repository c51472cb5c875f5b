package models

import "time"

// GroupInvite is a pending offer for a user to join a group with a role.
type GroupInvite struct {
	BaseModel

	GroupID     string     `gorm:"size:64;not null;index" json:"group_id"`
	InviteeID   string     `gorm:"size:64;not null;index" json:"invitee_id"`
	InvitedByID string     `gorm:"size:64;not null" json:"invited_by_id"`
	Role        GroupRole  `gorm:"size:16;not null" json:"role"`
	AcceptedAt  *time.Time `json:"accepted_at"`

	Group *ScanlationGroup `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"group,omitempty"`
}
