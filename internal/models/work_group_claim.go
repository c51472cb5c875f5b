package models

// WorkGroupClaim links a work to a group that manages it. (work_id, group_id) is unique.
type WorkGroupClaim struct {
	BaseModel

	WorkID      string `gorm:"size:64;not null;uniqueIndex:idx_work_group_claims_work_group,priority:1" json:"work_id"`
	GroupID     string `gorm:"size:64;not null;index;uniqueIndex:idx_work_group_claims_work_group,priority:2" json:"group_id"`
	ClaimedByID string `gorm:"size:64" json:"claimed_by_id"`

	Group *ScanlationGroup `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"group,omitempty"`
}
