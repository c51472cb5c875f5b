package models

// ScanlationGroup is a translation/production team that can claim works.
type ScanlationGroup struct {
	BaseModel

	Name        string `gorm:"size:128;not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;size:100;not null" json:"slug"`
	Description string `json:"description"`
	Website     string `gorm:"size:255" json:"website"`
	CreatedByID string `gorm:"size:64;index" json:"created_by_id"`

	Members []GroupMember `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}
