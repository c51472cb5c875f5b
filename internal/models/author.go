package models

// Author is a credit profile. A user may own at most one profile.
type Author struct {
	BaseModel

	Name   string  `gorm:"size:128;not null" json:"name"`
	Slug   string  `gorm:"uniqueIndex;size:100;not null" json:"slug"`
	Bio    string  `gorm:"type:text" json:"bio"`
	UserID *string `gorm:"size:64;uniqueIndex" json:"user_id"`
}
