package models

import "strings"

// WorkKind distinguishes serialized titles. Slugs are unique across every kind.
type WorkKind string

const (
	WorkKindWebtoon WorkKind = "webtoon"
	WorkKindNovel   WorkKind = "novel"
)

// ParseWorkKind normalises a textual kind; ok is false for unknown values.
func ParseWorkKind(value string) (WorkKind, bool) {
	switch kind := WorkKind(strings.ToLower(strings.TrimSpace(value))); kind {
	case WorkKindWebtoon, WorkKindNovel:
		return kind, true
	default:
		return "", false
	}
}

// WorkStatus tracks publication state.
type WorkStatus string

const (
	WorkStatusOngoing   WorkStatus = "ongoing"
	WorkStatusCompleted WorkStatus = "completed"
	WorkStatusHiatus    WorkStatus = "hiatus"
	WorkStatusCancelled WorkStatus = "cancelled"
)

// Valid reports whether the status is one of the known values.
func (s WorkStatus) Valid() bool {
	switch s {
	case WorkStatusOngoing, WorkStatusCompleted, WorkStatusHiatus, WorkStatusCancelled:
		return true
	default:
		return false
	}
}

// Work is a webtoon or novel. Both kinds share one table so the slug index is global.
type Work struct {
	BaseModel

	Kind        WorkKind   `gorm:"size:16;not null;index" json:"kind"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Slug        string     `gorm:"uniqueIndex;size:200;not null" json:"slug"`
	Status      WorkStatus `gorm:"size:16;not null;default:ongoing" json:"status"`
	Description string     `gorm:"type:text" json:"description"`
	CreatedByID string     `gorm:"size:64;index" json:"created_by_id"`

	Claims  []WorkGroupClaim `gorm:"foreignKey:WorkID;constraint:OnDelete:CASCADE" json:"claims,omitempty"`
	Authors []Author         `gorm:"many2many:work_credits;constraint:OnDelete:CASCADE" json:"authors,omitempty"`
}
