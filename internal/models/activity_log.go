package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrActivityLogImmutable is returned when code attempts to rewrite the ledger.
var ErrActivityLogImmutable = errors.New("activity log entries are append-only")

// ActivityLog is one append-only ledger entry written with the mutation it describes.
type ActivityLog struct {
	ID          string         `gorm:"primaryKey;size:64" json:"id"`
	PerformedBy string         `gorm:"size:64;not null;index" json:"performed_by"`
	Action      string         `gorm:"size:64;not null;index" json:"action"`
	EntityType  string         `gorm:"size:32;not null;index:idx_activity_logs_entity,priority:1" json:"entity_type"`
	EntityID    string         `gorm:"size:64;not null;index:idx_activity_logs_entity,priority:2" json:"entity_id"`
	Details     datatypes.JSON `json:"details"`
	IPAddress   string         `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent   string         `gorm:"size:255" json:"user_agent,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a *ActivityLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrActivityLogImmutable
}

func (a *ActivityLog) BeforeDelete(tx *gorm.DB) error {
	return ErrActivityLogImmutable
}
