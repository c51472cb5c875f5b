package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/inkhub/internal/auditctx"
	"github.com/charlesng35/inkhub/internal/models"
)

// Ledger entity types.
const (
	EntityGroup   = "group"
	EntityWork    = "work"
	EntityChapter = "chapter"
	EntityAuthor  = "author"
	EntityRole    = "role"
	EntityUser    = "user"
)

// ActivityEntry captures a single ledger event to persist.
type ActivityEntry struct {
	PerformedBy string
	Action      string
	EntityType  string
	EntityID    string
	Details     map[string]any
}

// ActivityFilters narrows ledger queries.
type ActivityFilters struct {
	PerformedBy string
	Action      string
	EntityType  string
	EntityID    string
	Since       *time.Time
	Until       *time.Time
}

// ActivityListOptions controls pagination and filtering for ledger queries.
type ActivityListOptions struct {
	Page     int
	PageSize int
	Filters  ActivityFilters
}

// ActivityService appends to and reads the activity ledger. Entries are never
// updated or deleted.
type ActivityService struct {
	db *gorm.DB
}

// NewActivityService constructs an ActivityService using the provided database handle.
func NewActivityService(db *gorm.DB) (*ActivityService, error) {
	if db == nil {
		return nil, errors.New("activity service: db is required")
	}
	return &ActivityService{db: db}, nil
}

// Record writes entry using tx, which must be the transaction of the mutation
// being described. A failed write aborts that transaction.
func (s *ActivityService) Record(tx *gorm.DB, entry ActivityEntry) error {
	if tx == nil {
		return errors.New("activity service: transaction is required")
	}

	entry.PerformedBy = strings.TrimSpace(entry.PerformedBy)
	entry.Action = strings.TrimSpace(entry.Action)
	entry.EntityType = strings.TrimSpace(entry.EntityType)
	entry.EntityID = strings.TrimSpace(entry.EntityID)
	if entry.PerformedBy == "" || entry.Action == "" || entry.EntityType == "" || entry.EntityID == "" {
		return errors.New("activity service: performer, action and entity are required")
	}

	var details datatypes.JSON
	if entry.Details != nil {
		encoded, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("activity service: marshal details: %w", err)
		}
		details = datatypes.JSON(encoded)
	}

	log := models.ActivityLog{
		PerformedBy: entry.PerformedBy,
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Details:     details,
	}
	if origin, ok := auditctx.FromContext(tx.Statement.Context); ok {
		log.IPAddress = origin.IPAddress
		log.UserAgent = origin.UserAgent
	}
	if err := tx.Create(&log).Error; err != nil {
		return fmt.Errorf("activity service: record %s: %w", entry.Action, err)
	}
	return nil
}

// List returns paginated ledger entries ordered by creation time descending.
func (s *ActivityService) List(ctx context.Context, opts ActivityListOptions) ([]models.ActivityLog, int64, error) {
	ctx = ensureContext(ctx)
	offset, limit := pageBounds(opts.Page, opts.PageSize)

	var (
		results []models.ActivityLog
		total   int64
	)

	query := applyActivityFilters(s.db.WithContext(ctx).Model(&models.ActivityLog{}), opts.Filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("activity service: count entries: %w", err)
	}

	if err := query.
		Order("created_at DESC").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("activity service: list entries: %w", err)
	}

	return results, total, nil
}

func applyActivityFilters(query *gorm.DB, filters ActivityFilters) *gorm.DB {
	if v := strings.TrimSpace(filters.PerformedBy); v != "" {
		query = query.Where("performed_by = ?", v)
	}
	if v := strings.TrimSpace(filters.Action); v != "" {
		query = query.Where("action = ?", v)
	}
	if v := strings.TrimSpace(filters.EntityType); v != "" {
		query = query.Where("entity_type = ?", v)
	}
	if v := strings.TrimSpace(filters.EntityID); v != "" {
		query = query.Where("entity_id = ?", v)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}
