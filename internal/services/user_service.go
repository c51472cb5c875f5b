package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/inkhub/internal/models"
	apperrors "github.com/charlesng35/inkhub/pkg/errors"
)

// DefaultRoleID is assigned to users seen for the first time.
const DefaultRoleID = "user"

// Identity is the subset of session claims mirrored into the users table.
type Identity struct {
	UserID      string
	Username    string
	Email       string
	DisplayName string
}

// UserService mirrors users authenticated by the external session service.
type UserService struct {
	db       *gorm.DB
	activity *ActivityService
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, activity *ActivityService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if activity == nil {
		return nil, errors.New("user service: activity service is required")
	}
	return &UserService{db: db, activity: activity}, nil
}

// EnsureUser returns the local user for identity, creating it with the default
// role on first sight. Existing users keep their role.
func (s *UserService) EnsureUser(ctx context.Context, identity Identity) (*models.User, error) {
	ctx = ensureContext(ctx)

	id := strings.TrimSpace(identity.UserID)
	if id == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", id).Error
	if err == nil {
		return &user, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	username := strings.TrimSpace(identity.Username)
	if username == "" {
		username = id
	}
	roleID := DefaultRoleID
	user = models.User{
		BaseModel:   models.BaseModel{ID: id},
		Username:    username,
		Email:       strings.TrimSpace(identity.Email),
		DisplayName: strings.TrimSpace(identity.DisplayName),
		RoleID:      &roleID,
	}

	err = s.create(ctx, &user)
	if isUniqueConstraintError(err) {
		// Either a concurrent request created the row or the username belongs to
		// someone else; the id lookup tells which.
		if takeErr := s.db.WithContext(ctx).Take(&user, "id = ?", id).Error; takeErr == nil {
			return &user, nil
		}
		suffix := id
		if len(suffix) > 8 {
			suffix = suffix[:8]
		}
		user.Username = username + "-" + suffix
		err = s.create(ctx, &user)
	}
	if err != nil {
		return nil, fmt.Errorf("user service: create user: %w", err)
	}
	return &user, nil
}

// create inserts the mirrored user and its ledger entry. The user is recorded as
// their own actor.
func (s *UserService) create(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return s.activity.Record(tx, ActivityEntry{
			PerformedBy: user.ID,
			Action:      "user.create",
			EntityType:  EntityUser,
			EntityID:    user.ID,
			Details: map[string]any{
				"username": user.Username,
				"role_id":  DefaultRoleID,
			},
		})
	})
}

// Get loads a user with their role.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Preload("Role").Take(&user, "id = ?", id).Error
	if isNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}
