package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/inkhub/pkg/errors"
	"github.com/charlesng35/inkhub/pkg/logger"
	"github.com/charlesng35/inkhub/pkg/metrics"
)

var (
	ErrUserNotFound    = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	ErrGroupNotFound   = apperrors.New("GROUP_NOT_FOUND", "Group not found", http.StatusNotFound)
	ErrWorkNotFound    = apperrors.New("WORK_NOT_FOUND", "Work not found", http.StatusNotFound)
	ErrChapterNotFound = apperrors.New("CHAPTER_NOT_FOUND", "Chapter not found", http.StatusNotFound)
	ErrAuthorNotFound  = apperrors.New("AUTHOR_NOT_FOUND", "Author not found", http.StatusNotFound)
	ErrRoleNotFound    = apperrors.New("ROLE_NOT_FOUND", "Role not found", http.StatusNotFound)
	ErrInviteNotFound  = apperrors.New("INVITE_NOT_FOUND", "Invite not found", http.StatusNotFound)
	ErrMemberNotFound  = apperrors.New("MEMBER_NOT_FOUND", "User is not a member of the group", http.StatusNotFound)
	ErrClaimNotFound   = apperrors.New("CLAIM_NOT_FOUND", "Group does not claim this work", http.StatusNotFound)

	// ErrChapterNumberExists is returned when a group already released the chapter number for a work.
	ErrChapterNumberExists = apperrors.NewConflict("CHAPTER_NUMBER_EXISTS", "Chapter number already exists for this group")
	// ErrSlugTaken is returned when a concurrent writer took the allocated slug first.
	ErrSlugTaken = apperrors.NewConflict("SLUG_TAKEN", "Slug already in use, retry the request")
	// ErrLastLeader prevents a group from losing its final leader.
	ErrLastLeader          = apperrors.NewConflict("LAST_LEADER", "A group must keep at least one leader")
	ErrAlreadyMember       = apperrors.NewConflict("ALREADY_MEMBER", "User is already a member of the group")
	ErrAuthorProfileExists = apperrors.NewConflict("AUTHOR_PROFILE_EXISTS", "User already has an author profile")
	ErrGroupHasChapters    = apperrors.NewConflict("GROUP_HAS_CHAPTERS", "Group still has published chapters")
	ErrRoleNameTaken       = apperrors.NewConflict("ROLE_NAME_TAKEN", "Role name already exists")
	// ErrSystemRoleImmutable protects seeded roles from rename and deletion.
	ErrSystemRoleImmutable = apperrors.NewConflict("SYSTEM_ROLE_IMMUTABLE", "System roles cannot be renamed or deleted")
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint failed") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry")
}

// recordConflict counts a uniqueness violation that was mapped to a domain outcome.
func recordConflict(entity string, err error) {
	metrics.StoreConflicts.WithLabelValues(entity).Inc()
	logger.WithModule("services").Info("store conflict", zap.String("entity", entity), zap.Error(err))
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
