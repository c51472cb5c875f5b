// Package slug turns display names into URL-safe identifiers and allocates them
// uniquely per scope.
package slug

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// Scope names a uniqueness domain for slugs.
type Scope string

const (
	// ScopeWorks is shared by webtoons and novels.
	ScopeWorks   Scope = "works"
	ScopeGroups  Scope = "groups"
	ScopeAuthors Scope = "authors"
)

const suffixLength = 6

// ErrExhausted is returned when every attempt collided with an existing slug.
var ErrExhausted = errors.New("slug: no free slug available")

type scopeInfo struct {
	table    string
	fallback string
}

var scopes = map[Scope]scopeInfo{
	ScopeWorks:   {table: "works", fallback: "work"},
	ScopeGroups:  {table: "scanlation_groups", fallback: "group"},
	ScopeAuthors: {table: "authors", fallback: "author"},
}

// Config bounds slug length per scope and the number of collision retries.
type Config struct {
	MaxLength   map[Scope]int
	MaxAttempts int
}

// DefaultConfig mirrors the column sizes of the backing tables.
func DefaultConfig() Config {
	return Config{
		MaxLength: map[Scope]int{
			ScopeWorks:   200,
			ScopeGroups:  100,
			ScopeAuthors: 100,
		},
		MaxAttempts: 8,
	}
}

// Allocator hands out slugs that are free at the time of the check. The unique
// index on each table still decides races between concurrent writers.
type Allocator struct {
	cfg Config
}

// NewAllocator constructs an allocator, filling unset values from DefaultConfig.
func NewAllocator(cfg Config) *Allocator {
	defaults := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	limits := make(map[Scope]int, len(defaults.MaxLength))
	for scope, max := range defaults.MaxLength {
		limits[scope] = max
		if v, ok := cfg.MaxLength[scope]; ok && v > suffixLength+1 {
			limits[scope] = v
		}
	}
	cfg.MaxLength = limits
	return &Allocator{cfg: cfg}
}

// Allocate derives a slug from candidate and makes it unique within scope.
func (a *Allocator) Allocate(ctx context.Context, db *gorm.DB, candidate string, scope Scope) (string, error) {
	info, ok := scopes[scope]
	if !ok {
		return "", fmt.Errorf("slug: unknown scope %q", scope)
	}
	if db == nil {
		return "", errors.New("slug: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	maxLen := a.cfg.MaxLength[scope]
	base := Slugify(candidate, maxLen)
	if base == "" {
		base = info.fallback
	}

	taken, err := exists(ctx, db, info.table, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	stem := truncate(base, maxLen-suffixLength-1)
	if stem == "" {
		stem = info.fallback
	}
	for attempt := 0; attempt < a.cfg.MaxAttempts; attempt++ {
		next := stem + "-" + randomSuffix()
		taken, err := exists(ctx, db, info.table, next)
		if err != nil {
			return "", err
		}
		if !taken {
			return next, nil
		}
	}

	return "", fmt.Errorf("%w for %q in %s", ErrExhausted, base, scope)
}

func exists(ctx context.Context, db *gorm.DB, table, value string) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Table(table).Where("slug = ?", value).Count(&count).Error; err != nil {
		return false, fmt.Errorf("slug: lookup %s: %w", table, err)
	}
	return count > 0, nil
}

func randomSuffix() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:suffixLength]
}

// Slugify folds name to lower-case ASCII letters and digits separated by single
// hyphens, at most maxLen bytes long. Accents are stripped; other scripts drop
// out, so the result may be empty.
func Slugify(name string, maxLen int) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	return truncate(b.String(), maxLen)
}

func truncate(value string, maxLen int) string {
	if maxLen > 0 && len(value) > maxLen {
		value = value[:maxLen]
	}
	return strings.Trim(value, "-")
}
