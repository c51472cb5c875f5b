package permissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ID names a permission in the closed catalog, e.g. "webtoons.edit".
type ID string

func (id ID) String() string { return string(id) }

// Category returns the dotted prefix of the identifier ("webtoons" for "webtoons.edit").
func (id ID) Category() string {
	name := string(id)
	if idx := strings.IndexByte(name, '.'); idx > 0 {
		return name[:idx]
	}
	return name
}

// Permission describes a permission definition in the catalog.
type Permission struct {
	ID          ID
	DependsOn   []ID
	Implies     []ID
	Description string
}

type permissionRegistry struct {
	mu          sync.RWMutex
	permissions map[ID]*Permission
}

var globalRegistry = &permissionRegistry{
	permissions: make(map[ID]*Permission),
}

var (
	errNilPermission   = errors.New("permission: nil definition")
	errEmptyID         = errors.New("permission: id is required")
	errMissingCategory = errors.New("permission: id must be <category>.<action>")
	errDuplicateID     = errors.New("permission: already registered")
	errSelfDependency  = errors.New("permission: cannot depend on itself")
	errSelfImplication = errors.New("permission: cannot imply itself")
)

// register adds a permission definition to the catalog. The catalog is closed:
// only this package registers permissions, from init.
func register(perm *Permission) error {
	if perm == nil {
		return errNilPermission
	}

	id := ID(strings.TrimSpace(string(perm.ID)))
	if id == "" {
		return errEmptyID
	}
	if !strings.Contains(string(id), ".") {
		return fmt.Errorf("%w: %s", errMissingCategory, id)
	}

	def := clonePermission(perm)
	def.ID = id

	depends, err := normaliseIDs(def.DependsOn, id, errSelfDependency)
	if err != nil {
		return err
	}
	implies, err := normaliseIDs(def.Implies, id, errSelfImplication)
	if err != nil {
		return err
	}
	def.DependsOn = depends
	def.Implies = implies

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if _, exists := globalRegistry.permissions[id]; exists {
		return fmt.Errorf("%w: %s", errDuplicateID, id)
	}

	globalRegistry.permissions[id] = def
	return nil
}

// Parse converts a textual permission name into a catalog ID.
func Parse(name string) (ID, error) {
	id := ID(strings.TrimSpace(name))
	if !Known(id) {
		return "", fmt.Errorf("%w %q", ErrUnknownPermission, name)
	}
	return id, nil
}

// Known reports whether id is part of the catalog.
func Known(id ID) bool {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	_, ok := globalRegistry.permissions[id]
	return ok
}

// Get returns a copy of the permission definition when registered.
func Get(id ID) (*Permission, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	perm, ok := globalRegistry.permissions[id]
	if !ok {
		return nil, false
	}
	return clonePermission(perm), true
}

// GetAll returns a copy of all registered permissions keyed by ID.
func GetAll() map[ID]*Permission {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	out := make(map[ID]*Permission, len(globalRegistry.permissions))
	for id, perm := range globalRegistry.permissions {
		out[id] = clonePermission(perm)
	}
	return out
}

// IDs returns every registered identifier in sorted order.
func IDs() []ID {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	ids := make([]ID, 0, len(globalRegistry.permissions))
	for id := range globalRegistry.permissions {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// GetByCategory gathers permissions sharing the dotted category prefix.
func GetByCategory(category string) []*Permission {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	category = strings.TrimSpace(category)
	var perms []*Permission
	for id, perm := range globalRegistry.permissions {
		if id.Category() == category {
			perms = append(perms, clonePermission(perm))
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].ID < perms[j].ID })
	return perms
}

// ValidateDependencies ensures that all dependencies and implications reference known permissions.
func ValidateDependencies() error {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	for _, perm := range globalRegistry.permissions {
		for _, dep := range perm.DependsOn {
			if _, ok := globalRegistry.permissions[dep]; !ok {
				return fmt.Errorf("permission: %s depends on unknown permission %s", perm.ID, dep)
			}
		}
		for _, implied := range perm.Implies {
			if _, ok := globalRegistry.permissions[implied]; !ok {
				return fmt.Errorf("permission: %s implies unknown permission %s", perm.ID, implied)
			}
		}
	}
	return nil
}

func clonePermission(perm *Permission) *Permission {
	if perm == nil {
		return nil
	}

	cp := *perm
	if len(perm.DependsOn) > 0 {
		cp.DependsOn = append([]ID(nil), perm.DependsOn...)
	}
	if len(perm.Implies) > 0 {
		cp.Implies = append([]ID(nil), perm.Implies...)
	}
	return &cp
}

func normaliseIDs(values []ID, self ID, selfErr error) ([]ID, error) {
	if len(values) == 0 {
		return nil, nil
	}

	seen := make(map[ID]struct{}, len(values))
	var result []ID

	for _, value := range values {
		value = ID(strings.TrimSpace(string(value)))
		if value == "" {
			continue
		}
		if value == self {
			return nil, selfErr
		}
		if _, exists := seen[value]; exists {
			continue
		}

		seen[value] = struct{}{}
		result = append(result, value)
	}

	return result, nil
}

func sortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
