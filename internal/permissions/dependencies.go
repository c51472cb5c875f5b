package permissions

import (
	"fmt"
)

var (
	// ErrUnknownPermission indicates a permission lookup failed because it is not in the catalog.
	ErrUnknownPermission = fmt.Errorf("permission: unknown permission")
	// ErrCircularDependency signals that a dependency graph contains a cycle.
	ErrCircularDependency = fmt.Errorf("permission: circular dependency detected")
)

// ResolveDependencies returns the full dependency chain for the specified permission.
func ResolveDependencies(permissionID ID) ([]ID, error) {
	perms := GetAll()

	root, ok := perms[permissionID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownPermission, permissionID)
	}

	visited := make(map[ID]bool, len(perms))
	recStack := make(map[ID]bool, len(perms))
	var resolved []ID

	var walk func(ID) error
	walk = func(current ID) error {
		perm, ok := perms[current]
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownPermission, current)
		}
		if recStack[current] {
			return fmt.Errorf("%w at %s", ErrCircularDependency, current)
		}
		if visited[current] {
			return nil
		}

		recStack[current] = true
		for _, dep := range perm.DependsOn {
			if err := walk(dep); err != nil {
				return err
			}
		}
		recStack[current] = false
		visited[current] = true

		if current != permissionID {
			resolved = append(resolved, current)
		}

		return nil
	}

	for _, dep := range root.DependsOn {
		if err := walk(dep); err != nil {
			return nil, err
		}
	}

	return resolved, nil
}

// MissingDependencies reports which dependencies of the requested grants are
// absent from the grant set itself, after expanding implications.
func MissingDependencies(grants []ID) (map[ID][]ID, error) {
	granted, err := expandImplied(grants)
	if err != nil {
		return nil, err
	}

	missing := make(map[ID][]ID)
	for _, id := range grants {
		deps, err := ResolveDependencies(id)
		if err != nil {
			return nil, err
		}
		for _, dep := range deps {
			if _, ok := granted[dep]; !ok {
				missing[id] = append(missing[id], dep)
			}
		}
	}
	return missing, nil
}
