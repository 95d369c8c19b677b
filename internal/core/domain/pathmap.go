package domain

import "fmt"

// PathMap is a bidirectional mapping between file ids and local paths.
// Both ids and paths are unique. It is not safe for concurrent use.
type PathMap struct {
	byID   map[string]string
	byPath map[string]string
}

// NewPathMap builds a PathMap from id to path pairs.
// Returns ErrPathCollision if two ids share a path.
func NewPathMap(pairs map[string]string) (*PathMap, error) {
	m := &PathMap{
		byID:   make(map[string]string, len(pairs)),
		byPath: make(map[string]string, len(pairs)),
	}
	for id, path := range pairs {
		if err := m.Add(id, path); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add maps id to path. Re-adding an identical pair is a no-op.
func (m *PathMap) Add(id, path string) error {
	if id == "" || path == "" {
		return fmt.Errorf("%w: empty id or path", ErrInvalidInput)
	}
	if owner, ok := m.byPath[path]; ok {
		if owner == id {
			return nil
		}
		return fmt.Errorf("%w: %s already mapped to %s", ErrPathCollision, path, owner)
	}
	if old, ok := m.byID[id]; ok {
		delete(m.byPath, old)
	}
	m.byID[id] = path
	m.byPath[path] = id
	return nil
}

// Path returns the path for id.
func (m *PathMap) Path(id string) (string, bool) {
	p, ok := m.byID[id]
	return p, ok
}

// ID returns the id for path.
func (m *PathMap) ID(path string) (string, bool) {
	id, ok := m.byPath[path]
	return id, ok
}

// Remove drops id and its path.
func (m *PathMap) Remove(id string) {
	if p, ok := m.byID[id]; ok {
		delete(m.byPath, p)
		delete(m.byID, id)
	}
}

// Len returns the number of mappings.
func (m *PathMap) Len() int {
	return len(m.byID)
}
