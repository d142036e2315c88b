package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eventlens/crawler/internal/ingest"
)

// StructureStore keeps schema versions in memory. One mutex hold covers the
// deactivate-all-then-activate-one step, so no observer ever sees zero or
// two active structures.
type StructureStore struct {
	mu         sync.RWMutex
	structures []ingest.Structure
}

// NewStructureStore constructs a StructureStore.
func NewStructureStore() *StructureStore {
	return &StructureStore{}
}

// CreateStructure deactivates all prior versions and appends the next one
// as active, with version = max(existing) + 1.
func (s *StructureStore) CreateStructure(_ context.Context, id string, fields map[string]any, now time.Time) (ingest.Structure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextVersion := 1
	for i := range s.structures {
		if s.structures[i].Version >= nextVersion {
			nextVersion = s.structures[i].Version + 1
		}
		s.structures[i].IsActive = false
	}

	created := ingest.Structure{
		ID:        id,
		Version:   nextVersion,
		IsActive:  true,
		Fields:    cloneTree(fields),
		CreatedAt: now,
	}
	s.structures = append(s.structures, created)
	return created, nil
}

// GetActiveStructure returns the single active version.
func (s *StructureStore) GetActiveStructure(_ context.Context) (ingest.Structure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.structures {
		if st.IsActive {
			return st, nil
		}
	}
	return ingest.Structure{}, ingest.ErrNoActiveStructure
}

// ListStructures returns all versions, newest first.
func (s *StructureStore) ListStructures(_ context.Context) ([]ingest.Structure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ingest.Structure, len(s.structures))
	copy(out, s.structures)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Version > out[j].Version
	})
	return out, nil
}

func cloneTree(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		if nested, ok := v.(map[string]any); ok {
			dst[k] = cloneTree(nested)
			continue
		}
		dst[k] = v
	}
	return dst
}
