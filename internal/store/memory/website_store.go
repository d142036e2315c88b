// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/eventlens/crawler/internal/ingest"
)

// WebsiteStore keeps registered websites in a map.
type WebsiteStore struct {
	mu    sync.RWMutex
	sites map[string]ingest.Website
}

// NewWebsiteStore constructs a WebsiteStore.
func NewWebsiteStore() *WebsiteStore {
	return &WebsiteStore{sites: make(map[string]ingest.Website)}
}

// CreateWebsite stores a new website.
func (s *WebsiteStore) CreateWebsite(_ context.Context, site ingest.Website) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[site.ID] = site
	return nil
}

// GetWebsite fetches a website by ID.
func (s *WebsiteStore) GetWebsite(_ context.Context, id string) (ingest.Website, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[id]
	if !ok {
		return ingest.Website{}, ingest.ErrNotFound
	}
	return site, nil
}

// ListWebsites returns websites newest first, optionally active only.
func (s *WebsiteStore) ListWebsites(_ context.Context, activeOnly bool) ([]ingest.Website, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ingest.Website, 0, len(s.sites))
	for _, site := range s.sites {
		if activeOnly && !site.Active {
			continue
		}
		out = append(out, site)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteWebsite removes a website by ID.
func (s *WebsiteStore) DeleteWebsite(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sites[id]; !ok {
		return ingest.ErrNotFound
	}
	delete(s.sites, id)
	return nil
}
