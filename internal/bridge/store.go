package bridge

import (
	"context"
	"sync"

	"github.com/mynest/mediasniff/internal/model"
)

// Store persists sniff results. database.SniffDB implements it.
type Store interface {
	SaveSniff(ctx context.Context, report *model.SniffReport) error
	UpdateThumbnail(ctx context.Context, update model.ThumbnailUpdate) (bool, error)
	LatestForPage(ctx context.Context, pageURL string) (*model.SniffReport, error)
}

// MemoryStore keeps the latest result per page in memory, like the
// extension's per-tab cache. Stored reports are copies, so callers never
// share resources with it.
type MemoryStore struct {
	mu     sync.RWMutex
	byPage map[string]*model.SniffReport
	byID   map[string]*model.SniffReport
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byPage: make(map[string]*model.SniffReport),
		byID:   make(map[string]*model.SniffReport),
	}
}

// SaveSniff stores a copy of report as the latest result for its page.
func (s *MemoryStore) SaveSniff(_ context.Context, report *model.SniffReport) error {
	c := report.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byPage[c.PageURL]; ok {
		if prev.StartedAt.After(c.StartedAt) {
			return nil
		}
		delete(s.byID, prev.ID)
	}
	s.byPage[c.PageURL] = c
	s.byID[c.ID] = c
	return nil
}

// UpdateThumbnail applies update to the stored report it belongs to.
func (s *MemoryStore) UpdateThumbnail(_ context.Context, update model.ThumbnailUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.byID[update.SniffID]
	if !ok {
		return false, nil
	}
	return report.ApplyThumbnail(update), nil
}

// LatestForPage returns a copy of the latest result for pageURL, or nil.
func (s *MemoryStore) LatestForPage(_ context.Context, pageURL string) (*model.SniffReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.byPage[pageURL]
	if !ok {
		return nil, nil
	}
	return report.Clone(), nil
}
