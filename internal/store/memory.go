package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps photos and darkrooms in maps guarded by an RWMutex.
// Values are cloned on the way in and out so callers never share state
// with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	photos    map[string]*Photo
	darkrooms map[string]*Darkroom
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		photos:    make(map[string]*Photo),
		darkrooms: make(map[string]*Darkroom),
	}
}

func (m *MemoryStore) GetPhoto(_ context.Context, photoID string) (*Photo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.photos[photoID]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (m *MemoryStore) PutPhoto(_ context.Context, photo *Photo) error {
	if photo.ID == "" {
		return fmt.Errorf("put photo: empty id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos[photo.ID] = photo.Clone()
	return nil
}

func (m *MemoryStore) UpdatePhoto(_ context.Context, photoID string, u PhotoUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[photoID]
	if !ok {
		return fmt.Errorf("update photo %s: %w", photoID, ErrNotFound)
	}
	u.Apply(p)
	return nil
}

func (m *MemoryStore) QueryPhotos(_ context.Context, userID string, status Status) ([]*Photo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Photo
	for _, p := range m.photos {
		if p.UserID == userID && p.Status == status {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

// BatchUpdatePhotos is all-or-nothing: every target is checked for
// existence before any patch is applied.
func (m *MemoryStore) BatchUpdatePhotos(_ context.Context, patches []PhotoPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, patch := range patches {
		if _, ok := m.photos[patch.PhotoID]; !ok {
			return &BatchError{
				Applied: 0,
				Total:   len(patches),
				Err:     fmt.Errorf("photo %s: %w", patch.PhotoID, ErrNotFound),
			}
		}
	}
	for _, patch := range patches {
		patch.Update.Apply(m.photos[patch.PhotoID])
	}
	return nil
}

func (m *MemoryStore) GetDarkroom(_ context.Context, userID string) (*Darkroom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.darkrooms[userID]
	if !ok {
		return nil, nil
	}
	return d.Clone(), nil
}

func (m *MemoryStore) PutDarkroom(_ context.Context, d *Darkroom) error {
	if d.UserID == "" {
		return fmt.Errorf("put darkroom: empty user id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.darkrooms[d.UserID] = d.Clone()
	return nil
}
