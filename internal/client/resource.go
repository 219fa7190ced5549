package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// AudioResource is a revocable handle to one generated payload.
type AudioResource struct {
	ID   uuid.UUID
	Path string
	Size int
}

// ResourceStore creates and releases audio resources. Release of a nil or
// already released resource must be a no-op.
type ResourceStore interface {
	Create(data []byte) (*AudioResource, error)
	Release(res *AudioResource) error
}

// TempFileStore backs each resource with a uuid-named .mp3 file in Dir.
type TempFileStore struct {
	dir string

	mu   sync.Mutex
	live map[uuid.UUID]string
}

var _ ResourceStore = (*TempFileStore)(nil)

// NewTempFileStore uses os.TempDir() when dir is empty.
func NewTempFileStore(dir string) (*TempFileStore, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio dir: %w", err)
	}
	return &TempFileStore{dir: dir, live: make(map[uuid.UUID]string)}, nil
}

func (s *TempFileStore) Create(data []byte) (*AudioResource, error) {
	id := uuid.New()
	path := filepath.Join(s.dir, "story-voice-"+id.String()+".mp3")

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write audio file: %w", err)
	}

	s.mu.Lock()
	s.live[id] = path
	s.mu.Unlock()

	return &AudioResource{ID: id, Path: path, Size: len(data)}, nil
}

func (s *TempFileStore) Release(res *AudioResource) error {
	if res == nil {
		return nil
	}

	s.mu.Lock()
	path, ok := s.live[res.ID]
	delete(s.live, res.ID)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove audio file: %w", err)
	}
	return nil
}

// Live reports how many resources have been created and not released.
func (s *TempFileStore) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}
