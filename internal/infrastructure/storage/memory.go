// Package storage provides object storage implementations for document blobs.
package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	appdocument "github.com/ledgerdocs/backend/internal/application/document"
	"github.com/ledgerdocs/backend/internal/domain/shared"
)

// Ensure MemoryObjectStorage implements the object storage port
var _ appdocument.ObjectStorage = (*MemoryObjectStorage)(nil)

// MemoryObjectStorage keeps objects in process memory. Use this for
// development and tests; blobs do not survive a restart.
type MemoryObjectStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

type memoryObject struct {
	data     []byte
	mimeType string
}

// NewMemoryObjectStorage creates a new MemoryObjectStorage
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{
		objects: make(map[string]memoryObject),
		baseURL: "https://storage.invalid",
	}
}

// Put stores the bytes under the given key
func (s *MemoryObjectStorage) Put(_ context.Context, key string, data []byte, mimeType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = memoryObject{data: buf, mimeType: mimeType}
	return nil
}

// Get returns the bytes stored under the given key
func (s *MemoryObjectStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, nil
}

// Delete removes the object stored under the given key
func (s *MemoryObjectStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// PresignedDownloadURL returns a fake URL carrying the key and expiry
func (s *MemoryObjectStorage) PresignedDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.baseURL + "/" + key + "?expires=" + expiresAt.Format(time.RFC3339), nil
}

// Len returns the number of stored objects
func (s *MemoryObjectStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
