package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ai360store-ux/Digimarket/internal/storage"
)

// fileEntry is one stored upload.
type fileEntry struct {
	contentType string
	data        []byte
	modTime     time.Time
}

// Storage implements storage.Storage in process memory. Assets do not
// survive a restart.
type Storage struct {
	mu      sync.RWMutex
	files   map[string]*fileEntry
	baseURL string
	maxSize int64
	now     func() time.Time
}

// New creates an in-memory store whose URLs are <baseURL>/assets/<key>.
// maxSize bounds a single upload; zero means unbounded.
func New(baseURL string, maxSize int64) *Storage {
	return &Storage{
		files:   make(map[string]*fileEntry),
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Upload stores the file bytes and returns the public URL.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	if input.Key == "" || strings.ContainsAny(input.Key, "/\\") {
		return nil, fmt.Errorf("invalid asset key %q", input.Key)
	}
	r := input.Data
	if s.maxSize > 0 {
		r = io.LimitReader(r, s.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", input.Key, err)
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("upload %s exceeds %d bytes", input.Key, s.maxSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[input.Key] = &fileEntry{
		contentType: input.ContentType,
		data:        data,
		modTime:     s.now(),
	}

	return &storage.UploadResult{
		Key: input.Key,
		URL: s.baseURL + "/assets/" + input.Key,
	}, nil
}

// Open returns a reader over the stored bytes.
func (s *Storage) Open(_ context.Context, key string) (*storage.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.files[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Object{
		Key:         key,
		ContentType: entry.contentType,
		Size:        int64(len(entry.data)),
		ModTime:     entry.modTime,
		Body:        bytes.NewReader(entry.data),
	}, nil
}

// Delete removes a stored file.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[key]; !exists {
		return storage.ErrNotFound
	}
	delete(s.files, key)
	return nil
}
