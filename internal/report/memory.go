package report

import (
	"context"
	"io"
	"sort"
	"sync"
)

// MemorySink keeps report documents in memory, for tests and dry runs.
type MemorySink struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{docs: make(map[string][]byte)}
}

// Driver implements Sink.
func (s *MemorySink) Driver() Driver { return DriverMemory }

// Put implements Sink.
func (s *MemorySink) Put(_ context.Context, name string, r io.Reader) (string, error) {
	clean, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.docs[clean] = data
	s.mu.Unlock()
	return clean, nil
}

// Get returns a stored document.
func (s *MemorySink) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[name]
	return data, ok
}

// Names lists stored document names in sorted order.
func (s *MemorySink) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.docs))
	for name := range s.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
