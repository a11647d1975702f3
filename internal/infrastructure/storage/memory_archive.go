package storage

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"
)

// MemoryReportArchive keeps reports in memory. It serves development setups
// without object storage and the CLI.
type MemoryReportArchive struct {
	// BaseURL prefixes the returned download URLs.
	BaseURL string
	TTL     time.Duration

	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryReportArchive creates an empty archive.
func NewMemoryReportArchive(baseURL string) *MemoryReportArchive {
	return &MemoryReportArchive{
		BaseURL: strings.TrimRight(baseURL, "/"),
		TTL:     15 * time.Minute,
		objects: make(map[string]memoryObject),
	}
}

// Archive stores a copy of data.
func (m *MemoryReportArchive) Archive(_ context.Context, key string, data []byte, contentType string) (*Archived, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.objects[key] = memoryObject{data: buf, contentType: contentType}
	m.mu.Unlock()

	expiresAt := time.Now().Add(m.TTL)
	u := m.BaseURL + "/download/" + key + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339))
	return &Archived{Key: key, URL: u, ExpiresAt: expiresAt}, nil
}

// Get returns a stored report.
func (m *MemoryReportArchive) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	return o.data, o.contentType, ok
}

// Len returns the number of stored reports.
func (m *MemoryReportArchive) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
