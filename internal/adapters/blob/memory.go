package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/okian/housecup/pkg/metrics"
)

// DefaultMemoryBaseURL is where the HTTP server serves in-memory objects.
const DefaultMemoryBaseURL = "/blobs"

type object struct {
	data        []byte
	contentType string
}

// Memory keeps objects in process memory.
type Memory struct {
	baseURL string

	mu   sync.RWMutex
	objs map[string]object
}

// NewMemory creates an empty in-memory blob store. URLs are baseURL/key.
func NewMemory(baseURL string) *Memory {
	if baseURL == "" {
		baseURL = DefaultMemoryBaseURL
	}
	return &Memory{baseURL: strings.TrimRight(baseURL, "/"), objs: make(map[string]object)}
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, key, contentType string, body io.Reader) (url string, err error) {
	var n int64
	defer func() { metrics.RecordBlobUpload(n, err) }()
	if err = ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if n, err = io.Copy(&buf, body); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return "", ErrEmpty
	}
	m.mu.Lock()
	m.objs[key] = object{data: buf.Bytes(), contentType: contentType}
	m.mu.Unlock()
	return m.baseURL + "/" + key, nil
}

// Open returns a stored object.
func (m *Memory) Open(key string) (data []byte, contentType string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objs[key]
	return o.data, o.contentType, ok
}
