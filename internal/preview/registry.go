package preview

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"lukechampine.com/blake3"

	"github.com/hpungsan/harbor/internal/errors"
)

// DefaultMaxHandles bounds how many documents a Registry keeps live.
const DefaultMaxHandles = 16

// Document is a published preview.
type Document struct {
	Handle    string
	Body      string
	ETag      string // quoted, ready for the ETag header

	CreatedAt int64
}

// Registry hands out opaque handles for composed documents, the server-side
// equivalent of a browser object URL. Callers release a handle when they
// publish its successor or tear the preview down.
type Registry struct {
	mu     sync.Mutex
	docs   map[string]*Document
	order  []string
	max    int
	closed bool
}

// NewRegistry creates a registry holding at most max live documents. When the
// limit is reached the oldest document is released. max <= 0 uses
// DefaultMaxHandles.
func NewRegistry(max int) *Registry {
	if max <= 0 {
		max = DefaultMaxHandles
	}
	return &Registry{
		docs: make(map[string]*Document),
		max:  max,
	}
}

// Publish stores body under a fresh handle.
func (r *Registry) Publish(body string) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.publishLocked(body)
}

func (r *Registry) publishLocked(body string) (*Document, error) {
	if r.closed {
		return nil, errors.NewPreviewFailed(fmt.Errorf("registry closed"))
	}
	sum := blake3.Sum256([]byte(body))
	doc := &Document{
		Handle:    uuid.New().String(),
		Body:      body,
		ETag:      `"` + hex.EncodeToString(sum[:16]) + `"`,
		CreatedAt: time.Now().Unix(),
	}
	for len(r.order) >= r.max {
		r.releaseLocked(r.order[0])
	}
	r.docs[doc.Handle] = doc
	r.order = append(r.order, doc.Handle)
	return doc, nil
}

// Replace releases old and publishes body in one step, so a full registry
// evicts nothing else. An unknown or empty old handle is ignored.
func (r *Registry) Replace(old, body string) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old != "" {
		r.releaseLocked(old)
	}
	return r.publishLocked(body)
}

// Get returns the document for handle, or false once it has been released.
func (r *Registry) Get(handle string) (*Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[handle]
	return doc, ok
}

// Release frees handle. It reports whether the handle was live.
func (r *Registry) Release(handle string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releaseLocked(handle)
}

func (r *Registry) releaseLocked(handle string) bool {
	if _, ok := r.docs[handle]; !ok {
		return false
	}
	delete(r.docs, handle)
	for i, h := range r.order {
		if h == handle {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Len reports the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

// Close releases every handle. Later publishes fail with PREVIEW_FAILED.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.docs = make(map[string]*Document)
	r.order = nil
}
