package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
)

// Ensure BlobStore implements the interface.
var _ driven.BlobStore = (*BlobStore)(nil)

// BlobStore is an in-memory implementation of driven.BlobStore.
// URLs have the form memory://{bucket}/{key}.
type BlobStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string][]byte
	deletes []string
}

// NewBlobStore creates a new in-memory blob store for bucket.
func NewBlobStore(bucket string) *BlobStore {
	return &BlobStore{
		bucket:  bucket,
		objects: make(map[string][]byte),
	}
}

// Put stores an object and returns its URL.
func (b *BlobStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s/%s", b.bucket, key), nil
}

// Delete removes an object.
func (b *BlobStore) Delete(_ context.Context, bucket, key string) error {
	if bucket != b.bucket {
		return fmt.Errorf("unknown bucket %q", bucket)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deletes = append(b.deletes, key)
	return nil
}

// URLToKey parses a memory:// URL.
func (b *BlobStore) URLToKey(url string) (string, string, bool) {
	rest, ok := strings.CutPrefix(url, "memory://")
	if !ok {
		return "", "", false
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// Keys returns the stored keys, sorted.
func (b *BlobStore) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Deleted returns every key passed to Delete, in call order.
func (b *BlobStore) Deleted() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.deletes...)
}
