package driven

import "context"

// BlobStore holds image objects extracted from documents.
type BlobStore interface {
	// Put stores data under key and returns its public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, bucket, key string) error

	// URLToKey reverses Put's URL. ok is false for URLs this store did not produce.
	URLToKey(url string) (bucket, key string, ok bool)
}
