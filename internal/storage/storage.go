package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/agnesscodex/s4/internal/domain"
)

// ErrNotExist is returned by Stat and Get when the key has no object.
var ErrNotExist = errors.New("object does not exist")

// CompletedPart pairs an uploaded part's index with the ETag the store
// returned for it, for the multipart completion call.
type CompletedPart struct {
	Index int
	ETag  string
}

// BucketInfo describes one bucket in a remote listing.
type BucketInfo struct {
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
}

// ObjectStore is the capability surface the sync engine and the object
// commands need from one side of a transfer. An implementation is rooted
// at a scope (a bucket+prefix or a local directory) and all keys are
// relative to that root, slash-separated.
type ObjectStore interface {
	// List enumerates every object under the root, following remote
	// pagination transparently. Order is not guaranteed.
	List(ctx context.Context) ([]domain.ObjectEntry, error)

	// Stat describes a single object, or ErrNotExist.
	Stat(ctx context.Context, key string) (domain.ObjectEntry, error)

	// Get opens the whole object for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// GetRange opens length bytes of the object starting at offset.
	GetRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error)

	// Put writes a whole object in one request.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Delete removes an object.
	Delete(ctx context.Context, key string) error

	// InitiateMultipart opens a chunked-upload session for key and
	// returns its id.
	InitiateMultipart(ctx context.Context, key, contentType string) (string, error)

	// UploadPart writes one part of an open session and returns the
	// part's ETag.
	UploadPart(ctx context.Context, key, uploadID string, part domain.PartRange, r io.Reader) (string, error)

	// CompleteMultipart commits a session from its uploaded parts.
	CompleteMultipart(ctx context.Context, key, uploadID string, parts []CompletedPart) error

	// AbortMultipart discards a session and any parts it holds.
	AbortMultipart(ctx context.Context, key, uploadID string) error

	// Ref renders key as a user-facing reference (a filesystem path or
	// an alias/bucket/key address).
	Ref(key string) string

	// Origin says which side of a sync entries from this store belong to.
	Origin() domain.Origin
}

// ContentTyper is implemented by stores that can derive a content type
// for an object. Transfers use it to label uploads; failures are not
// fatal, the upload just goes out untyped.
type ContentTyper interface {
	ContentType(ctx context.Context, key string) (string, error)
}
