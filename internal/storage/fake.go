package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/agnesscodex/s4/internal/domain"
)

// FakeStore is an in-memory ObjectStore for tests. Hooks inject
// failures; counters record traffic.
type FakeStore struct {
	mu       sync.Mutex
	origin   domain.Origin
	name     string
	objects  map[string]*fakeObject
	sessions map[string]*fakeSession
	sessionN int

	// Hooks fail the operation when they return a non-nil error.
	ListHook   func(call int) error
	PutHook    func(key string) error
	DeleteHook func(key string) error
	PartHook   func(key string, index int) error

	ListCalls   int
	PutCalls    int
	DeleteCalls int
	Initiated   []string
	Completed   []string
	Aborted     []string
}

type fakeObject struct {
	data        []byte
	modTime     time.Time
	contentType string
}

type fakeSession struct {
	key         string
	contentType string
	parts       map[int][]byte
}

var _ ObjectStore = (*FakeStore)(nil)

// NewFakeStore builds an empty fake reporting the given origin.
func NewFakeStore(name string, origin domain.Origin) *FakeStore {
	return &FakeStore{
		origin:   origin,
		name:     name,
		objects:  make(map[string]*fakeObject),
		sessions: make(map[string]*fakeSession),
	}
}

// Seed inserts an object without going through Put.
func (f *FakeStore) Seed(key string, data []byte, modTime time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = &fakeObject{data: append([]byte(nil), data...), modTime: modTime}
}

// Data returns a copy of an object's payload.
func (f *FakeStore) Data(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// Keys returns all stored keys, sorted.
func (f *FakeStore) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fingerprintOf(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func (f *FakeStore) List(ctx context.Context) ([]domain.ObjectEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ListCalls++
	if f.ListHook != nil {
		if err := f.ListHook(f.ListCalls); err != nil {
			return nil, err
		}
	}

	// Map order on purpose: callers are responsible for sorting.
	entries := make([]domain.ObjectEntry, 0, len(f.objects))
	for key, obj := range f.objects {
		entries = append(entries, domain.ObjectEntry{
			Key:          key,
			Size:         int64(len(obj.data)),
			Fingerprint:  fingerprintOf(obj.data),
			LastModified: obj.modTime,
			Origin:       f.origin,
		})
	}
	return entries, nil
}

func (f *FakeStore) Stat(ctx context.Context, key string) (domain.ObjectEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return domain.ObjectEntry{}, ErrNotExist
	}
	return domain.ObjectEntry{
		Key:          key,
		Size:         int64(len(obj.data)),
		Fingerprint:  fingerprintOf(obj.data),
		LastModified: obj.modTime,
		Origin:       f.origin,
		ContentType:  obj.contentType,
	}, nil
}

func (f *FakeStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.Data(key)
	if !ok {
		return nil, ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *FakeStore) GetRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	data, ok := f.Data(key)
	if !ok {
		return nil, ErrNotExist
	}
	if offset < 0 || offset+length > int64(len(data)) {
		return nil, fmt.Errorf("range [%d,%d) outside object %s of %d bytes", offset, offset+length, key, len(data))
	}
	return io.NopCloser(bytes.NewReader(data[offset : offset+length])), nil
}

func (f *FakeStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	f.mu.Lock()
	f.PutCalls++
	hook := f.PutHook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(key); err != nil {
			return err
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = &fakeObject{data: data, modTime: time.Now(), contentType: contentType}
	return nil
}

func (f *FakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	f.DeleteCalls++
	hook := f.DeleteHook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(key); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return ErrNotExist
	}
	delete(f.objects, key)
	return nil
}

func (f *FakeStore) InitiateMultipart(ctx context.Context, key, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionN++
	id := fmt.Sprintf("upload-%d", f.sessionN)
	f.sessions[id] = &fakeSession{key: key, contentType: contentType, parts: make(map[int][]byte)}
	f.Initiated = append(f.Initiated, key)
	return id, nil
}

func (f *FakeStore) UploadPart(ctx context.Context, key, uploadID string, part domain.PartRange, r io.Reader) (string, error) {
	f.mu.Lock()
	hook := f.PartHook
	sess, ok := f.sessions[uploadID]
	f.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown upload session %q", uploadID)
	}

	if hook != nil {
		if err := hook(key, part.Index); err != nil {
			return "", err
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if int64(len(data)) != part.Length {
		return "", fmt.Errorf("part %d of %s: got %d bytes, want %d", part.Index, key, len(data), part.Length)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	sess.parts[part.Index] = data
	return fingerprintOf(data), nil
}

func (f *FakeStore) CompleteMultipart(ctx context.Context, key, uploadID string, parts []CompletedPart) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	sess, ok := f.sessions[uploadID]
	if !ok {
		return fmt.Errorf("unknown upload session %q", uploadID)
	}
	delete(f.sessions, uploadID)

	indices := make([]int, 0, len(sess.parts))
	for i := range sess.parts {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	var data []byte
	for _, i := range indices {
		data = append(data, sess.parts[i]...)
	}

	f.objects[sess.key] = &fakeObject{data: data, modTime: time.Now(), contentType: sess.contentType}
	f.Completed = append(f.Completed, sess.key)
	return nil
}

func (f *FakeStore) AbortMultipart(ctx context.Context, key, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[uploadID]
	if !ok {
		return fmt.Errorf("unknown upload session %q", uploadID)
	}
	delete(f.sessions, uploadID)
	f.Aborted = append(f.Aborted, sess.key)
	return nil
}

// OpenSessions reports how many multipart sessions were never completed
// or aborted.
func (f *FakeStore) OpenSessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func (f *FakeStore) Ref(key string) string {
	if key == "" {
		return f.name
	}
	return f.name + "/" + key
}

func (f *FakeStore) Origin() domain.Origin { return f.origin }
