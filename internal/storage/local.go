package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/agnesscodex/s4/internal/domain"
	"github.com/agnesscodex/s4/pkg/logger"
)

// LocalStore is the ObjectStore view of a directory tree. Symlinks are
// skipped during listing. Fingerprints are content MD5s, memoized by
// (size, mtime) so repeated watch cycles do not rehash unchanged files.
type LocalStore struct {
	root string

	mu       sync.Mutex
	sums     map[string]localSum
	sessions map[string]*localSession
	sessionN int
}

type localSum struct {
	size    int64
	modTime time.Time
	sum     string
}

type localSession struct {
	key  string
	file *os.File
}

var _ ObjectStore = (*LocalStore)(nil)

// NewLocalStore roots a store at dir. The directory does not have to
// exist yet; a missing root lists as empty and is created on first write.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{
		root:     filepath.Clean(dir),
		sums:     make(map[string]localSum),
		sessions: make(map[string]*localSession),
	}
}

func (s *LocalStore) abs(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *LocalStore) List(ctx context.Context) ([]domain.ObjectEntry, error) {
	entries := make([]domain.ObjectEntry, 0)

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			logger.Log.Debug().Str("path", path).Msg("skipping symlink")
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)

		sum, err := s.fingerprint(key, path, info)
		if err != nil {
			return err
		}

		entries = append(entries, domain.ObjectEntry{
			Key:          key,
			Size:         info.Size(),
			Fingerprint:  sum,
			LastModified: info.ModTime(),
			Origin:       domain.OriginLocal,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s failed: %w", s.root, err)
	}

	return entries, nil
}

func (s *LocalStore) fingerprint(key, path string, info fs.FileInfo) (string, error) {
	s.mu.Lock()
	cached, ok := s.sums[key]
	s.mu.Unlock()
	if ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		return cached.sum, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	sum := hex.EncodeToString(h.Sum(nil))

	s.mu.Lock()
	s.sums[key] = localSum{size: info.Size(), modTime: info.ModTime(), sum: sum}
	s.mu.Unlock()

	return sum, nil
}

func (s *LocalStore) invalidate(key string) {
	s.mu.Lock()
	delete(s.sums, key)
	s.mu.Unlock()
}

func (s *LocalStore) Stat(ctx context.Context, key string) (domain.ObjectEntry, error) {
	path := s.abs(key)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ObjectEntry{}, ErrNotExist
		}
		return domain.ObjectEntry{}, fmt.Errorf("stat %s failed: %w", path, err)
	}
	if info.IsDir() {
		return domain.ObjectEntry{}, ErrNotExist
	}

	sum, err := s.fingerprint(key, path, info)
	if err != nil {
		return domain.ObjectEntry{}, fmt.Errorf("fingerprint %s failed: %w", path, err)
	}

	return domain.ObjectEntry{
		Key:          key,
		Size:         info.Size(),
		Fingerprint:  sum,
		LastModified: info.ModTime(),
		Origin:       domain.OriginLocal,
	}, nil
}

func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.abs(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("open %s failed: %w", s.abs(key), err)
	}
	return f, nil
}

type sectionReadCloser struct {
	*io.SectionReader
	f *os.File
}

func (r *sectionReadCloser) Close() error { return r.f.Close() }

func (s *LocalStore) GetRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	f, err := os.Open(s.abs(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("open %s failed: %w", s.abs(key), err)
	}
	return &sectionReadCloser{
		SectionReader: io.NewSectionReader(f, offset, length),
		f:             f,
	}, nil
}

// Put writes through a temp file and renames it into place, so readers
// never observe a half-written object.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	path := s.abs(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".s4-put-*")
	if err != nil {
		return fmt.Errorf("failed creating temp file for %s: %w", path, err)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed writing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed replacing %s: %w", path, err)
	}

	s.invalidate(key)
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.abs(key)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotExist
		}
		return fmt.Errorf("remove %s failed: %w", s.abs(key), err)
	}
	s.invalidate(key)
	return nil
}

// InitiateMultipart opens a session backed by a temp file next to the
// final path; parts land at their offsets and completion renames the
// assembled file into place.
func (s *LocalStore) InitiateMultipart(ctx context.Context, key, contentType string) (string, error) {
	path := s.abs(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed creating directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".s4-mp-*")
	if err != nil {
		return "", fmt.Errorf("failed creating temp file for %s: %w", path, err)
	}

	s.mu.Lock()
	s.sessionN++
	id := fmt.Sprintf("local-%d", s.sessionN)
	s.sessions[id] = &localSession{key: key, file: tmp}
	s.mu.Unlock()

	return id, nil
}

func (s *LocalStore) session(uploadID string) (*localSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[uploadID]
	if !ok {
		return nil, fmt.Errorf("unknown upload session %q", uploadID)
	}
	return sess, nil
}

func (s *LocalStore) UploadPart(ctx context.Context, key, uploadID string, part domain.PartRange, r io.Reader) (string, error) {
	sess, err := s.session(uploadID)
	if err != nil {
		return "", err
	}

	h := md5.New()
	w := io.NewOffsetWriter(sess.file, part.Offset)
	if _, err := io.Copy(io.MultiWriter(w, h), r); err != nil {
		return "", fmt.Errorf("failed writing part %d of %s: %w", part.Index, s.abs(key), err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *LocalStore) CompleteMultipart(ctx context.Context, key, uploadID string, parts []CompletedPart) error {
	sess, err := s.session(uploadID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, uploadID)
	s.mu.Unlock()

	name := sess.file.Name()
	if err := sess.file.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed closing %s: %w", name, err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed writing %s: %w", s.abs(sess.key), err)
	}
	if err := os.Rename(name, s.abs(sess.key)); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed replacing %s: %w", s.abs(sess.key), err)
	}

	s.invalidate(sess.key)
	return nil
}

func (s *LocalStore) AbortMultipart(ctx context.Context, key, uploadID string) error {
	sess, err := s.session(uploadID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, uploadID)
	s.mu.Unlock()

	name := sess.file.Name()
	sess.file.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed removing %s: %w", name, err)
	}
	return nil
}

// ContentType sniffs the object's media type from its leading bytes.
func (s *LocalStore) ContentType(ctx context.Context, key string) (string, error) {
	mt, err := mimetype.DetectFile(s.abs(key))
	if err != nil {
		return "", err
	}
	return mt.String(), nil
}

func (s *LocalStore) Ref(key string) string {
	if key == "" {
		return s.root
	}
	return s.abs(key)
}

func (s *LocalStore) Origin() domain.Origin { return domain.OriginLocal }
