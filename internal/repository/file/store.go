// Package file stores the vault document in a single local file.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/repository"
	"github.com/and161185/seedvault/internal/repository/wire"
)

// Store keeps the document at path, replacing it atomically on every write.
type Store struct {
	path  string
	codec *wire.Codec
	log   *zap.Logger

	mu sync.Mutex
}

var _ repository.DurableStore = (*Store)(nil)

// New returns a file store. The parent directory must exist.
func New(path string, codec *wire.Codec, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, codec: codec, log: log}
}

func (s *Store) read() (repository.Document, uint64, error) {
	blob, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return repository.Document{}, 0, nil
	}
	if err != nil {
		return repository.Document{}, 0, fmt.Errorf("read %s: %w", s.path, err)
	}
	doc, ver, err := s.codec.Decode(blob)
	if errors.Is(err, wire.ErrCorrupt) {
		s.log.Error("vault document is corrupt; starting from an empty vault",
			zap.String("path", s.path), zap.Error(err))
		return repository.Document{}, 0, nil
	}
	if err != nil {
		return repository.Document{}, 0, err
	}
	return doc, ver, nil
}

// Load implements repository.DurableStore.
func (s *Store) Load(ctx context.Context) (repository.Document, uint64, error) {
	if err := ctx.Err(); err != nil {
		return repository.Document{}, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// CompareAndSwap implements repository.DurableStore.
func (s *Store) CompareAndSwap(ctx context.Context, expected uint64, doc repository.Document) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, cur, err := s.read()
	if err != nil {
		return 0, err
	}
	if cur != expected {
		return 0, fmt.Errorf("file store at version %d, expected %d: %w", cur, expected, errs.ErrVersionConflict)
	}
	next := expected + 1
	blob, err := s.codec.Encode(doc, next)
	if err != nil {
		return 0, err
	}
	if err := writeAtomic(s.path, blob); err != nil {
		return 0, err
	}
	return next, nil
}

func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	if d, derr := os.Open(dir); derr == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
