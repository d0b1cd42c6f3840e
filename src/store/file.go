package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterbourgon/diskv/v3"
)

const (
	entryExt = ".json"
	tempDir  = ".tmp"
)

// FileStore keeps one JSON document per entry under a root directory,
// at <root>/<key[:2]>/<key>.json.
type FileStore struct {
	root string
	d    *diskv.Diskv
}

// NewFileStore creates the root directory (mode 0777, existing directories are fine)
// and returns a store rooted there.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o777); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", root, err)
	}

	d := diskv.New(diskv.Options{
		BasePath:          root,
		AdvancedTransform: entryPath,
		InverseTransform:  entryKey,
		TempDir:           filepath.Join(root, tempDir),
		PathPerm:          0o777,
		FilePerm:          0o666,
	})
	return &FileStore{root: root, d: d}, nil
}

func entryPath(key string) *diskv.PathKey {
	shard := "__"
	if len(key) >= 2 {
		shard = key[:2]
	}
	return &diskv.PathKey{Path: []string{shard}, FileName: key + entryExt}
}

// entryKey returns "" for anything that is not an entry file, such as in-flight temp files.
func entryKey(pk *diskv.PathKey) string {
	if len(pk.Path) != 1 || pk.Path[0] == tempDir || !strings.HasSuffix(pk.FileName, entryExt) {
		return ""
	}
	return strings.TrimSuffix(pk.FileName, entryExt)
}

// Root returns the cache directory.
func (s *FileStore) Root() string {
	return s.root
}

// Get reads the entry stored under key.
func (s *FileStore) Get(ctx context.Context, key string) (*Entry, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	data, err := s.d.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return &entry, nil
}

// Set writes entry atomically.
func (s *FileStore) Set(ctx context.Context, entry *Entry) error {
	if err := validKey(entry.Key); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := s.d.Write(entry.Key, data); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Prune removes expired entries. Undecodable entries are removed as well.
func (s *FileStore) Prune(ctx context.Context, now time.Time) (int, error) {
	return s.erase(ctx, func(key string) (bool, error) {
		data, err := s.d.Read(key)
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to read cache entry: %w", err)
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			return true, nil
		}
		return !entry.Fresh(now), nil
	})
}

// Clear removes every entry.
func (s *FileStore) Clear(ctx context.Context) (int, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.d.EraseAll(); err != nil {
		return 0, fmt.Errorf("failed to clear cache directory: %w", err)
	}
	if err := os.MkdirAll(s.root, 0o777); err != nil {
		return len(keys), fmt.Errorf("failed to recreate cache directory %s: %w", s.root, err)
	}
	return len(keys), nil
}

// keys lists every stored entry key. The walk completes before any entry is erased.
func (s *FileStore) keys(ctx context.Context) ([]string, error) {
	var keys []string
	for key := range s.d.Keys(ctx.Done()) {
		if key != "" {
			keys = append(keys, key)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// erase deletes every entry for which drop returns true.
func (s *FileStore) erase(ctx context.Context, drop func(key string) (bool, error)) (int, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		ok, err := drop(key)
		if err != nil {
			return removed, err
		}
		if !ok {
			continue
		}
		if err := s.d.Erase(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove cache entry %s: %w", key, err)
		}
		removed++
	}
	return removed, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return fmt.Errorf("invalid cache key %q", key)
	}
	return nil
}
