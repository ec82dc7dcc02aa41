package fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/docharvest"
)

const cacheExt = ".json"

var _ docharvest.ChunkCache = (*CacheStore)(nil)

// CacheStore implements docharvest.ChunkCache with one JSON file per
// source. Files are written to a temporary name and renamed into place, so
// a reader never sees a partial file.
type CacheStore struct {
	dir string
}

// NewCacheStore creates a CacheStore in dir. The directory is created by
// the first Load or Save.
func NewCacheStore(dir string) *CacheStore {
	return &CacheStore{dir: dir}
}

// Dir returns the cache directory.
func (s *CacheStore) Dir() string {
	return s.dir
}

func (s *CacheStore) path(source string) string {
	return filepath.Join(s.dir, SanitizeName(source)+cacheExt)
}

// Load creates the cache directory if needed and reads every cache file,
// keyed by source name. Unreadable files are reported as ESTORAGE.
func (s *CacheStore) Load(ctx context.Context) (map[string][]*docharvest.Chunk, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, docharvest.WrapError(docharvest.ESTORAGE, err, "cannot create cache directory %s", s.dir)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, docharvest.WrapError(docharvest.ESTORAGE, err, "cannot read cache directory %s", s.dir)
	}

	out := make(map[string][]*docharvest.Chunk, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), cacheExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, docharvest.WrapError(docharvest.ESTORAGE, err, "cannot read cache file %s", e.Name())
		}
		var chunks []*docharvest.Chunk
		if err := json.Unmarshal(data, &chunks); err != nil {
			return nil, docharvest.WrapError(docharvest.ESTORAGE, err, "corrupt cache file %s", e.Name())
		}

		name := strings.TrimSuffix(e.Name(), cacheExt)
		if len(chunks) > 0 && chunks[0].Source != "" {
			name = chunks[0].Source
		}
		out[name] = chunks
	}
	return out, nil
}

// Save replaces the cache file of source.
func (s *CacheStore) Save(ctx context.Context, source string, chunks []*docharvest.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return docharvest.WrapError(docharvest.ESTORAGE, err, "cannot create cache directory %s", s.dir)
	}
	if chunks == nil {
		chunks = []*docharvest.Chunk{}
	}
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return docharvest.WrapError(docharvest.EINTERNAL, err, "cannot encode fragments of %q", source)
	}

	final := s.path(source)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return docharvest.WrapError(docharvest.ESTORAGE, err, "cannot write cache file for %q", source)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return docharvest.WrapError(docharvest.ESTORAGE, err, "cannot replace cache file for %q", source)
	}
	return nil
}

// Remove deletes the cache file of source. A missing file is not an error.
func (s *CacheStore) Remove(ctx context.Context, source string) error {
	if err := os.Remove(s.path(source)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return docharvest.WrapError(docharvest.ESTORAGE, err, "cannot remove cache file for %q", source)
	}
	return nil
}

// Clear deletes every cache file, leaving the directory in place.
func (s *CacheStore) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return docharvest.WrapError(docharvest.ESTORAGE, err, "cannot read cache directory %s", s.dir)
	}
	for _, e := range entries {
		if e.IsDir() || !(strings.HasSuffix(e.Name(), cacheExt) || strings.HasSuffix(e.Name(), cacheExt+".tmp")) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return docharvest.WrapError(docharvest.ESTORAGE, err, "cannot remove cache file %s", e.Name())
		}
	}
	return nil
}

// DiskUsage returns the number of cache files and their total size.
func (s *CacheStore) DiskUsage() (files int, size int64, err error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, docharvest.WrapError(docharvest.ESTORAGE, err, "cannot read cache directory %s", s.dir)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), cacheExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files++
		size += info.Size()
	}
	return files, size, nil
}
