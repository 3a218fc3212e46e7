// Package cache is the origin-scoped durable snapshot of highlights,
// one entry per owner identity. It is read at startup for instant,
// offline-capable restoration and written after every mutation.
//
// Every operation is best effort: storage being unavailable, full, or
// corrupted degrades to an empty read or a dropped write, never an
// error. In-memory state stays correct for the session either way.
package cache

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sakif/reader-highlights/internal/model"
)

// Store is the durable cache contract the sync coordinator depends on.
type Store interface {
	// Load returns the cached highlights for one owner. Missing or
	// unreadable entries load as empty.
	Load(ownerID string) []*model.Highlight
	// Save replaces the cached entry for one owner.
	Save(ownerID string, highlights []*model.Highlight)
	// LoadAllOwners scans every cached entry regardless of owner.
	// It exists solely for sign-in migration, when highlights were
	// written under a now-stale anonymous owner key.
	LoadAllOwners() []*model.Highlight
	// Delete removes the cached entry for one owner.
	Delete(ownerID string)

	// SaveBackup persists a longer-lived snapshot keyed by a "last
	// known owner" pointer, written on sign-out so a guest view on the
	// same device can still show historical data read-only.
	SaveBackup(ownerID string, highlights []*model.Highlight)
	// LoadBackup returns the sign-out backup, or "" and nil when none
	// exists.
	LoadBackup() (ownerID string, highlights []*model.Highlight)
}

const (
	entryPrefix = "highlights-"
	entrySuffix = ".json"
	backupFile  = "last-session.json"
)

// FileStore implements Store as one JSON file per owner inside a
// namespace directory. Owner ids are xid strings or "anon-" hex
// digests, both filename-safe.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the namespace directory if needed. Failure to
// create it is logged, not returned: the store stays usable and every
// operation degrades to a no-op.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("highlight cache unavailable",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
	}
	return &FileStore{dir: dir, logger: logger}
}

func (s *FileStore) entryPath(ownerID string) string {
	return filepath.Join(s.dir, entryPrefix+ownerID+entrySuffix)
}

func (s *FileStore) Load(ownerID string) []*model.Highlight {
	return s.readEntry(s.entryPath(ownerID))
}

func (s *FileStore) Save(ownerID string, highlights []*model.Highlight) {
	s.writeEntry(s.entryPath(ownerID), highlights)
}

func (s *FileStore) Delete(ownerID string) {
	if err := os.Remove(s.entryPath(ownerID)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("could not delete cache entry",
			slog.String("owner", ownerID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *FileStore) LoadAllOwners() []*model.Highlight {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var out []*model.Highlight
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, entryPrefix) || !strings.HasSuffix(name, entrySuffix) {
			continue
		}
		out = append(out, s.readEntry(filepath.Join(s.dir, name))...)
	}
	return out
}

// backup is the sign-out snapshot shape. SavedAt is informational; the
// pointer to the last known owner is what guest views key off.
type backup struct {
	OwnerID    string             `json:"owner_id"`
	SavedAt    time.Time          `json:"saved_at"`
	Highlights []*model.Highlight `json:"highlights"`
}

func (s *FileStore) SaveBackup(ownerID string, highlights []*model.Highlight) {
	b := backup{OwnerID: ownerID, SavedAt: time.Now().UTC(), Highlights: highlights}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(filepath.Join(s.dir, backupFile), data, 0o644); err != nil {
		s.logger.Warn("could not write sign-out backup", slog.String("error", err.Error()))
	}
}

func (s *FileStore) LoadBackup() (string, []*model.Highlight) {
	data, err := os.ReadFile(filepath.Join(s.dir, backupFile))
	if err != nil {
		return "", nil
	}
	var b backup
	if err := json.Unmarshal(data, &b); err != nil {
		s.logger.Warn("discarding malformed sign-out backup", slog.String("error", err.Error()))
		return "", nil
	}
	return b.OwnerID, validOnly(b.Highlights)
}

// readEntry loads one cache file. An undecodable file is discarded
// whole; individual records missing required fields are dropped rather
// than partially trusted.
func (s *FileStore) readEntry(path string) []*model.Highlight {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var highlights []*model.Highlight
	if err := json.Unmarshal(data, &highlights); err != nil {
		s.logger.Warn("discarding malformed cache entry",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return validOnly(highlights)
}

func (s *FileStore) writeEntry(path string, highlights []*model.Highlight) {
	if highlights == nil {
		highlights = []*model.Highlight{}
	}
	data, err := json.MarshalIndent(highlights, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Warn("could not write cache entry",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

func validOnly(in []*model.Highlight) []*model.Highlight {
	out := make([]*model.Highlight, 0, len(in))
	for _, h := range in {
		if h != nil && h.Valid() {
			out = append(out, h)
		}
	}
	return out
}
