// Package backup implements the backup store (C3): snapshot creation,
// restoration, listing, and pruning, enabling rollback of any write the
// core performs.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/astgrepmcp/astgrepmcp/internal/errors"
)

const manifestName = "manifest.json"

// ManifestEntry describes one captured file within a backup.
type ManifestEntry struct {
	Path string `json:"path"` // canonical absolute path at capture time
	Hash string `json:"hash"` // hex sha-256 of the captured bytes
	Size int64  `json:"size"`
}

// Info summarizes a backup for listing purposes.
type Info struct {
	ID        string
	CreatedAt time.Time
	PathCount int
	Size      int64
}

// Store manages backups under Root. Writes (Create, Prune) are
// serialized by a single mutex; reads (List, Restore) run concurrently
// with each other, and Restore takes a per-backup read lock against a
// concurrent Prune of that same backup.
type Store struct {
	root string

	writeMu sync.Mutex

	backupMu sync.Map // map[string]*sync.RWMutex, keyed by backup id
}

// New creates a Store rooted at root. The directory is created lazily
// on first Create.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) lockFor(id string) *sync.RWMutex {
	l, _ := s.backupMu.LoadOrStore(id, &sync.RWMutex{})
	return l.(*sync.RWMutex)
}

// Create reads every file in paths and writes a snapshot into a new
// backup directory, returning its id once every snapshot is flushed. If
// any file cannot be read in full, the whole operation fails with
// KindBackupFailed and nothing is persisted.
func (s *Store) Create(paths []string) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", errors.New(errors.KindBackupFailed, "backup.Create", err)
	}

	type captured struct {
		path string
		data []byte
	}
	snapshots := make([]captured, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", errors.New(errors.KindBackupFailed, "backup.Create", err).WithPath(p)
		}
		snapshots = append(snapshots, captured{path: p, data: data})
	}

	id := s.nextID()
	stagingDir := filepath.Join(s.root, ".staging-"+id)
	finalDir := filepath.Join(s.root, id)

	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", errors.New(errors.KindBackupFailed, "backup.Create", err)
	}
	// Clean up the staging directory on any failure path below so a
	// half-written backup never lingers.
	success := false
	defer func() {
		if !success {
			_ = os.RemoveAll(stagingDir)
		}
	}()

	manifest := make([]ManifestEntry, 0, len(snapshots))
	for i, snap := range snapshots {
		mirrorPath := filepath.Join(stagingDir, fmt.Sprintf("f%d", i))
		if err := os.WriteFile(mirrorPath, snap.data, 0o644); err != nil {
			return "", errors.New(errors.KindBackupFailed, "backup.Create", err).WithPath(snap.path)
		}
		sum := sha256.Sum256(snap.data)
		manifest = append(manifest, ManifestEntry{
			Path: snap.path,
			Hash: hex.EncodeToString(sum[:]),
			Size: int64(len(snap.data)),
		})
	}

	manifestBytes, err := json.MarshalIndent(manifestDoc{Entries: manifest, CreatedAt: time.Now()}, "", "  ")
	if err != nil {
		return "", errors.New(errors.KindBackupFailed, "backup.Create", err)
	}
	if err := os.WriteFile(filepath.Join(stagingDir, manifestName), manifestBytes, 0o644); err != nil {
		return "", errors.New(errors.KindBackupFailed, "backup.Create", err)
	}

	// Atomic create-then-rename: the backup only becomes visible to
	// List/Restore once every snapshot and the manifest are on disk.
	if err := os.Rename(stagingDir, finalDir); err != nil {
		return "", errors.New(errors.KindBackupFailed, "backup.Create", err)
	}
	success = true

	return id, nil
}

type manifestDoc struct {
	Entries   []ManifestEntry `json:"entries"`
	CreatedAt time.Time       `json:"created_at"`
}

// nextID returns a time-ordered id of the form
// backup-YYYYMMDD-HHMMSS-mmm, appending a monotonic numeric suffix if
// that exact id already exists (same-millisecond collision).
func (s *Store) nextID() string {
	now := time.Now()
	base := "backup-" + now.Format("20060102-150405") + fmt.Sprintf("-%03d", now.Nanosecond()/1e6)
	id := base
	for n := 1; ; n++ {
		if _, err := os.Stat(filepath.Join(s.root, id)); os.IsNotExist(err) {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

func (s *Store) readManifest(id string) (manifestDoc, error) {
	data, err := os.ReadFile(filepath.Join(s.root, id, manifestName))
	if err != nil {
		return manifestDoc{}, errors.New(errors.KindIO, "backup.readManifest", err).WithPath(id)
	}
	var doc manifestDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return manifestDoc{}, errors.New(errors.KindIO, "backup.readManifest", err).WithPath(id)
	}
	return doc, nil
}

// Restore re-materializes every file captured by backup id, overwriting
// current content. All restorations are attempted even if some fail; a
// partial failure returns a *PartialRestoreError listing what succeeded
// and what did not, alongside the restored paths that did succeed.
func (s *Store) Restore(id string) ([]string, error) {
	lock := s.lockFor(id)
	lock.RLock()
	defer lock.RUnlock()

	doc, err := s.readManifest(id)
	if err != nil {
		return nil, err
	}

	var restored []string
	var failed []FailedRestore
	for i, entry := range doc.Entries {
		mirrorPath := filepath.Join(s.root, id, fmt.Sprintf("f%d", i))
		data, err := os.ReadFile(mirrorPath)
		if err != nil {
			failed = append(failed, FailedRestore{Path: entry.Path, Err: err})
			continue
		}
		if err := writeFileAtomic(entry.Path, data); err != nil {
			failed = append(failed, FailedRestore{Path: entry.Path, Err: err})
			continue
		}
		restored = append(restored, entry.Path)
	}

	if len(failed) > 0 {
		return restored, &PartialRestoreError{Succeeded: restored, Failed: failed}
	}
	return restored, nil
}

// FailedRestore names one file that could not be restored and why.
type FailedRestore struct {
	Path string
	Err  error
}

// PartialRestoreError is returned when some but not all files in a
// backup could be restored.
type PartialRestoreError struct {
	Succeeded []string
	Failed    []FailedRestore
}

func (e *PartialRestoreError) Error() string {
	return fmt.Sprintf("restored %d of %d files; %d failed", len(e.Succeeded), len(e.Succeeded)+len(e.Failed), len(e.Failed))
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".restore-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// List returns every backup under Root, ordered oldest-first (backup
// ids are ordered by creation time, per the data model invariant).
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(errors.KindIO, "backup.List", err)
	}

	var infos []Info
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "backup-") {
			continue
		}
		doc, err := s.readManifest(e.Name())
		if err != nil {
			continue
		}
		var size int64
		for _, m := range doc.Entries {
			size += m.Size
		}
		infos = append(infos, Info{
			ID:        e.Name(),
			CreatedAt: doc.CreatedAt,
			PathCount: len(doc.Entries),
			Size:      size,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Prune deletes backups older than olderThan (if > 0) or, if keepLastN
// > 0, deletes all but the keepLastN most recent backups. Deletion of
// each backup id takes its write lock so a concurrent Restore of that
// id is not torn out from under the reader.
func (s *Store) Prune(olderThan time.Duration, keepLastN int) ([]string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	infos, err := s.List()
	if err != nil {
		return nil, err
	}

	var toDelete []Info
	if keepLastN > 0 {
		if len(infos) > keepLastN {
			toDelete = infos[:len(infos)-keepLastN]
		}
	} else if olderThan > 0 {
		cutoff := time.Now().Add(-olderThan)
		for _, info := range infos {
			if info.CreatedAt.Before(cutoff) {
				toDelete = append(toDelete, info)
			}
		}
	}

	var removed []string
	for _, info := range toDelete {
		lock := s.lockFor(info.ID)
		lock.Lock()
		err := os.RemoveAll(filepath.Join(s.root, info.ID))
		lock.Unlock()
		if err == nil {
			removed = append(removed, info.ID)
		}
	}
	return removed, nil
}
