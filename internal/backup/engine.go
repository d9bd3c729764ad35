package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"stockbook/internal/core"
)

// Checkpointer drains the store's write-ahead log into the main file so a
// raw copy of the file reflects every committed write.
type Checkpointer interface {
	Checkpoint() error
}

// Engine creates point-in-time copies of the store file and enforces the
// retention cap. Snapshots are named <prefix>_<YYYY-MM-DD>_<HHMMSS>.<ext>;
// the engine only ever deletes files matching that pattern.
type Engine struct {
	sourcePath string
	dir        string
	prefix     string
	ext        string
	maxCount   int
	store      Checkpointer
	clock      core.Clock
	logger     core.Logger
}

// Info is a read-only view of the snapshot directory.
type Info struct {
	Dir            string
	LastBackupTime time.Time // zero when no snapshots exist
	Count          int
}

// NewEngine creates a snapshot engine for the store file at sourcePath.
// store may be nil when the source is not held open by a live store handle.
func NewEngine(sourcePath, dir, prefix, ext string, maxCount int, store Checkpointer, clock core.Clock, logger core.Logger) *Engine {
	return &Engine{
		sourcePath: sourcePath,
		dir:        dir,
		prefix:     prefix,
		ext:        ext,
		maxCount:   maxCount,
		store:      store,
		clock:      clock,
		logger:     logger,
	}
}

// Create copies the store file into the snapshot directory and prunes
// retention. Returns the created path.
func (e *Engine) Create() (string, error) {
	if _, err := os.Stat(e.sourcePath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", core.ErrSourceMissing, e.sourcePath)
		}
		return "", fmt.Errorf("checking store file: %w", err)
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}

	destPath, err := e.nextName()
	if err != nil {
		return "", err
	}

	if err := e.export(destPath); err != nil {
		return "", err
	}

	if err := e.PruneRetention(e.maxCount); err != nil {
		return "", fmt.Errorf("pruning after snapshot: %w", err)
	}

	e.logger.Info("snapshot created", "path", destPath)
	return destPath, nil
}

// ExportTo copies the store file to a caller-chosen destination. Used by
// manual backups; the destination is outside the snapshot directory and is
// not subject to retention.
func (e *Engine) ExportTo(destPath string) error {
	if _, err := os.Stat(e.sourcePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", core.ErrSourceMissing, e.sourcePath)
		}
		return fmt.Errorf("checking store file: %w", err)
	}
	if err := e.export(destPath); err != nil {
		return err
	}
	e.logger.Info("store exported", "path", destPath)
	return nil
}

// PruneRetention deletes the oldest snapshots beyond the maxCount newest.
// Only files matching the engine's own prefix and extension are touched.
func (e *Engine) PruneRetention(maxCount int) error {
	snaps, err := e.listSnapshots()
	if err != nil {
		return err
	}
	if len(snaps) <= maxCount {
		return nil
	}

	for _, snap := range snaps[maxCount:] {
		if err := os.Remove(snap.path); err != nil {
			return fmt.Errorf("deleting old snapshot %s: %w", snap.path, err)
		}
		e.logger.Debug("old snapshot pruned", "path", snap.path)
	}
	return nil
}

// GetInfo returns the snapshot directory, the newest snapshot's modification
// time, and the snapshot count.
func (e *Engine) GetInfo() (*Info, error) {
	snaps, err := e.listSnapshots()
	if err != nil {
		return nil, err
	}

	info := &Info{Dir: e.dir, Count: len(snaps)}
	if len(snaps) > 0 {
		info.LastBackupTime = snaps[0].modTime
	}
	return info, nil
}

// SuggestName returns a timestamped default filename for manual exports.
func (e *Engine) SuggestName() string {
	now := e.clock.Now()
	return fmt.Sprintf("%s_%s_%s.%s", e.prefix, now.Format("2006-01-02"), now.Format("150405"), e.ext)
}

type snapshotFile struct {
	path    string
	modTime time.Time
}

// listSnapshots returns the engine's own snapshot files, newest first. The
// sort is stable with a name tiebreak so repeated calls over unchanged
// contents order identically.
func (e *Engine) listSnapshots() ([]snapshotFile, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing snapshot directory: %w", err)
	}

	var snaps []snapshotFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, e.prefix+"_") || !strings.HasSuffix(name, "."+e.ext) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("reading snapshot info: %w", err)
		}
		snaps = append(snaps, snapshotFile{
			path:    filepath.Join(e.dir, name),
			modTime: fi.ModTime(),
		})
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		if !snaps[i].modTime.Equal(snaps[j].modTime) {
			return snaps[i].modTime.After(snaps[j].modTime)
		}
		return snaps[i].path > snaps[j].path
	})
	return snaps, nil
}

// nextName derives the snapshot filename from the clock. Timestamps have
// one-second resolution, so a second snapshot within the same second gets a
// numeric suffix instead of colliding.
func (e *Engine) nextName() (string, error) {
	now := e.clock.Now()
	base := fmt.Sprintf("%s_%s_%s", e.prefix, now.Format("2006-01-02"), now.Format("150405"))

	candidate := filepath.Join(e.dir, base+"."+e.ext)
	for n := 2; ; n++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", fmt.Errorf("checking snapshot name: %w", err)
		}
		candidate = filepath.Join(e.dir, fmt.Sprintf("%s_%d.%s", base, n, e.ext))
	}
}

// export checkpoints the write-ahead log and copies the store file to
// destPath using a temp file + rename in the destination directory.
func (e *Engine) export(destPath string) error {
	if e.store != nil {
		if err := e.store.Checkpoint(); err != nil {
			return fmt.Errorf("before copy: %w", err)
		}
	}

	src, err := os.Open(e.sourcePath)
	if err != nil {
		return fmt.Errorf("opening store file: %w", err)
	}
	defer src.Close()

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, src); err != nil {
		tmpFile.Close()
		return fmt.Errorf("copying store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
