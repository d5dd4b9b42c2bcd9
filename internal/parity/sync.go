package parity

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/choreops/dashctl/internal/output"
)

// Sync makes the vendored tree match the canonical tree: missing and
// changed files are copied with a temp-file-then-rename write and extra
// files are removed. It returns the drift that was repaired.
func Sync(canonical, vendored string) (*DriftReport, error) {
	report, err := Diff(canonical, vendored)
	if err != nil {
		return nil, err
	}
	if report.InSync() {
		return report, nil
	}

	if err := os.MkdirAll(vendored, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", vendored, err)
	}

	copyList := append(append([]string{}, report.Missing...), report.Changed...)
	for _, rel := range copyList {
		src := filepath.Join(canonical, filepath.FromSlash(rel))
		dst := filepath.Join(vendored, filepath.FromSlash(rel))
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		if err := writeAtomic(dst, data); err != nil {
			return nil, err
		}
		output.Debug("synced", "path", rel)
	}

	for _, rel := range report.Extra {
		if err := os.Remove(filepath.Join(vendored, filepath.FromSlash(rel))); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing %s: %w", rel, err)
		}
		output.Debug("removed", "path", rel)
	}
	pruneEmptyDirs(vendored)

	return report, nil
}

// writeAtomic writes data next to dst, fsyncs, and renames it into place.
func writeAtomic(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	success = true
	return nil
}

// pruneEmptyDirs removes empty directories below root, deepest first.
func pruneEmptyDirs(root string) {
	var dirs []string
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && p != root {
			dirs = append(dirs, p)
		}
		return nil
	})
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i]) // fails on non-empty dirs
	}
}

// SyncFunc receives the result of every sync run by Watch.
type SyncFunc func(report *DriftReport, err error)

// debounce collapses editor save bursts into one sync.
const debounce = 200 * time.Millisecond

// Watch syncs once, then again after every change under the canonical
// tree, until ctx is cancelled.
func Watch(ctx context.Context, canonical, vendored string, onSync SyncFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, canonical); err != nil {
		return err
	}

	run := func() {
		report, err := Sync(canonical, vendored)
		if onSync != nil {
			onSync(report, err)
		}
	}
	run()

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case <-timerCh:
			run()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addDirsRecursive(w, ev.Name); err != nil {
						output.Warn("watch: could not add directory", "path", ev.Name, "err", err)
					}
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			output.Error("watch error", "err", err)
		}
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}
