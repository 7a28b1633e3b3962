// Package workspace tracks the temporary build directories handed to
// compilations so they can be reclaimed later.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DirPrefix is the name prefix of every build directory.
const DirPrefix = "cexd-build-"

// Stats summarizes one cleanup pass.
type Stats struct {
	Dirs  int `json:"dirs"`
	Files int `json:"files"`

	// Skipped counts directories still checked out by a running job.
	Skipped int `json:"skipped,omitempty"`
}

// Tracker creates build directories under a root and remembers them until
// they are cleaned up. A directory is checked out from NewBuildDir until
// Release; Cleanup never touches a checked-out directory.
type Tracker struct {
	mu   sync.Mutex
	root string
	// dir -> checked out
	dirs map[string]bool
}

// NewTracker creates a tracker rooted at root; empty means os.TempDir().
func NewTracker(root string) *Tracker {
	if root == "" {
		root = os.TempDir()
	}
	return &Tracker{root: root, dirs: make(map[string]bool)}
}

// Root returns the directory build dirs are created in.
func (t *Tracker) Root() string { return t.root }

// NewBuildDir creates, tracks and checks out a fresh build directory.
func (t *Tracker) NewBuildDir() (string, error) {
	if err := os.MkdirAll(t.root, 0o755); err != nil {
		return "", fmt.Errorf("workspace: create root: %w", err)
	}
	dir, err := os.MkdirTemp(t.root, DirPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("workspace: create build dir: %w", err)
	}
	t.mu.Lock()
	t.dirs[dir] = true
	t.mu.Unlock()
	return dir, nil
}

// Release hands dir back; the next Cleanup may remove it. Unknown dirs are
// ignored.
func (t *Tracker) Release(dir string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.dirs[dir]; ok {
		t.dirs[dir] = false
	}
}

// Tracked returns the tracked directories in lexical order.
func (t *Tracker) Tracked() []string {
	t.mu.Lock()
	out := make([]string, 0, len(t.dirs))
	for d := range t.dirs {
		out = append(out, d)
	}
	t.mu.Unlock()
	sort.Strings(out)
	return out
}

// Cleanup removes every released directory. Checked-out directories are
// counted in Skipped and left alone. Directories that fail to be removed stay
// tracked and their errors are joined into the result.
func (t *Tracker) Cleanup() (Stats, error) {
	var (
		stats    Stats
		errs     []error
		released []string
	)
	t.mu.Lock()
	for dir, out := range t.dirs {
		if out {
			stats.Skipped++
			continue
		}
		released = append(released, dir)
	}
	t.mu.Unlock()
	sort.Strings(released)

	for _, dir := range released {
		n, err := removeDir(dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		stats.Dirs++
		stats.Files += n
		t.mu.Lock()
		delete(t.dirs, dir)
		t.mu.Unlock()
	}
	return stats, errors.Join(errs...)
}

// Sweep removes leftover build directories under root that no tracker
// remembers, e.g. after a crash. Used by `cexd clean`.
func Sweep(root string) (Stats, error) {
	if root == "" {
		root = os.TempDir()
	}
	matches, err := filepath.Glob(filepath.Join(root, DirPrefix+"*"))
	if err != nil {
		return Stats{}, fmt.Errorf("workspace: %w", err)
	}
	var (
		stats Stats
		errs  []error
	)
	for _, dir := range matches {
		info, err := os.Lstat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		n, err := removeDir(dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		stats.Dirs++
		stats.Files += n
	}
	return stats, errors.Join(errs...)
}

func removeDir(dir string) (int, error) {
	files := 0
	walkErr := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files++
		}
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, fs.ErrNotExist) {
		return 0, fmt.Errorf("workspace: scan %s: %w", dir, walkErr)
	}
	if err := os.RemoveAll(dir); err != nil {
		return 0, fmt.Errorf("workspace: remove %s: %w", dir, err)
	}
	return files, nil
}
