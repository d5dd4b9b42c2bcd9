package assets

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/release"
)

//go:embed all:baseline
var vendoredFS embed.FS

// VendoredDir is the repository path of the vendored baseline, relative to
// the module root. `dashctl sync` mirrors the canonical assets into it.
const VendoredDir = "internal/assets/baseline"

// Vendored returns the baseline compiled into the binary.
func Vendored() fs.FS {
	sub, err := fs.Sub(vendoredFS, "baseline")
	if err != nil {
		panic(err)
	}
	return sub
}

// LoadVendored decodes the embedded baseline. Any failure is ErrBaselineCorrupt.
func LoadVendored() (*Bundle, error) {
	b, err := loadFS(Vendored())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oerrors.ErrBaselineCorrupt, err)
	}
	return b, nil
}

// loadFS reads every regular file of fsys into a Bundle tagged by release.json.
func loadFS(fsys fs.FS) (*Bundle, error) {
	tag, err := readTag(fsys)
	if err != nil {
		return nil, err
	}
	ref, err := release.NewRef(tag, release.SourceLocalInstalled)
	if err != nil {
		return nil, err
	}

	files := make(map[string][]byte)
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		files[p] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading baseline: %w", err)
	}

	return newBundle(ref, files)
}

func readTag(fsys fs.FS) (string, error) {
	data, err := fs.ReadFile(fsys, ReleaseFile)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", ReleaseFile, err)
	}
	var info releaseInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return "", fmt.Errorf("decoding %s: %w", ReleaseFile, err)
	}
	if info.Tag == "" {
		return "", fmt.Errorf("%s has no tag", ReleaseFile)
	}
	return info.Tag, nil
}

// DirBaseline is the write-through cache: the last successfully fetched
// remote bundle, stored on disk.
type DirBaseline struct {
	dir string
}

// NewDirBaseline returns a cache rooted at dir. The directory need not exist.
func NewDirBaseline(dir string) *DirBaseline {
	return &DirBaseline{dir: dir}
}

// Dir returns the cache directory.
func (d *DirBaseline) Dir() string {
	return d.dir
}

// Load reads the cached bundle. A missing directory is ErrNotFound.
//
// While a Save is between its two renames the cache directory is absent and
// the previous bundle sits in the ".old" sibling; Load reads it from there,
// and reads the cache again if the sibling is removed underneath it.
func (d *DirBaseline) Load() (*Bundle, error) {
	b, err := loadDir(d.dir)
	if !errors.Is(err, oerrors.ErrNotFound) {
		return b, err
	}
	if b, oldErr := loadDir(d.oldDir()); oldErr == nil {
		return b, nil
	}
	if b, retryErr := loadDir(d.dir); retryErr == nil {
		return b, nil
	}
	return nil, err
}

func (d *DirBaseline) oldDir() string {
	return d.dir + ".old"
}

func loadDir(dir string) (*Bundle, error) {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no cached baseline at %s", oerrors.ErrNotFound, dir)
		}
		return nil, err
	}
	return loadFS(os.DirFS(dir))
}

// InstalledTag returns the tag recorded in the cache's release.json.
func (d *DirBaseline) InstalledTag() (string, error) {
	return readTag(os.DirFS(d.dir))
}

// Save replaces the cache with b. Files are staged in a sibling temporary
// directory and swapped in with renames, so a reader sees either the old
// or the new bundle, never a partial one.
func (d *DirBaseline) Save(b *Bundle) error {
	parent := filepath.Dir(d.dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating cache parent: %w", err)
	}

	stage, err := os.MkdirTemp(parent, ".baseline-stage-*")
	if err != nil {
		return fmt.Errorf("creating staging dir: %w", err)
	}
	success := false
	defer func() {
		if !success {
			_ = os.RemoveAll(stage)
		}
	}()

	for _, name := range b.Files() {
		if name == ReleaseFile {
			continue
		}
		data, _ := b.File(name)
		if err := writeFileSynced(filepath.Join(stage, filepath.FromSlash(name)), data); err != nil {
			return err
		}
	}
	info, err := json.MarshalIndent(releaseInfo{Tag: b.Ref.Tag}, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileSynced(filepath.Join(stage, ReleaseFile), append(info, '\n')); err != nil {
		return err
	}

	old := ""
	if _, err := os.Stat(d.dir); err == nil {
		old = d.oldDir()
		_ = os.RemoveAll(old)
		if err := os.Rename(d.dir, old); err != nil {
			return fmt.Errorf("moving previous cache aside: %w", err)
		}
	}
	if err := os.Rename(stage, d.dir); err != nil {
		if old != "" {
			_ = os.Rename(old, d.dir)
		}
		return fmt.Errorf("swapping cache: %w", err)
	}
	success = true
	if old != "" {
		_ = os.RemoveAll(old)
	}
	return nil
}

// writeFileSynced writes data to path and fsyncs it.
func writeFileSynced(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("fsync %s: %w", path, err)
	}
	return f.Close()
}
