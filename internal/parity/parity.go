// Package parity compares the canonical dashboard asset tree with the copy
// vendored into the binary and mirrors one onto the other.
package parity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/output"
)

// tempPrefix marks in-flight sync files; they are never compared.
const tempPrefix = ".dashctl-sync-"

// DriftReport lists how the vendored tree differs from the canonical one.
// Paths are slash-separated, relative to the tree roots, and sorted.
type DriftReport struct {
	Missing []string `json:"missing"`
	Changed []string `json:"changed"`
	Extra   []string `json:"extra"`

	// Details holds a rendered diff per changed path.
	Details map[string]string `json:"details,omitempty"`
}

// InSync reports whether the trees are identical.
func (r *DriftReport) InSync() bool {
	return len(r.Missing) == 0 && len(r.Changed) == 0 && len(r.Extra) == 0
}

// Err returns an ErrDrift error summarizing the report, or nil when in sync.
func (r *DriftReport) Err() error {
	if r.InSync() {
		return nil
	}
	return fmt.Errorf("%w: %d missing, %d changed, %d extra",
		oerrors.ErrDrift, len(r.Missing), len(r.Changed), len(r.Extra))
}

// Render formats the report for the terminal.
func (r *DriftReport) Render() string {
	changed := make([]output.ChangedItem, 0, len(r.Changed))
	for _, name := range r.Changed {
		changed = append(changed, output.ChangedItem{Name: name, Diff: r.Details[name]})
	}
	return output.RenderDrift(r.Missing, r.Extra, changed)
}

// Diff compares the canonical tree with the vendored tree by content hash.
// It never modifies either tree. A missing vendored tree reports every
// canonical file as missing.
func Diff(canonical, vendored string) (*DriftReport, error) {
	want, err := hashTree(canonical)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: canonical tree %s", oerrors.ErrNotFound, canonical)
		}
		return nil, err
	}
	have, err := hashTree(vendored)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	report := &DriftReport{
		Missing: []string{},
		Changed: []string{},
		Extra:   []string{},
		Details: map[string]string{},
	}
	for rel, sum := range want {
		got, ok := have[rel]
		switch {
		case !ok:
			report.Missing = append(report.Missing, rel)
		case got != sum:
			report.Changed = append(report.Changed, rel)
		}
	}
	for rel := range have {
		if _, ok := want[rel]; !ok {
			report.Extra = append(report.Extra, rel)
		}
	}
	sort.Strings(report.Missing)
	sort.Strings(report.Changed)
	sort.Strings(report.Extra)

	for _, rel := range report.Changed {
		detail, err := fileDiff(rel,
			filepath.Join(vendored, filepath.FromSlash(rel)),
			filepath.Join(canonical, filepath.FromSlash(rel)))
		if err != nil {
			output.Debug("could not render diff", "path", rel, "err", err)
			continue
		}
		report.Details[rel] = detail
	}

	return report, nil
}

// Check is Diff that also returns ErrDrift when the trees differ.
func Check(canonical, vendored string) (*DriftReport, error) {
	report, err := Diff(canonical, vendored)
	if err != nil {
		return nil, err
	}
	return report, report.Err()
}

// hashTree returns the sha256 of every regular file under root.
func hashTree(root string) (map[string]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	sums := make(map[string]string)
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		sums[filepath.ToSlash(rel)] = checksum(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", root, err)
	}
	return sums, nil
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
