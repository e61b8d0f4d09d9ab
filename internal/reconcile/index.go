package reconcile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/okian/pretor/internal/psf"
)

// expandPaths resolves the candidate set: files are taken as-is, directories
// are walked for *.psf. The result is sorted and de-duplicated so matching
// is deterministic.
func expandPaths(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", psf.ErrNotFound, p)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), ".psf") {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", p, err)
		}
	}

	sort.Strings(out)
	return out, nil
}

// buildIndex peeks the metadata of every candidate and groups paths by
// identity key. Archives that cannot yield a key are configuration defects;
// keys held by more than one path stay in the index so every row naming
// them is reported as ambiguous.
func buildIndex(files []string) (map[psf.Key][]string, []Defect) {
	index := make(map[psf.Key][]string, len(files))
	var defects []Defect

	for _, path := range files {
		meta, err := psf.PeekMetadata(path)
		if err != nil {
			defects = append(defects, Defect{Detail: err.Error()})
			continue
		}
		key, err := meta.Key()
		if err != nil {
			defects = append(defects, Defect{Detail: fmt.Sprintf("%s: %v", path, err)})
			continue
		}
		index[key] = append(index[key], path)
	}
	return index, defects
}
