package archive

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentstation/specimap/pkg/errors"
)

// Expand turns command-line arguments into archive files. Files are kept
// as given; directories are walked and contribute every file in a
// supported format whose base name matches include, a shell glob where
// empty matches all. Paths that do not exist are kept so that the batch
// reports them as failed files.
func Expand(args []string, include string) ([]string, error) {
	if include != "" {
		if _, err := filepath.Match(include, ""); err != nil {
			return nil, errors.NewValidationError("include", include, "invalid glob pattern")
		}
	}

	var out []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			add(arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if _, err := Format(path); err != nil {
				return nil
			}
			if include != "" {
				if ok, _ := filepath.Match(include, d.Name()); !ok {
					return nil
				}
			}
			found = append(found, path)
			return nil
		})
		if err != nil {
			return nil, errors.WrapIO("walk", arg, err)
		}
		sort.Strings(found)
		for _, path := range found {
			add(path)
		}
	}
	return out, nil
}
