package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover walks the given paths and returns every .sql file that carries at
// least one annotation block, sorted for deterministic run order. A path may
// be a single file or a directory; directories are walked recursively,
// skipping hidden entries.
func Discover(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if seen[abs] {
			return nil
		}
		annotated, err := hasAnnotations(abs)
		if err != nil {
			return err
		}
		if annotated {
			seen[abs] = true
			files = append(files, abs)
		}
		return nil
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read path %q: %w", path, err)
		}
		if !info.IsDir() {
			if err := add(path); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if d.IsDir() {
				if strings.HasPrefix(name, ".") && p != path {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.EqualFold(filepath.Ext(name), ".sql") {
				return nil
			}
			return add(p)
		})
		if err != nil {
			return nil, fmt.Errorf("walking %q: %w", path, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// hasAnnotations does a cheap substring probe so unannotated SQL files never
// enter the run at all.
func hasAnnotations(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("cannot read %q: %w", path, err)
	}
	return strings.Contains(string(data), "# sql-unit"), nil
}
