package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ListLayers returns the layer files under root in lexical order.
//
// A root that is itself a file is returned as is, whatever its extension.
// Directories are walked recursively and files are kept when their
// extension matches one of exts, case-insensitively. Hidden files and
// directories are skipped. A nil exts uses DefaultExtensions.
func ListLayers(root string, exts []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("list layers: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}
	if exts == nil {
		exts = DefaultExtensions
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, want := range exts {
			if ext == strings.ToLower(want) {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list layers: %w", err)
	}
	return paths, nil
}

// relativeDir returns the directory of path relative to root, or "." when
// root is the file itself.
func relativeDir(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return "."
	}
	return filepath.Dir(rel)
}
