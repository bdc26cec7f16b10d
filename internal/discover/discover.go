// Package discover locates git working copies to scan under a root path.
package discover

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoRepos is returned when discovery finds nothing to scan.
var ErrNoRepos = errors.New("no repositories found to scan")

// Folder is one scan work item: a named directory holding a repository.
type Folder struct {
	Name string
	Path string
}

func isRepo(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}

// Discover returns the repositories under root, one level down. With
// noRecurse set, root itself must be a repository and is returned as the
// single work item.
func Discover(root string, noRecurse bool) ([]Folder, error) {
	if noRecurse {
		if !isRepo(root) {
			return nil, fmt.Errorf("%s: %w", root, ErrNoRepos)
		}
		return []Folder{{Name: filepath.Base(root), Path: root}}, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	var folders []Folder
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(root, e.Name())
		if !isRepo(path) {
			continue
		}
		folders = append(folders, Folder{Name: e.Name(), Path: path})
	}
	if len(folders) == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrNoRepos)
	}
	return folders, nil
}
