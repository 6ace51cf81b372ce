// Package measure computes on-disk sizes of benchmark artifacts.
package measure

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Sizes is the result of walking one directory tree.
type Sizes struct {
	// Total is the byte size of every regular file under the root.
	Total int64
	// ByName sums sizes of files sharing a basename anywhere in the tree.
	ByName map[string]int64
	// Names lists the keys of ByName in the order they were first seen.
	Names []string
}

// Collect walks root and sums file sizes. Directories contribute
// nothing. Symlinks count as the size of their target and are not
// descended into. Walk order is lexical so repeated calls on an unchanged tree
// return identical results.
func Collect(root string) (Sizes, error) {
	sizes := Sizes{ByName: make(map[string]int64)}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := fileInfo(path, d)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		name := d.Name()
		if _, ok := sizes.ByName[name]; !ok {
			sizes.Names = append(sizes.Names, name)
		}

		sizes.ByName[name] += info.Size()
		sizes.Total += info.Size()

		return nil
	})
	if err != nil {
		return Sizes{}, fmt.Errorf("measure %s: %w", root, err)
	}

	return sizes, nil
}

// fileInfo follows symlinks. A dangling link counts as the link itself.
func fileInfo(path string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink == 0 {
		return d.Info()
	}

	info, err := os.Stat(path)
	if err != nil {
		return d.Info()
	}

	return info, nil
}
