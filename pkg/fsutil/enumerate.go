// Package fsutil lists directory contents for the patch and batch loaders.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a required input path does not exist
var ErrNotFound = errors.New("path not found")

// ListOptions controls what ListEntries yields
type ListOptions struct {
	// IncludeFolders yields sub-directory paths as well as files
	IncludeFolders bool

	// Recursive descends into sub-directories
	Recursive bool

	// Relative strips the root and one separator from every yielded path
	Relative bool
}

// ListEntries lazily lists the entries under root. Entries of one directory
// are yielded in lexical order and sub-directories are visited depth-first,
// so the sequence is stable for an unchanged directory.
//
// A missing root yields a single error wrapping ErrNotFound.
func ListEntries(root string, opts ListOptions) iter.Seq2[string, error] {
	root = filepath.Clean(root)

	return func(yield func(string, error) bool) {
		info, err := os.Stat(root)
		if err != nil {
			yield("", wrapNotFound(root, err))
			return
		}
		if !info.IsDir() {
			yield("", fmt.Errorf("%s is not a directory", root))
			return
		}

		emit := func(path string) bool {
			if opts.Relative {
				path = relativeTo(root, path)
			}
			return yield(path, nil)
		}

		var walk func(dir string) bool
		walk = func(dir string) bool {
			entries, err := os.ReadDir(dir)
			if err != nil {
				return yield("", wrapNotFound(dir, err))
			}

			for _, entry := range entries {
				path := filepath.Join(dir, entry.Name())
				if entry.IsDir() {
					if opts.IncludeFolders && !emit(path) {
						return false
					}
					if opts.Recursive && !walk(path) {
						return false
					}
					continue
				}
				if !emit(path) {
					return false
				}
			}
			return true
		}

		walk(root)
	}
}

// Collect drains a listing into a slice, stopping at the first error
func Collect(seq iter.Seq2[string, error]) ([]string, error) {
	var out []string
	for path, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, path)
	}
	return out, nil
}

// Dirs returns the names of the immediate sub-directories of root in lexical order
func Dirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, wrapNotFound(root, err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && !IsHidden(entry.Name()) {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs, nil
}

// Files returns the regular, non-hidden files directly under dir.
// When exts is not empty only files with one of those extensions are kept.
func Files(dir string, exts []string) ([]string, error) {
	paths, err := Collect(ListEntries(dir, ListOptions{}))
	if err != nil {
		return nil, err
	}

	var files []string
	for _, path := range paths {
		name := filepath.Base(path)
		if IsHidden(name) || !hasExtension(name, exts) {
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

// Exists reports whether path exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsHidden reports whether name is a dot file
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func hasExtension(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func wrapNotFound(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return fmt.Errorf("failed to read %s: %w", path, err)
}

// relativeTo strips root from a path yielded under it. Unlike slicing off
// len(root)+1 bytes it handles roots that already end in a separator, such
// as "/" or a volume root.
func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
