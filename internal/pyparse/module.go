package pyparse

import (
	"os"
	"path/filepath"
	"strings"
)

var pyExtensions = []string{".pyi", ".py"}

// StripPy removes a trailing .py or .pyi suffix, preferring .pyi.
// Returns "" when the name has neither suffix.
func StripPy(name string) string {
	for _, ext := range pyExtensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return ""
}

func hasInitFile(dir string) bool {
	for _, ext := range pyExtensions {
		if info, err := os.Stat(filepath.Join(dir, "__init__"+ext)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

// CrawlUp walks from a .py[i] file towards the filesystem root until it
// finds a directory without an __init__ file, returning the package root
// directory and the dotted module path of the file.
func CrawlUp(path string) (string, string) {
	dir, file := filepath.Split(filepath.Clean(path))
	dir = filepath.Clean(dir)
	mod := StripPy(file)
	if mod == "" {
		mod = file
	}
	for dir != "" && hasInitFile(dir) {
		parent, base := filepath.Split(dir)
		if base == "" {
			break
		}
		if mod == "__init__" || mod == "" {
			mod = base
		} else {
			mod = base + "." + mod
		}
		dir = filepath.Clean(parent)
	}
	return dir, mod
}

// ModulePath returns just the dotted module path for a file.
func ModulePath(path string) string {
	_, mod := CrawlUp(path)
	return mod
}
