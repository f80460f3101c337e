package api

import "os"

// OSFileSystem is the FileSystem backed by package os.
type OSFileSystem struct{}

// ReadFile reads the named file.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// CreateTemp creates a new temporary file in dir.
func (OSFileSystem) CreateTemp(dir, pattern string) (File, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Rename moves oldPath onto newPath.
func (OSFileSystem) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

// Remove deletes the named file.
func (OSFileSystem) Remove(path string) error {
	return os.Remove(path)
}
