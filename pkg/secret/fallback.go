package secret

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	secretFileName = "rpc.secret"
	secretFileMode = 0600
)

// FileStore keeps the secret in a file as a fallback when the system
// keyring is unavailable.
type FileStore struct {
	configDir string
}

var (
	fileReadFile = os.ReadFile
	fileRemove   = os.Remove
	fileRename   = os.Rename
	fileMkdirAll = os.MkdirAll
	fileTempFile = os.CreateTemp
)

// NewFileStore creates a FileStore in configDir.
func NewFileStore(configDir string) *FileStore {
	return &FileStore{configDir: configDir}
}

// Path returns the location of the secret file.
func (f *FileStore) Path() string {
	return filepath.Join(f.configDir, secretFileName)
}

// Set writes v atomically using a temporary file and rename.
func (f *FileStore) Set(v string) error {
	if err := fileMkdirAll(f.configDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmpFile, err := fileTempFile(f.configDir, ".rpc.secret.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.WriteString(v); err != nil {
		tmpFile.Close()
		fileRemove(tmpPath)
		return fmt.Errorf("write secret: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		fileRemove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, secretFileMode); err != nil {
		fileRemove(tmpPath)
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := fileRename(tmpPath, f.Path()); err != nil {
		fileRemove(tmpPath)
		return fmt.Errorf("rename secret file: %w", err)
	}
	return nil
}

// Get reads the secret. A missing or empty file yields ErrNotFound.
func (f *FileStore) Get() (string, error) {
	data, err := fileReadFile(f.Path())
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// Delete removes the secret file.
func (f *FileStore) Delete() error {
	err := fileRemove(f.Path())
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}
