package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Default file names, relative to the working directory.
const (
	DefaultTokenFile    = "auth_token.json"
	DefaultResponseFile = "response_data.json"
)

// FileStore keeps the token and the last response as JSON files.
// Each write replaces the file atomically; concurrent processes are not locked out.
type FileStore struct {
	TokenPath    string
	ResponsePath string
}

// NewFileStore returns a FileStore, falling back to the default file names.
func NewFileStore(tokenPath, responsePath string) *FileStore {
	if tokenPath == "" {
		tokenPath = DefaultTokenFile
	}
	if responsePath == "" {
		responsePath = DefaultResponseFile
	}
	return &FileStore{TokenPath: tokenPath, ResponsePath: responsePath}
}

func (s *FileStore) GetToken(_ context.Context) (Token, error) {
	data, err := readFile(s.TokenPath)
	if err != nil {
		return Token{}, err
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return Token{}, fmt.Errorf("failed to decode token file %s: %w", s.TokenPath, err)
	}
	return token, nil
}

func (s *FileStore) PutToken(_ context.Context, token Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.TokenPath, data, 0o600)
}

func (s *FileStore) GetResponse(_ context.Context) ([]byte, error) {
	return readFile(s.ResponsePath)
}

// PutResponse stores body indented with four spaces. Bodies that are not valid JSON
// are stored verbatim.
func (s *FileStore) PutResponse(_ context.Context, body []byte) error {
	return writeFileAtomic(s.ResponsePath, indentResponse(body), 0o644)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// writeFileAtomic writes to a temp file in the target directory and renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
