// Package archive provides durable storage of completed task payloads,
// one immutable JSON record per task id.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound indicates no archived record exists for the id.
var ErrNotFound = errors.New("archived result not found")

// FileArchive stores one JSON file per task id under a directory.
type FileArchive struct {
	dir string
}

// NewFileArchive creates the archive directory if needed.
func NewFileArchive(dir string) (*FileArchive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &FileArchive{dir: dir}, nil
}

// Write persists a terminal payload. Records are written exactly once;
// writing an id that already exists is an error.
func (a *FileArchive) Write(taskID string, payload any) error {
	path := a.path(taskID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("archive record already exists: %s", taskID)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

// Read returns the raw JSON payload for a task id, or ErrNotFound.
func (a *FileArchive) Read(taskID string) (json.RawMessage, error) {
	data, err := os.ReadFile(a.path(taskID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return json.RawMessage(data), nil
}

// Exists reports whether an archived record exists for the id.
func (a *FileArchive) Exists(taskID string) bool {
	_, err := os.Stat(a.path(taskID))
	return err == nil
}

func (a *FileArchive) path(taskID string) string {
	// Task ids are generated uuids; Base guards against path traversal in
	// ids arriving from the transport.
	return filepath.Join(a.dir, filepath.Base(taskID)+".json")
}
