package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// FileStore persists each session record as a JSON file in a directory.
type FileStore struct {
	sessionsDir string
	ttl         time.Duration
	now         func() time.Time
}

// NewFileStore creates a file-backed store, creating sessionsDir if needed.
// Records not written for longer than ttl are treated as missing; zero
// disables expiry.
func NewFileStore(sessionsDir string, ttl time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &FileStore{
		sessionsDir: sessionsDir,
		ttl:         ttl,
		now:         time.Now,
	}, nil
}

// Get reads a session record from its JSON file
func (fs *FileStore) Get(ctx context.Context, key string) (*Record, error) {
	path, err := fs.getFilePath(key)
	if err != nil {
		return nil, err
	}

	jsonData, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(jsonData, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	if fs.ttl > 0 && fs.now().Sub(rec.UpdatedAt) >= fs.ttl {
		os.Remove(path)
		return nil, ErrSessionNotFound
	}

	if err := validateRecord(&rec); err != nil {
		return nil, fmt.Errorf("session %s: %w", key, err)
	}

	return &rec, nil
}

// Put writes the record to a temporary file and renames it into place.
func (fs *FileStore) Put(ctx context.Context, rec *Record) error {
	if rec == nil {
		return ErrInvalidKey
	}
	path, err := fs.getFilePath(rec.Key)
	if err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	tmp, err := os.CreateTemp(fs.sessionsDir, rec.Key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	if _, err := tmp.Write(jsonData); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	return nil
}

// Delete removes a session file
func (fs *FileStore) Delete(ctx context.Context, key string) error {
	path, err := fs.getFilePath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	return nil
}

// ListAll returns all persisted session keys
func (fs *FileStore) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fs.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			keys = append(keys, strings.TrimSuffix(name, ".json"))
		}
	}

	return keys, nil
}

// CleanupExpired removes session files older than the store's ttl.
func (fs *FileStore) CleanupExpired(ctx context.Context) (int, error) {
	if fs.ttl <= 0 {
		return 0, nil
	}

	keys, err := fs.ListAll()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		path, err := fs.getFilePath(key)
		if err != nil {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if fs.now().Sub(info.ModTime()) >= fs.ttl {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// getFilePath returns the full file path for a session key
func (fs *FileStore) getFilePath(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(fs.sessionsDir, key+".json"), nil
}
