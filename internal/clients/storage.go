package clients

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrFileNotFound is returned by FileStore.Open for unknown keys.
var ErrFileNotFound = errors.New("file not found")

// FileStore keeps generated documents (notices, exports) and hands out
// download URLs for them.
type FileStore interface {
	// Save stores data under a unique key derived from name and returns the key.
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
	URL(ctx context.Context, key string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// uniqueName prefixes the base of fileName with 16 random hex digits.
func uniqueName(fileName string) (string, error) {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return "", fmt.Errorf("failed to generate file name: %w", err)
	}
	return hex.EncodeToString(randBytes) + "_" + filepath.Base(fileName), nil
}

// OriginalName strips the directory and random prefix added by Save.
func OriginalName(key string) string {
	name := filepath.Base(key)
	if idx := strings.IndexByte(name, '_'); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

// StorageClient is a FileStore on the local disk whose files are served by
// the /files route.
type StorageClient struct {
	BaseDir      string // absolute or relative directory to store files
	PublicPrefix string // URL prefix where files are served, e.g. "/files"
	BaseURL      string // optional absolute base URL (scheme+host[:port]) used to build file URLs
}

var _ FileStore = (*StorageClient)(nil)

// NewLocalStorage creates a storage client; baseDir will be created if missing.
func NewLocalStorage(baseDir, publicPrefix, baseURL string) (*StorageClient, error) {
	if baseDir == "" {
		baseDir = "./storage"
	}
	if publicPrefix == "" {
		publicPrefix = "/files"
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure storage dir %q: %w", baseDir, err)
	}

	return &StorageClient{BaseDir: baseDir, PublicPrefix: publicPrefix, BaseURL: baseURL}, nil
}

// Save writes data atomically and returns the stored file name.
func (s *StorageClient) Save(ctx context.Context, fileName string, data []byte, contentType string) (string, error) {
	final, err := uniqueName(fileName)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.BaseDir, final)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize file: %w", err)
	}

	return final, nil
}

func (s *StorageClient) URL(_ context.Context, key string) (string, error) {
	return s.GetURL(key), nil
}

// Path resolves key inside BaseDir. Keys cannot escape the directory.
func (s *StorageClient) Path(key string) string {
	return filepath.Join(s.BaseDir, filepath.Base(key))
}

func (s *StorageClient) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", key, err)
	}
	return f, nil
}

// GetURL returns public URL for a saved file. If BaseURL is configured, it builds an absolute URL
// (BaseURL + PublicPrefix + / + filename). Otherwise it returns a relative path (PublicPrefix/filename).
func (s *StorageClient) GetURL(fileName string) string {
	prefix := s.PublicPrefix
	if prefix == "" {
		prefix = "/files"
	}
	if prefix[0] != '/' {
		prefix = "/" + prefix
	}

	return strings.TrimSuffix(s.BaseURL, "/") + prefix + "/" + fileName
}

// CleanupOlderThan deletes files older than given duration in base dir.
func (s *StorageClient) CleanupOlderThan(d time.Duration) error {
	now := time.Now()
	return filepath.WalkDir(s.BaseDir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return nil
		}
		if now.Sub(info.ModTime()) > d {
			_ = os.Remove(path) // best-effort
		}
		return nil
	})
}
