package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/course-emi/pkg/constants"
)

// storedNameSep joins the publish ID and the document name in a stored file
// name. UUIDs never contain it, so the first one splits the two.
const storedNameSep = "_"

// LocalStorage keeps published documents in one flat directory that the HTTP
// server exposes under PublicPrefix. Files are named <id>_<document name>.
type LocalStorage struct {
	BaseDir      string
	PublicPrefix string
	BaseURL      string // optional scheme://host[:port] for absolute URLs
}

// NewLocalStorage creates the directory if it is missing.
func NewLocalStorage(baseDir, publicPrefix, baseURL string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = constants.DefaultExportDir
	}
	if publicPrefix == "" {
		publicPrefix = constants.DefaultFilesPrefix
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure storage dir %q: %w", baseDir, err)
	}
	return &LocalStorage{BaseDir: baseDir, PublicPrefix: publicPrefix, BaseURL: baseURL}, nil
}

// StoredName returns the file name a document is kept under for id. Any
// directory part of name is dropped.
func StoredName(id, name string) string {
	return id + storedNameSep + filepath.Base(name)
}

// SplitStoredName reverses StoredName. ok is false when stored does not carry
// a publish ID.
func SplitStoredName(stored string) (id, name string, ok bool) {
	id, name, found := strings.Cut(stored, storedNameSep)
	if !found || name == "" {
		return "", stored, false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", stored, false
	}
	return id, name, true
}

// Store saves the artifact under id, which must be a UUID.
func (s *LocalStorage) Store(ctx context.Context, id string, artifact Artifact) (StoredArtifact, error) {
	if _, err := uuid.Parse(id); err != nil {
		return StoredArtifact{}, fmt.Errorf("invalid publish id %q: %w", id, err)
	}
	stored := StoredName(id, artifact.Name)
	if err := s.Save(ctx, stored, artifact.Data); err != nil {
		return StoredArtifact{}, err
	}
	return StoredArtifact{Key: stored, Name: artifact.Name, URL: s.URL(stored)}, nil
}

// Save writes data to stored, replacing any existing file of that name. The
// file only appears once fully written.
func (s *LocalStorage) Save(ctx context.Context, stored string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := s.Path(stored)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(s.BaseDir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", stored, err)
	}
	_, werr := f.Write(data)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("failed to write %s: %w", stored, err)
	}
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("failed to write %s: %w", stored, err)
	}
	if err := os.Rename(f.Name(), dest); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("failed to move %s into place: %w", stored, err)
	}
	return nil
}

// URL is where the server hands out stored. It is absolute only when BaseURL
// is set.
func (s *LocalStorage) URL(stored string) string {
	prefix := s.PublicPrefix
	if prefix == "" {
		prefix = constants.DefaultFilesPrefix
	}
	return strings.TrimSuffix(s.BaseURL, "/") + path.Join("/", prefix, stored)
}

// Path resolves a stored file name inside BaseDir. Names with a directory
// part and hidden names are rejected.
func (s *LocalStorage) Path(stored string) (string, error) {
	if stored == "" || stored != filepath.Base(stored) || strings.HasPrefix(stored, ".") {
		return "", fmt.Errorf("invalid file name %q", stored)
	}
	return filepath.Join(s.BaseDir, stored), nil
}

// Prune deletes stored documents last modified more than maxAge ago and
// reports how many it removed. Subdirectories are left alone.
func (s *LocalStorage) Prune(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", s.BaseDir, err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.BaseDir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
