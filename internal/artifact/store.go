package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var idRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var (
	// ErrNotFound is returned when no artifact exists for an id.
	ErrNotFound = errors.New("artifact not found")
	// ErrInvalidID is returned for ids that are not lower-case uuids.
	ErrInvalidID = errors.New("invalid artifact id")
)

// Meta describes a stored artifact.
type Meta struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Kind      Kind      `json:"kind"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source,omitempty"`
}

type sourceKey struct{}

// WithSource tags artifacts saved through ctx with a free-form origin label.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	s, _ := ctx.Value(sourceKey{}).(string)
	return s
}

// Store persists artifacts on disk as a payload file plus a JSON sidecar.
type Store struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact store: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

func validateID(id string) error {
	if !idRe.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Save implements Sink.
func (s *Store) Save(ctx context.Context, a Artifact) error {
	_, err := s.Put(ctx, a)
	return err
}

// Put writes the artifact and returns its metadata.
func (s *Store) Put(ctx context.Context, a Artifact) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}
	if a.Filename == "" {
		return Meta{}, errors.New("artifact store: filename is required")
	}

	meta := Meta{
		ID:        uuid.New().String(),
		Filename:  filepath.Base(a.Filename),
		Kind:      a.Kind,
		SizeBytes: len(a.Data),
		CreatedAt: s.now().UTC(),
		Source:    sourceFrom(ctx),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dataPath := s.dataPath(meta)
	jsonPath := filepath.Join(s.dir, meta.ID+".json")

	if err := os.WriteFile(dataPath, a.Data, 0o644); err != nil {
		return Meta{}, fmt.Errorf("artifact store: write payload: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		s.removeQuiet(dataPath)
		return Meta{}, fmt.Errorf("artifact store: marshal meta: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		s.removeQuiet(dataPath)
		return Meta{}, fmt.Errorf("artifact store: write meta: %w", err)
	}

	slog.Debug("artifact stored", "id", meta.ID, "filename", meta.Filename, "kind", meta.Kind, "size_bytes", meta.SizeBytes)
	return meta, nil
}

// Get reads artifact metadata by id.
func (s *Store) Get(id string) (Meta, error) {
	if err := validateID(id); err != nil {
		return Meta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(id)
}

func (s *Store) getLocked(id string) (Meta, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Meta{}, fmt.Errorf("artifact store: read meta: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("artifact store: unmarshal meta: %w", err)
	}
	return meta, nil
}

// List returns all artifacts sorted by creation time (newest first).
func (s *Store) List() ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("artifact store: glob: %w", err)
	}

	metas := make([]Meta, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Debug("artifact meta unreadable", "path", path, "error", err)
			continue
		}
		var meta Meta
		if err := json.Unmarshal(data, &meta); err != nil {
			slog.Debug("artifact meta malformed", "path", path, "error", err)
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

// Read returns the payload bytes with their metadata.
func (s *Store) Read(id string) ([]byte, Meta, error) {
	if err := validateID(id); err != nil {
		return nil, Meta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, err := s.getLocked(id)
	if err != nil {
		return nil, Meta{}, err
	}
	data, err := os.ReadFile(s.dataPath(meta))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Meta{}, fmt.Errorf("%w: payload missing for %s", ErrNotFound, id)
		}
		return nil, Meta{}, fmt.Errorf("artifact store: read payload: %w", err)
	}
	return data, meta, nil
}

// Delete removes both the payload and the metadata sidecar.
func (s *Store) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.getLocked(id)
	if err != nil {
		return err
	}
	s.removeQuiet(s.dataPath(meta))
	if err := os.Remove(filepath.Join(s.dir, id+".json")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("artifact store: remove meta: %w", err)
	}
	return nil
}

func (s *Store) dataPath(meta Meta) string {
	return filepath.Join(s.dir, meta.ID+"."+meta.Kind.Extension())
}

func (s *Store) removeQuiet(path string) {
	if err := os.Remove(path); err != nil {
		slog.Debug("artifact payload cleanup failed", "path", path, "error", err)
	}
}
