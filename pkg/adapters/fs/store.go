package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aretw0/notebook/pkg/codec"
	"github.com/aretw0/notebook/pkg/core"
	"github.com/aretw0/notebook/pkg/git"
)

const (
	// DefaultSnapshot is the snapshot file name used when none is configured.
	DefaultSnapshot = "notes.cbor"
	// DefaultSystemDir marks a directory as a notebook and holds its lock file.
	DefaultSystemDir = ".notebook"
	// DefaultLockTimeout bounds the wait for the git lock, so a lock file left
	// by a crashed process fails the save instead of stalling it.
	DefaultLockTimeout = 10 * time.Second
)

// Store implements core.Store as a single snapshot file, optionally
// versioned with git.
type Store struct {
	Path   string
	config Config
	logger *zap.Logger
	codec  *codec.Codec
	git    *git.Client

	mu            sync.RWMutex
	serializers   map[string]Serializer
	lastWritten   []byte
	lastSave      *time.Time
	saves         uint64
	watcherActive bool
}

// Config holds the configuration for the filesystem store.
type Config struct {
	Path        string
	Snapshot    string // file name inside Path, e.g. "notes.cbor"; the extension picks the format
	SystemDir   string // e.g. ".notebook"
	AutoInit    bool   // git init when Versioning is on and Path is not a repository
	MustExist   bool
	Versioning  bool // commit every save to git
	LockTimeout time.Duration
	Logger      *zap.Logger
	Codec       *codec.Codec
	Serializers map[string]Serializer
}

// NewStore creates a new filesystem-backed store.
func NewStore(config Config) *Store {
	if config.Snapshot == "" {
		config.Snapshot = DefaultSnapshot
	}
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.LockTimeout <= 0 {
		config.LockTimeout = DefaultLockTimeout
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Codec == nil {
		config.Codec = codec.New(config.Logger)
	}
	if config.Serializers == nil {
		config.Serializers = DefaultSerializers()
	}

	logger := config.Logger.With(zap.String("store", "fs"), zap.String("path", config.Path))
	return &Store{
		Path:        config.Path,
		config:      config,
		logger:      logger,
		codec:       config.Codec,
		git:         git.NewClient(config.Path, filepath.Join(config.SystemDir, git.DefaultLockName), logger),
		serializers: config.Serializers,
	}
}

// SnapshotPath returns the absolute location of the snapshot file.
func (s *Store) SnapshotPath() string {
	return filepath.Join(s.Path, s.config.Snapshot)
}

// Initialize prepares the directory and, with versioning on, the git repository.
func (s *Store) Initialize(ctx context.Context) error {
	if _, err := s.serializer(); err != nil {
		return err
	}

	if s.config.MustExist {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("notebook path does not exist: %s", s.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("notebook path is not a directory: %s", s.Path)
		}
	}
	if err := os.MkdirAll(filepath.Join(s.Path, s.config.SystemDir), 0755); err != nil {
		return fmt.Errorf("failed to create notebook directory: %w", err)
	}

	if !s.config.Versioning {
		return nil
	}

	if !git.IsInstalled() {
		return fmt.Errorf("git is not installed")
	}

	wasNewRepo := false
	if !s.git.IsRepo() {
		if !s.config.AutoInit {
			return fmt.Errorf("path is not a git repository: %s", s.Path)
		}
		if err := s.git.Init(); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
		wasNewRepo = true
	}

	mod, err := s.ensureIgnore()
	if err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}
	if mod && wasNewRepo {
		if err := s.git.Add(".gitignore"); err != nil {
			return fmt.Errorf("failed to add .gitignore: %w", err)
		}
		if err := s.git.Commit(fmt.Sprintf("chore: configure %s ignore", s.config.SystemDir)); err != nil {
			return fmt.Errorf("failed to commit .gitignore: %w", err)
		}
	}
	return nil
}

func (s *Store) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(s.Path, ".gitignore")
	ignoreEntry := s.config.SystemDir + "/"

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == ignoreEntry {
			return false, nil
		}
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	if _, err := f.WriteString(ignoreEntry + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

// FetchAll reads the snapshot. A missing file is an empty notebook.
func (s *Store) FetchAll(ctx context.Context) ([]core.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ser, err := s.serializer()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.SnapshotPath())
	if errors.Is(err, os.ErrNotExist) {
		return []core.Note{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	records, err := ser.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.config.Snapshot, err)
	}

	notes := make([]core.Note, 0, len(records))
	for _, r := range records {
		n := core.Note{
			ID:        r.ID,
			Title:     r.Title,
			Body:      r.Body,
			Images:    s.codec.DecodeImages(r.Images),
			CreatedAt: r.CreatedAt,
			EditedAt:  r.EditedAt,
		}
		if n.CreatedAt.IsZero() && n.EditedAt != nil {
			s.logger.Warn("record without creation time, using edit time", zap.String("id", n.ID))
			n.CreatedAt = *n.EditedAt
		}
		notes = append(notes, n)
	}
	core.SortNotes(notes)

	s.logger.Debug("snapshot loaded", zap.Int("count", len(notes)))
	return notes, nil
}

// SaveAll replaces the snapshot atomically. With versioning on, the new
// snapshot is committed when it differs from HEAD.
func (s *Store) SaveAll(ctx context.Context, notes []core.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ser, err := s.serializer()
	if err != nil {
		return err
	}

	records := make([]Record, 0, len(notes))
	for _, n := range notes {
		blob, err := s.codec.EncodeImages(n.Images)
		if err != nil {
			return fmt.Errorf("failed to encode images of %s: %w", n.ID, err)
		}
		records = append(records, Record{
			ID:        n.ID,
			Title:     n.Title,
			Body:      n.Body,
			Images:    blob,
			CreatedAt: n.CreatedAt,
			EditedAt:  n.EditedAt,
		})
	}

	data, err := ser.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	var unlock func()
	if s.config.Versioning {
		lockCtx, cancel := context.WithTimeout(ctx, s.config.LockTimeout)
		unlock, err = s.git.Lock(lockCtx)
		cancel()
		if err != nil {
			return err
		}
		defer unlock()
	}

	s.mu.Lock()
	s.lastWritten = data
	s.mu.Unlock()

	if err := writeFileAtomic(s.SnapshotPath(), data, 0644); err != nil {
		return err
	}

	if s.config.Versioning {
		if err := s.commit(len(notes)); err != nil {
			return err
		}
	}

	now := time.Now()
	s.mu.Lock()
	s.lastSave = &now
	s.saves++
	s.mu.Unlock()

	s.logger.Debug("snapshot written", zap.Int("count", len(notes)), zap.Int("bytes", len(data)))
	return nil
}

func (s *Store) commit(count int) error {
	changed, err := s.git.HasChanges(s.config.Snapshot)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := s.git.Add(s.config.Snapshot); err != nil {
		return err
	}
	msg := fmt.Sprintf("notebook: save %d notes", count)
	if count == 1 {
		msg = "notebook: save 1 note"
	}
	return s.git.Commit(msg)
}

// History returns up to n snapshot commits, newest first.
func (s *Store) History(n int) ([]string, error) {
	if !s.config.Versioning {
		return nil, fmt.Errorf("versioning is disabled")
	}
	return s.git.Log(n)
}

func (s *Store) serializer() (Serializer, error) {
	ext := strings.ToLower(filepath.Ext(s.config.Snapshot))
	s.mu.RLock()
	defer s.mu.RUnlock()
	ser, ok := s.serializers[ext]
	if !ok {
		return nil, fmt.Errorf("no serializer for snapshot %q", s.config.Snapshot)
	}
	return ser, nil
}

// ownWrite reports whether data is what this store last wrote.
func (s *Store) ownWrite(data []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastWritten != nil && bytes.Equal(s.lastWritten, data)
}
