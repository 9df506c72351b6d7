package notebook

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aretw0/notebook/internal/platform"
	"github.com/aretw0/notebook/pkg/core"
)

// --- Types ---

type (
	Note             = core.Note
	Image            = core.Image
	Change           = core.Change
	ChangeKind       = core.ChangeKind
	Manager          = core.Manager
	Pending          = core.Pending
	Store            = core.Store
	PersistenceError = core.PersistenceError
)

const (
	ChangeLoad      = core.ChangeLoad
	ChangeCommit    = core.ChangeCommit
	ChangeDelete    = core.ChangeDelete
	ChangeDeleteAll = core.ChangeDeleteAll
)

var (
	ErrNotFound     = core.ErrNotFound
	ErrInvalidState = core.ErrInvalidState
	ErrClosed       = core.ErrClosed
)

// --- Configuration ---

// Option defines a functional option for configuring a notebook.
type Option = platform.Option

// WithAutoInit creates the notebook directory (and git repository when versioned).
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithVersioning enables or disables committing every save to git.
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithMustExist ensures the notebook directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithSnapshot sets the snapshot file name; its extension picks the format.
func WithSnapshot(name string) Option {
	return platform.WithSnapshot(name)
}

// WithSystemDir sets the hidden directory name (e.g. ".notebook").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore injects a custom store.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithAdapter selects the store by name: "fs", "sql" or "memory".
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithImageQuality re-encodes attached images as JPEG at quality. Zero keeps them as is.
func WithImageQuality(quality int) Option {
	return platform.WithImageQuality(quality)
}

// WithEventBuffer sets the buffer size of Watch channels.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithSaveErrorHandler registers a callback for failed background saves.
func WithSaveErrorHandler(fn func(error)) Option {
	return platform.WithSaveErrorHandler(fn)
}

// WithSaveTimeout bounds every store write.
func WithSaveTimeout(d time.Duration) Option {
	return platform.WithSaveTimeout(d)
}

// WithSerializer registers a custom snapshot serializer for an extension.
func WithSerializer(ext string, s any) Option {
	return platform.WithSerializer(ext, s)
}

// --- Factory ---

// New creates a Manager without loading the collection.
func New(ctx context.Context, uri string, opts ...Option) (*core.Manager, error) {
	return platform.New(ctx, uri, opts...)
}

// Open creates a Manager and loads the collection.
func Open(ctx context.Context, uri string, opts ...Option) (*core.Manager, error) {
	return platform.Open(ctx, uri, opts...)
}

// Init prepares a store explicitly.
func Init(ctx context.Context, uri string, opts ...Option) (core.Store, error) {
	return platform.Init(ctx, uri, opts...)
}

// FindRoot looks upwards from startDir for a notebook root.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
