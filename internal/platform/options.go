package platform

import (
	"time"

	"go.uber.org/zap"

	"github.com/aretw0/notebook/pkg/core"
)

// options holds the internal configuration for a notebook.
type options struct {
	store       core.Store
	logger      *zap.Logger
	adapter     string
	config      map[string]interface{}
	serializers map[string]any
	manager     []core.ManagerOption
}

// Option defines a functional option for configuring a notebook.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter:     "fs",
		config:      make(map[string]interface{}),
		serializers: make(map[string]any),
	}
}

func (o *options) log() *zap.Logger {
	if o.logger == nil {
		return zap.NewNop()
	}
	return o.logger
}

// WithSerializer registers a custom snapshot serializer for an extension.
// The serializer must implement fs.Serializer; it is checked during Init.
func WithSerializer(ext string, s any) Option {
	return func(o *options) {
		o.serializers[ext] = s
	}
}

// WithAutoInit creates the notebook directory and, with versioning, the git repository.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.config["auto_init"] = auto
	}
}

// WithVersioning enables or disables committing every save to git.
// When not set, versioning is on if the notebook directory is a git repository.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.config["versioning"] = enabled
	}
}

// WithMustExist ensures the notebook directory must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithSnapshot sets the snapshot file name. Its extension picks the format
// (.cbor, .json, .yaml). Defaults to "notes.cbor".
func WithSnapshot(name string) Option {
	return func(o *options) {
		o.config["snapshot"] = name
	}
}

// WithSystemDir sets the hidden directory name. Defaults to ".notebook".
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.config["system_dir"] = name
	}
}

// WithLogger sets the logger for the store and the manager.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore injects a custom store (e.g. a mock). The adapter is skipped.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithAdapter selects the store by name: "fs" (default), "sql" or "memory".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithImageQuality re-encodes attached images as JPEG at quality (1-100).
// Zero keeps images as attached.
func WithImageQuality(quality int) Option {
	return func(o *options) {
		o.config["image_quality"] = quality
	}
}

// WithEventBuffer sets the buffer size of Watch channels.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.manager = append(o.manager, core.WithEventBuffer(size))
	}
}

// WithSaveErrorHandler registers a callback for failed background saves.
func WithSaveErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.manager = append(o.manager, core.WithSaveErrorHandler(fn))
	}
}

// WithSaveTimeout bounds every store write.
func WithSaveTimeout(d time.Duration) Option {
	return func(o *options) {
		o.manager = append(o.manager, core.WithSaveTimeout(d))
	}
}

// WithClock overrides time.Now (useful for testing).
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.manager = append(o.manager, core.WithClock(clock))
	}
}
