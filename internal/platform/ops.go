package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/notebook/pkg/adapters/fs"
	"github.com/aretw0/notebook/pkg/adapters/memory"
	"github.com/aretw0/notebook/pkg/adapters/sql"
	"github.com/aretw0/notebook/pkg/codec"
	"github.com/aretw0/notebook/pkg/core"
)

// Init prepares the store selected by the options.
// The uri argument is adapter-specific: a directory for "fs", a DSN for
// "sql", ignored for "memory".
func Init(ctx context.Context, uri string, opts ...Option) (core.Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return initStore(ctx, uri, o)
}

func initStore(ctx context.Context, uri string, o *options) (core.Store, error) {
	if o.store != nil {
		return o.store, nil
	}

	var store core.Store
	var err error
	c := codec.New(o.log())

	switch o.adapter {
	case "fs", "":
		store, err = initFS(uri, o, c)
	case "sql":
		store, err = sql.Open(sql.Config{DSN: uri, Logger: o.log(), Codec: c})
	case "memory":
		store = memory.NewStore(c)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Initialize(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// initFS handles the configuration of the filesystem adapter.
func initFS(path string, o *options, c *codec.Codec) (core.Store, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	autoInit, _ := o.config["auto_init"].(bool)
	mustExist, _ := o.config["must_exist"].(bool)
	snapshot, _ := o.config["snapshot"].(string)
	systemDir, _ := o.config["system_dir"].(string)

	versioning, explicit := o.config["versioning"].(bool)
	if !explicit {
		// Follow the directory: a git work tree gets versioned saves.
		if _, err := os.Stat(filepath.Join(abs, ".git")); err == nil {
			versioning = true
			o.log().Debug("auto-detected versioning: .git present")
		}
	}

	serializers := fs.DefaultSerializers()
	for ext, s := range o.serializers {
		serializer, ok := s.(fs.Serializer)
		if !ok {
			return nil, fmt.Errorf("serializer for %s must implement fs.Serializer", ext)
		}
		serializers[ext] = serializer
	}

	return fs.NewStore(fs.Config{
		Path:        abs,
		Snapshot:    snapshot,
		SystemDir:   systemDir,
		AutoInit:    autoInit,
		MustExist:   mustExist || !autoInit,
		Versioning:  versioning,
		Logger:      o.log(),
		Codec:       c,
		Serializers: serializers,
	}), nil
}
