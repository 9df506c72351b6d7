package platform

import (
	"context"

	"github.com/aretw0/notebook/pkg/codec"
	"github.com/aretw0/notebook/pkg/core"
)

// New prepares the store and returns a Manager over it. The collection is
// not loaded yet; see Open.
//
//	m, err := notebook.New(ctx, "./notes", notebook.WithAutoInit(true))
func New(ctx context.Context, uri string, opts ...Option) (*core.Manager, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	store, err := initStore(ctx, uri, o)
	if err != nil {
		return nil, err
	}

	managerOpts := []core.ManagerOption{core.WithLogger(o.log())}
	if q, _ := o.config["image_quality"].(int); q > 0 {
		managerOpts = append(managerOpts, core.WithNormalizer(codec.Normalizer{Quality: q, Logger: o.log()}))
	}
	managerOpts = append(managerOpts, o.manager...)

	return core.NewManager(store, managerOpts...), nil
}

// Open is New followed by LoadInitial.
func Open(ctx context.Context, uri string, opts ...Option) (*core.Manager, error) {
	m, err := New(ctx, uri, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := m.LoadInitial(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}
	return m, nil
}
