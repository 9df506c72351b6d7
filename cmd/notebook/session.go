package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aretw0/notebook"
	"github.com/aretw0/notebook/pkg/adapters/redis"
	"github.com/aretw0/notebook/pkg/core"
)

const saveWait = 30 * time.Second

// session is one loaded notebook for the lifetime of a command.
type session struct {
	*core.Manager
	store  core.Store
	logger *zap.Logger
	closer []func()
}

// open builds the store from configuration, loads the collection and, when
// redis.addr is set, relays this invocation's changes.
func (a *app) open(ctx context.Context) (*session, error) {
	uri, opts, err := a.storeOptions()
	if err != nil {
		return nil, err
	}

	store, err := notebook.Init(ctx, uri, opts...)
	if err != nil {
		return nil, err
	}

	m, err := notebook.New(ctx, uri, append(opts,
		notebook.WithStore(store),
		notebook.WithImageQuality(a.v.GetInt("image_quality")),
		notebook.WithSaveErrorHandler(func(err error) {
			a.logger.Error("background save failed", zap.Error(err))
		}),
	)...)
	if err != nil {
		return nil, err
	}
	s := &session{Manager: m, store: store, logger: a.logger}

	if addr := a.v.GetString("redis.addr"); addr != "" {
		client, err := redis.NewClient(ctx, addr, a.logger)
		if err != nil {
			a.logger.Warn("change relay disabled", zap.Error(err))
		} else {
			relay := redis.NewRelay(client, a.v.GetString("redis.channel"), a.logger)
			unsubscribe := m.Subscribe(relay.Listener(ctx))
			s.closer = append(s.closer, unsubscribe, func() { _ = client.Close() })
		}
	}

	if _, err := m.LoadInitial(ctx); err != nil {
		s.close(ctx)
		return nil, err
	}
	return s, nil
}

func (a *app) storeOptions() (string, []notebook.Option, error) {
	opts := []notebook.Option{
		notebook.WithLogger(a.logger),
		notebook.WithAdapter(a.v.GetString("adapter")),
	}

	switch a.v.GetString("adapter") {
	case "sql":
		dsn := a.v.GetString("dsn")
		if dsn == "" {
			return "", nil, fmt.Errorf("the sql adapter needs --dsn or NOTEBOOK_DSN")
		}
		return dsn, opts, nil
	case "memory":
		return "", opts, nil
	}

	path, err := a.notebookPath()
	if err != nil {
		return "", nil, err
	}
	opts = append(opts,
		notebook.WithAutoInit(true),
		notebook.WithSnapshot(a.v.GetString("snapshot")),
	)
	// Unset means: version when the directory is already a git work tree.
	if a.v.IsSet("versioning") {
		opts = append(opts, notebook.WithVersioning(a.v.GetBool("versioning")))
	}
	return path, opts, nil
}

func (s *session) close(ctx context.Context) {
	if err := s.Close(ctx); err != nil {
		s.logger.Warn("close failed", zap.Error(err))
	}
	for i := len(s.closer) - 1; i >= 0; i-- {
		s.closer[i]()
	}
}

// wait blocks until p is saved.
func (s *session) wait(ctx context.Context, p *core.Pending) error {
	ctx, cancel := context.WithTimeout(ctx, saveWait)
	defer cancel()
	return p.Wait(ctx)
}

// resolve expands a unique ID prefix to the full ID.
func (s *session) resolve(prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", core.ErrNotFound)
	}

	var matches []string
	for _, n := range s.Snapshot() {
		if n.ID == prefix {
			return n.ID, nil
		}
		if strings.HasPrefix(n.ID, prefix) {
			matches = append(matches, n.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no note matches %q", core.ErrNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("id %q is ambiguous (%d notes match)", prefix, len(matches))
	}
}

// run opens a session, calls fn and always closes.
func (a *app) run(ctx context.Context, fn func(s *session) error) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.close(ctx)
	return fn(s)
}
