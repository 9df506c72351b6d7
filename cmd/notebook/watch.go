package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aretw0/notebook/pkg/adapters/redis"
	"github.com/aretw0/notebook/pkg/core"
)

func newWatchCmd(a *app) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the collection whenever another process changes it",
		Long: `watch follows the notebook snapshot on disk and reprints the list after
every external save. With --remote it follows the redis change channel instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if remote {
				return a.followRemote(ctx, cmd)
			}
			return a.run(ctx, func(s *session) error {
				return s.follow(ctx, cmd)
			})
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "follow redis.channel instead of the local snapshot")
	return cmd
}

func (s *session) follow(ctx context.Context, cmd *cobra.Command) error {
	watchable, ok := s.store.(core.Watchable)
	if !ok {
		return fmt.Errorf("the configured store cannot be watched")
	}
	events, err := watchable.Watch(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := writeNotes(out, s.Snapshot(), "text"); err != nil {
		return err
	}

	for e := range events {
		s.logger.Debug("snapshot changed", zap.String("type", string(e.Type)), zap.String("path", e.Path))
		if e.Type == core.EventDelete {
			fmt.Fprintln(out, "-- snapshot removed")
			continue
		}
		notes, err := s.store.FetchAll(ctx)
		if err != nil {
			s.logger.Warn("reload failed", zap.Error(err))
			continue
		}
		fmt.Fprintf(out, "-- %d notes\n", len(notes))
		if err := writeNotes(out, notes, "text"); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) followRemote(ctx context.Context, cmd *cobra.Command) error {
	addr := a.v.GetString("redis.addr")
	if addr == "" {
		return fmt.Errorf("--remote needs redis.addr (or NOTEBOOK_REDIS_ADDR)")
	}
	client, err := redis.NewClient(ctx, addr, a.logger)
	if err != nil {
		return err
	}
	defer client.Close()

	relay := redis.NewRelay(client, a.v.GetString("redis.channel"), a.logger)
	out := cmd.OutOrStdout()
	err = relay.Follow(ctx, func(m redis.Message) {
		if m.ID != "" {
			fmt.Fprintf(out, "%s %s (%d notes)\n", m.Kind, shortID(m.ID), m.Count)
			return
		}
		fmt.Fprintf(out, "%s (%d notes)\n", m.Kind, m.Count)
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}
