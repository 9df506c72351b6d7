package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aretw0/notebook/pkg/core"
)

// expandImages resolves file names and globs ("shots/**/*.png") to files.
func expandImages(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no file matches %q", pattern)
		}
		files = append(files, matches...)
	}
	return files, nil
}

func (s *session) attach(id string, files []string) error {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if err := s.AddImage(id, core.Image(data)); err != nil {
			return fmt.Errorf("attach %s: %w", f, err)
		}
		s.logger.Debug("image attached", zap.String("id", id), zap.String("file", f), zap.Int("bytes", len(data)))
	}
	return nil
}

// commit commits id, waits for the save and reports the result.
func (s *session) commit(cmd *cobra.Command, id string) error {
	p, err := s.Commit(id)
	if err != nil {
		return err
	}
	if err := s.wait(cmd.Context(), p); err != nil {
		return err
	}
	n, err := s.Note(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s saved (%d images)\n", shortID(id), len(n.Images))
	return nil
}

func newAttachCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <id> <file-or-glob>...",
		Short: "Attach images to a note",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandImages(args[1:])
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), func(s *session) error {
				id, err := s.resolve(args[0])
				if err != nil {
					return err
				}
				if err := s.attach(id, files); err != nil {
					return err
				}
				return s.commit(cmd, id)
			})
		},
	}
}

func newDetachCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detach <id> <index>",
		Short: "Remove an image from a note; later images move down by one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid image index %q", args[1])
			}
			return a.run(cmd.Context(), func(s *session) error {
				id, err := s.resolve(args[0])
				if err != nil {
					return err
				}
				if err := s.RemoveImage(id, index); err != nil {
					return err
				}
				return s.commit(cmd, id)
			})
		},
	}
}
