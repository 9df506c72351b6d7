package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNewCmd(a *app) *cobra.Command {
	var title, body string
	var images []string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandImages(images)
			if err != nil {
				return err
			}

			return a.run(cmd.Context(), func(s *session) error {
				draft, err := s.BeginDraft()
				if err != nil {
					return err
				}
				if err := s.Update(draft.ID, title, body); err != nil {
					return err
				}
				if err := s.attach(draft.ID, files); err != nil {
					_ = s.DiscardDraft()
					return err
				}

				p, err := s.Commit(draft.ID)
				if err != nil {
					return err
				}
				if err := s.wait(cmd.Context(), p); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), draft.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "note title")
	cmd.Flags().StringVarP(&body, "body", "b", "", "note body")
	cmd.Flags().StringArrayVarP(&images, "image", "i", nil, "image file or glob (repeatable)")
	return cmd
}
