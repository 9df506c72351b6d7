package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEditCmd(a *app) *cobra.Command {
	var title, body string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title or body of a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			titleSet := cmd.Flags().Changed("title")
			bodySet := cmd.Flags().Changed("body")
			if !titleSet && !bodySet {
				return fmt.Errorf("nothing to change: pass --title and/or --body")
			}

			return a.run(cmd.Context(), func(s *session) error {
				id, err := s.resolve(args[0])
				if err != nil {
					return err
				}
				n, err := s.Note(id)
				if err != nil {
					return err
				}
				if titleSet {
					n.Title = title
				}
				if bodySet {
					n.Body = body
				}
				if err := s.Update(id, n.Title, n.Body); err != nil {
					return err
				}
				return s.commit(cmd, id)
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title (empty clears it)")
	cmd.Flags().StringVarP(&body, "body", "b", "", "new body (empty clears it)")
	return cmd
}
