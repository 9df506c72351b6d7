package main

import (
	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(s *session) error {
				id, err := s.resolve(args[0])
				if err != nil {
					return err
				}
				n, err := s.Note(id)
				if err != nil {
					return err
				}
				writeNote(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}
