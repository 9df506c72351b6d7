package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(s *session) error {
				id, err := s.resolve(args[0])
				if err != nil {
					return err
				}
				p, err := s.Delete(id)
				if err != nil {
					return err
				}
				if err := s.wait(cmd.Context(), p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s deleted\n", shortID(id))
				return nil
			})
		},
	}
}

func newPurgeCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete every note without --yes")
			}
			return a.run(cmd.Context(), func(s *session) error {
				count := len(s.Snapshot())
				p, err := s.DeleteAll()
				if err != nil {
					return err
				}
				if err := s.wait(cmd.Context(), p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d notes\n", count)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting every note")
	return cmd
}
