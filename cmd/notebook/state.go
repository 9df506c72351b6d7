package main

import (
	"encoding/json"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"
)

func newStateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the internal state of the manager and the store as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(s *session) error {
				out := map[string]any{
					s.ComponentType(): s.State(),
				}
				if comp, ok := s.store.(introspection.Introspectable); ok {
					name := "store"
					if c, ok := s.store.(introspection.Component); ok {
						name = c.ComponentType()
					}
					out[name] = comp.State()
				}

				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(out)
			})
		},
	}
}
