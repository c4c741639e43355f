package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
)

func newToolsCmd(global *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tool catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, _, err := global.registry()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"groups":        reg.Catalog(),
					"informational": forensics.InformationalTools,
				})
			}

			for _, g := range reg.Catalog() {
				names := make([]string, len(g.Tools))
				for i, t := range g.Tools {
					names[i] = string(t)
				}
				fmt.Fprintf(out, "%-20s %s\n", g.Label+":", strings.Join(names, ", "))
			}
			fmt.Fprintf(out, "%-20s %s\n", "Informational:", strings.Join(forensics.InformationalTools, ", "))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}
