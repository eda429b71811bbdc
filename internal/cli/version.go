package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Cloudhabil/phi-engine/pkg/buildinfo"
)

func (c *CLI) versionCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOut {
				return writeJSONOut(cmd.OutOrStdout(), buildinfo.Get())
			}
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}
