package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/kassist-go/internal/agent"
)

// NewRouteCmd constructs the `kassist route` command, which prints the path a
// question would take without answering it.
func NewRouteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route [question]",
		Short: "Show which path a question would be routed to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), agent.Classify(strings.Join(args, " ")))
			return err
		},
	}
}
