package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spotbroker",
		Short: "Spot-priced compute job broker",
	}
	cmd.AddCommand(NewServeCmd(), NewSubmitCmd(), NewHashPasswordCmd())
	return cmd
}
