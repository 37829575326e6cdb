package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"spotbroker/internal/common/security"
)

// NewHashPasswordCmd prints a bcrypt hash for ADMIN_PASSWORD_HASH.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Hash an admin password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := security.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
