package cli

import (
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/utils"
)

// secretCmd is the root command for secret material operations.
var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate secret material",
}

// secretGenerateCmd prints a fresh base64 master secret in the format the
// static provider accepts (master_key.key / CLIMBAUTH_MASTER_KEY_KEY).
// Nothing is stored; the caller places it under their secret management.
var secretGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new base64-encoded 32-byte master secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := make([]byte, constants.MasterKeySize)
		if _, err := rand.Read(raw); err != nil {
			return fmt.Errorf("generate secret: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), utils.Base64Encode(raw))
		return nil
	},
}

func init() {
	secretCmd.AddCommand(secretGenerateCmd)
	rootCmd.AddCommand(secretCmd)
}
