package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// keyCmd is the root command for signing key operations.
// keyCmd 是签名密钥操作的根命令。
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage signing keys",
}

// keyRotateCmd forces a rotation regardless of the schedule. The previous
// key keeps verifying until its own expiry, so rotation is always safe to
// run.
var keyRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Generate a fresh signing key and make it current",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ac, err := newAdminContext(ctx)
		if err != nil {
			return err
		}
		defer ac.close()

		key, err := ac.keys.Rotate(ctx)
		if err != nil {
			return fmt.Errorf("rotate: %w", err)
		}
		fmt.Printf("rotated: new signing key %s (expires %s)\n",
			key.KID, key.ExpiresAt.UTC().Format(time.RFC3339))
		return nil
	},
}

// keyListCmd prints every key still usable for verification, newest first.
var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List keys currently usable for verification",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ac, err := newAdminContext(ctx)
		if err != nil {
			return err
		}
		defer ac.close()

		now := time.Now().UTC()
		keys, err := ac.keyStore.ListUsable(ctx, now)
		if err != nil {
			return fmt.Errorf("list keys: %w", err)
		}
		if len(keys) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no usable keys; the server creates one on startup")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KID\tROLE\tCREATED\tEXPIRES")
		for i, key := range keys {
			role := "verify-only"
			if i == 0 {
				role = "signing"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				key.KID, role,
				key.CreatedAt.UTC().Format(time.RFC3339),
				key.ExpiresAt.UTC().Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	keyCmd.AddCommand(keyRotateCmd, keyListCmd)
	rootCmd.AddCommand(keyCmd)
}
