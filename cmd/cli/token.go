package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

// tokenCmd is the root command for token operations.
// tokenCmd 是令牌操作的根命令。
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage issued tokens",
}

// tokenRevokeCmd puts a token identifier on the deny-list directly, for
// incident response when the token itself is not at hand. The record is
// retained for the longest token lifetime plus margin, the same bound the
// service applies.
var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke <jti>",
	Short: "Revoke a token by its identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reason, _ := cmd.Flags().GetString("reason")

		ac, err := newAdminContext(ctx)
		if err != nil {
			return err
		}
		defer ac.close()

		revocations, err := ac.requireRevocations()
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		record := &models.RevokedToken{
			JTI:       args[0],
			Reason:    reason,
			RevokedAt: now,
			ExpiresAt: now.Add(constants.RevocationRetention),
		}
		if err := revocations.Revoke(ctx, record); err != nil {
			return fmt.Errorf("revoke: %w", err)
		}
		fmt.Printf("revoked %s (reason: %s)\n", args[0], reason)
		return nil
	},
}

func init() {
	tokenRevokeCmd.Flags().String("reason", "administrative", "Reason recorded on the deny-list entry")
	tokenCmd.AddCommand(tokenRevokeCmd)
	rootCmd.AddCommand(tokenCmd)
}
