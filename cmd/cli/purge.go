package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// purgeCmd removes state that has aged out of retention: revocation records
// no live token can reference and key rows past expiry plus margin. This is
// the manual form of the purge the server runs on a schedule.
// purgeCmd 删除超出保留期的状态：不再被任何存活令牌引用的撤销记录和
// 超过保留期的密钥行。这是服务器定期执行的清理的手动形式。
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove records that have aged out of retention",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		revoked, _ := cmd.Flags().GetBool("revoked")
		keys, _ := cmd.Flags().GetBool("keys")
		if !revoked && !keys {
			revoked, keys = true, true
		}

		ac, err := newAdminContext(ctx)
		if err != nil {
			return err
		}
		defer ac.close()

		if revoked {
			revocations, err := ac.requireRevocations()
			if err != nil {
				return err
			}
			n, err := revocations.PurgeExpiredBefore(ctx, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("purge revocations: %w", err)
			}
			fmt.Printf("purged %d revocation record(s)\n", n)
		}
		if keys {
			n, err := ac.keys.PurgeExpired(ctx)
			if err != nil {
				return fmt.Errorf("purge keys: %w", err)
			}
			fmt.Printf("purged %d signing key(s)\n", n)
		}
		return nil
	},
}

func init() {
	purgeCmd.Flags().Bool("revoked", false, "Purge expired revocation records")
	purgeCmd.Flags().Bool("keys", false, "Purge signing keys past retention")
	rootCmd.AddCommand(purgeCmd)
}
