package cli

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// healthCmd asks a running server for its readiness report and exits
// non-zero when any dependency probe fails. Unlike the other commands it
// talks to the HTTP API, not to the stores.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check a running server's readiness",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		client := &http.Client{Timeout: 5 * time.Second}
		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, addr+"/readyz", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("server unreachable: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(body))

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server not ready (HTTP %d)", resp.StatusCode)
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().String("addr", "http://localhost:8080", "Base URL of the running server")
	rootCmd.AddCommand(healthCmd)
}
