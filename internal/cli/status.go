package cli

import (
	"context"
	"fmt"
	"time"

	"resale-price/internal/client"

	"github.com/spf13/cobra"
)

// NewStatusCmd creates the 'status' command that queries a running server.
func NewStatusCmd() *cobra.Command {
	var remote string
	var timeout time.Duration
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show health and model details of a running server",
		Example: `  resalectl status --remote http://localhost:5000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote == "" {
				settings, err := loadSettings()
				if err != nil {
					return err
				}
				remote = fmt.Sprintf("http://localhost:%d", settings.ListenPort)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			c := client.New(remote, timeout)
			health, err := c.Health(ctx)
			if err != nil {
				return fmt.Errorf("health: %w", err)
			}
			info, err := c.ModelInfo(ctx)
			if err != nil {
				return fmt.Errorf("model info: %w", err)
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"health": health, "model": info})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Server %s: %v\n", remote, health["status"])
			fmt.Fprintf(w, "  model:     %v (%v features)\n", info["version"], info["feature_count"])
			fmt.Fprintf(w, "  mode:      %v\n", health["mode"])
			fmt.Fprintf(w, "  hold-out:  RMSE %v  R2 %v\n", info["rmse"], info["r2"])
			return nil
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "Server base URL (default http://localhost:LISTEN_PORT)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}
