package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/balsim/btransfer-desktop/internal/health"
	"github.com/balsim/btransfer-desktop/internal/shell"
	"github.com/spf13/cobra"
)

// CreateHealthCmd creates the health command, the terminal version of the
// Server Status menu item.
func CreateHealthCmd() *cobra.Command {
	var url string
	var timeout time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show the status of a running B-Transfer server",
		Long: `Queries the /health endpoint of the backend and prints its status and version. ` +
			`Exits non-zero when the server does not respond or reports itself unhealthy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runHealth(ctx, cmd.OutOrStdout(), health.NewClient(url, timeout), asJSON)
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", health.DefaultURL, "Base URL of the B-Transfer server")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 5*time.Second, "Request timeout")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw health report as JSON")
	return cmd
}

func runHealth(ctx context.Context, out io.Writer, client *health.Client, asJSON bool) error {
	status, err := client.Check(ctx)

	if asJSON && err == nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(status); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintln(out, shell.StatusText(status, err))
	}

	if err != nil {
		return err
	}
	if !status.Healthy() {
		return fmt.Errorf("server reports status %q", status.Status)
	}
	return nil
}
