package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/balsim/btransfer-desktop/internal/shell"
	"github.com/balsim/btransfer-desktop/internal/version"
	"github.com/spf13/cobra"
)

// CreateAboutCmd creates the about command.
func CreateAboutCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "about",
		Short: "Show version and copyright information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					shell.AboutInfo
					Build version.Info `json:"build"`
				}{shell.About(), version.Get()})
			}

			info := version.Get()
			fmt.Fprintln(out, shell.About().String())
			fmt.Fprintf(out, "\nBuild: %s (%s), %s, %s\n", info.GitCommit, info.BuildDate, info.GoVersion, info.Platform)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
