package main

import (
	"github.com/spf13/cobra"

	"dem-terrain-render/internal/rendererr"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "demrender",
	Short: "Render shaded-relief and colorized maps from DEM tile catalogs",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "demrender.yaml", "configuration file path")
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(serveCmd)
}

// exitCodeForCobraError maps a command's returned error onto the exit codes
// spec.md §6 defines, falling back to 1 for anything cobra itself raises
// (bad flags, unknown subcommand) that never reached our own error kinds.
func exitCodeForCobraError(err error) int {
	if err == nil {
		return 0
	}
	return rendererr.ExitCode(err)
}
