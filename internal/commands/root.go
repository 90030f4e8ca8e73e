package commands

import (
	"github.com/spf13/cobra"

	"github.com/quotemaker-dev/quotemaker/internal/buildinfo"
	"github.com/quotemaker-dev/quotemaker/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:     "quotemaker",
		Short:   "Build, export and re-import estimates",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.FileName, "config file")

	rootCmd.AddCommand(
		newInitCommand(),
		newNewCommand(&cfgPath),
		newShowCommand(&cfgPath),
		newSetCommand(&cfgPath),
		newItemCommand(&cfgPath),
		newExportCommand(&cfgPath),
		newImportCommand(&cfgPath),
		newFolderCommand(&cfgPath),
		newHistoryCommand(&cfgPath),
		newServeCommand(&cfgPath),
	)

	return rootCmd
}
