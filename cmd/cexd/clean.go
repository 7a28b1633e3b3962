package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cexd/internal/config"
	"cexd/internal/workspace"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [root]",
	Short: "Remove build directories left behind by earlier runs",
	Long: `Clean removes every cexd build directory under root. Without an argument
the root is [workspace].temp_root from the configuration, or the system temp directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	root := ""
	if len(args) == 1 {
		root = args[0]
	} else {
		cfg, err := config.Load(configPath(cmd))
		if err != nil {
			return err
		}
		root = cfg.Workspace.TempRoot
	}
	if root == "" {
		root = os.TempDir()
	}

	stats, err := workspace.Sweep(root)
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d build directories (%d files) from %s\n", stats.Dirs, stats.Files, root)
	if err != nil {
		return fmt.Errorf("clean incomplete: %w", err)
	}
	return nil
}
