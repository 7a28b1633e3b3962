package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"cexd/internal/version"
)

// buildInfo is what `cexd version` reports. Empty fields are omitted.
type buildInfo struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	CacheSalt string `json:"cache_salt,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show cexd build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		full, _ := cmd.Flags().GetBool("full")
		info := currentBuild(full)

		switch strings.ToLower(format) {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		case "pretty":
			v := info.Version
			if useColor(cmd, stdoutFile(cmd)) {
				v = version.Colored()
			}
			writeBuildInfo(cmd.OutOrStdout(), info, v)
			return nil
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
		}
	},
}

func init() {
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	versionCmd.Flags().Bool("full", false, "include commit, build date and the result-cache salt")
}

// currentBuild reads the linker-provided build variables.
func currentBuild(full bool) buildInfo {
	info := buildInfo{Tool: "cexd", Version: strings.TrimSpace(version.Version)}
	if info.Version == "" {
		info.Version = "dev"
	}
	if full {
		info.GitCommit = strings.TrimSpace(version.GitCommit)
		info.BuildDate = strings.TrimSpace(version.BuildDate)
		info.CacheSalt = version.CacheSalt()
	}
	return info
}

// writeBuildInfo prints info in the pretty form; shown is the possibly
// colored version string.
func writeBuildInfo(w io.Writer, info buildInfo, shown string) {
	fmt.Fprintf(w, "cexd %s\n", shown)
	for _, kv := range [][2]string{
		{"commit", info.GitCommit},
		{"built", info.BuildDate},
		{"salt", info.CacheSalt},
	} {
		if kv[1] != "" {
			fmt.Fprintf(w, "%-7s %s\n", kv[0]+":", kv[1])
		}
	}
}
