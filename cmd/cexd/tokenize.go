package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cexd/internal/argsplit"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [flags] -- args...",
	Short: "Split a compiler argument string the way the server does",
	Long:  `Tokenize joins its arguments with spaces and splits the result with the server's shell-like argument rules`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTokenize,
}

func init() {
	tokenizeCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runTokenize(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	return writeTokens(cmd.OutOrStdout(), strings.Join(args, " "), format)
}

func writeTokens(w io.Writer, raw, format string) error {
	tokens := argsplit.Split(raw)
	switch format {
	case "pretty":
		for i, tok := range tokens {
			if _, err := fmt.Fprintf(w, "%3d  %s\n", i, strconv.Quote(tok)); err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(tokens)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
