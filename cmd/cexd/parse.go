package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cexd/internal/diag"
	"cexd/internal/diagfmt"
	"cexd/internal/diagparse"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] < compiler-output",
	Short: "Parse compiler output from stdin into diagnostics",
	Args:  cobra.NoArgs,
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().String("dialect", diagparse.DialectGeneric, "output dialect (generic|arrow)")
	parseCmd.Flags().String("file", "", "name the source was compiled as; its mentions become <source>")
	parseCmd.Flags().String("strip-prefix", "", "prefix removed from every line, e.g. the build directory")
	parseCmd.Flags().String("format", "pretty", "output format (pretty|json|short)")
	parseCmd.Flags().Int("max-diagnostics", 0, "maximum number of diagnostics in json output (0 = all)")
}

type parseOptions struct {
	dialect     string
	file        string
	stripPrefix string
	format      string
	max         int
	pretty      diagfmt.PrettyOpts
}

func runParse(cmd *cobra.Command, _ []string) error {
	var opts parseOptions
	var err error
	flags := cmd.Flags()
	if opts.dialect, err = flags.GetString("dialect"); err != nil {
		return err
	}
	if opts.file, err = flags.GetString("file"); err != nil {
		return err
	}
	if opts.stripPrefix, err = flags.GetString("strip-prefix"); err != nil {
		return err
	}
	if opts.format, err = flags.GetString("format"); err != nil {
		return err
	}
	if opts.max, err = flags.GetInt("max-diagnostics"); err != nil {
		return err
	}
	opts.pretty.Color = useColor(cmd, os.Stdout)
	if isTerminal(os.Stdout) {
		if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			opts.pretty.Width = width
		}
	}

	diags, err := parseStream(cmd.InOrStdin(), cmd.OutOrStdout(), opts)
	if err != nil {
		return err
	}
	if diag.HasErrors(diags) {
		cmd.SilenceErrors = true
		return fmt.Errorf("diagnostics contain errors")
	}
	return nil
}

func parseStream(in io.Reader, out io.Writer, opts parseOptions) ([]diag.Diagnostic, error) {
	parser, err := diagparse.ForDialect(opts.dialect)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	var parseOpts []diagparse.Option
	if opts.stripPrefix != "" {
		parseOpts = append(parseOpts, diagparse.WithStripPrefix(opts.stripPrefix))
	}
	diags := parser(string(data), opts.file, parseOpts...)

	switch opts.format {
	case "pretty":
		err = diagfmt.Pretty(out, diags, opts.pretty)
	case "json":
		err = diagfmt.JSON(out, diags, diagfmt.JSONOpts{Indent: true, Max: opts.max})
	case "short":
		_, err = io.WriteString(out, diag.FormatShort(diags))
	default:
		return nil, fmt.Errorf("unknown format: %s", opts.format)
	}
	return diags, err
}
