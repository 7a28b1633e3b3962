package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"cexd/internal/diag"
)

type palette struct {
	err, warn, note, loc, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		note: color.New(color.FgCyan),
		loc:  color.New(color.Bold),
		dim:  color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.note, p.loc, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevWarning:
		return p.warn
	case diag.SevNote:
		return p.note
	default:
		return p.err
	}
}

// Pretty форматирует диагностики в человекочитаемый вид:
// <file>:<line>:<col>: <SEV>: <message> для строк с тегом и
// сам текст строки, приглушённо, для остальных.
// Ширина считается по видимым колонкам, цветовые коды не учитываются.
func Pretty(w io.Writer, diags []diag.Diagnostic, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	for _, d := range diags {
		if d.Tag == nil {
			if opts.HideUntagged {
				continue
			}
			if _, err := fmt.Fprintln(w, p.dim.Sprint(truncate(d.Text, opts.Width))); err != nil {
				return err
			}
			continue
		}
		file := d.Tag.File
		if file == "" {
			file = "<source>"
		}
		loc := fmt.Sprintf("%s:%d:%d:", file, d.Tag.Line, d.Tag.Column)
		sev := d.Tag.Severity.String() + ":"
		msg := d.Tag.Text
		if opts.Width > 0 {
			room := opts.Width - runewidth.StringWidth(loc) - runewidth.StringWidth(sev) - 2
			msg = truncate(msg, max(room, 1))
		}
		if _, err := fmt.Fprintf(w, "%s %s %s\n", p.loc.Sprint(loc), p.severity(d.Tag.Severity).Sprint(sev), msg); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
