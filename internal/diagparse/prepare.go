package diagparse

import (
	"path"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Placeholder replaces every reference to the submitted source file.
const Placeholder = "<source>"

const stdinMarker = "<stdin>"

// jailRoots are the home directories seen inside the execution sandbox.
var jailRoots = []string{"/home/ubuntu/", "/home/ce/"}

// maskedRoots are stripped from the start of a line when the caller does not
// know the input filename.
var maskedRoots = []string{"/app/", "/home/ubuntu/", "/home/ce/"}

// Option tweaks line preparation.
type Option func(*preparer)

// WithStripPrefix removes the first occurrence of prefix (typically the build
// directory with a trailing slash) from every line, after the input file
// references have been redacted.
func WithStripPrefix(prefix string) Option {
	return func(p *preparer) {
		p.stripPrefix = prefix
	}
}

type preparer struct {
	inputFilename string
	stripPrefix   string
	variants      []string
}

func newPreparer(inputFilename string, opts []Option) *preparer {
	p := &preparer{inputFilename: norm.NFC.String(inputFilename)}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.variants = filenameVariants(p.inputFilename)
	return p
}

// filenameVariants lists every spelling of the input file the toolchain may
// print, longest first so that "/home/ce/x.cpp" wins over "x.cpp".
func filenameVariants(name string) []string {
	if name == "" {
		return nil
	}
	seen := map[string]bool{name: true}
	out := []string{name}
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	rel := strings.TrimPrefix(name, "./")
	if path.IsAbs(name) {
		rel = path.Base(name)
	}
	add("./" + rel)
	// песочница видит исходник в домашнем каталоге
	for _, root := range jailRoots {
		add(root + rel)
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func (p *preparer) line(raw string) string {
	line := norm.NFC.String(raw)
	line = strings.ReplaceAll(line, stdinMarker, Placeholder)
	for _, v := range p.variants {
		line = strings.ReplaceAll(line, v, Placeholder)
	}
	// префикс снимается только после замены имени исходника
	if p.stripPrefix != "" {
		line = strings.Replace(line, p.stripPrefix, "", 1)
	}
	if len(p.variants) == 0 {
		return maskRoot(line)
	}
	return line
}

func maskRoot(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	for _, root := range maskedRoots {
		if strings.HasPrefix(trimmed, root) {
			return line[:len(line)-len(trimmed)] + trimmed[len(root):]
		}
	}
	return line
}

// tagFile picks the file recorded in a tag for a matched path.
func (p *preparer) tagFile(matched string) string {
	if matched == Placeholder || path.Base(matched) == Placeholder {
		if p.inputFilename == "" {
			return ""
		}
		return path.Base(p.inputFilename)
	}
	return path.Base(matched)
}
