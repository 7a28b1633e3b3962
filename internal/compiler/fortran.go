package compiler

import "path/filepath"

// Fortran runs the toolchain inside the build directory so that module
// (.mod) files land next to the source, and passes the input as
// "./<basename>".
type Fortran struct {
	*Base
}

// NewFortran builds a fortran-type compiler.
func NewFortran(info Info, deps Deps) (*Fortran, error) {
	l := defaultLayout(info.Lang)
	if l.ext == ".src" {
		l.ext = ".f90"
	}
	l.workDir = func(buildDir string) string { return buildDir }
	l.inputArg = func(_, inputPath string) string { return "./" + filepath.Base(inputPath) }
	b, err := newBase(info, deps, l)
	if err != nil {
		return nil, err
	}
	return &Fortran{Base: b}, nil
}
