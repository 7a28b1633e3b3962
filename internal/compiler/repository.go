package compiler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cexd/internal/textutil"
)

const gitTimeout = 30 * time.Second

// Repository is a compiler built from a git checkout; its history can be
// searched.
type Repository struct {
	*Base
	repo string
}

// NewRepository builds a repository-type compiler. info.Repository must
// name the checkout.
func NewRepository(info Info, deps Deps) (*Repository, error) {
	if info.Repository == nil || info.Repository.Path == "" {
		return nil, fmt.Errorf("compiler %s: repository path is not configured", info.ID)
	}
	b, err := newBase(info, deps, defaultLayout(info.Lang))
	if err != nil {
		return nil, err
	}
	return &Repository{Base: b, repo: info.Repository.Path}, nil
}

// QueryRevisions lists commits, newest first, whose hash starts with query
// or whose subject or author contains it (case-insensitive). An empty query
// matches everything. Total counts every match, not just the page.
func (r *Repository) QueryRevisions(ctx context.Context, query string, offset, limit int) (Revisions, error) {
	out, err := r.deps.Exec(ctx, Command{
		Name:    "git",
		Args:    []string{"-C", r.repo, "log", "--format=%H%x1f%an%x1f%aI%x1f%s"},
		Timeout: gitTimeout,
	})
	if err != nil {
		return Revisions{}, fmt.Errorf("compiler %s: git log: %w", r.Info().ID, err)
	}
	if out.Code != 0 {
		return Revisions{}, fmt.Errorf("compiler %s: git log exited with code %d: %s", r.Info().ID, out.Code, strings.TrimSpace(out.Stderr))
	}

	q := strings.ToLower(strings.TrimSpace(query))
	matches := make([]Revision, 0)
	for _, line := range textutil.SplitLines(out.Stdout) {
		parts := strings.SplitN(line, "\x1f", 4)
		if len(parts) != 4 {
			continue
		}
		rev := Revision{Hash: parts[0], Author: parts[1], Date: parts[2], Subject: parts[3]}
		if q == "" ||
			strings.HasPrefix(strings.ToLower(rev.Hash), q) ||
			strings.Contains(strings.ToLower(rev.Subject), q) ||
			strings.Contains(strings.ToLower(rev.Author), q) {
			matches = append(matches, rev)
		}
	}

	total := len(matches)
	start := min(max(offset, 0), total)
	end := min(start+max(limit, 0), total)
	return Revisions{Items: matches[start:end], Total: total}, nil
}
