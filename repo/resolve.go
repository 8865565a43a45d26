package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Source records which step of the fallback chain produced a branch.
type Source string

const (
	SourceRequested Source = "requested"
	SourceMain      Source = "main"
	SourceMaster    Source = "master"
	SourceDefault   Source = "default"
)

// RepoInfo is repository metadata.
type RepoInfo struct {
	FullName      string
	DefaultBranch string
}

// BranchInfo is branch metadata.
type BranchInfo struct {
	Name      string
	CommitSHA string
	TreeSHA   string
}

// Entry is one node of a repository tree.
type Entry struct {
	Path string `json:"path"`
	Type string `json:"type"` // "file" or "dir"
	Size int64  `json:"size"`
}

// Commit is one commit as reported by the code host.
type Commit struct {
	SHA     string
	Message string
	Author  string
	Date    time.Time
}

// API is the read-only code host surface the provider needs. treeish and
// branch accept branch names or commit SHAs.
type API interface {
	Repository(ctx context.Context, ref Ref) (RepoInfo, error)
	Branch(ctx context.Context, ref Ref, name string) (BranchInfo, error)
	Tree(ctx context.Context, ref Ref, treeish string) (entries []Entry, truncated bool, err error)
	Commits(ctx context.Context, ref Ref, branch string, page, perPage int) ([]Commit, error)
}

// Resolution is the outcome of branch resolution. CommitSHA is empty when the
// branch came from repository metadata rather than a branch probe.
type Resolution struct {
	Branch    string `json:"branch"`
	Source    Source `json:"source"`
	CommitSHA string `json:"commit_sha,omitempty"`
}

// ResolutionError lists every branch name tried before giving up.
type ResolutionError struct {
	Ref   Ref
	Tried []string
	Err   error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("no usable branch in %s (tried %s)", e.Ref, strings.Join(e.Tried, ", "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Resolve picks the branch to read: hint (when non-empty), then main, then
// master, then the repository's default branch, stopping at the first that
// exists. A name is never probed twice. The default branch is taken from
// repository metadata and only fetched once the earlier probes fail.
func Resolve(ctx context.Context, api API, ref Ref, hint string) (Resolution, error) {
	type candidate struct {
		name   string
		source Source
	}
	candidates := []candidate{{"main", SourceMain}, {"master", SourceMaster}}
	if hint = strings.TrimSpace(hint); hint != "" {
		candidates = append([]candidate{{hint, SourceRequested}}, candidates...)
	}

	var tried []string
	seen := make(map[string]bool)
	var lastErr error

	for _, c := range candidates {
		if seen[c.name] {
			continue
		}
		seen[c.name] = true
		tried = append(tried, c.name)

		branch, err := api.Branch(ctx, ref, c.name)
		if err == nil {
			return Resolution{Branch: c.name, Source: c.source, CommitSHA: branch.CommitSHA}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Resolution{}, &ResolutionError{Ref: ref, Tried: tried, Err: ctxErr}
		}
		lastErr = err
	}

	info, err := api.Repository(ctx, ref)
	if err != nil {
		return Resolution{}, &ResolutionError{Ref: ref, Tried: append(tried, "(default)"), Err: err}
	}
	if info.DefaultBranch == "" || seen[info.DefaultBranch] {
		if info.DefaultBranch != "" {
			tried = append(tried, info.DefaultBranch+" (default)")
		}
		if lastErr == nil {
			lastErr = errors.New("default branch already tried")
		}
		return Resolution{}, &ResolutionError{Ref: ref, Tried: tried, Err: lastErr}
	}
	return Resolution{Branch: info.DefaultBranch, Source: SourceDefault}, nil
}
