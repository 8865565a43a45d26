package repo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kongjiyu/dotivra-sub004/internal/logging"
	"github.com/kongjiyu/dotivra-sub004/internal/pathtree"
)

const (
	// DefaultMaxEntries caps a structure listing.
	DefaultMaxEntries = 500
	// DefaultPerPage is the commit page size when none is given.
	DefaultPerPage = 20
	// MaxPerPage is the largest page the code host serves.
	MaxPerPage = 100
)

// Listing is a recursive structure listing of one branch.
type Listing struct {
	Repository string     `json:"repository"`
	Resolution Resolution `json:"resolution"`
	Path       string     `json:"path,omitempty"`
	Entries    []Entry    `json:"entries"`
	Total      int        `json:"total"`
	Truncated  bool       `json:"truncated"`
}

// CommitSummary is a commit reduced for display.
type CommitSummary struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Author  string `json:"author"`
	Date    string `json:"date"`
}

// CommitPage is one page of commit history.
type CommitPage struct {
	Repository string          `json:"repository"`
	Resolution Resolution      `json:"resolution"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	Commits    []CommitSummary `json:"commits"`
	HasMore    bool            `json:"has_more"`
}

// Provider serves repository context for one linked repository.
// The branch resolved for the configured hint is cached for the provider's
// lifetime.
type Provider struct {
	api    API
	ref    Ref
	hint   string
	logger *zap.Logger

	mu       sync.Mutex
	resolved map[string]Resolution
}

// NewProvider parses link and returns a provider reading through api.
func NewProvider(api API, link, branchHint string, logger *zap.Logger) (*Provider, error) {
	ref, err := ParseLink(link)
	if err != nil {
		return nil, err
	}
	return &Provider{
		api:      api,
		ref:      ref,
		hint:     branchHint,
		logger:   logging.OrNop(logger),
		resolved: make(map[string]Resolution),
	}, nil
}

// Ref returns the linked repository.
func (p *Provider) Ref() Ref {
	return p.ref
}

// Resolve resolves branch, or the configured hint when branch is empty.
func (p *Provider) Resolve(ctx context.Context, branch string) (Resolution, error) {
	if branch == "" {
		branch = p.hint
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if res, ok := p.resolved[branch]; ok {
		return res, nil
	}
	res, err := Resolve(ctx, p.api, p.ref, branch)
	if err != nil {
		return Resolution{}, err
	}
	if res.Source != SourceRequested && res.Source != SourceMain {
		p.logger.Info("branch fallback used",
			zap.String("repository", p.ref.String()),
			zap.String("requested", branch),
			zap.String("branch", res.Branch),
			zap.String("source", string(res.Source)))
	}
	p.resolved[branch] = res
	return res, nil
}

// Structure lists files and directories of the resolved branch, optionally
// restricted to a path prefix, sorted by path and capped at limit entries.
func (p *Provider) Structure(ctx context.Context, branch, path string, limit int) (Listing, error) {
	res, err := p.Resolve(ctx, branch)
	if err != nil {
		return Listing{}, err
	}
	if limit <= 0 {
		limit = DefaultMaxEntries
	}

	treeish := res.CommitSHA
	if treeish == "" {
		treeish = res.Branch
	}
	entries, truncated, err := p.api.Tree(ctx, p.ref, treeish)
	if err != nil {
		return Listing{}, fmt.Errorf("list %s@%s: %w", p.ref, res.Branch, err)
	}

	index := pathtree.New[Entry]()
	for _, e := range entries {
		index.Insert(e.Path, e)
	}
	prefix := strings.Trim(path, "/")
	filtered := index.Under(prefix)
	if filtered == nil {
		filtered = []Entry{}
	}

	listing := Listing{
		Repository: p.ref.String(),
		Resolution: res,
		Path:       prefix,
		Total:      len(filtered),
		Truncated:  truncated,
		Entries:    filtered,
	}
	if len(filtered) > limit {
		listing.Entries = filtered[:limit]
		listing.Truncated = true
	}
	return listing, nil
}

// Commits returns one page of history of the resolved branch. Pages start
// at 1.
func (p *Provider) Commits(ctx context.Context, branch string, page, perPage int) (CommitPage, error) {
	res, err := p.Resolve(ctx, branch)
	if err != nil {
		return CommitPage{}, err
	}
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	perPage = min(perPage, MaxPerPage)

	commits, err := p.api.Commits(ctx, p.ref, res.Branch, page, perPage)
	if err != nil {
		return CommitPage{}, fmt.Errorf("history of %s@%s: %w", p.ref, res.Branch, err)
	}

	out := CommitPage{
		Repository: p.ref.String(),
		Resolution: res,
		Page:       page,
		PerPage:    perPage,
		Commits:    make([]CommitSummary, 0, len(commits)),
		HasMore:    len(commits) == perPage,
	}
	for _, c := range commits {
		out.Commits = append(out.Commits, summarize(c))
	}
	return out, nil
}

func summarize(c Commit) CommitSummary {
	sha := c.SHA
	if len(sha) > 7 {
		sha = sha[:7]
	}
	message, _, _ := strings.Cut(c.Message, "\n")
	return CommitSummary{
		SHA:     sha,
		Message: strings.TrimSpace(message),
		Author:  c.Author,
		Date:    c.Date.UTC().Format(time.RFC3339),
	}
}
