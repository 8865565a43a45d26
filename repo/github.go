package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/kongjiyu/dotivra-sub004/internal/logging"
)

const (
	// DefaultGitHubBaseURL is the public GitHub REST endpoint.
	DefaultGitHubBaseURL = "https://api.github.com"

	defaultRequestsPerSecond = 5
	defaultBurst             = 10
	defaultTimeout           = 30 * time.Second
)

// GitHubOptions configures a GitHubClient. The zero value talks to the public
// API anonymously.
type GitHubOptions struct {
	BaseURL           string
	Token             string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

// GitHubClient implements API over the GitHub REST API.
type GitHubClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ API = (*GitHubClient)(nil)

// NewGitHubClient creates a client. When a token is configured requests are
// authenticated through an oauth2 static token source.
func NewGitHubClient(opts GitHubOptions) *GitHubClient {
	base := opts.HTTPClient
	if base == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		base = &http.Client{Timeout: timeout}
	}

	client := base
	if opts.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}))
		client.Timeout = base.Timeout
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultGitHubBaseURL
	}

	return &GitHubClient{
		baseURL: baseURL,
		http:    client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logging.OrNop(opts.Logger),
	}
}

// apiError carries the status and message of a failed request.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github: HTTP %d", e.Status)
	}
	return fmt.Sprintf("github: HTTP %d: %s", e.Status, e.Message)
}

func (c *GitHubClient) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("github: rate limiter: %w", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("github: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("github request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &payload)
		return &apiError{Status: resp.StatusCode, Message: payload.Message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("github: decode %s: %w", path, err)
	}
	return nil
}

func repoPath(ref Ref) string {
	return "/repos/" + url.PathEscape(ref.Owner) + "/" + url.PathEscape(ref.Name)
}

// Repository fetches repository metadata.
func (c *GitHubClient) Repository(ctx context.Context, ref Ref) (RepoInfo, error) {
	var payload struct {
		FullName      string `json:"full_name"`
		DefaultBranch string `json:"default_branch"`
	}
	if err := c.get(ctx, repoPath(ref), nil, &payload); err != nil {
		return RepoInfo{}, err
	}
	return RepoInfo{FullName: payload.FullName, DefaultBranch: payload.DefaultBranch}, nil
}

// Branch fetches branch metadata.
func (c *GitHubClient) Branch(ctx context.Context, ref Ref, name string) (BranchInfo, error) {
	var payload struct {
		Name   string `json:"name"`
		Commit struct {
			SHA    string `json:"sha"`
			Commit struct {
				Tree struct {
					SHA string `json:"sha"`
				} `json:"tree"`
			} `json:"commit"`
		} `json:"commit"`
	}
	if err := c.get(ctx, repoPath(ref)+"/branches/"+url.PathEscape(name), nil, &payload); err != nil {
		return BranchInfo{}, err
	}
	return BranchInfo{
		Name:      payload.Name,
		CommitSHA: payload.Commit.SHA,
		TreeSHA:   payload.Commit.Commit.Tree.SHA,
	}, nil
}

// Tree fetches the recursive tree of treeish.
func (c *GitHubClient) Tree(ctx context.Context, ref Ref, treeish string) ([]Entry, bool, error) {
	var payload struct {
		Tree []struct {
			Path string `json:"path"`
			Type string `json:"type"`
			Size int64  `json:"size"`
		} `json:"tree"`
		Truncated bool `json:"truncated"`
	}
	query := url.Values{"recursive": {"1"}}
	if err := c.get(ctx, repoPath(ref)+"/git/trees/"+url.PathEscape(treeish), query, &payload); err != nil {
		return nil, false, err
	}

	entries := make([]Entry, 0, len(payload.Tree))
	for _, node := range payload.Tree {
		kind := "file"
		if node.Type == "tree" {
			kind = "dir"
		} else if node.Type != "blob" {
			// submodules ("commit") are skipped
			continue
		}
		entries = append(entries, Entry{Path: node.Path, Type: kind, Size: node.Size})
	}
	return entries, payload.Truncated, nil
}

// Commits fetches one page of commit history for branch.
func (c *GitHubClient) Commits(ctx context.Context, ref Ref, branch string, page, perPage int) ([]Commit, error) {
	var payload []struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Name string    `json:"name"`
				Date time.Time `json:"date"`
			} `json:"author"`
		} `json:"commit"`
		Author *struct {
			Login string `json:"login"`
		} `json:"author"`
	}
	query := url.Values{
		"sha":      {branch},
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	if err := c.get(ctx, repoPath(ref)+"/commits", query, &payload); err != nil {
		return nil, err
	}

	commits := make([]Commit, 0, len(payload))
	for _, item := range payload {
		author := item.Commit.Author.Name
		if author == "" && item.Author != nil {
			author = item.Author.Login
		}
		commits = append(commits, Commit{
			SHA:     item.SHA,
			Message: item.Commit.Message,
			Author:  author,
			Date:    item.Commit.Author.Date,
		})
	}
	return commits, nil
}
