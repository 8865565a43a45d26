// Package repo provides read-only repository context for documents linked to
// a code host: branch resolution, recursive structure and commit history.
//
// Information Hiding:
// - Code host wire format hidden behind the API interface
// - Branch fallback order hidden inside Resolve
// - Authentication and throttling hidden inside GitHubClient
package repo

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrNotFound is returned when the code host reports a missing resource.
	ErrNotFound = errors.New("repository resource not found")

	// ErrInvalidLink is returned when a repository link cannot be parsed.
	ErrInvalidLink = errors.New("invalid repository link")
)

var namePart = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Ref identifies a repository.
type Ref struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// String returns "owner/name".
func (r Ref) String() string {
	return r.Owner + "/" + r.Name
}

// ParseLink extracts owner and repository name from a full URL
// (https://github.com/o/r, with optional .git or trailing path), a scheme-less
// github.com/o/r, an SSH remote git@github.com:o/r.git, or the short form o/r.
func ParseLink(link string) (Ref, error) {
	s := strings.TrimSpace(link)
	if s == "" {
		return Ref{}, fmt.Errorf("%w: empty", ErrInvalidLink)
	}

	var path string
	switch {
	case strings.HasPrefix(s, "git@"):
		_, rest, ok := strings.Cut(s, ":")
		if !ok {
			return Ref{}, fmt.Errorf("%w: %q", ErrInvalidLink, link)
		}
		path = rest
	case strings.Contains(s, "://"):
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return Ref{}, fmt.Errorf("%w: %q", ErrInvalidLink, link)
		}
		path = u.Path
	case strings.HasPrefix(s, "github.com/"), strings.HasPrefix(s, "www.github.com/"):
		_, path, _ = strings.Cut(s, "/")
	default:
		if strings.Count(strings.Trim(s, "/"), "/") != 1 {
			return Ref{}, fmt.Errorf("%w: %q", ErrInvalidLink, link)
		}
		path = s
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidLink, link)
	}
	ref := Ref{Owner: parts[0], Name: strings.TrimSuffix(parts[1], ".git")}
	if !namePart.MatchString(ref.Owner) || !namePart.MatchString(ref.Name) {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidLink, link)
	}
	return ref, nil
}
