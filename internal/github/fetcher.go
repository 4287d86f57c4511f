package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"

	"repo-pulse/internal/history"
)

// Fetcher returns the current metrics of one repository.
type Fetcher interface {
	Fetch(ctx context.Context, repoID string) (history.Snapshot, error)
}

// Client reads repository metrics from the GitHub REST API.
type Client struct {
	gh *gh.Client
}

// NewClient builds a GitHub client. An empty token uses the unauthenticated (rate limited) API.
// baseURL overrides the API root, e.g. for GitHub Enterprise.
func NewClient(ctx context.Context, token, baseURL string) (*Client, error) {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	client := gh.NewClient(httpClient)

	if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
		u, err := url.Parse(trimmed)
		if err != nil {
			return nil, fmt.Errorf("parse github api base url: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("parse github api base url: missing scheme or host")
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		client.BaseURL = u
	}
	return &Client{gh: client}, nil
}

// ParseRepoID splits an "owner/name" identifier.
func ParseRepoID(repoID string) (owner, name string, err error) {
	parts := strings.Split(strings.TrimSpace(repoID), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q: want owner/name", repoID)
	}
	return parts[0], parts[1], nil
}

// Fetch issues three lookups: repository metadata for stars, a one-item commit
// listing whose last-page number is the commit count, and an issue search for
// open issues. Commit count is 0 when the listing carries no pagination
// metadata, so single-page histories undercount.
func (c *Client) Fetch(ctx context.Context, repoID string) (history.Snapshot, error) {
	owner, name, err := ParseRepoID(repoID)
	if err != nil {
		return history.Snapshot{}, err
	}

	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return history.Snapshot{}, fmt.Errorf("get repository %s: %w", repoID, err)
	}

	_, resp, err := c.gh.Repositories.ListCommits(ctx, owner, name, &gh.CommitsListOptions{
		ListOptions: gh.ListOptions{PerPage: 1},
	})
	if err != nil {
		return history.Snapshot{}, fmt.Errorf("list commits %s: %w", repoID, err)
	}
	commits := 0
	if resp != nil {
		commits = resp.LastPage
	}

	query := fmt.Sprintf("repo:%s/%s type:issue state:open", owner, name)
	issues, _, err := c.gh.Search.Issues(ctx, query, &gh.SearchOptions{
		ListOptions: gh.ListOptions{PerPage: 1},
	})
	if err != nil {
		return history.Snapshot{}, fmt.Errorf("search open issues %s: %w", repoID, err)
	}

	return history.Snapshot{
		Stars:   repo.GetStargazersCount(),
		Commits: commits,
		Issues:  issues.GetTotal(),
	}, nil
}
