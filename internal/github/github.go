package github

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"
)

// Client wraps the GitHub API client for listing and cloning an
// organization's repositories.

type Client struct {
	org    string
	client *github.Client
	token  string
}

func NewClient(token, org string) *Client {
	hc := http.DefaultClient
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(context.Background(), ts)
	}
	return &Client{
		org:    org,
		client: github.NewClient(hc),
		token:  token,
	}
}

// ListRepos fetches the organization's repositories in a single bounded
// request. A non-2xx response surfaces as an error carrying the HTTP status.
func (c *Client) ListRepos(ctx context.Context) ([]*github.Repository, error) {
	opt := &github.RepositoryListByOrgOptions{
		Type:        "all",
		ListOptions: github.ListOptions{PerPage: 1000},
	}
	repos, resp, err := c.client.Repositories.ListByOrg(ctx, c.org, opt)
	if err != nil {
		if resp != nil {
			return repos, fmt.Errorf("listing repos for %s: HTTP %d: %w", c.org, resp.StatusCode, err)
		}
		return repos, fmt.Errorf("listing repos for %s: %w", c.org, err)
	}
	return repos, nil
}

// CloneRepo materializes a shallow working copy at <baseDir>/<name>. An
// existing clone is refreshed with git pull instead. The clone runs with an
// explicit argument vector, so repository names never pass through a shell.
func (c *Client) CloneRepo(ctx context.Context, repo *github.Repository, baseDir string) (string, error) {
	if repo.Name == nil {
		return "", fmt.Errorf("repo name is nil")
	}
	name := *repo.Name
	repoURL := repo.GetCloneURL()
	dest := filepath.Join(baseDir, name)

	if _, err := os.Stat(dest); err == nil {
		cmd := exec.CommandContext(ctx, "git", "-C", dest, "pull")
		out, err := cmd.CombinedOutput()
		if err != nil {
			return "", fmt.Errorf("git pull failed: %v: %s", err, string(out))
		}
		return dest, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	authURL := repoURL
	if c.token != "" && strings.HasPrefix(repoURL, "https://") {
		authURL = "https://" + c.token + "@" + strings.TrimPrefix(repoURL, "https://")
	}
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", authURL, dest)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git clone failed: %v: %s", err, string(out))
	}
	return dest, nil
}
