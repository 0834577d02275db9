package github

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// EnablePages turns on Pages for branch at the repository root. A site that
// already exists is not an error.
func (c *Client) EnablePages(ctx context.Context, repo, branch string) error {
	if c == nil {
		return errNilClient
	}
	segments, err := c.repoPath(ctx, repo, "pages")
	if err != nil {
		return err
	}
	branch = strings.TrimSpace(branch)
	if branch == "" {
		branch = "main"
	}
	body := struct {
		Source PagesSource `json:"source"`
	}{Source: PagesSource{Branch: branch, Path: "/"}}

	err = c.do(ctx, http.MethodPost, segments, nil, body, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		return nil
	}
	return err
}

// RequestPagesBuild asks GitHub to rebuild the site from the latest commit.
func (c *Client) RequestPagesBuild(ctx context.Context, repo string) error {
	if c == nil {
		return errNilClient
	}
	segments, err := c.repoPath(ctx, repo, "pages", "builds")
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, segments, nil, nil, nil)
}

// GetPagesStatus reads the site and its latest build. A repository without a
// site reports Enabled=false rather than an error.
func (c *Client) GetPagesStatus(ctx context.Context, repo string) (PagesStatus, error) {
	if c == nil {
		return PagesStatus{}, errNilClient
	}
	segments, err := c.repoPath(ctx, repo, "pages")
	if err != nil {
		return PagesStatus{}, err
	}
	status := PagesStatus{CheckedAt: time.Now()}

	var site PagesSite
	if err := c.do(ctx, http.MethodGet, segments, nil, nil, &site); err != nil {
		if errors.Is(err, ErrNotFound) {
			return status, nil
		}
		return PagesStatus{}, err
	}
	status.Enabled = true
	status.SiteStatus = site.Status
	status.HTMLURL = site.HTMLURL

	var build PagesBuild
	err = c.do(ctx, http.MethodGet, append(segments, "builds", "latest"), nil, nil, &build)
	switch {
	case err == nil:
		status.BuildStatus = build.Status
		status.BuildError = build.Error.Message
		status.BuildCommit = build.Commit
		status.BuildCreatedAt = build.CreatedAt
	case errors.Is(err, ErrNotFound):
	default:
		return PagesStatus{}, err
	}
	return status, nil
}
