package github

import (
	"context"
	"net/http"
	"strings"
)

// ListRepositories returns every repository owned by the configured
// organisation, or by the authenticated user when no organisation is set.
func (c *Client) ListRepositories(ctx context.Context) ([]Repository, error) {
	if c == nil {
		return nil, errNilClient
	}
	segments := []string{"user", "repos"}
	opts := ListOptions{Type: "owner", Sort: "updated", PerPage: perPage, Page: 1}
	if c.owner != "" {
		segments = []string{"orgs", c.owner, "repos"}
		opts.Type = "all"
	}

	var all []Repository
	for {
		var page []Repository
		if err := c.do(ctx, http.MethodGet, segments, opts, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < opts.PerPage {
			break
		}
		opts.Page++
	}
	return all, nil
}

// GetRepository fetches a single repository.
func (c *Client) GetRepository(ctx context.Context, repo string) (*Repository, error) {
	if c == nil {
		return nil, errNilClient
	}
	segments, err := c.repoPath(ctx, repo)
	if err != nil {
		return nil, err
	}
	var payload Repository
	if err := c.do(ctx, http.MethodGet, segments, nil, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// CreateRepository creates a repository under the configured owner. A name
// that is already taken comes back as a validation-class *APIError.
func (c *Client) CreateRepository(ctx context.Context, req CreateRepositoryRequest) (*Repository, error) {
	if c == nil {
		return nil, errNilClient
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, &APIError{Kind: KindValidation, Method: http.MethodPost, Message: "repository name required"}
	}
	segments := []string{"user", "repos"}
	if c.owner != "" {
		segments = []string{"orgs", c.owner, "repos"}
	}
	var payload Repository
	if err := c.do(ctx, http.MethodPost, segments, nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// DeleteRepository removes a repository permanently.
func (c *Client) DeleteRepository(ctx context.Context, repo string) error {
	if c == nil {
		return errNilClient
	}
	segments, err := c.repoPath(ctx, repo)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, segments, nil, nil, nil)
}
