package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var errNilClient = errors.New("client is nil")

func splitPath(p string) []string {
	var out []string
	for _, part := range strings.Split(strings.Trim(p, "/"), "/") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ListContents lists the entries of dir ("" for the repository root).
func (c *Client) ListContents(ctx context.Context, repo, dir string) ([]ContentEntry, error) {
	if c == nil {
		return nil, errNilClient
	}
	segments, err := c.repoPath(ctx, repo, append([]string{"contents"}, splitPath(dir)...)...)
	if err != nil {
		return nil, err
	}
	var entries []ContentEntry
	if err := c.do(ctx, http.MethodGet, segments, nil, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetContent fetches metadata for a single file.
func (c *Client) GetContent(ctx context.Context, repo, path string) (*ContentEntry, error) {
	if c == nil {
		return nil, errNilClient
	}
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, &APIError{Kind: KindValidation, Method: http.MethodGet, Message: "file path required"}
	}
	segments, err := c.repoPath(ctx, repo, append([]string{"contents"}, parts...)...)
	if err != nil {
		return nil, err
	}
	var entry ContentEntry
	if err := c.do(ctx, http.MethodGet, segments, nil, nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// PutFile creates or updates a single file through the contents API. With
// Overwrite set and no SHA given, the current blob sha is looked up so an
// existing file is replaced instead of rejected.
func (c *Client) PutFile(ctx context.Context, repo string, file FileUpload) (*ContentEntry, error) {
	if c == nil {
		return nil, errNilClient
	}
	parts := splitPath(file.Path)
	if len(parts) == 0 {
		return nil, &APIError{Kind: KindValidation, Method: http.MethodPut, Message: "file path required"}
	}
	segments, err := c.repoPath(ctx, repo, append([]string{"contents"}, parts...)...)
	if err != nil {
		return nil, err
	}

	sha := strings.TrimSpace(file.SHA)
	if sha == "" && file.Overwrite {
		existing, err := c.GetContent(ctx, repo, file.Path)
		switch {
		case err == nil:
			sha = existing.SHA
		case errors.Is(err, ErrNotFound):
		default:
			return nil, fmt.Errorf("look up %s: %w", file.Path, err)
		}
	}

	message := file.Message
	if message == "" {
		message = "Upload " + parts[len(parts)-1]
	}
	body := putFileRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(file.Content),
		Branch:  file.Branch,
		SHA:     sha,
	}
	var payload putFileResponse
	if err := c.do(ctx, http.MethodPut, segments, nil, body, &payload); err != nil {
		return nil, err
	}
	payload.Content.CommitSHA = payload.Commit.SHA
	return &payload.Content, nil
}

// ListCommits returns the most recent commits touching path, newest first.
// perPage <= 0 asks for a single commit.
func (c *Client) ListCommits(ctx context.Context, repo, path string, perPage int) ([]Commit, error) {
	if c == nil {
		return nil, errNilClient
	}
	segments, err := c.repoPath(ctx, repo, "commits")
	if err != nil {
		return nil, err
	}
	if perPage <= 0 {
		perPage = 1
	}
	opts := CommitOptions{Path: strings.Trim(path, "/"), PerPage: perPage}
	var commits []Commit
	if err := c.do(ctx, http.MethodGet, segments, opts, nil, &commits); err != nil {
		return nil, err
	}
	return commits, nil
}
