package github

import (
	"strings"
	"time"
)

// Repository mirrors the subset of the repository payload albumkeeper uses.
type Repository struct {
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	Private       bool      `json:"private"`
	Visibility    string    `json:"visibility"`
	HTMLURL       string    `json:"html_url"`
	CloneURL      string    `json:"clone_url"`
	DefaultBranch string    `json:"default_branch"`
	HasPages      bool      `json:"has_pages"`
	SizeKB        int64     `json:"size"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// VisibilityLabel returns "public" or "private", preferring the explicit field.
func (r Repository) VisibilityLabel() string {
	if v := strings.TrimSpace(r.Visibility); v != "" {
		return strings.ToLower(v)
	}
	if r.Private {
		return "private"
	}
	return "public"
}

// CreateRepositoryRequest is the body of a repository creation call.
type CreateRepositoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Private     bool   `json:"private"`
	HasIssues   bool   `json:"has_issues"`
	HasProjects bool   `json:"has_projects"`
	HasWiki     bool   `json:"has_wiki"`
	AutoInit    bool   `json:"auto_init"`
}

// ListOptions controls repository listing.
type ListOptions struct {
	Type    string `url:"type,omitempty"`
	Sort    string `url:"sort,omitempty"`
	PerPage int    `url:"per_page,omitempty"`
	Page    int    `url:"page,omitempty"`
}

// ContentEntry is one item of a contents listing or the result of a write.
type ContentEntry struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
	HTMLURL     string `json:"html_url"`
	// CommitSHA is set on the result of a write: the commit that made it.
	CommitSHA string `json:"-"`
}

// IsFile reports whether the entry is a regular file.
func (c ContentEntry) IsFile() bool {
	return c.Type == "file"
}

type contentOptions struct {
	Ref string `url:"ref,omitempty"`
}

// FileUpload describes a single file write through the contents API.
type FileUpload struct {
	Path    string
	Content []byte
	Message string
	Branch  string
	// SHA of the blob being replaced. When empty and Overwrite is set the
	// client looks it up first.
	SHA       string
	Overwrite bool
}

type putFileRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

type putFileResponse struct {
	Content ContentEntry `json:"content"`
	Commit  struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// CommitOptions filters a commit listing.
type CommitOptions struct {
	Path    string `url:"path,omitempty"`
	PerPage int    `url:"per_page,omitempty"`
}

// Commit mirrors one entry of GET /repos/{owner}/{repo}/commits.
type Commit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message   string    `json:"message"`
		Author    Signature `json:"author"`
		Committer Signature `json:"committer"`
	} `json:"commit"`
}

// Signature is the author or committer of a commit.
type Signature struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date"`
}

// Date is when the commit landed, falling back to the authoring date.
func (c Commit) Date() time.Time {
	if !c.Commit.Committer.Date.IsZero() {
		return c.Commit.Committer.Date
	}
	return c.Commit.Author.Date
}

// PagesSource is the branch and directory a Pages site is built from.
type PagesSource struct {
	Branch string `json:"branch"`
	Path   string `json:"path"`
}

// PagesSite mirrors GET /repos/{owner}/{repo}/pages.
type PagesSite struct {
	URL       string       `json:"url"`
	Status    string       `json:"status"`
	HTMLURL   string       `json:"html_url"`
	BuildType string       `json:"build_type"`
	Source    *PagesSource `json:"source"`
}

// PagesBuild mirrors GET /repos/{owner}/{repo}/pages/builds/latest.
type PagesBuild struct {
	URL    string `json:"url"`
	Status string `json:"status"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
	Commit    string    `json:"commit"`
	Duration  int64     `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PagesStatus is the raw status payload consumed by the build poller.
type PagesStatus struct {
	Enabled     bool
	SiteStatus  string
	BuildStatus string
	BuildError  string
	// BuildCommit and BuildCreatedAt identify the latest build.
	BuildCommit    string
	BuildCreatedAt time.Time
	HTMLURL        string
	CheckedAt      time.Time
}

// NotEnabled is the raw value reported when a repository has no Pages site.
const NotEnabled = "not_enabled"

// Raw returns the single raw status string that best describes the latest
// build: the build's own status, else the site status, else not_enabled.
func (s PagesStatus) Raw() string {
	if !s.Enabled {
		return NotEnabled
	}
	if v := strings.TrimSpace(s.BuildStatus); v != "" {
		return strings.ToLower(v)
	}
	return strings.ToLower(strings.TrimSpace(s.SiteStatus))
}

// RateLimit captures the latest rate limit headers observed.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
	Observed  time.Time
}

// Known reports whether any response has reported rate limit headers yet.
func (r RateLimit) Known() bool {
	return !r.Observed.IsZero()
}

type apiErrorBody struct {
	Message string `json:"message"`
	Errors  []struct {
		Resource string `json:"resource"`
		Field    string `json:"field"`
		Code     string `json:"code"`
		Message  string `json:"message"`
	} `json:"errors"`
}

func (b apiErrorBody) text() string {
	parts := []string{}
	if m := strings.TrimSpace(b.Message); m != "" {
		parts = append(parts, m)
	}
	for _, e := range b.Errors {
		switch {
		case e.Message != "":
			parts = append(parts, e.Message)
		case e.Field != "" && e.Code != "":
			parts = append(parts, e.Field+" "+strings.ReplaceAll(e.Code, "_", " "))
		}
	}
	return strings.Join(parts, "; ")
}
