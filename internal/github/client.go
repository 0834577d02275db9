package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-querystring/query"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/lifetime-memories/albumkeeper/internal/logging"
)

// API is the full surface albumkeeper consumes from GitHub. Consumers declare
// narrower interfaces; this one exists for wiring and fakes.
type API interface {
	ListRepositories(ctx context.Context) ([]Repository, error)
	GetRepository(ctx context.Context, repo string) (*Repository, error)
	CreateRepository(ctx context.Context, req CreateRepositoryRequest) (*Repository, error)
	DeleteRepository(ctx context.Context, repo string) error
	ListContents(ctx context.Context, repo, dir string) ([]ContentEntry, error)
	GetContent(ctx context.Context, repo, path string) (*ContentEntry, error)
	PutFile(ctx context.Context, repo string, file FileUpload) (*ContentEntry, error)
	EnablePages(ctx context.Context, repo, branch string) error
	RequestPagesBuild(ctx context.Context, repo string) error
	GetPagesStatus(ctx context.Context, repo string) (PagesStatus, error)
	RateLimit() RateLimit
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com"
	// DefaultOrg is the organisation galleries live under.
	DefaultOrg = "lifetime-memories"

	defaultUserAgent    = "albumkeeper/dev"
	defaultTimeout      = 30 * time.Second
	defaultRetryMax     = 3
	defaultRetryWaitMin = time.Second
	defaultRetryWaitMax = 30 * time.Second
	defaultRate         = 10
	defaultBurst        = 5
	perPage             = 100
	apiVersion          = "2022-11-28"

	headerRateLimit     = "X-RateLimit-Limit"
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"

	rateWarnThreshold     = 100
	rateCriticalThreshold = 10
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL string
	Token   string
	// Owner is the organisation that owns gallery repositories. Empty means
	// the authenticated user.
	Owner         string
	UserAgent     string
	Timeout       time.Duration
	RetryMax      int
	RetryWaitMin  time.Duration
	RetryWaitMax  time.Duration
	RatePerSecond float64
	Burst         int
	Logger        *log.Logger
	// HTTPClient replaces the underlying transport client, mostly for tests.
	HTTPClient *http.Client
}

// Client talks to the GitHub REST API.
type Client struct {
	baseURL   *url.URL
	http      *retryablehttp.Client
	limiter   *rate.Limiter
	token     string
	owner     string
	userAgent string
	logger    *log.Logger

	mu    sync.Mutex
	rate  RateLimit
	login string
}

// NewClient builds a Client from opts.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("github")

	rc := retryablehttp.NewClient()
	if opts.HTTPClient != nil {
		rc.HTTPClient = opts.HTTPClient
	}
	rc.HTTPClient.Timeout = orDuration(opts.Timeout, defaultTimeout)
	rc.RetryMax = defaultRetryMax
	if opts.RetryMax > 0 {
		rc.RetryMax = opts.RetryMax
	} else if opts.RetryMax < 0 {
		rc.RetryMax = 0
	}
	rc.RetryWaitMin = orDuration(opts.RetryWaitMin, defaultRetryWaitMin)
	rc.RetryWaitMax = orDuration(opts.RetryWaitMax, defaultRetryWaitMax)
	rc.CheckRetry = checkRetry
	rc.Backoff = backoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = logging.Leveled(logger)

	rps := opts.RatePerSecond
	if rps <= 0 {
		rps = defaultRate
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		baseURL:   base,
		http:      rc,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		token:     strings.TrimSpace(opts.Token),
		owner:     strings.TrimSpace(opts.Owner),
		userAgent: userAgent,
		logger:    logger,
	}, nil
}

// Owner returns the configured organisation, or "" for the authenticated user.
func (c *Client) Owner() string {
	return c.owner
}

// RateLimit returns the most recent rate limit headers observed.
func (c *Client) RateLimit() RateLimit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

func (c *Client) ownerFor(ctx context.Context) (string, error) {
	if c.owner != "" {
		return c.owner, nil
	}
	c.mu.Lock()
	login := c.login
	c.mu.Unlock()
	if login != "" {
		return login, nil
	}
	var user struct {
		Login string `json:"login"`
	}
	if err := c.do(ctx, http.MethodGet, []string{"user"}, nil, nil, &user); err != nil {
		return "", fmt.Errorf("resolve authenticated user: %w", err)
	}
	if user.Login == "" {
		return "", fmt.Errorf("resolve authenticated user: empty login")
	}
	c.mu.Lock()
	c.login = user.Login
	c.mu.Unlock()
	return user.Login, nil
}

func (c *Client) repoPath(ctx context.Context, repo string, rest ...string) ([]string, error) {
	repo = strings.TrimSpace(repo)
	if repo == "" {
		return nil, &APIError{Kind: KindValidation, Message: "repository name required"}
	}
	owner, err := c.ownerFor(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string{"repos", owner, repo}, rest...), nil
}

// do issues a request against the API. Segments are joined onto the base
// path; query is encoded with go-querystring; body is JSON encoded.
func (c *Client) do(ctx context.Context, method string, segments []string, params any, body any, dest any) error {
	_, err := c.doResponse(ctx, method, segments, params, body, dest)
	return err
}

func (c *Client) doResponse(ctx context.Context, method string, segments []string, params any, body any, dest any) (int, error) {
	if c == nil {
		return 0, fmt.Errorf("client is nil")
	}
	reqURL := c.baseURL.JoinPath(segments...)
	if params != nil {
		values, err := query.Values(params)
		if err != nil {
			return 0, fmt.Errorf("encode query: %w", err)
		}
		reqURL.RawQuery = values.Encode()
	}
	path := "/" + strings.Join(segments, "/")

	var raw []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		raw = encoded
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, &APIError{Kind: classifyTransport(err), Method: method, Path: path, Err: err}
	}

	var reqBody any
	if raw != nil {
		reqBody = raw
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, reqURL.String(), reqBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return 0, &APIError{Kind: classifyTransport(err), Method: method, Path: path, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	c.observeRateLimit(resp.Header)

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var parsed apiErrorBody
		_ = json.Unmarshal(payload, &parsed)
		message := parsed.text()
		return resp.StatusCode, &APIError{
			Kind:    classifyStatus(resp.StatusCode, resp.Header, message),
			Status:  resp.StatusCode,
			Method:  method,
			Path:    path,
			Message: message,
		}
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func (c *Client) observeRateLimit(h http.Header) {
	remainingRaw := h.Get(headerRateRemaining)
	if remainingRaw == "" {
		return
	}
	remaining, err := strconv.Atoi(remainingRaw)
	if err != nil {
		return
	}
	limit, _ := strconv.Atoi(h.Get(headerRateLimit))
	var reset time.Time
	if secs, err := strconv.ParseInt(h.Get(headerRateReset), 10, 64); err == nil {
		reset = time.Unix(secs, 0)
	}

	c.mu.Lock()
	previous := c.rate
	c.rate = RateLimit{Limit: limit, Remaining: remaining, Reset: reset, Observed: time.Now()}
	c.mu.Unlock()

	if previous.Known() && previous.Remaining <= remaining {
		return
	}
	switch {
	case remaining < rateCriticalThreshold:
		c.logger.Error("rate limit nearly exhausted", "remaining", remaining, "reset", reset.Format(time.RFC3339))
	case remaining < rateWarnThreshold:
		c.logger.Warn("rate limit running low", "remaining", remaining, "reset", reset.Format(time.RFC3339))
	}
}

// checkRetry retries network failures, 5xx other than 501, 429, and 403
// responses that report an exhausted rate limit.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if resp == nil {
		return false, nil
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return true, nil
	case resp.StatusCode == http.StatusForbidden:
		return resp.Header.Get(headerRateRemaining) == "0", nil
	case resp.StatusCode == http.StatusNotImplemented:
		return false, nil
	case resp.StatusCode >= 500:
		return true, nil
	}
	return false, nil
}

// backoff waits for the advertised reset when the rate limit is exhausted and
// otherwise defers to exponential backoff.
func backoff(min, max time.Duration, attempt int, resp *http.Response) time.Duration {
	if resp != nil && resp.Header.Get(headerRateRemaining) == "0" {
		if secs, err := strconv.ParseInt(resp.Header.Get(headerRateReset), 10, 64); err == nil {
			wait := time.Until(time.Unix(secs, 0))
			if wait < min {
				wait = min
			}
			if wait > max {
				wait = max
			}
			return wait
		}
	}
	return retryablehttp.DefaultBackoff(min, max, attempt, resp)
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api base %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api base %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func orDuration(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
