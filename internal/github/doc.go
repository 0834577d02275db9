// Package github is albumkeeper's client for the GitHub REST API.
//
// # Overview
//
// The client covers only the endpoints the gallery workflow needs:
//
//   - repositories: list (paginated), get, create, delete
//   - contents: list a directory, read file metadata, create or update a file
//   - pages: enable the site, request a build, read site and build status
//
// Repositories live under one organisation (lifetime-memories by default).
// With no organisation configured the authenticated user's account is used.
//
// # Transport
//
// Requests go through go-retryablehttp. Network errors, 5xx responses other
// than 501, 429 responses and 403 responses reporting an exhausted rate limit
// are retried with exponential backoff; when GitHub reports the reset time the
// wait runs until then, capped at RetryWaitMax. Authentication and validation
// failures are returned immediately.
//
// A token bucket from golang.org/x/time/rate throttles the client so parallel
// uploads do not trip GitHub's secondary rate limits.
//
// # Errors
//
// Every failure from the API is an *APIError carrying a Kind:
//
//	transient     network failure or 5xx
//	auth          401, or 403 without rate limiting
//	rate_limited  429, or 403 with X-RateLimit-Remaining: 0
//	not_found     404
//	validation    400, 409, 422 (for example a repository name already taken)
//	timeout       context deadline or client timeout
//	unknown       anything else
//
// Use errors.Is with the sentinels (ErrNotFound, ErrValidation, ...), KindOf
// or IsRetryable to branch. Message renders the text shown to the user.
//
// # Rate limits
//
// X-RateLimit-* headers are recorded on every response and exposed through
// RateLimit. The client logs a warning below 100 remaining requests and an
// error below 10.
package github
