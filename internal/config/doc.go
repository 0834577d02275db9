// Package config loads albumkeeper's TOML configuration.
//
// Load reads ~/.config/albumkeeper/config.toml unless a path is given. A
// missing file is not an error: every field has a default, so albumkeeper
// works with nothing but a token in the environment. Empty or blank values
// also fall back to their defaults, except org, where an explicit empty
// string selects the token owner's personal account.
//
// Durations are written as Go duration strings ("5s", "2m"). Paths accept a
// leading ~.
//
//	org = "lifetime-memories"
//	log_level = "info"
//
//	[thumbnail]
//	size = 200
//	quality = 85
//
//	[pages]
//	branch = "main"
//	interval = "5s"
//	timeout = "5m"
//	layout = "justified"
//
//	[pages.status_map]
//	deploying = "building"
//
//	[cache]
//	ttl = "5m"
//	max_items = 1000
//
//	[http]
//	retries = 3
//	rate_per_second = 10
//
// # Tokens
//
// ResolveToken loads a .env file without overriding the environment, then
// checks GITHUB_TOKEN, GH_TOKEN and finally the file's token key. When none
// is set it returns ErrMissingToken.
package config
