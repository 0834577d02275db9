package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingToken means no GitHub token was found anywhere.
var ErrMissingToken = errors.New("no GitHub token: set GITHUB_TOKEN (or GH_TOKEN), add it to .env, or set token in the config file")

// TokenEnvVars are consulted in order.
var TokenEnvVars = []string{"GITHUB_TOKEN", "GH_TOKEN"}

// ResolveToken loads envFile (when it exists) into the environment without
// overriding variables already set, then returns the first token found in
// TokenEnvVars, falling back to the config file's token. source names where
// it came from, for logging.
func (c Config) ResolveToken(envFile string) (token, source string, err error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", "", fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	for _, name := range TokenEnvVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, "env:" + name, nil
		}
	}
	if c.Token != "" {
		return c.Token, "config", nil
	}
	return "", "", ErrMissingToken
}
