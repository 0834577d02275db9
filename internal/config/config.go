package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/lifetime-memories/albumkeeper/internal/github"
	"github.com/lifetime-memories/albumkeeper/internal/imaging"
	"github.com/lifetime-memories/albumkeeper/internal/pages"
	"github.com/lifetime-memories/albumkeeper/internal/publish"
)

// Config is albumkeeper's resolved configuration.
type Config struct {
	// Org owns the gallery repositories. Empty means the token's own account.
	Org      string
	APIBase  string
	LogDir   string
	LogLevel string
	// Token is the config file fallback; see ResolveToken.
	Token string
	// Refresh is how often the TUI reloads the repository list.
	Refresh time.Duration

	Thumbnail ThumbnailConfig
	Upload    UploadConfig
	Pages     PagesConfig
	Cache     CacheConfig
	HTTP      HTTPConfig
}

type ThumbnailConfig struct {
	Size    int
	Quality int
}

type UploadConfig struct {
	Fanout int
}

type PagesConfig struct {
	Branch               string
	Interval             time.Duration
	Timeout              time.Duration
	MaxTransientFailures int
	Layout               publish.Layout
	StatusMap            map[string]string
}

type CacheConfig struct {
	Enabled  bool
	TTL      time.Duration
	MaxItems int
}

type HTTPConfig struct {
	Timeout       time.Duration
	Retries       int
	RatePerSecond float64
	Burst         int
}

const (
	defaultConfigPath = "~/.config/albumkeeper/config.toml"
	defaultLogDir     = "~/.local/state/albumkeeper/logs"
	defaultLogLevel   = "info"
	defaultRefresh    = 30 * time.Second
	defaultBranch     = "main"
	defaultCacheTTL   = 5 * time.Minute
	defaultCacheMax   = 1000
	defaultFanout     = 8
	defaultHTTPTime   = 30 * time.Second
	defaultRetries    = 3
	defaultRate       = 10
	defaultBurst      = 5
)

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Org:       github.DefaultOrg,
		APIBase:   github.DefaultBaseURL,
		LogDir:    mustExpand(defaultLogDir),
		LogLevel:  defaultLogLevel,
		Refresh:   defaultRefresh,
		Thumbnail: ThumbnailConfig{Size: imaging.DefaultSize, Quality: imaging.DefaultQuality},
		Upload:    UploadConfig{Fanout: defaultFanout},
		Pages: PagesConfig{
			Branch:               defaultBranch,
			Interval:             pages.DefaultInterval,
			Timeout:              pages.DefaultTimeout,
			MaxTransientFailures: pages.DefaultMaxTransientFailures,
			Layout:               publish.LayoutJustified,
		},
		Cache: CacheConfig{Enabled: true, TTL: defaultCacheTTL, MaxItems: defaultCacheMax},
		HTTP: HTTPConfig{
			Timeout:       defaultHTTPTime,
			Retries:       defaultRetries,
			RatePerSecond: defaultRate,
			Burst:         defaultBurst,
		},
	}
}

type rawConfig struct {
	Org      *string `toml:"org"`
	APIBase  string  `toml:"api_base"`
	LogDir   string  `toml:"log_dir"`
	LogLevel string  `toml:"log_level"`
	Token    string  `toml:"token"`
	Refresh  string  `toml:"refresh"`

	Thumbnail struct {
		Size    int `toml:"size"`
		Quality int `toml:"quality"`
	} `toml:"thumbnail"`

	Upload struct {
		Fanout int `toml:"fanout"`
	} `toml:"upload"`

	Pages struct {
		Branch               string            `toml:"branch"`
		Interval             string            `toml:"interval"`
		Timeout              string            `toml:"timeout"`
		MaxTransientFailures int               `toml:"max_transient_failures"`
		Layout               string            `toml:"layout"`
		StatusMap            map[string]string `toml:"status_map"`
	} `toml:"pages"`

	Cache struct {
		Enabled  *bool  `toml:"enabled"`
		TTL      string `toml:"ttl"`
		MaxItems int    `toml:"max_items"`
	} `toml:"cache"`

	HTTP struct {
		Timeout       string  `toml:"timeout"`
		Retries       *int    `toml:"retries"`
		RatePerSecond float64 `toml:"rate_per_second"`
		Burst         int     `toml:"burst"`
	} `toml:"http"`
}

// Load reads the config file at path (or the default location), falling back
// to defaults when it does not exist.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.apply(raw); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", resolved, err)
	}
	return cfg, nil
}

func (c *Config) apply(raw rawConfig) error {
	if raw.Org != nil {
		c.Org = strings.TrimSpace(*raw.Org)
	}
	if v := strings.TrimSpace(raw.APIBase); v != "" {
		c.APIBase = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		c.LogDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	c.Token = strings.TrimSpace(raw.Token)

	var err error
	if c.Refresh, err = duration("refresh", raw.Refresh, c.Refresh); err != nil {
		return err
	}

	if raw.Thumbnail.Size > 0 {
		c.Thumbnail.Size = raw.Thumbnail.Size
	}
	if q := raw.Thumbnail.Quality; q != 0 {
		if q < 1 || q > 100 {
			return fmt.Errorf("thumbnail.quality %d out of range 1-100", q)
		}
		c.Thumbnail.Quality = q
	}
	if raw.Upload.Fanout > 0 {
		c.Upload.Fanout = raw.Upload.Fanout
	}

	if v := strings.TrimSpace(raw.Pages.Branch); v != "" {
		c.Pages.Branch = v
	}
	if c.Pages.Interval, err = duration("pages.interval", raw.Pages.Interval, c.Pages.Interval); err != nil {
		return err
	}
	if c.Pages.Timeout, err = duration("pages.timeout", raw.Pages.Timeout, c.Pages.Timeout); err != nil {
		return err
	}
	if raw.Pages.MaxTransientFailures > 0 {
		c.Pages.MaxTransientFailures = raw.Pages.MaxTransientFailures
	}
	if strings.TrimSpace(raw.Pages.Layout) != "" {
		layout, err := publish.ParseLayout(raw.Pages.Layout)
		if err != nil {
			return fmt.Errorf("pages.layout: %w", err)
		}
		c.Pages.Layout = layout
	}
	if len(raw.Pages.StatusMap) > 0 {
		if _, err := pages.NewMapper(raw.Pages.StatusMap); err != nil {
			return fmt.Errorf("pages.%w", err)
		}
		c.Pages.StatusMap = raw.Pages.StatusMap
	}

	if raw.Cache.Enabled != nil {
		c.Cache.Enabled = *raw.Cache.Enabled
	}
	if c.Cache.TTL, err = duration("cache.ttl", raw.Cache.TTL, c.Cache.TTL); err != nil {
		return err
	}
	if raw.Cache.MaxItems > 0 {
		c.Cache.MaxItems = raw.Cache.MaxItems
	}

	if c.HTTP.Timeout, err = duration("http.timeout", raw.HTTP.Timeout, c.HTTP.Timeout); err != nil {
		return err
	}
	if raw.HTTP.Retries != nil {
		if *raw.HTTP.Retries < 0 {
			return fmt.Errorf("http.retries must not be negative")
		}
		c.HTTP.Retries = *raw.HTTP.Retries
	}
	if raw.HTTP.RatePerSecond > 0 {
		c.HTTP.RatePerSecond = raw.HTTP.RatePerSecond
	}
	if raw.HTTP.Burst > 0 {
		c.HTTP.Burst = raw.HTTP.Burst
	}
	return nil
}

// Mapper builds the Pages status mapper from the configured overrides.
func (c Config) Mapper() (pages.Mapper, error) {
	return pages.NewMapper(c.Pages.StatusMap)
}

func duration(key, value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
