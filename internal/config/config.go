package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// Timing values match the pacing FOFA tolerates for a logged-in browser
// session; they are fixed intervals, never exponential.
const (
	// DefaultBaseURL is the FOFA web UI that job URLs are built against.
	DefaultBaseURL = "https://fofa.info"

	// DefaultCollectorURL is the WebSocket endpoint of the local collector.
	DefaultCollectorURL = "ws://127.0.0.1:8765"

	// DefaultPages is the number of result pages fetched per query or link.
	DefaultPages = 6

	// DefaultPageSize is the page_size query parameter sent with every page.
	DefaultPageSize = 10

	// DefaultDelay is the pause between consecutive page fetches.
	// Consecutive jobs are separated by twice this value.
	DefaultDelay = 2500 * time.Millisecond

	// DefaultMaxRetry is the total number of attempts per page.
	DefaultMaxRetry = 3

	// DefaultRetryDelay is the pause between attempts on the same page.
	DefaultRetryDelay = 5 * time.Second

	// DefaultReconnectDelay is the pause before re-dialing the collector.
	DefaultReconnectDelay = 5 * time.Second

	// DefaultTimeout bounds a single page request.
	DefaultTimeout = 30 * time.Second

	// DefaultLogMax is the number of entries kept by the rolling log.
	DefaultLogMax = 100

	// AppName is the application name used for XDG directory paths.
	AppName = "wsspider"

	// DefaultUserAgent is sent with every page request. FOFA serves a
	// reduced page to unknown agents, so a browser string is used.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// StoreSQLite selects the SQLite state backend.
	StoreSQLite = "sqlite"

	// StoreRedis selects the Redis state backend.
	StoreRedis = "redis"

	// DefaultRedisAddr is used when --store redis is given without an address.
	DefaultRedisAddr = "127.0.0.1:6379"
)

// Config holds all configuration options for wsspider.
// It is populated from defaults, then the config file, then CLI flags,
// and passed down explicitly.
type Config struct {
	// BaseURL is the origin that job URLs and relative refine links
	// are resolved against.
	BaseURL string

	// CollectorURL is the WebSocket endpoint records are streamed to.
	CollectorURL string

	// Pages is the number of pages fetched for each query and each link.
	Pages int

	// PageSize is sent as page_size with every page request.
	PageSize int

	// PagesSet and PageSizeSet record whether Pages and PageSize came
	// from the command line. Unset values may be taken from the file.
	PagesSet    bool
	PageSizeSet bool

	// Delay is the pause between page fetches.
	Delay time.Duration

	// MaxRetry is the total number of attempts per page, not the number
	// of retries after the first attempt.
	MaxRetry int

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration

	// ReconnectDelay is the fixed pause before reconnecting to the collector.
	ReconnectDelay time.Duration

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// LogMax is the capacity of the rolling log.
	LogMax int

	// UserAgent is the User-Agent header sent with page requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// Cookie is the operator's FOFA session cookie.
	Cookie string

	// Headers are extra request headers sent to FOFA.
	Headers map[string]string

	// AutoStart starts the queue as soon as jobs are added or the
	// collector (re)connects with jobs pending. The persisted preference
	// is used when the flag is not given.
	AutoStart bool

	// AutoStartSet records whether AutoStart came from the command line.
	AutoStartSet bool

	// Verbose enables debug output on stderr.
	Verbose bool

	// LogFile, if set, receives every log record as JSON.
	LogFile string

	// DBDir is the directory holding the SQLite state database.
	// Defaults to the XDG data directory (~/.local/share/wsspider on Linux).
	DBDir string

	// Store selects the state backend: StoreSQLite or StoreRedis.
	Store string

	// RedisAddr is the Redis server address used with StoreRedis.
	RedisAddr string

	// MetricsAddr, if set, serves /metrics and /status on this address.
	MetricsAddr string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .wsspider is searched in the current directory and then
	// in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds the configuration file contents, if one was loaded.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		CollectorURL:   DefaultCollectorURL,
		Pages:          DefaultPages,
		PageSize:       DefaultPageSize,
		Delay:          DefaultDelay,
		MaxRetry:       DefaultMaxRetry,
		RetryDelay:     DefaultRetryDelay,
		ReconnectDelay: DefaultReconnectDelay,
		Timeout:        DefaultTimeout,
		LogMax:         DefaultLogMax,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		DBDir:          XDGDataDir(),
		Store:          StoreSQLite,
	}
}

// XDGDataDir returns the XDG data directory for wsspider.
// On Linux: ~/.local/share/wsspider
// On macOS: ~/Library/Application Support/wsspider
// On Windows: %LOCALAPPDATA%\wsspider
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ApplySite merges the file settings for the base URL's host into c.
// Values already set on c (from flags) take precedence over the file.
func (c *Config) ApplySite() {
	if c.SiteConfigs == nil {
		return
	}

	host := c.BaseURL
	if u, err := url.Parse(c.BaseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	site := c.SiteConfigs.GetSiteConfig(host)

	if c.Cookie == "" {
		c.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		merged := make(map[string]string, len(site.Headers)+len(c.Headers))
		for k, v := range site.Headers {
			merged[k] = v
		}
		for k, v := range c.Headers {
			merged[k] = v
		}
		c.Headers = merged
	}
	if site.Pages > 0 && !c.PagesSet {
		c.Pages = site.Pages
	}
	if site.PageSize > 0 && !c.PageSizeSet {
		c.PageSize = site.PageSize
	}
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if u, err := url.Parse(c.CollectorURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return ErrInvalidCollectorURL
	}

	if c.Pages <= 0 {
		return ErrInvalidPages
	}

	if c.PageSize <= 0 {
		return ErrInvalidPageSize
	}

	if c.MaxRetry <= 0 {
		return ErrInvalidMaxRetry
	}

	if c.Delay < 0 || c.RetryDelay < 0 || c.ReconnectDelay < 0 {
		return ErrInvalidDelay
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	switch c.Store {
	case StoreSQLite:
	case StoreRedis:
		if c.RedisAddr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return ErrUnknownStore
	}

	return nil
}
