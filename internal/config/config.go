package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/phishscan/internal/forest"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "phishscan"

	// DefaultFetchTimeout bounds one page download.
	DefaultFetchTimeout = 20 * time.Second

	// DefaultModelTimeout bounds the model artifact fetch.
	DefaultModelTimeout = 30 * time.Second

	// DefaultUploadTimeout bounds one collector round-trip.
	DefaultUploadTimeout = 30 * time.Second

	// DefaultBatchSize is the number of URLs classified concurrently.
	DefaultBatchSize = 4

	// DefaultUserAgent is sent when fetching pages. Phishing kits often
	// cloak themselves from obvious crawlers, so it looks like a browser.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	// DefaultMaxBodySize limits how much of a page is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout is how long the embedded Tor daemon may take
	// to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultAgentAddress is where the local message agent listens.
	DefaultAgentAddress = "127.0.0.1:8765"

	// DefaultCollectorAddress is where the collector service listens.
	DefaultCollectorAddress = ":8080"

	// DefaultCollectorRateLimit is the sustained uploads per second allowed
	// per client; DefaultCollectorBurst is the bucket size.
	DefaultCollectorRateLimit = 2.0
	DefaultCollectorBurst     = 10

	// CollectorStoreFile is the file name of the collector's JSON store.
	CollectorStoreFile = "reports.json"
)

// Config holds every option of the application. It is built from NewConfig,
// then the config file, then command-line flags.
type Config struct {
	// ConfigFilePath is an explicit config file. When empty, .phishscan is
	// searched in the current directory and then the home directory.
	ConfigFilePath string

	// Verbose enables debug logging.
	Verbose bool

	// ModelSource is a file path or http(s) URL of the model artifact.
	// Empty selects the built-in model.
	ModelSource  string
	ModelTimeout time.Duration

	// Thresholds are the percent cut-offs for the Unsafe and Suspicious tiers.
	// Values stored with the thresholds command take precedence.
	Thresholds forest.Thresholds

	// Fetch downloads pages so DOM signals (forms, password inputs) can be
	// used. Without it classification uses the URL alone.
	Fetch        bool
	FetchTimeout time.Duration
	UserAgent    string
	MaxBodySize  int64
	BatchSize    int

	// UseTor routes page downloads through a Tor SOCKS5 proxy, either the
	// one at TorProxyAddress or an embedded daemon when EmbeddedTor is set.
	UseTor            bool
	EmbeddedTor       bool
	TorProxyAddress   string
	TorStartupTimeout time.Duration

	// DBDir holds phishscan.db. Defaults to the XDG data directory.
	DBDir string

	// CollectorURL is the endpoint reports are uploaded to.
	CollectorURL  string
	UploadTimeout time.Duration

	AgentAddress string

	// AgentOrigins are the browser origins allowed to call the agent,
	// typically chrome-extension://<id>.
	AgentOrigins []string

	CollectorAddress   string
	CollectorStore     string
	CollectorRateLimit float64
	CollectorBurst     int

	// JSONReport and MarkdownReport select the output format. They are
	// mutually exclusive; neither selects plain text.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile redirects output to a file.
	ReportFile string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		ModelTimeout:       DefaultModelTimeout,
		Thresholds:         forest.DefaultThresholds(),
		Fetch:              true,
		FetchTimeout:       DefaultFetchTimeout,
		UserAgent:          DefaultUserAgent,
		MaxBodySize:        DefaultMaxBodySize,
		BatchSize:          DefaultBatchSize,
		TorProxyAddress:    DefaultTorProxyAddress,
		TorStartupTimeout:  DefaultTorStartupTimeout,
		DBDir:              XDGDataDir(),
		UploadTimeout:      DefaultUploadTimeout,
		AgentAddress:       DefaultAgentAddress,
		CollectorAddress:   DefaultCollectorAddress,
		CollectorStore:     filepath.Join(XDGDataDir(), CollectorStoreFile),
		CollectorRateLimit: DefaultCollectorRateLimit,
		CollectorBurst:     DefaultCollectorBurst,
	}
}

// XDGDataDir returns the XDG data directory for phishscan.
// On Linux: ~/.local/share/phishscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for phishscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for phishscan.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate returns the first problem found in c.
func (c *Config) Validate() error {
	if c.FetchTimeout <= 0 || c.ModelTimeout <= 0 || c.UploadTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.CollectorURL != "" && !isHTTPURL(c.CollectorURL) {
		return ErrInvalidCollectorURL
	}
	if c.CollectorRateLimit < 0 || c.CollectorBurst < 0 {
		return ErrInvalidRateLimit
	}
	if c.UseTor && !c.EmbeddedTor && c.TorProxyAddress == "" {
		return ErrNoTorProxy
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
