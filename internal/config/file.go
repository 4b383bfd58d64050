package config

import "time"

// File is the structure of the .phishscan configuration file. Every field
// is optional; zero values leave the corresponding Config field untouched.
type File struct {
	Model      ModelSection     `yaml:"model,omitempty"`
	Thresholds ThresholdSection `yaml:"thresholds,omitempty"`
	Fetch      FetchSection     `yaml:"fetch,omitempty"`
	Tor        TorSection       `yaml:"tor,omitempty"`
	Database   DatabaseSection  `yaml:"database,omitempty"`
	Collector  CollectorSection `yaml:"collector,omitempty"`
	Agent      AgentSection     `yaml:"agent,omitempty"`
}

// ModelSection selects the model artifact.
type ModelSection struct {
	Source      string        `yaml:"source,omitempty"`
	LoadTimeout time.Duration `yaml:"loadTimeout,omitempty"`
}

// ThresholdSection holds the default tier thresholds in percent.
type ThresholdSection struct {
	Block *int `yaml:"block,omitempty"`
	Warn  *int `yaml:"warn,omitempty"`
}

// FetchSection configures page downloads.
type FetchSection struct {
	Enabled     *bool         `yaml:"enabled,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	UserAgent   string        `yaml:"userAgent,omitempty"`
	MaxBodySize int64         `yaml:"maxBodySize,omitempty"`
	BatchSize   int           `yaml:"batchSize,omitempty"`
}

// TorSection configures anonymous fetching.
type TorSection struct {
	Enabled        *bool         `yaml:"enabled,omitempty"`
	Embedded       *bool         `yaml:"embedded,omitempty"`
	Proxy          string        `yaml:"proxy,omitempty"`
	StartupTimeout time.Duration `yaml:"startupTimeout,omitempty"`
}

// DatabaseSection locates the local database.
type DatabaseSection struct {
	Dir string `yaml:"dir,omitempty"`
}

// CollectorSection configures both the upload target and the collector
// service.
type CollectorSection struct {
	URL           string        `yaml:"url,omitempty"`
	UploadTimeout time.Duration `yaml:"uploadTimeout,omitempty"`
	Listen        string        `yaml:"listen,omitempty"`
	Store         string        `yaml:"store,omitempty"`
	RateLimit     *float64      `yaml:"rateLimit,omitempty"`
	RateBurst     *int          `yaml:"rateBurst,omitempty"`
}

// AgentSection configures the local message agent.
type AgentSection struct {
	Listen         string   `yaml:"listen,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// Apply copies the values set in f onto c.
func (f *File) Apply(c *Config) {
	setString(&c.ModelSource, f.Model.Source)
	setDuration(&c.ModelTimeout, f.Model.LoadTimeout)

	if f.Thresholds.Block != nil {
		c.Thresholds.Block = *f.Thresholds.Block
	}
	if f.Thresholds.Warn != nil {
		c.Thresholds.Warn = *f.Thresholds.Warn
	}

	if f.Fetch.Enabled != nil {
		c.Fetch = *f.Fetch.Enabled
	}
	setDuration(&c.FetchTimeout, f.Fetch.Timeout)
	setString(&c.UserAgent, f.Fetch.UserAgent)
	if f.Fetch.MaxBodySize != 0 {
		c.MaxBodySize = f.Fetch.MaxBodySize
	}
	if f.Fetch.BatchSize != 0 {
		c.BatchSize = f.Fetch.BatchSize
	}

	if f.Tor.Enabled != nil {
		c.UseTor = *f.Tor.Enabled
	}
	if f.Tor.Embedded != nil {
		c.EmbeddedTor = *f.Tor.Embedded
	}
	setString(&c.TorProxyAddress, f.Tor.Proxy)
	setDuration(&c.TorStartupTimeout, f.Tor.StartupTimeout)

	setString(&c.DBDir, f.Database.Dir)

	setString(&c.CollectorURL, f.Collector.URL)
	setDuration(&c.UploadTimeout, f.Collector.UploadTimeout)
	setString(&c.CollectorAddress, f.Collector.Listen)
	setString(&c.CollectorStore, f.Collector.Store)
	if f.Collector.RateLimit != nil {
		c.CollectorRateLimit = *f.Collector.RateLimit
	}
	if f.Collector.RateBurst != nil {
		c.CollectorBurst = *f.Collector.RateBurst
	}

	setString(&c.AgentAddress, f.Agent.Listen)
	if len(f.Agent.AllowedOrigins) > 0 {
		c.AgentOrigins = f.Agent.AllowedOrigins
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
