package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "bibmine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries is the number of retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RequestsPerSecond throttles outbound requests per backend. Zero disables throttling.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// SearchConfig holds settings for the search backends used by acquisition.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the maximum number of records requested per backend (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// Backends lists the enabled backends by name: arxiv, openalex, semantic_scholar.
	Backends []string `json:"backends" yaml:"backends" mapstructure:"backends"`

	// OpenAlexEmail is sent as the mailto parameter for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`
}

// StoreConfig holds settings for the article database.
type StoreConfig struct {
	// Path is the SQLite database file (default data/bibmine.db).
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout" mapstructure:"busy_timeout"`
}

// ServerConfig holds settings for the HTTP resource.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout" mapstructure:"read_header_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout" yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// TokenConfig binds a bearer token to a subject and its roles.
type TokenConfig struct {
	Token   string   `json:"token" yaml:"token" mapstructure:"token"`
	Subject string   `json:"subject" yaml:"subject" mapstructure:"subject"`
	Roles   []string `json:"roles" yaml:"roles" mapstructure:"roles"`
}

// AuthConfig holds credentials and the operation → role policy.
type AuthConfig struct {
	// Tokens are accepted bearer tokens. Entries from the api-tokens secret
	// are appended at startup.
	Tokens []TokenConfig `json:"tokens" yaml:"tokens" mapstructure:"tokens"`

	// Policy overrides the role required per operation name.
	Policy map[string]string `json:"policy" yaml:"policy" mapstructure:"policy"`
}

// LogConfig selects the structured log output.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or text (default json).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// TelemetryConfig controls OpenTelemetry traces and metrics.
type TelemetryConfig struct {
	Enabled        bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ServiceName    string        `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
	Environment    string        `json:"environment" yaml:"environment" mapstructure:"environment"`
	MetricInterval time.Duration `json:"metric_interval" yaml:"metric_interval" mapstructure:"metric_interval"`
}

// Config groups every component's configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Search    SearchConfig    `json:"search" yaml:"search" mapstructure:"search"`
	Auth      AuthConfig      `json:"auth" yaml:"auth" mapstructure:"auth"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry" mapstructure:"telemetry"`
}
