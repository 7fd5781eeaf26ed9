package config

import "time"

// Default values
const (
	DefaultAssertionLifetime = 10 * time.Minute
	DefaultHTTPTimeout       = 10 * time.Second
	DefaultMaxRetries        = 3
	DefaultCacheSize         = 128
	DefaultCacheTTL          = 5 * time.Minute
	DefaultSessionTTL        = 10 * time.Minute
	DefaultMaxSessions       = 10000
	DefaultRequestScheme     = "siopv2://idtoken"
	DefaultResponseMode      = "direct_post"
	DefaultResolverURL       = "https://api.ndadid.vn/api/v1/did"
)

// Config holds the configuration shared by the OpenID4VC engines and their
// collaborators.
type Config struct {
	// AssertionLifetime is added to the issue time to compute token expiry.
	AssertionLifetime time.Duration
	// HTTPTimeout bounds every outgoing HTTP call.
	HTTPTimeout time.Duration
	// MaxRetries bounds transport retries of idempotent GET requests.
	MaxRetries int
	// CacheSize is the number of DID documents kept by the resolver cache.
	CacheSize int
	// CacheTTL is how long a resolved DID document stays cached.
	CacheTTL time.Duration
	// SessionTTL is how long a relying party remembers an issued request.
	SessionTTL time.Duration
	// MaxSessions bounds the requests a relying party keeps open at once.
	MaxSessions int
	// RequestScheme prefixes encoded authorization request URLs.
	RequestScheme string
	// ResponseMode is used when a request does not name one.
	ResponseMode string
	// ResolverURL is the base URL of the universal DID resolver.
	ResolverURL string
}

// New creates a new Config instance with the provided values.
// If a value is empty/zero, it will use the default value.
// Pass an empty Config{} to use all defaults.
func New(cfg Config) *Config {
	result := &Config{
		AssertionLifetime: DefaultAssertionLifetime,
		HTTPTimeout:       DefaultHTTPTimeout,
		MaxRetries:        DefaultMaxRetries,
		CacheSize:         DefaultCacheSize,
		CacheTTL:          DefaultCacheTTL,
		SessionTTL:        DefaultSessionTTL,
		MaxSessions:       DefaultMaxSessions,
		RequestScheme:     DefaultRequestScheme,
		ResponseMode:      DefaultResponseMode,
		ResolverURL:       DefaultResolverURL,
	}

	if cfg.AssertionLifetime > 0 {
		result.AssertionLifetime = cfg.AssertionLifetime
	}
	if cfg.HTTPTimeout > 0 {
		result.HTTPTimeout = cfg.HTTPTimeout
	}
	if cfg.MaxRetries > 0 {
		result.MaxRetries = cfg.MaxRetries
	}
	if cfg.CacheSize > 0 {
		result.CacheSize = cfg.CacheSize
	}
	if cfg.CacheTTL > 0 {
		result.CacheTTL = cfg.CacheTTL
	}
	if cfg.SessionTTL > 0 {
		result.SessionTTL = cfg.SessionTTL
	}
	if cfg.MaxSessions > 0 {
		result.MaxSessions = cfg.MaxSessions
	}
	if cfg.RequestScheme != "" {
		result.RequestScheme = cfg.RequestScheme
	}
	if cfg.ResponseMode != "" {
		result.ResponseMode = cfg.ResponseMode
	}
	if cfg.ResolverURL != "" {
		result.ResolverURL = cfg.ResolverURL
	}

	return result
}
