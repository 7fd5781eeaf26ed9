package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaults(t *testing.T) {
	cfg := New(Config{})

	assert.Equal(t, DefaultAssertionLifetime, cfg.AssertionLifetime)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultRequestScheme, cfg.RequestScheme)
	assert.Equal(t, DefaultResponseMode, cfg.ResponseMode)
	assert.Equal(t, DefaultMaxSessions, cfg.MaxSessions)
	assert.Greater(t, cfg.MaxSessions, cfg.CacheSize)
}

func TestNewOverrides(t *testing.T) {
	cfg := New(Config{
		AssertionLifetime: time.Minute,
		RequestScheme:     "openid4vp://authorize",
		MaxRetries:        7,
	})

	assert.Equal(t, time.Minute, cfg.AssertionLifetime)
	assert.Equal(t, "openid4vp://authorize", cfg.RequestScheme)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)
}
