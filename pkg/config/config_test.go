package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "http://localhost:8000", cfg.Store.BaseURL)
	assert.Equal(t, AssignmentsRemote, cfg.Store.AssignmentsMode)
	assert.Equal(t, int64(1), cfg.Store.ActiveTermID)
	assert.Equal(t, 100, cfg.Store.PageSize)
	assert.Equal(t, 5*time.Minute, cfg.Cache.Freshness)
	assert.Equal(t, 3*time.Second, cfg.Notification.SuccessTTL)
	assert.Equal(t, 5*time.Second, cfg.Notification.ErrorTTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Auth.Enabled)
	assert.True(t, cfg.Cache.WarmOnStart)
	assert.Equal(t, 2, cfg.Cache.WarmWorkers)
	assert.Empty(t, cfg.Cache.RefreshSchedule)
	assert.Equal(t, 8*time.Hour, cfg.Session.IdleTimeout)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("STORE_BASE_URL", "http://store.internal:8000/")
	v.Set("ASSIGNMENTS_MODE", "LOCAL")
	v.Set("CACHE_FRESHNESS", "not-a-duration")
	v.Set("NOTIFY_ERROR_TTL", "750ms")
	v.Set("STORE_PAGE_SIZE", 0)
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg := fromViper(v)

	assert.Equal(t, "http://store.internal:8000", cfg.Store.BaseURL)
	assert.Equal(t, AssignmentsLocal, cfg.Store.AssignmentsMode)
	assert.Equal(t, 5*time.Minute, cfg.Cache.Freshness)
	assert.Equal(t, 750*time.Millisecond, cfg.Notification.ErrorTTL)
	assert.Equal(t, 100, cfg.Store.PageSize)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
