package server

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/learnhub/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.LogLevel = "error"
	return c
}

func TestNewApp_MemoryLockout(t *testing.T) {
	app, err := NewApp(testConfig())
	require.NoError(t, err)

	assert.Nil(t, app.redis)
	assert.NotNil(t, app.accounts)
	assert.NotNil(t, app.admin)
	assert.NotNil(t, app.janitor)
	assert.NotNil(t, app.mail)
	require.NoError(t, app.close())
}

func TestNewApp_RedisLockout(t *testing.T) {
	mr := miniredis.RunT(t)

	c := testConfig()
	c.LockoutBackend = config.LockoutBackendRedis
	c.RedisAddr = mr.Addr()
	c.SMTPHost = "smtp.example.com"

	app, err := NewApp(c)
	require.NoError(t, err)
	require.NotNil(t, app.redis)
	require.NoError(t, app.close())
}

func TestSeedAdmin_SkippedWithoutCredentials(t *testing.T) {
	app, err := NewApp(testConfig())
	require.NoError(t, err)
	defer app.close()

	require.NoError(t, app.seedAdmin(t.Context()))
}
