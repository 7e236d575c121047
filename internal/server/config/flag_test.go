package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagArgs(t *testing.T) {
	var c Config
	c.LoadDefaults()

	err := parseFlagArgs(&c, []string{
		"-a", "127.0.0.1:9090", "-m", ":9191", "-d", "db", "-s", "secret", "-t", "15",
		"-l", "memory", "-o", "memory", "-r", "r:1", "-u", "user", "-p", "password", "-b", "bucket",
		"-g", "us-west-1", "-e", "http://endpoint", "-v", "warn", "-f", "text",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", c.EndpointAddrGRPC)
	assert.Equal(t, ":9191", c.EndpointAddrAdmin)
	assert.Equal(t, "db", c.DatabaseDSN)
	assert.Equal(t, "secret", c.SecretKey)
	assert.Equal(t, 15*time.Minute, c.SessionTTL)
	assert.Equal(t, StoreMemory, c.LockoutStore)
	assert.Equal(t, StoreMemory, c.SessionStore)
	assert.Equal(t, "r:1", c.RedisAddr)
	assert.Equal(t, "user", c.S3AccessKey)
	assert.Equal(t, "password", c.S3SecretKey)
	assert.Equal(t, "bucket", c.S3Bucket)
	assert.Equal(t, "us-west-1", c.S3Region)
	assert.Equal(t, "http://endpoint", c.S3BaseEndpoint)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
}

func TestParseFlagArgs_SessionTTLUntouchedWhenUnset(t *testing.T) {
	c := Config{SessionTTL: 90 * time.Second}
	require.NoError(t, parseFlagArgs(&c, nil))
	assert.Equal(t, 90*time.Second, c.SessionTTL)
}

func TestParseFlagArgs_Error(t *testing.T) {
	var c Config
	assert.Error(t, parseFlagArgs(&c, []string{"-t", "soon"}))
}
