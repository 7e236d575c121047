package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/busauth/internal/flagx"
	"github.com/dmitrijs2005/busauth/internal/timex"
)

// JsonConfig is the file representation of Config. Durations accept "30m"
// style strings or integer nanoseconds. Zero values leave the current
// setting untouched; booleans are pointers for the same reason.
type JsonConfig struct {
	EndpointAddrGRPC  string         `json:"endpoint_addr_grpc"`
	EndpointAddrAdmin string         `json:"endpoint_addr_admin"`
	DatabaseDSN       string         `json:"database_dsn"`
	SecretKey         string         `json:"secret_key"`
	SessionTTL        timex.Duration `json:"session_ttl"`
	SessionStore      string         `json:"session_store"`

	LockoutMaxAttempts int            `json:"lockout_max_attempts"`
	LockoutWindow      timex.Duration `json:"lockout_window"`
	LockoutStore       string         `json:"lockout_store"`

	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	RedisPrefix   string `json:"redis_prefix"`

	Argon2MemoryKiB  uint32 `json:"argon2_memory_kib"`
	Argon2Iterations uint32 `json:"argon2_iterations"`
	Argon2Threads    uint8  `json:"argon2_threads"`

	AuditBufferSize int    `json:"audit_buffer_size"`
	AuditS3Enabled  *bool  `json:"audit_s3_enabled"`
	S3AccessKey     string `json:"s3_access_key"`
	S3SecretKey     string `json:"s3_secret_key"`
	S3Bucket        string `json:"s3_bucket"`
	S3Region        string `json:"s3_region"`
	S3BaseEndpoint  string `json:"s3_base_endpoint"`
	S3Prefix        string `json:"s3_prefix"`

	LoginRatePerMinute    int   `json:"login_rate_per_minute"`
	LoginBurst            int   `json:"login_burst"`
	AllowSelfRegistration *bool `json:"allow_self_registration"`

	LogFormat string `json:"log_format"`
	LogLevel  string `json:"log_level"`
}

// parseJson loads the file named by -c/-config or BUSAUTH_CONFIG, if any.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.ConfigFile(os.Args[1:], EnvPrefix+"CONFIG")
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", jsonConfigFile, err)
	}

	c.apply(config)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setNumber[T int | uint32 | uint8](dst *T, v T) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrAdmin, c.EndpointAddrAdmin)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.SessionTTL, c.SessionTTL)
	setString(&config.SessionStore, c.SessionStore)

	setNumber(&config.LockoutMaxAttempts, c.LockoutMaxAttempts)
	setDuration(&config.LockoutWindow, c.LockoutWindow)
	setString(&config.LockoutStore, c.LockoutStore)

	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setNumber(&config.RedisDB, c.RedisDB)
	setString(&config.RedisPrefix, c.RedisPrefix)

	setNumber(&config.Argon2MemoryKiB, c.Argon2MemoryKiB)
	setNumber(&config.Argon2Iterations, c.Argon2Iterations)
	setNumber(&config.Argon2Threads, c.Argon2Threads)

	setNumber(&config.AuditBufferSize, c.AuditBufferSize)
	setBool(&config.AuditS3Enabled, c.AuditS3Enabled)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3Prefix, c.S3Prefix)

	setNumber(&config.LoginRatePerMinute, c.LoginRatePerMinute)
	setNumber(&config.LoginBurst, c.LoginBurst)
	setBool(&config.AllowSelfRegistration, c.AllowSelfRegistration)

	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)
}
