package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by the server.
const EnvPrefix = "BUSAUTH_"

// parseEnv loads .env (or the file in BUSAUTH_ENV_FILE) without overriding
// variables already set, then applies the environment.
func parseEnv(config *Config) error {
	envFile := os.Getenv(EnvPrefix + "ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}
	return applyEnv(config, os.LookupEnv)
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) get(key string) (string, bool) {
	v, ok := r.lookup(EnvPrefix + key)
	return v, ok && v != ""
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *envReader) integer(key string, dst *int) {
	if v, ok := r.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = n
	}
}

func (r *envReader) unsigned(key string, bits int, set func(uint64)) {
	if v, ok := r.get(key); ok {
		n, err := strconv.ParseUint(v, 10, bits)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		set(n)
	}
}

func (r *envReader) duration(key string, dst *time.Duration) {
	if v, ok := r.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = d
	}
}

func (r *envReader) boolean(key string, dst *bool) {
	if v, ok := r.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = b
	}
}

func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	r := &envReader{lookup: lookup}

	r.str("GRPC_ADDR", &c.EndpointAddrGRPC)
	r.str("ADMIN_ADDR", &c.EndpointAddrAdmin)
	r.str("DATABASE_DSN", &c.DatabaseDSN)
	r.str("SECRET_KEY", &c.SecretKey)
	r.duration("SESSION_TTL", &c.SessionTTL)
	r.str("SESSION_STORE", &c.SessionStore)

	r.integer("LOCKOUT_MAX_ATTEMPTS", &c.LockoutMaxAttempts)
	r.duration("LOCKOUT_WINDOW", &c.LockoutWindow)
	r.str("LOCKOUT_STORE", &c.LockoutStore)

	r.str("REDIS_ADDR", &c.RedisAddr)
	r.str("REDIS_PASSWORD", &c.RedisPassword)
	r.integer("REDIS_DB", &c.RedisDB)
	r.str("REDIS_PREFIX", &c.RedisPrefix)

	r.unsigned("ARGON2_MEMORY_KIB", 32, func(n uint64) { c.Argon2MemoryKiB = uint32(n) })
	r.unsigned("ARGON2_ITERATIONS", 32, func(n uint64) { c.Argon2Iterations = uint32(n) })
	r.unsigned("ARGON2_THREADS", 8, func(n uint64) { c.Argon2Threads = uint8(n) })

	r.integer("AUDIT_BUFFER_SIZE", &c.AuditBufferSize)
	r.boolean("AUDIT_S3_ENABLED", &c.AuditS3Enabled)
	r.str("S3_ACCESS_KEY", &c.S3AccessKey)
	r.str("S3_SECRET_KEY", &c.S3SecretKey)
	r.str("S3_BUCKET", &c.S3Bucket)
	r.str("S3_REGION", &c.S3Region)
	r.str("S3_BASE_ENDPOINT", &c.S3BaseEndpoint)
	r.str("S3_PREFIX", &c.S3Prefix)

	r.integer("LOGIN_RATE_PER_MINUTE", &c.LoginRatePerMinute)
	r.integer("LOGIN_BURST", &c.LoginBurst)
	r.boolean("ALLOW_SELF_REGISTRATION", &c.AllowSelfRegistration)

	r.str("LOG_FORMAT", &c.LogFormat)
	r.str("LOG_LEVEL", &c.LogLevel)

	return errors.Join(r.errs...)
}
