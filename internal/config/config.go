package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envPort                  = "PORT"
	envServerReadTimeout     = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout    = "SERVER_WRITE_TIMEOUT"
	envServerShutdownTimeout = "SERVER_SHUTDOWN_TIMEOUT"
	envAPIBaseURL            = "API_BASE_URL"
	envAPITimeout            = "API_TIMEOUT"
	envLogLevel              = "LOG_LEVEL"
	envLogEncoding           = "LOG_ENCODING"
	envGateSecureCookies     = "GATE_SECURE_COOKIES"
	envGateJWTSecret         = "GATE_JWT_SECRET"
	envLoginMaxAttempts      = "RATE_LIMIT_LOGIN_MAX"
	envLoginWindow           = "RATE_LIMIT_LOGIN_WINDOW"
	envOTPMaxAttempts        = "RATE_LIMIT_OTP_MAX"
	envOTPWindow             = "RATE_LIMIT_OTP_WINDOW"
	envRateLimitCapacity     = "RATE_LIMIT_CAPACITY"
	envRateLimitSweep        = "RATE_LIMIT_SWEEP_INTERVAL"
	envGlobalRPS             = "RATE_LIMIT_GLOBAL_RPS"
	envGlobalBurst           = "RATE_LIMIT_GLOBAL_BURST"
	envRedisAddr             = "REDIS_ADDR"
	envRedisPassword         = "REDIS_PASSWORD"
	envRedisDB               = "REDIS_DB"
	envDBHost                = "DB_HOST"
	envDBPort                = "DB_PORT"
	envDBName                = "DB_NAME"
	envDBUser                = "DB_USER"
	envDBPassword            = "DB_PASSWORD"
	envDBSSLMode             = "DB_SSL_MODE"
	envDBMaxConns            = "DB_MAX_CONNS"
	envDBMinConns            = "DB_MIN_CONNS"
	envEnableProfiling       = "ENABLE_PROFILING"
)

const (
	defaultServerPort          = "3000"
	defaultServerReadTimeout   = 10 * time.Second
	defaultServerWriteTimeout  = 30 * time.Second
	defaultServerShutdown      = 10 * time.Second
	defaultAPITimeout          = 15 * time.Second
	defaultLogLevel            = "info"
	defaultLogEncoding         = "json"
	defaultLoginMaxAttempts    = 5
	defaultLoginWindow         = 15 * time.Minute
	defaultOTPMaxAttempts      = 3
	defaultOTPWindow           = 5 * time.Minute
	defaultRateLimitCapacity   = 10000
	defaultRateLimitSweep      = time.Minute
	defaultGlobalRPS           = 50
	defaultGlobalBurst         = 100
	defaultDBPort              = 5432
	defaultDBName              = "admin_dashboard"
	defaultDBUser              = "admin_dashboard"
	defaultDBSSLMode           = "disable"
	defaultDBMaxConns          = 10
	defaultDBMinConns          = 1
	minJWTSecretLength         = 32
	minUniqueCharsInSecret     = 16
	minRepeatedCharThreshold   = 4
	maxRepeatedChars           = 2
	errPortRequiredFmt         = "PORT must be set"
	errAPIBaseURLInvalidFmt    = "API_BASE_URL must be an absolute http(s) URL: %q"
	errAPITimeoutFmt           = "API_TIMEOUT must be positive"
	errRateLimitAttemptsFmt    = "%s must be at least 1"
	errRateLimitWindowFmt      = "%s must be positive"
	errGlobalLimitFmt          = "RATE_LIMIT_GLOBAL_RPS and RATE_LIMIT_GLOBAL_BURST must be positive"
	errDBPasswordRequiredFmt   = "DB_PASSWORD must be set when DB_HOST is set"
	errJWTSecretMinLengthFmt   = "GATE_JWT_SECRET must be at least %d characters"
	errJWTSecretLowEntropyFmt  = "GATE_JWT_SECRET has insufficient entropy (appears non-random). Use a cryptographically secure random string."
	errInvalidConfigurationFmt = "invalid configuration: %w"
)

type Config struct {
	Server    ServerConfig
	API       APIConfig
	Log       LogConfig
	Gate      GateConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	App       AppConfig

	// Warnings lists environment values that were ignored.
	Warnings []string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// APIConfig points at the remote REST API that owns all dashboard data.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type LogConfig struct {
	Level    string
	Encoding string
}

type GateConfig struct {
	SecureCookies bool
	// JWTSecret enables HMAC signature checks on admin tokens when set.
	JWTSecret string
}

func (g GateConfig) VerifiesSignatures() bool {
	return g.JWTSecret != ""
}

type RateLimitConfig struct {
	LoginMaxAttempts int
	LoginWindow      time.Duration
	OTPMaxAttempts   int
	OTPWindow        time.Duration
	Capacity         int
	SweepInterval    time.Duration
	GlobalRPS        int
	GlobalBurst      int
}

// RedisConfig is optional; an empty Addr keeps rate limits in process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// DatabaseConfig is optional; an empty Host disables the audit trail.
type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MinConns int
}

func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

type AppConfig struct {
	EnableProfiling bool
}

// Load reads the configuration from the environment. Malformed optional
// values fall back to their defaults and are reported in Config.Warnings.
func Load() (*Config, error) {
	env := &envReader{}
	cfg := &Config{
		Server: ServerConfig{
			Port:            env.str(envPort, defaultServerPort),
			ReadTimeout:     env.duration(envServerReadTimeout, defaultServerReadTimeout),
			WriteTimeout:    env.duration(envServerWriteTimeout, defaultServerWriteTimeout),
			ShutdownTimeout: env.duration(envServerShutdownTimeout, defaultServerShutdown),
		},
		API: APIConfig{
			BaseURL: strings.TrimRight(env.require(envAPIBaseURL), "/"),
			Timeout: env.duration(envAPITimeout, defaultAPITimeout),
		},
		Log: LogConfig{
			Level:    env.str(envLogLevel, defaultLogLevel),
			Encoding: env.str(envLogEncoding, defaultLogEncoding),
		},
		Gate: GateConfig{
			SecureCookies: env.boolean(envGateSecureCookies, true),
			JWTSecret:     os.Getenv(envGateJWTSecret),
		},
		RateLimit: RateLimitConfig{
			LoginMaxAttempts: env.integer(envLoginMaxAttempts, defaultLoginMaxAttempts),
			LoginWindow:      env.duration(envLoginWindow, defaultLoginWindow),
			OTPMaxAttempts:   env.integer(envOTPMaxAttempts, defaultOTPMaxAttempts),
			OTPWindow:        env.duration(envOTPWindow, defaultOTPWindow),
			Capacity:         env.integer(envRateLimitCapacity, defaultRateLimitCapacity),
			SweepInterval:    env.duration(envRateLimitSweep, defaultRateLimitSweep),
			GlobalRPS:        env.integer(envGlobalRPS, defaultGlobalRPS),
			GlobalBurst:      env.integer(envGlobalBurst, defaultGlobalBurst),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv(envRedisAddr),
			Password: os.Getenv(envRedisPassword),
			DB:       env.integer(envRedisDB, 0),
		},
		Database: DatabaseConfig{
			Host:     os.Getenv(envDBHost),
			Port:     env.integer(envDBPort, defaultDBPort),
			Database: env.str(envDBName, defaultDBName),
			User:     env.str(envDBUser, defaultDBUser),
			Password: os.Getenv(envDBPassword),
			SSLMode:  env.str(envDBSSLMode, defaultDBSSLMode),
			MaxConns: env.integer(envDBMaxConns, defaultDBMaxConns),
			MinConns: env.integer(envDBMinConns, defaultDBMinConns),
		},
		App: AppConfig{
			EnableProfiling: env.boolean(envEnableProfiling, false),
		},
	}

	if len(env.missing) > 0 {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, messages.requiredEnvNotSet(env.missing...))
	}
	cfg.Warnings = env.warnings

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf(errPortRequiredFmt)
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf(errAPIBaseURLInvalidFmt, c.API.BaseURL)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf(errAPITimeoutFmt)
	}

	rl := c.RateLimit
	if rl.LoginMaxAttempts < 1 {
		return fmt.Errorf(errRateLimitAttemptsFmt, envLoginMaxAttempts)
	}
	if rl.OTPMaxAttempts < 1 {
		return fmt.Errorf(errRateLimitAttemptsFmt, envOTPMaxAttempts)
	}
	if rl.LoginWindow <= 0 {
		return fmt.Errorf(errRateLimitWindowFmt, envLoginWindow)
	}
	if rl.OTPWindow <= 0 {
		return fmt.Errorf(errRateLimitWindowFmt, envOTPWindow)
	}
	if rl.GlobalRPS <= 0 || rl.GlobalBurst <= 0 {
		return fmt.Errorf(errGlobalLimitFmt)
	}

	if c.Database.Enabled() && c.Database.Password == "" {
		return fmt.Errorf(errDBPasswordRequiredFmt)
	}

	if c.Gate.VerifiesSignatures() {
		if len(c.Gate.JWTSecret) < minJWTSecretLength {
			return fmt.Errorf(errJWTSecretMinLengthFmt, minJWTSecretLength)
		}
		if !hasMinimumEntropy(c.Gate.JWTSecret) {
			return fmt.Errorf(errJWTSecretLowEntropyFmt)
		}
	}

	return nil
}

func hasMinimumEntropy(secret string) bool {
	if len(secret) < minJWTSecretLength {
		return false
	}

	charCounts := make(map[rune]int)
	for _, char := range secret {
		charCounts[char]++
	}

	uniqueChars := len(charCounts)
	if uniqueChars < minUniqueCharsInSecret {
		return false
	}

	repeatedChars := 0
	for _, count := range charCounts {
		if count > len(secret)/minRepeatedCharThreshold {
			repeatedChars++
		}
	}

	return repeatedChars <= maxRepeatedChars
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// envReader collects missing required keys and ignored values while the
// configuration is assembled.
type envReader struct {
	missing  []string
	warnings []string
}

func (r *envReader) str(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (r *envReader) require(key string) string {
	value := os.Getenv(key)
	if value == "" {
		r.missing = append(r.missing, key)
	}
	return value
}

func (r *envReader) integer(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		r.warnings = append(r.warnings, messages.envIgnored(key, value, "integer"))
		return defaultValue
	}
	return n
}

func (r *envReader) boolean(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		r.warnings = append(r.warnings, messages.envIgnored(key, value, "boolean"))
		return defaultValue
	}
	return b
}

// duration accepts Go duration syntax or a bare number of minutes.
func (r *envReader) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}
	r.warnings = append(r.warnings, messages.envIgnored(key, value, "duration"))
	return defaultValue
}
