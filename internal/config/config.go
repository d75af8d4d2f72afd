package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"arbengine/internal/models"
	"arbengine/pkg/utils"
)

// Config holds the full process configuration: ambient (server, database,
// logging) plus the pair documents loaded at startup. There is no runtime
// control surface — restarting the process is the only way to change a
// pair's parameters.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Engine   EngineConfig
	Venues   Venues
	Pairs    []models.PairConfig
}

// ServerConfig configures the ambient /healthz + /metrics surface. There
// is no pair control API — starting/stopping a pair requires a restart
// with an edited pair document.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig configures the lib/pq connection used by the trace
// writer and pair repository.
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// LoggingConfig configures the zap-backed logger.
type LoggingConfig struct {
	Level       string
	Format      string
	Development bool
}

// EngineConfig holds process-wide defaults shared by every AEE instance;
// per-pair overrides live in PairConfig.
type EngineConfig struct {
	TickInterval     time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	RetryMaxBackoff  time.Duration
	OrderTimeout     time.Duration
	WSReconnectDelay time.Duration
	WSPingInterval   time.Duration
	WSReadTimeout    time.Duration
	PairsFile        string
}

// VenueConnConfig is the connection template for one generic venue role
// (V1 or V2). "{symbol}" in any URL is substituted with a pair's
// sym_v1/sym_v2 before the adapter connects, since one role serves every
// configured pair with a different instrument.
type VenueConnConfig struct {
	OBStreamURL      string
	AccountStreamURL string
	RESTBaseURL      string
	MinSize          float64
	MinNotional      float64
	SizeStep         float64
	PriceStep        float64
	RateLimit        float64
	RateBurst        float64
}

// Venues holds the V1/V2 connection templates loaded from the
// environment.
type Venues struct {
	V1 VenueConnConfig
	V2 VenueConnConfig
}

// Load reads process configuration from the environment and, if
// ENGINE_PAIRS_FILE names a readable file, the pair document at that
// path. Database connectivity is always required; an empty pairs list is
// valid (the process idles with nothing to supervise) but logged loudly
// by the caller.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "arbengine"),
			User:     getEnv("DB_USER", "arbengine"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Format:      getEnv("LOG_FORMAT", "json"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Engine: EngineConfig{
			TickInterval:     getEnvAsDuration("ENGINE_TICK_INTERVAL", 250*time.Millisecond),
			MaxRetries:       getEnvAsInt("ENGINE_MAX_RETRIES", 4),
			RetryBackoff:     getEnvAsDuration("ENGINE_RETRY_BACKOFF", 200*time.Millisecond),
			RetryMaxBackoff:  getEnvAsDuration("ENGINE_RETRY_MAX_BACKOFF", 5*time.Second),
			OrderTimeout:     getEnvAsDuration("ENGINE_ORDER_TIMEOUT", 5*time.Second),
			WSReconnectDelay: getEnvAsDuration("WS_RECONNECT_DELAY", 1*time.Second),
			WSPingInterval:   getEnvAsDuration("WS_PING_INTERVAL", 15*time.Second),
			WSReadTimeout:    getEnvAsDuration("WS_READ_TIMEOUT", 30*time.Second),
			PairsFile:        getEnv("ENGINE_PAIRS_FILE", "pairs.json"),
		},
		Venues: Venues{
			V1: loadVenueConnConfig("V1"),
			V2: loadVenueConnConfig("V2"),
		},
	}

	pairs, err := loadPairsFile(cfg.Engine.PairsFile)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		if err := ValidatePair(p); err != nil {
			return nil, err
		}
	}
	cfg.Pairs = pairs

	return cfg, nil
}

func loadVenueConnConfig(role string) VenueConnConfig {
	return VenueConnConfig{
		OBStreamURL:      getEnv(role+"_OB_STREAM_URL", ""),
		AccountStreamURL: getEnv(role+"_ACCOUNT_STREAM_URL", ""),
		RESTBaseURL:      getEnv(role+"_REST_BASE_URL", ""),
		MinSize:          getEnvAsFloat(role+"_MIN_SIZE", 0.001),
		MinNotional:      getEnvAsFloat(role+"_MIN_NOTIONAL", 0),
		SizeStep:         getEnvAsFloat(role+"_SIZE_STEP", 0.001),
		PriceStep:        getEnvAsFloat(role+"_PRICE_STEP", 0.01),
		RateLimit:        getEnvAsFloat(role+"_RATE_LIMIT", 10),
		RateBurst:        getEnvAsFloat(role+"_RATE_BURST", 20),
	}
}

func loadPairsFile(path string) ([]models.PairConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &ConfigError{Field: "pairs_file", Reason: err.Error()}
	}
	var doc models.PairDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Field: "pairs_file", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return doc.Pairs, nil
}

// ConfigError reports a fatal configuration problem discovered at
// startup. The process must not begin trading with an invalid config.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}

// ValidatePair checks the invariants a PairConfig must satisfy before an
// AEE instance can be started against it.
func ValidatePair(p models.PairConfig) error {
	if err := utils.ValidateSymbol(p.SymV1); err != nil {
		return &ConfigError{Field: "sym_v1", Reason: err.Error()}
	}
	if err := utils.ValidateSymbol(p.SymV2); err != nil {
		return &ConfigError{Field: "sym_v2", Reason: err.Error()}
	}
	if p.Venue1 == "" || p.Venue2 == "" {
		return &ConfigError{Field: "venue1/venue2", Reason: "venues must not be empty"}
	}
	if p.Venue1 == p.Venue2 {
		return &ConfigError{Field: "venue1/venue2", Reason: "a pair must span two distinct venues"}
	}
	if p.MinHits < 1 || p.MinHits > 16 {
		return &ConfigError{Field: "min_hits", Reason: "must be in range 1..=16"}
	}
	if p.MinSpread <= 0 {
		return &ConfigError{Field: "min_spread", Reason: "must be positive"}
	}
	if p.SpreadTP <= 0 {
		return &ConfigError{Field: "spread_tp", Reason: "must be positive"}
	}
	if p.MaxOfOB <= 0 || p.MaxOfOB > 1 {
		return &ConfigError{Field: "max_of_ob", Reason: "must be in range (0, 1]"}
	}
	if p.Slippage < 0 || p.Slippage >= 1 {
		return &ConfigError{Field: "slippage", Reason: "must be in range [0, 1)"}
	}
	if p.MaxTradeValue != nil && *p.MaxTradeValue <= 0 {
		return &ConfigError{Field: "max_trade_value", Reason: "must be positive when set"}
	}
	if p.MaxTrades != nil && *p.MaxTrades < 0 {
		return &ConfigError{Field: "max_trades", Reason: "must be non-negative when set"}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
