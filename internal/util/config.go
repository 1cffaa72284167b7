package util

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

//nolint:gochecknoglobals // here its ok
var once sync.Once

func init() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	})
}

const (
	defaultServerAddr      = "localhost:8080"
	defaultWriteTimeout    = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultGracefulTimeout = 5 * time.Second

	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 24 * time.Hour

	defaultBaseURL        = "http://localhost:8080/api/v1"
	defaultRequestTimeout = 30 * time.Second
	defaultStore          = StoreFile
	defaultStateFile      = ".wbadmin/state.json"
	defaultRedisPrefix    = "wbadmin:"

	defaultStubUsername = "admin"
	defaultStubPassword = "admin"

	TokenPartsExpected = 2
	RawTokenLength     = 32
	JWTLeeWay          = 5 * time.Second
)

// Store backends understood by ClientConfig.Store.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type ServerConfig struct {
	ServerAddr      string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		ServerAddr:      getenvOrDefault("SERVER_ADDRESS", defaultServerAddr),
		WriteTimeout:    parseDurationOrDefault("WRITE_TIMEOUT", defaultWriteTimeout),
		ReadTimeout:     parseDurationOrDefault("READ_TIMEOUT", defaultReadTimeout),
		IdleTimeout:     parseDurationOrDefault("IDLE_TIMEOUT", defaultIdleTimeout),
		GracefulTimeout: parseDurationOrDefault("GRACEFUL_TIMEOUT", defaultGracefulTimeout),
	}
}

type TokenConfig struct {
	JwtSecretKey []byte
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

func NewTokenConfig() *TokenConfig {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	return &TokenConfig{
		JwtSecretKey: []byte(secret),
		AccessTTL:    parseDurationOrDefault("ACCESS_TOKEN_TTL", defaultAccessTTL),
		RefreshTTL:   parseDurationOrDefault("REFRESH_TOKEN_TTL", defaultRefreshTTL),
	}
}

// StubUserConfig holds the single account accepted by the development backend.
type StubUserConfig struct {
	Username string
	Password string
}

func NewStubUserConfig() *StubUserConfig {
	return &StubUserConfig{
		Username: getenvOrDefault("STUB_USERNAME", defaultStubUsername),
		Password: getenvOrDefault("STUB_PASSWORD", defaultStubPassword),
	}
}

// ClientConfig configures the admin API client and where it keeps its state.
type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	Store          string
	StateFile      string
	RedisAddr      string
	RedisPrefix    string
}

func NewClientConfig() *ClientConfig {
	store := strings.ToLower(getenvOrDefault("WBADMIN_STORE", defaultStore))
	switch store {
	case StoreFile, StoreMemory, StoreRedis:
	default:
		log.Printf("Invalid WBADMIN_STORE: %s, using default %s", store, defaultStore)
		store = defaultStore
	}

	return &ClientConfig{
		BaseURL:        strings.TrimRight(getenvOrDefault("WBADMIN_BASE_URL", defaultBaseURL), "/"),
		RequestTimeout: parseDurationOrDefault("WBADMIN_REQUEST_TIMEOUT", defaultRequestTimeout),
		Store:          store,
		StateFile:      getenvOrDefault("WBADMIN_STATE_FILE", defaultStatePath()),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPrefix:    getenvOrDefault("WBADMIN_REDIS_PREFIX", defaultRedisPrefix),
	}
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultStateFile
	}
	return filepath.Join(home, defaultStateFile)
}

func getenvOrDefault(varName, def string) string {
	if v := os.Getenv(varName); v != "" {
		return v
	}
	return def
}

func parseDurationOrDefault(varName string, def time.Duration) time.Duration {
	if v := os.Getenv(varName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid duration in %s: %s, using default %s", varName, v, def)
	}
	return def
}
