package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

const (
	defaultAccessTTL  = "15m"
	defaultRefreshTTL = "336h"
	defaultStateTTL   = "15m"
	defaultListenAddr = ":8080"
	defaultWebBaseURL = "http://localhost:3000"
)

// ProviderConfig holds one OAuth provider's client credentials.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type Config struct {
	AppEnv      string
	DatabaseURL string
	ListenAddr  string

	// WebBaseURL is where OAuth callbacks redirect the browser on success
	// and on error.
	WebBaseURL string

	SigningKey ed25519.PrivateKey
	VerifyKey  ed25519.PublicKey

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	StateTTL   time.Duration

	Google ProviderConfig
	GitHub ProviderConfig
}

func Load() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.ListenAddr = getEnv("LISTEN_ADDR", defaultListenAddr)
	cfg.WebBaseURL = strings.TrimRight(getEnv("WEB_BASE_URL", defaultWebBaseURL), "/")

	var err error
	if cfg.AccessTTL, err = parseDurationEnv("ACCESS_TOKEN_TTL", defaultAccessTTL); err != nil {
		return nil, err
	}
	if cfg.RefreshTTL, err = parseDurationEnv("REFRESH_TOKEN_TTL", defaultRefreshTTL); err != nil {
		return nil, err
	}
	if cfg.StateTTL, err = parseDurationEnv("STATE_TOKEN_TTL", defaultStateTTL); err != nil {
		return nil, err
	}

	if err := loadKeys(cfg); err != nil {
		return nil, err
	}

	cfg.Google = loadProvider("GOOGLE")
	cfg.GitHub = loadProvider("GITHUB")

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadKeys reads the Ed25519 key pair from env (base64, 32-byte seed and
// 32-byte public key). In dev an ephemeral pair is generated so the service
// runs without any key material; tokens then die with the process.
func loadKeys(cfg *Config) error {
	seedB64 := strings.TrimSpace(os.Getenv("TOKEN_SIGNING_SEED"))
	if seedB64 == "" {
		if isProdLike(cfg.AppEnv) {
			return fmt.Errorf("TOKEN_SIGNING_SEED is required in %s", cfg.AppEnv)
		}
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return fmt.Errorf("generate dev signing key: %w", err)
		}
		log.Println("TOKEN_SIGNING_SEED not set, generated ephemeral dev key pair")
		cfg.SigningKey = priv
		cfg.VerifyKey = pub
		return nil
	}

	seed, err := base64.StdEncoding.DecodeString(seedB64)
	if err != nil {
		return fmt.Errorf("TOKEN_SIGNING_SEED is not valid base64: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("TOKEN_SIGNING_SEED must decode to %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	cfg.SigningKey = ed25519.NewKeyFromSeed(seed)
	cfg.VerifyKey = cfg.SigningKey.Public().(ed25519.PublicKey)
	return nil
}

func loadProvider(prefix string) ProviderConfig {
	return ProviderConfig{
		ClientID:     strings.TrimSpace(os.Getenv(prefix + "_CLIENT_ID")),
		ClientSecret: strings.TrimSpace(os.Getenv(prefix + "_CLIENT_SECRET")),
		RedirectURL:  strings.TrimSpace(os.Getenv(prefix + "_REDIRECT_URL")),
	}
}

// Configured reports whether the provider has enough credentials to be
// registered at startup.
func (p ProviderConfig) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != "" && p.RedirectURL != ""
}

func validate(cfg *Config) error {
	if cfg.AccessTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be > 0")
	}
	if cfg.RefreshTTL <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL must be > 0")
	}
	if cfg.StateTTL <= 0 {
		return fmt.Errorf("STATE_TOKEN_TTL must be > 0")
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}
	return nil
}

func isProdLike(env string) bool {
	return env == "prod" || env == "production" || env == "release"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	return d, nil
}
