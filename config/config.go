// Package config loads the storefront configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"topcompras/storefront/blob"
	"topcompras/storefront/catalog"
	"topcompras/waf/auth"
	"topcompras/waf/guard"
	"topcompras/waf/headers"
	"topcompras/waf/http3"
	"topcompras/waf/logging"
	"topcompras/waf/publisher"
	"topcompras/waf/webhook"
)

type Config struct {
	Port          string
	AllowedDomain string
	CORSEnabled   bool
	CORSHosts     []string

	Log      logging.File
	GuardLog guard.LoggerConfig
	Guard    *guard.Config

	RulesFile   string
	ReloadWatch bool

	Store     blob.Config
	Admin     auth.Config
	Webhook   webhook.Config
	Publisher publisher.Config
	HTTP3     http3.Config

	CatalogFile string
	Checkout    catalog.CheckoutConfig

	LiveDebounce time.Duration
}

// Load reads .env files (missing ones are ignored, default ".env") and then
// the process environment
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var errs []error
	intVar := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	durVar := func(key string, def time.Duration) time.Duration {
		v, err := getEnvDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	boolVar := func(key string, def bool) bool {
		v, err := getEnvBool(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	domain := getEnv("ALLOWED_DOMAIN", headers.DefaultAllowedDomain)
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		AllowedDomain: domain,
		CORSEnabled:   boolVar("CORS_ENABLED", true),
		CORSHosts:     parseList(getEnv("CORS_ALLOWED_HOSTS", defaultHosts(domain))),

		Log: logging.File{
			Path:     getEnv("LOG_FILE", ""),
			Compress: true,
		},
		RulesFile:   getEnv("RULES_FILE", "./config/guard-rules.yaml"),
		ReloadWatch: boolVar("RELOAD_WATCH", true),

		Store: blob.Config{
			Backend:       getEnv("STORE_BACKEND", blob.BackendMemory),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       intVar("REDIS_DB", 0),
			RedisPrefix:   getEnv("REDIS_PREFIX", blob.DefaultRedisPrefix),
			BoltPath:      getEnv("BOLT_PATH", "./data/storefront.db"),
		},

		Admin: auth.Config{
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			JWTSecret:    getEnv("JWT_SECRET", ""),
			TokenTTL:     durVar("ADMIN_TOKEN_TTL", 12*time.Hour),
		},

		Webhook: webhook.Config{
			URLs:      parseList(getEnv("WEBHOOK_URLS", "")),
			Format:    getEnv("WEBHOOK_FORMAT", webhook.FormatJSON),
			PerMinute: intVar("WEBHOOK_PER_MINUTE", 20),
		},

		Publisher: publisher.Config{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", publisher.DefaultExchange),
		},

		HTTP3: http3.Config{
			Enabled:  boolVar("HTTP3_ENABLED", false),
			Addr:     getEnv("HTTP3_ADDR", ":443"),
			CertFile: getEnv("HTTP3_CERT_FILE", ""),
			KeyFile:  getEnv("HTTP3_KEY_FILE", ""),
		},

		CatalogFile: getEnv("CATALOG_FILE", ""),
		Checkout: catalog.CheckoutConfig{
			Default: catalog.Gateway{
				CheckoutURL: getEnv("CHECKOUT_URL", catalog.DefaultCheckoutURL),
				StoreID:     getEnv("CHECKOUT_STORE_ID", catalog.DefaultStoreID),
			},
			PublicURL: getEnv("PUBLIC_URL", domain),
		},

		LiveDebounce: durVar("LIVE_DEBOUNCE", 500*time.Millisecond),
	}
	cfg.Webhook.Enabled = len(cfg.Webhook.URLs) > 0

	g := guard.DefaultConfig()
	g.MinuteLimit = intVar("GUARD_PER_MINUTE", g.MinuteLimit)
	g.HourLimit = intVar("GUARD_PER_HOUR", g.HourLimit)
	g.BurstLimit = intVar("GUARD_BURST_THRESHOLD", g.BurstLimit)
	g.SuspicionMax = intVar("GUARD_SUSPICION_THRESHOLD", g.SuspicionMax)
	g.BlockDuration = durVar("GUARD_BLOCK_DURATION", g.BlockDuration)
	cfg.Guard = g

	cfg.GuardLog = guard.DefaultLoggerConfig()
	cfg.GuardLog.Enabled = boolVar("GUARD_LOG_ENABLED", true)
	cfg.GuardLog.LogPath = getEnv("GUARD_LOG_PATH", cfg.GuardLog.LogPath)
	cfg.GuardLog.HumanPath = getEnv("GUARD_LOG_READABLE_PATH", cfg.GuardLog.HumanPath)

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	log.Printf("[CONFIG] port %s, store %s, admin %v, webhooks %d, broker %v, http3 %v",
		cfg.Port, cfg.Store.Backend, cfg.Admin.PasswordHash != "",
		len(cfg.Webhook.URLs), cfg.Publisher.URL != "", cfg.HTTP3.Enabled)
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Admin.PasswordHash != "" && c.Admin.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required when ADMIN_PASSWORD_HASH is set"))
	}
	if c.HTTP3.Enabled && (c.HTTP3.CertFile == "" || c.HTTP3.KeyFile == "") {
		errs = append(errs, errors.New("HTTP3_CERT_FILE and HTTP3_KEY_FILE are required with HTTP3_ENABLED"))
	}
	switch c.Store.Backend {
	case blob.BackendMemory, blob.BackendRedis, blob.BackendBolt:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}
	switch c.Webhook.Format {
	case webhook.FormatJSON, webhook.FormatSlack, webhook.FormatDiscord:
	default:
		errs = append(errs, fmt.Errorf("unknown WEBHOOK_FORMAT %q", c.Webhook.Format))
	}
	return errors.Join(errs...)
}

// Addr is the TCP listen address
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// defaultHosts admits the storefront domain and local development
func defaultHosts(domain string) string {
	hosts := []string{"localhost", "127.0.0.1"}
	if h := hostOf(domain); h != "" {
		hosts = append([]string{h}, hosts...)
	}
	return strings.Join(hosts, ",")
}

func hostOf(raw string) string {
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.IndexAny(raw, "/:"); i >= 0 {
		raw = raw[:i]
	}
	return strings.ToLower(raw)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// getEnvDuration accepts Go durations ("90s") or plain seconds
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func parseList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
