package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingVariable is returned when a required environment variable is not set
var ErrMissingVariable = errors.New("missing required environment variable")

// Config holds application configuration
type Config struct {
	TelegramToken string
	MerchantToken string
	AdminChatID   int64

	Moltin   MoltinConfig
	Geocoder GeocoderConfig

	DatabasePath string
	ImagesDir    string
	HTTPAddr     string
	HTTPAPIToken string
	LogLevel     slog.Level

	DeliveryNotifyDelay time.Duration
	ErrorBackoff        time.Duration
	TokenRefreshLead    time.Duration
	DispatchWorkers     int
}

// MoltinConfig holds the commerce backend credentials and endpoints
type MoltinConfig struct {
	BaseURL     string
	ClientID    string
	SecretKey   string
	PriceBookID string
	Channel     string
}

// GeocoderConfig holds the geocoding API settings
type GeocoderConfig struct {
	URL    string
	APIKey string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	return FromLookup(os.LookupEnv)
}

// FromLookup builds the configuration from an arbitrary variable source.
// All missing required variables are reported at once.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	r := reader{lookup: lookup}

	cfg := &Config{
		TelegramToken: r.required("TG_BOT_TOKEN"),
		MerchantToken: r.required("TG_BOT_MERCHANT_TOKEN"),
		AdminChatID:   r.int64("TG_ADMIN_CHAT_ID", 0),
		Moltin:        r.moltin(),
		Geocoder: GeocoderConfig{
			URL:    r.optional("YANDEX_GEOCODER_URL", "https://geocode-maps.yandex.ru/1.x"),
			APIKey: r.required("YANDEX_API_KEY"),
		},
		DatabasePath:        r.optional("DATABASE_PATH", "./pizza_bot.db"),
		ImagesDir:           r.optional("IMAGES_DIR", "./images"),
		HTTPAddr:            r.optional("HTTP_ADDR", "127.0.0.1:8080"),
		HTTPAPIToken:        r.optional("HTTP_API_TOKEN", ""),
		LogLevel:            r.level("LOG_LEVEL", slog.LevelInfo),
		DeliveryNotifyDelay: r.duration("DELIVERY_NOTIFY_DELAY", 6*time.Minute),
		ErrorBackoff:        r.duration("ERROR_BACKOFF", 60*time.Second),
		TokenRefreshLead:    r.duration("TOKEN_REFRESH_LEAD", 30*time.Second),
		DispatchWorkers:     int(r.int64("DISPATCH_WORKERS", 8)),
	}

	if cfg.DispatchWorkers < 1 {
		r.errs = append(r.errs, fmt.Errorf("DISPATCH_WORKERS must be positive, got %d", cfg.DispatchWorkers))
	}

	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadMoltin loads only the commerce backend settings, for tools that do not run the bot
func LoadMoltin() (*MoltinConfig, error) {
	_ = godotenv.Load()

	return MoltinFromLookup(os.LookupEnv)
}

// MoltinFromLookup builds the commerce backend settings from an arbitrary variable source
func MoltinFromLookup(lookup func(string) (string, bool)) (*MoltinConfig, error) {
	r := reader{lookup: lookup}
	cfg := r.moltin()
	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) moltin() MoltinConfig {
	return MoltinConfig{
		BaseURL:     r.optional("MOLTIN_BASE_URL", "https://api.moltin.com"),
		ClientID:    r.required("MOLTIN_CLIENT_ID"),
		SecretKey:   r.required("MOLTIN_SECRET_KEY"),
		PriceBookID: r.optional("MOLTIN_PRICE_BOOK_ID", "902947fd-5c0e-4a86-83b1-d347be42426a"),
		Channel:     r.optional("MOLTIN_CHANNEL", "web store"),
	}
}

func (r *reader) get(key string) (string, bool) {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *reader) required(key string) string {
	v, ok := r.get(key)
	if !ok {
		r.errs = append(r.errs, fmt.Errorf("%w: %s", ErrMissingVariable, key))
	}
	return v
}

func (r *reader) optional(key, def string) string {
	if v, ok := r.get(key); ok {
		return v
	}
	return def
}

func (r *reader) int64(key string, def int64) int64 {
	v, ok := r.get(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.get(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return d
}

func (r *reader) level(key string, def slog.Level) slog.Level {
	v, ok := r.get(key)
	if !ok {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return lvl
}
