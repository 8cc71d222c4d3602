package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config - структура для хранения конфигурации приложения
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis Config
	RedisAddr        string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass        string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	IncidentCacheTTL time.Duration `env:"INCIDENT_CACHE_TTL" envDefault:"5m"`

	// Webhook Config
	WebhookURL        string        `env:"WEBHOOK_URL"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookMaxRetries int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"3"`
	WebhookBaseDelay  time.Duration `env:"WEBHOOK_BASE_DELAY" envDefault:"1s"`

	// API Keys for authentication
	APIKeys []string `env:"API_KEYS"`
	// Секрет подписи токенов внешнего сервиса идентификации (HS256)
	IdentitySecret string `env:"IDENTITY_SECRET"`

	// Geocoding Config
	GeocoderProvider string        `env:"GEOCODER_PROVIDER" envDefault:"nominatim"`
	NominatimURL     string        `env:"NOMINATIM_URL" envDefault:"https://nominatim.openstreetmap.org/"`
	GoogleMapsAPIKey string        `env:"GOOGLE_MAPS_API_KEY"`
	GeocodeTimeout   time.Duration `env:"GEOCODE_TIMEOUT" envDefault:"3s"`

	// Delivery Config
	ChannelSendTimeout    time.Duration `env:"CHANNEL_SEND_TIMEOUT" envDefault:"5s"`
	SMSProvider           string        `env:"SMS_PROVIDER" envDefault:"log"`
	SMSDefaultCountryCode string        `env:"SMS_DEFAULT_COUNTRY_CODE" envDefault:"254"`
	TwilioAccountSID      string        `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken       string        `env:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber      string        `env:"TWILIO_FROM_NUMBER"`
	AWSRegion             string        `env:"AWS_REGION" envDefault:"eu-west-1"`
	EmailProvider         string        `env:"EMAIL_PROVIDER" envDefault:"log"`
	SMTPHost              string        `env:"SMTP_HOST"`
	SMTPPort              int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername          string        `env:"SMTP_USERNAME"`
	SMTPPassword          string        `env:"SMTP_PASSWORD"`
	SMTPFrom              string        `env:"SMTP_FROM"`

	// Номер экстренных служб, который показывается, если тревогу не удалось записать
	EmergencyServicesNumber string `env:"EMERGENCY_SERVICES_NUMBER" envDefault:"999"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		HTTPPort:                getEnv("HTTP_PORT", "8080"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:               os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 getEnvAsInt("REDIS_DB", 0),
		IncidentCacheTTL:        getEnvAsDuration("INCIDENT_CACHE_TTL", 5*time.Minute),
		WebhookURL:              os.Getenv("WEBHOOK_URL"),
		WebhookSecret:           os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout:          getEnvAsDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		WebhookMaxRetries:       getEnvAsInt("WEBHOOK_MAX_RETRIES", 3),
		WebhookBaseDelay:        getEnvAsDuration("WEBHOOK_BASE_DELAY", time.Second),
		IdentitySecret:          os.Getenv("IDENTITY_SECRET"),
		GeocoderProvider:        strings.ToLower(getEnv("GEOCODER_PROVIDER", "nominatim")),
		NominatimURL:            getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org/"),
		GoogleMapsAPIKey:        os.Getenv("GOOGLE_MAPS_API_KEY"),
		GeocodeTimeout:          getEnvAsDuration("GEOCODE_TIMEOUT", 3*time.Second),
		ChannelSendTimeout:      getEnvAsDuration("CHANNEL_SEND_TIMEOUT", 5*time.Second),
		SMSProvider:             strings.ToLower(getEnv("SMS_PROVIDER", "log")),
		SMSDefaultCountryCode:   getEnv("SMS_DEFAULT_COUNTRY_CODE", "254"),
		TwilioAccountSID:        os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:         os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:        os.Getenv("TWILIO_FROM_NUMBER"),
		AWSRegion:               getEnv("AWS_REGION", "eu-west-1"),
		EmailProvider:           strings.ToLower(getEnv("EMAIL_PROVIDER", "log")),
		SMTPHost:                os.Getenv("SMTP_HOST"),
		SMTPPort:                getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername:            os.Getenv("SMTP_USERNAME"),
		SMTPPassword:            os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:                os.Getenv("SMTP_FROM"),
		EmergencyServicesNumber: getEnv("EMERGENCY_SERVICES_NUMBER", "999"),
	}

	// Загрузка API ключей
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr != "" {
		cfg.APIKeys = strings.Split(apiKeysStr, ",")
		for i, key := range cfg.APIKeys {
			cfg.APIKeys[i] = strings.TrimSpace(key)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if c.IdentitySecret == "" {
		return fmt.Errorf("IDENTITY_SECRET environment variable is required")
	}

	switch c.GeocoderProvider {
	case "nominatim", "none":
	case "google":
		if c.GoogleMapsAPIKey == "" {
			return fmt.Errorf("GOOGLE_MAPS_API_KEY is required for GEOCODER_PROVIDER=google")
		}
	default:
		return fmt.Errorf("unknown GEOCODER_PROVIDER %q", c.GeocoderProvider)
	}

	switch c.SMSProvider {
	case "log", "sns":
	case "twilio":
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioFromNumber == "" {
			return fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required for SMS_PROVIDER=twilio")
		}
	default:
		return fmt.Errorf("unknown SMS_PROVIDER %q", c.SMSProvider)
	}

	switch c.EmailProvider {
	case "log":
	case "smtp":
		if c.SMTPHost == "" || c.SMTPFrom == "" {
			return fmt.Errorf("SMTP_HOST and SMTP_FROM are required for EMAIL_PROVIDER=smtp")
		}
	default:
		return fmt.Errorf("unknown EMAIL_PROVIDER %q", c.EmailProvider)
	}

	if c.GeocodeTimeout <= 0 || c.ChannelSendTimeout <= 0 {
		return fmt.Errorf("GEOCODE_TIMEOUT and CHANNEL_SEND_TIMEOUT must be positive")
	}
	return nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
