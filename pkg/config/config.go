package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	WhatsApp      WhatsAppConfig
	LLM           LLMConfig
	Razorpay      RazorpayConfig
	Confirmations ConfirmationConfig
	Reminders     ReminderConfig
	Receipts      ReceiptConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// WhatsAppConfig holds Cloud API credentials and delivery defaults.
type WhatsAppConfig struct {
	AccessToken        string
	PhoneNumberID      string
	VerifyToken        string
	APIBaseURL         string
	DefaultCountryCode string
	Timeout            time.Duration
}

// LLMConfig configures the chat-completion backend used by the
// classifier, parser, and read-query services.
type LLMConfig struct {
	APIKey          string
	BaseURL         string
	ClassifierModel string
	ParserModel     string
	ReaderModel     string
	Timeout         time.Duration
}

// RazorpayConfig carries gateway credentials and webhook verification secrets.
type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Currency      string
	Timeout       time.Duration
}

// ConfirmationConfig tunes the pending-confirmation store.
type ConfirmationConfig struct {
	TTL time.Duration
}

// ReminderConfig sizes the reminder fan-out workers.
type ReminderConfig struct {
	WorkerConcurrency int
	QueueBuffer       int
}

// ReceiptConfig toggles payment-receipt PDFs sent to guardians.
type ReceiptConfig struct {
	Enabled    bool
	SchoolName string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.WhatsApp = WhatsAppConfig{
		AccessToken:        v.GetString("WHATSAPP_ACCESS_TOKEN"),
		PhoneNumberID:      v.GetString("WHATSAPP_PHONE_NUMBER_ID"),
		VerifyToken:        v.GetString("WHATSAPP_VERIFY_TOKEN"),
		APIBaseURL:         v.GetString("WHATSAPP_API_BASE_URL"),
		DefaultCountryCode: v.GetString("WHATSAPP_DEFAULT_COUNTRY_CODE"),
		Timeout:            parseDuration(v.GetString("WHATSAPP_TIMEOUT"), 15*time.Second),
	}

	cfg.LLM = LLMConfig{
		APIKey:          v.GetString("LLM_API_KEY"),
		BaseURL:         v.GetString("LLM_BASE_URL"),
		ClassifierModel: v.GetString("LLM_CLASSIFIER_MODEL"),
		ParserModel:     v.GetString("LLM_PARSER_MODEL"),
		ReaderModel:     v.GetString("LLM_READER_MODEL"),
		Timeout:         parseDuration(v.GetString("LLM_TIMEOUT"), 30*time.Second),
	}

	cfg.Razorpay = RazorpayConfig{
		KeyID:         v.GetString("RAZORPAY_KEY_ID"),
		KeySecret:     v.GetString("RAZORPAY_KEY_SECRET"),
		WebhookSecret: v.GetString("RAZORPAY_WEBHOOK_SECRET"),
		BaseURL:       v.GetString("RAZORPAY_BASE_URL"),
		Currency:      v.GetString("RAZORPAY_CURRENCY"),
		Timeout:       parseDuration(v.GetString("RAZORPAY_TIMEOUT"), 15*time.Second),
	}

	cfg.Confirmations = ConfirmationConfig{
		TTL: parseDuration(v.GetString("CONFIRMATION_TTL"), 15*time.Minute),
	}

	cfg.Reminders = ReminderConfig{
		WorkerConcurrency: v.GetInt("REMINDER_WORKER_CONCURRENCY"),
		QueueBuffer:       v.GetInt("REMINDER_QUEUE_BUFFER"),
	}

	cfg.Receipts = ReceiptConfig{
		Enabled:    v.GetBool("ENABLE_RECEIPTS"),
		SchoolName: v.GetString("SCHOOL_NAME"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "feeline")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("WHATSAPP_API_BASE_URL", "https://graph.facebook.com/v18.0")
	v.SetDefault("WHATSAPP_DEFAULT_COUNTRY_CODE", "91")
	v.SetDefault("WHATSAPP_TIMEOUT", "15s")

	v.SetDefault("LLM_BASE_URL", "https://api.groq.com/openai/v1")
	v.SetDefault("LLM_CLASSIFIER_MODEL", "openai/gpt-oss-120b")
	v.SetDefault("LLM_PARSER_MODEL", "llama3-8b-8192")
	v.SetDefault("LLM_READER_MODEL", "llama-3.3-70b-versatile")
	v.SetDefault("LLM_TIMEOUT", "30s")

	v.SetDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1")
	v.SetDefault("RAZORPAY_CURRENCY", "INR")
	v.SetDefault("RAZORPAY_TIMEOUT", "15s")

	v.SetDefault("CONFIRMATION_TTL", "15m")

	v.SetDefault("REMINDER_WORKER_CONCURRENCY", 2)
	v.SetDefault("REMINDER_QUEUE_BUFFER", 64)

	v.SetDefault("ENABLE_RECEIPTS", true)
	v.SetDefault("SCHOOL_NAME", "School")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
