package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	MongoURI        string
	DBName          string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	PaystackSecretKey string
	PaystackBaseURL   string
	CallbackURL       string
	Currency          string
	DeliveryFee       float64

	SMSAPIURL          string
	SMSAPIKey          string
	SMSSenderID        string
	CountryCallingCode string
	OperatorPhone      string

	KafkaBrokers            []string
	KafkaNotificationsTopic string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		MongoURI:        getEnvOrDefault("MONGO_URI", ""),
		DBName:          getEnvOrDefault("DB_NAME", "storefront"),
		JWTSecret:       getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),

		PaystackSecretKey: getEnvOrDefault("PAYSTACK_SECRET_KEY", ""),
		PaystackBaseURL:   getEnvOrDefault("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		CallbackURL:       getEnvOrDefault("PAYMENT_CALLBACK_URL", ""),
		Currency:          getEnvOrDefault("CURRENCY", "GHS"),
		DeliveryFee:       getFloatEnv("DELIVERY_FEE", 0),

		SMSAPIURL:          getEnvOrDefault("SMS_API_URL", ""),
		SMSAPIKey:          getEnvOrDefault("SMS_API_KEY", ""),
		SMSSenderID:        getEnvOrDefault("SMS_SENDER_ID", "Storefront"),
		CountryCallingCode: getEnvOrDefault("COUNTRY_CALLING_CODE", "233"),
		OperatorPhone:      getEnvOrDefault("OPERATOR_PHONE", ""),

		KafkaBrokers:            getListEnv("KAFKA_BROKERS"),
		KafkaNotificationsTopic: getEnvOrDefault("KAFKA_NOTIFICATIONS_TOPIC", "storefront.notifications"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
