package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// LINE Messaging API credentials
	ChannelSecret      string
	ChannelAccessToken string

	// Storage: PostgreSQL when DBHost is set, SQLite file otherwise
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Generative fallback (OpenAI-compatible chat completions)
	AIEnabled      bool
	AIAPIKey       string
	AIEndpoint     string
	AIModel        string
	AISystemPrompt string

	// Operator escalation
	TelegramBotToken string
	TelegramChatID   string

	// Dashboard API auth (empty disables the check)
	APIToken string

	LogLevel string
	LogFile  string
	LogJSON  bool
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		ChannelSecret:      getEnv("LINE_CHANNEL_SECRET", ""),
		ChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
		DBPath:             getEnv("DB_PATH", "./assistant.db"),
		DBHost:             getEnv("DB_HOST", ""),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", ""),
		DBName:             getEnv("DB_NAME", "assistant"),
		DBSSLMode:          getEnv("DB_SSLMODE", "disable"),
		AIEnabled:          getEnvBool("AI_ENABLED", true),
		AIAPIKey:           getEnv("AI_API_KEY", ""),
		AIEndpoint:         getEnv("AI_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		AIModel:            getEnv("AI_MODEL", "gpt-4o-mini"),
		AISystemPrompt:     getEnv("AI_SYSTEM_PROMPT", "You are a helpful HR assistant. Answer briefly and politely."),
		TelegramBotToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:     getEnv("TELEGRAM_CHAT_ID", ""),
		APIToken:           getEnv("API_TOKEN", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", ""),
		LogJSON:            getEnvBool("LOG_JSON", false),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
