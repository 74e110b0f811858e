package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"siteops-backend/internal/safety"
)

const (
	StoreSQL    = "sql"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config is everything the server reads from the environment
type Config struct {
	Port         string
	DatabaseURL  string
	StoreBackend string
	RedisAddr    string
	RedisPrefix  string
	JWTSecret    string

	PublicDir  string
	TempDir    string
	FFmpegPath string
	STTAPIKey  string
	STTBaseURL string

	GeminiAPIKey string
	ChatModel    string

	FirebaseCredentialsBase64 string
	FirebaseCredentialsFile   string

	MQTTBroker string
	MQTTTopic  string

	KafkaBrokers    string
	KafkaAlertTopic string

	SafetyConfigPath string
	Safety           safety.Config
}

// LoadDotEnv loads .env if it exists
func LoadDotEnv() {
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// FromEnv reads the configuration from environment variables
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:         getenv("PORT", "8080"),
		DatabaseURL:  getenv("DATABASE_URL", "sqlite://./siteops.db"),
		StoreBackend: strings.ToLower(getenv("STORE_BACKEND", StoreSQL)),
		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		RedisPrefix:  getenv("REDIS_PREFIX", "siteops:"),
		JWTSecret:    os.Getenv("APP_JWT_SECRET"),

		PublicDir:  getenv("PUBLIC_DIR", "./public"),
		TempDir:    getenv("TEMP_DIR", "./temp"),
		FFmpegPath: getenv("FFMPEG_PATH", "ffmpeg"),
		STTAPIKey:  getenv("STT_API_KEY", os.Getenv("GROQ_API_KEY")),
		STTBaseURL: os.Getenv("STT_BASE_URL"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		ChatModel:    os.Getenv("CHAT_MODEL"),

		FirebaseCredentialsBase64: os.Getenv("FIREBASE_CREDENTIALS_BASE64"),
		FirebaseCredentialsFile:   os.Getenv("FIREBASE_CREDENTIALS_FILE"),

		MQTTBroker: os.Getenv("MQTT_BROKER"),
		MQTTTopic:  os.Getenv("MQTT_TOPIC"),

		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		KafkaAlertTopic: os.Getenv("KAFKA_ALERT_TOPIC"),

		SafetyConfigPath: os.Getenv("SAFETY_CONFIG"),
	}

	switch cfg.StoreBackend {
	case StoreSQL, StoreRedis, StoreMemory:
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be sql, redis or memory, got %q", cfg.StoreBackend)
	}

	if cfg.SafetyConfigPath != "" {
		safetyCfg, err := safety.LoadConfig(cfg.SafetyConfigPath)
		if err != nil {
			return nil, err
		}
		cfg.Safety = safetyCfg
	} else {
		cfg.Safety = safety.DefaultConfig()
	}

	return cfg, nil
}
