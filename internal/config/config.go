package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	ServerPort string
	BaseURL    string // external URL, used to build OIDC redirect URIs
	StaticDir  string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	JWTSecret          string
	JWTExpirationHours time.Duration

	AWSRegion      string
	BackupEndpoint string // optional S3-compatible endpoint override

	SchedulerInterval time.Duration

	LogLevel string
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	schedMinutes, _ := strconv.Atoi(getEnv("SCHEDULER_INTERVAL_MINUTES", "1"))

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		BaseURL:    getEnv("BASE_URL", "http://localhost:8080"),
		StaticDir:  getEnv("STATIC_DIR", "./web"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "parking"),
		DBPassword: getEnv("DB_PASSWORD", "parking"),
		DBName:     getEnv("DB_NAME", "parking_reserve"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:          getEnv("SECRET_KEY", "change-me-in-production"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,

		AWSRegion:      getEnv("AWS_REGION", "eu-central-1"),
		BackupEndpoint: getEnv("BACKUP_S3_ENDPOINT", ""),

		SchedulerInterval: time.Duration(schedMinutes) * time.Minute,

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
