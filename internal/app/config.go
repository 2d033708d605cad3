package app

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	MongoURI        string // empty disables history persistence
	MongoDatabase   string
	MongoCollection string
	LogLevel        string
	LogFormat       string
	FFmpegPath      string
	RemuxBufferKB   int64
	InnerTubeURL    string
	ResolveRPS      float64
	ResolveBurst    int
	AllowedOrigins  []string
}

// LoadConfig reads configuration from the environment. A .env file in the
// working directory is loaded first if present; real environment variables
// win over values from the file.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":3000"),
		MongoURI:        getEnv("MONGO_URI", ""),
		MongoDatabase:   getEnv("MONGO_DB", "ytstream"),
		MongoCollection: getEnv("MONGO_COLLECTION", "history"),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "text")),
		FFmpegPath:      getEnv("FFMPEG_PATH", "ffmpeg"),
		RemuxBufferKB:   getEnvInt64("REMUX_BUFFER_KB", 512),
		InnerTubeURL:    getEnv("INNERTUBE_URL", ""),
		ResolveRPS:      getEnvFloat("RESOLVE_RPS", 5),
		ResolveBurst:    int(getEnvInt64("RESOLVE_BURST", 10)),
		AllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
