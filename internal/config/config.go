package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service.
type Config struct {
	HTTPAddr    string
	DatabaseDSN string
	AutoMigrate bool
	RedisAddr   string
	ResultTTL   time.Duration

	JWTSecret   string
	JWTAudience string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	PythonBin          string
	PoseDetectorScript string
	ToneDetectorScript string
	UploadDir          string

	LogFile string

	RateLimitPerMinute int
	RateLimitBurst     int
	CORSAllowOrigins   []string
}

// Load reads the configuration from the environment, after loading an
// optional .env file from the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", "host=postgres user=postgres password=postgres dbname=bodyfit port=5432 sslmode=disable"),
		AutoMigrate: getBool("AUTO_MIGRATE", false),
		RedisAddr:   getEnv("REDIS_ADDR", "redis:6379"),
		ResultTTL:   getDuration("RESULT_TTL", 24*time.Hour),

		JWTSecret:   getEnv("JWT_SECRET", "dev-secret"),
		JWTAudience: os.Getenv("JWT_AUDIENCE"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4-turbo"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),

		PythonBin:          getEnv("PYTHON_BIN", "python3"),
		PoseDetectorScript: getEnv("POSE_DETECTOR_SCRIPT", "tools/pose_detector.py"),
		ToneDetectorScript: getEnv("TONE_DETECTOR_SCRIPT", "tools/skintone_detector.py"),
		UploadDir:          getEnv("UPLOAD_DIR", os.TempDir()),

		LogFile: os.Getenv("LOG_FILE"),

		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 10),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 3),
		CORSAllowOrigins:   getList("CORS_ALLOW_ORIGINS"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
