package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath              string
	BankPath            string
	LogLevel            string
	ExamQuestionCount   int
	ExamDurationMinutes int
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent.
	_ = godotenv.Load()

	return Config{
		DBPath:              envOr("DB_PATH", "certprep.db"),
		BankPath:            envOr("BANK_PATH", "data/questions.json"),
		LogLevel:            envOr("LOG_LEVEL", "INFO"),
		ExamQuestionCount:   envIntOr("EXAM_QUESTION_COUNT", 65),
		ExamDurationMinutes: envIntOr("EXAM_DURATION_MINUTES", 90),
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.BankPath == "" {
		return fmt.Errorf("BANK_PATH cannot be empty")
	}
	if c.ExamQuestionCount <= 0 {
		return fmt.Errorf("EXAM_QUESTION_COUNT must be positive, got %d", c.ExamQuestionCount)
	}
	if c.ExamDurationMinutes <= 0 {
		return fmt.Errorf("EXAM_DURATION_MINUTES must be positive, got %d", c.ExamDurationMinutes)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}
