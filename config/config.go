package config

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	Port        string `envconfig:"PORT"         default:":8080"`
	LogLevel    string `envconfig:"LOG_LEVEL"    default:"info"`
	// FallbackCategoryID is the category that adopts products of a deleted
	// category. The migration seeds "General" with this id.
	FallbackCategoryID int64 `envconfig:"FALLBACK_CATEGORY_ID" default:"1"`
	SessionTTLHours    int   `envconfig:"SESSION_TTL_HOURS"    default:"24"`
}

var (
	config Config
	once   sync.Once
)

func LoadConfig(logger *logrus.Logger) *Config {
	once.Do(func() {
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			logger.Warnf("Error loading .env file (but continuing): %v", err)
		} else if err == nil {
			logger.Info("Loaded configuration from .env file")
		}

		if err := envconfig.Process("", &config); err != nil {
			logger.Fatalf("Failed to process configuration from environment variables: %v", err)
		}

		logger.Infof("Configuration loaded: Port=%s, LogLevel=%s, FallbackCategoryID=%d",
			config.Port, config.LogLevel, config.FallbackCategoryID)
	})
	return &config
}
