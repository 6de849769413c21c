package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the incident feed service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	Port string

	// Reverse geocoding configuration
	GeocoderBaseURL  string
	GeocoderTimeout  time.Duration
	GeocoderInterval time.Duration

	// Feed configuration
	DefaultRadiusMiles float64

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	// Optional .env file for local development
	_ = godotenv.Load()

	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "incidents"),

		// Server defaults
		Port: getEnv("PORT", "8080"),

		// Geocoder defaults. Nominatim allows roughly one request per
		// second; we keep a small margin on top of that.
		GeocoderBaseURL:  getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderTimeout:  getDurationEnv("GEOCODER_TIMEOUT", 5*time.Second),
		GeocoderInterval: getDurationEnv("GEOCODER_MIN_INTERVAL", 1100*time.Millisecond),

		// Feed defaults
		DefaultRadiusMiles: getFloatEnv("DEFAULT_RADIUS_MILES", 0.5),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return config
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv gets a float environment variable or returns a default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
