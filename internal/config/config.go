package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Chain    ChainConfig
	Feed     FeedConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret              string
	AdminOperator          string
	AdminPassword          string
	OddsBandMin            float64
	OddsBandMax            float64
	SettlementPollInterval time.Duration
}

// ChainConfig holds settlement ledger settings
type ChainConfig struct {
	RPCURL             string
	ContractAddress    string
	OperatorPrivateKey string
	ConfirmTimeout     time.Duration
}

// FeedConfig holds price feed settings
type FeedConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "rangebet_market"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:              getEnv("JWT_SECRET", ""),
			AdminOperator:          getEnv("ADMIN_OPERATOR", "admin"),
			AdminPassword:          getEnv("ADMIN_PASSWORD", ""),
			OddsBandMin:            getEnvFloat("ODDS_BAND_MIN", 1.01),
			OddsBandMax:            getEnvFloat("ODDS_BAND_MAX", 10.0),
			SettlementPollInterval: getEnvSeconds("SETTLEMENT_POLL_SECONDS", 60),
		},
		Chain: ChainConfig{
			RPCURL:             getEnv("CHAIN_RPC_URL", ""),
			ContractAddress:    getEnv("CHAIN_CONTRACT_ADDRESS", ""),
			OperatorPrivateKey: getEnv("CHAIN_OPERATOR_PRIVATE_KEY", ""),
			ConfirmTimeout:     getEnvSeconds("CHAIN_CONFIRM_TIMEOUT_SECONDS", 120),
		},
		Feed: FeedConfig{
			BaseURL: getEnv("FEED_BASE_URL", ""),
			Timeout: getEnvSeconds("FEED_TIMEOUT_SECONDS", 10),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Chain.RPCURL != "" {
		if config.Chain.ContractAddress == "" || config.Chain.OperatorPrivateKey == "" {
			return nil, fmt.Errorf("CHAIN_CONTRACT_ADDRESS and CHAIN_OPERATOR_PRIVATE_KEY are required when CHAIN_RPC_URL is set")
		}
	}

	if config.App.OddsBandMin < 1 || config.App.OddsBandMax <= config.App.OddsBandMin {
		return nil, fmt.Errorf("invalid odds band [%v, %v]", config.App.OddsBandMin, config.App.OddsBandMax)
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(defaultSeconds) * time.Second
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return time.Duration(defaultSeconds) * time.Second
	}
	return time.Duration(parsed) * time.Second
}
