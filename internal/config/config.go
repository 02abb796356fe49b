package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/openmart/shopcart/internal/models"
	"github.com/openmart/shopcart/pkg/db"
)

const minSecretLen = 32

type Config struct {
	HTTP_ADDR     string
	DB_HOST       string
	DB_PORT       string
	DB_USER       string
	DB_PASSWORD   string
	DB_NAME       string
	JWT_SECRET    string
	TOKEN_TTL     int // seconds
	COOKIE_NAME   string
	COOKIE_SECURE bool
	KAFKA_ADDRESS string
	ES_URL        string
	ES_USER       string
	ES_PASSWORD   string
	LOG_LEVEL     string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		HTTP_ADDR:     getDefault("HTTP_ADDR", ":8080"),
		DB_HOST:       os.Getenv("DB_HOST"),
		DB_PORT:       os.Getenv("DB_PORT"),
		DB_USER:       os.Getenv("DB_USER"),
		DB_PASSWORD:   os.Getenv("DB_PASSWORD"),
		DB_NAME:       os.Getenv("DB_NAME"),
		JWT_SECRET:    os.Getenv("JWT_SECRET"),
		TOKEN_TTL:     getIntDefault("TOKEN_TTL_SECONDS", 86400),
		COOKIE_NAME:   getDefault("COOKIE_NAME", "authToken"),
		COOKIE_SECURE: os.Getenv("COOKIE_SECURE") == "true",
		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),
		ES_URL:        os.Getenv("ES_URL"),
		ES_USER:       os.Getenv("ES_USER"),
		ES_PASSWORD:   os.Getenv("ES_PASSWORD"),
		LOG_LEVEL:     getDefault("LOG_LEVEL", "info"),
	}

	if len(config.JWT_SECRET) < minSecretLen {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLen)
	}
	if config.TOKEN_TTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL_SECONDS must be positive")
	}

	return config, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB_USER, c.DB_PASSWORD, c.DB_HOST, c.DB_PORT, c.DB_NAME,
	)
}

func InitDB(ctx context.Context, c *Config) (*gorm.DB, error) {
	gdb, err := db.Open(ctx, c.DSN())
	if err != nil {
		return nil, err
	}
	if err := Migrate(gdb); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return gdb, nil
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	)
}

func getDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
