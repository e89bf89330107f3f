package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/models"
)

type Config struct {
	PORT        string
	LOG_LEVEL   string
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	JWT_SECRET   string
	JWT_ISSUER   string
	JWT_AUDIENCE string

	GOOGLE_CLIENT_ID string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string
	ES_INDEX    string

	KAFKA_ADDRESS string

	SMTP_HOST     string
	SMTP_PORT     string
	SMTP_USER     string
	SMTP_PASSWORD string
	SMTP_FROM     string
	ADMIN_EMAIL   string

	AWS_S3_BUCKET         string
	AWS_REGION            string
	AWS_ACCESS_KEY_ID     string
	AWS_SECRET_ACCESS_KEY string

	MOMO_BASE_URL         string
	MOMO_KEY              string
	MOMO_SECRET           string
	MOMO_SUBSCRIPTION_KEY string

	GENAI_BASE_URL string
	GENAI_API_KEY  string
	GENAI_MODEL    string

	VECTOR_URL     string
	VECTOR_API_KEY string

	CATALOG_URL     string
	CATALOG_API_KEY string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		PORT:        getDefault("PORT", "8080"),
		LOG_LEVEL:   os.Getenv("LOG_LEVEL"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),

		JWT_SECRET:   os.Getenv("JWT_SECRET"),
		JWT_ISSUER:   getDefault("JWT_ISSUER", "bookbridge"),
		JWT_AUDIENCE: getDefault("JWT_AUDIENCE", "bookbridge-api"),

		GOOGLE_CLIENT_ID: os.Getenv("GOOGLE_CLIENT_ID"),

		ES_URL:      os.Getenv("ES_URL"),
		ES_USER:     os.Getenv("ES_USER"),
		ES_PASSWORD: os.Getenv("ES_PASSWORD"),
		ES_INDEX:    getDefault("ES_INDEX", "books"),

		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),

		SMTP_HOST:     os.Getenv("SMTP_HOST"),
		SMTP_PORT:     getDefault("SMTP_PORT", "587"),
		SMTP_USER:     os.Getenv("SMTP_USER"),
		SMTP_PASSWORD: os.Getenv("SMTP_PASSWORD"),
		SMTP_FROM:     os.Getenv("SMTP_FROM"),
		ADMIN_EMAIL:   os.Getenv("ADMIN_EMAIL"),

		AWS_S3_BUCKET:         os.Getenv("AWS_S3_BUCKET"),
		AWS_REGION:            getDefault("AWS_REGION", "us-east-1"),
		AWS_ACCESS_KEY_ID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWS_SECRET_ACCESS_KEY: os.Getenv("AWS_SECRET_ACCESS_KEY"),

		MOMO_BASE_URL:         os.Getenv("MOMO_BASE_URL"),
		MOMO_KEY:              os.Getenv("MOMO_KEY"),
		MOMO_SECRET:           os.Getenv("MOMO_SECRET"),
		MOMO_SUBSCRIPTION_KEY: os.Getenv("MOMO_SUBSCRIPTION_KEY"),

		GENAI_BASE_URL: os.Getenv("GENAI_BASE_URL"),
		GENAI_API_KEY:  os.Getenv("GENAI_API_KEY"),
		GENAI_MODEL:    getDefault("GENAI_MODEL", "gemini-1.5-flash"),

		VECTOR_URL:     os.Getenv("VECTOR_URL"),
		VECTOR_API_KEY: os.Getenv("VECTOR_API_KEY"),

		CATALOG_URL:     getDefault("CATALOG_URL", "https://www.googleapis.com/books/v1/volumes"),
		CATALOG_API_KEY: os.Getenv("CATALOG_API_KEY"),
	}

	return config, nil
}

func getDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func InitDB(configuration *Config) (*gorm.DB, error) {
	host := configuration.DB_HOST
	port := configuration.DB_PORT
	user := configuration.DB_USER
	password := configuration.DB_PASSWORD
	dbname := configuration.DB_NAME

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		user, password, host, port, dbname,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.Book{},
		&models.OwnedDetails{},
		&models.AffiliateDetails{},
		&models.Image{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Confirmation{},
		&models.Payment{},
		&models.Review{},
		&models.Recommendation{},
		&models.InventoryLog{},
	)
}
