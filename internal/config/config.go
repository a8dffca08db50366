// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds every environment-driven setting of the service.
type Config struct {
	DevMode bool

	TableName    string `validate:"required"`
	UserIDIndex  string `validate:"required"`
	StoreBackend string `validate:"oneof=dynamodb memory"`
	// DynamoDBEndpoint points the SDK at a local DynamoDB (serverless-offline style).
	DynamoDBEndpoint string `validate:"omitempty,url"`

	Bucket           string        `validate:"required"`
	AttachmentDomain string        `validate:"required"`
	URLExpiration    time.Duration `validate:"gt=0"`
	ObjectBackend    string        `validate:"oneof=s3 minio"`
	Minio            MinioConfig

	Auth AuthConfig

	SecretBackend         string `validate:"oneof=ssm secretsmanager env"`
	APIGatewaySecretParam string

	CORSAllowOrigin string `validate:"required"`
	LogLevel        string
	LogFormat       string `validate:"oneof=json console"`
}

// MinioConfig configures the S3-compatible signer used outside AWS.
type MinioConfig struct {
	Endpoint  string `validate:"required_if=Enabled true"`
	AccessKey string `validate:"required_if=Enabled true"`
	SecretKey string `validate:"required_if=Enabled true"`
	UseSSL    bool
	Enabled   bool
}

// AuthConfig selects how bearer tokens are verified. JWKSURL wins over the HMAC secret.
type AuthConfig struct {
	JWKSURL        string `validate:"omitempty,url"`
	Issuer         string
	Audience       string
	JWTSecretParam string `validate:"required_without=JWKSURL"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	devMode := os.Getenv("DEV_MODE") == "true"

	cfg := &Config{
		DevMode:          devMode,
		TableName:        getenv("WATCHLIST_TABLE", "WatchList"),
		UserIDIndex:      getenv("USER_ID_INDEX", "UserIdIndex"),
		StoreBackend:     getenv("STORE_BACKEND", "dynamodb"),
		DynamoDBEndpoint: os.Getenv("DYNAMODB_ENDPOINT"),
		Bucket:           os.Getenv("WATCHLIST_S3_BUCKET"),
		AttachmentDomain: getenv("ATTACHMENT_DOMAIN", "s3.amazonaws.com"),
		ObjectBackend:    getenv("OBJECT_BACKEND", "s3"),
		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		},
		Auth: AuthConfig{
			JWKSURL:        os.Getenv("AUTH_JWKS_URL"),
			Issuer:         os.Getenv("AUTH_ISSUER"),
			Audience:       os.Getenv("AUTH_AUDIENCE"),
			JWTSecretParam: getenv("JWT_SECRET_PARAM", "/watchlist/jwt-secret"),
		},
		SecretBackend:         getenv("SECRET_BACKEND", "ssm"),
		APIGatewaySecretParam: os.Getenv("API_GATEWAY_SECRET_PARAM"),
		CORSAllowOrigin:       getenv("CORS_ALLOW_ORIGIN", "*"),
		LogLevel:              getenv("LOG_LEVEL", "info"),
		LogFormat:             getenv("LOG_FORMAT", "json"),
	}
	cfg.Minio.Enabled = cfg.ObjectBackend == "minio"

	if devMode {
		cfg.SecretBackend = "env"
		if os.Getenv("STORE_BACKEND") == "" {
			cfg.StoreBackend = "memory"
		}
		if os.Getenv("LOG_FORMAT") == "" {
			cfg.LogFormat = "console"
		}
	}

	expiration, err := parseSeconds(getenv("SIGNED_URL_EXPIRATION", "300"))
	if err != nil {
		return nil, fmt.Errorf("SIGNED_URL_EXPIRATION: %w", err)
	}
	cfg.URLExpiration = expiration

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseSeconds accepts a plain number of seconds or a Go duration string ("5m").
func parseSeconds(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
