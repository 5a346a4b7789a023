package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	BlobLocal = "local"
	BlobS3    = "s3"
)

type Config struct {
	Port        string        `env:"PORT,default=3000"`
	LogLevel    string        `env:"LOG_LEVEL,default=info"`
	SlowRequest time.Duration `env:"SLOW_REQUEST,default=2s"`
	RateLimit   int           `env:"RATE_LIMIT,default=60"`

	// DSN selects postgres. When empty the server falls back to a local sqlite file.
	DSN            string `env:"DSN"`
	SQLitePath     string `env:"SQLITE_PATH,default=microblog.db"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBMaxIdleConns int    `env:"DB_MAX_IDLE_CONNS,default=25"`

	BlobBackend    string `env:"BLOB_BACKEND,default=local"`
	UploadDir      string `env:"UPLOAD_DIR,default=uploads"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES,default=10485760"`

	// Cloudflare R2 / S3
	AccountID       string `env:"ACCOUNT_ID"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	AccessKeySecret string `env:"ACCESS_KEY_SECRET"`
	BucketName      string `env:"BUCKET_NAME"`
	PublicURL       string `env:"PUBLIC_URL"`
	S3Region        string `env:"S3_REGION,default=auto"`
}

// Load reads an optional .env file and decodes the environment into a Config.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.BlobBackend {
	case BlobLocal:
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR is required for the local blob backend")
		}
	case BlobS3:
		if c.AccountID == "" || c.AccessKeyID == "" || c.AccessKeySecret == "" || c.BucketName == "" {
			return errors.New("ACCOUNT_ID, ACCESS_KEY_ID, ACCESS_KEY_SECRET and BUCKET_NAME are required for the s3 blob backend")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.RateLimit <= 0 {
		return errors.New("RATE_LIMIT must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
