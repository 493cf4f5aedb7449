package imageformat

import "time"

// Config selects and configures the formatter used by the binary. When
// S3Bucket is empty the CDN formatter is used.
type Config struct {
	BaseURL        string        `env:"IMAGES_BASE_URL" envDefault:"http://localhost:8080/assets"`
	S3Bucket       string        `env:"IMAGES_S3_BUCKET"`
	S3Region       string        `env:"IMAGES_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint     string        `env:"IMAGES_S3_ENDPOINT"`
	S3Prefix       string        `env:"IMAGES_S3_PREFIX" envDefault:"images"`
	AccessKeyID    string        `env:"IMAGES_S3_ACCESS_KEY_ID"`
	SecretKey      string        `env:"IMAGES_S3_SECRET_KEY"`
	ForcePathStyle bool          `env:"IMAGES_S3_FORCE_PATH_STYLE" envDefault:"false"`
	PresignTTL     time.Duration `env:"IMAGES_PRESIGN_TTL" envDefault:"168h"`
}
