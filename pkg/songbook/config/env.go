package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envVars mirrors the recognised environment variables. Every field is a
// string so an unset variable can be told apart from a zero value.
type envVars struct {
	Port        string `env:"PORT" env-description:"HTTP listen port (default 8080)"`
	Environment string `env:"ENVIRONMENT" env-description:"development, production or testing"`
	LogFormat   string `env:"LOG_FORMAT" env-description:"text or json"`

	RecordStore string `env:"RECORD_STORE" env-description:"dynamodb, postgres or memory"`
	DatabaseURL string `env:"DATABASE_URL" env-description:"Postgres connection string"`
	DBSchema    string `env:"DB_SCHEMA" env-description:"Postgres search_path"`

	BlobStore string `env:"BLOB_STORE" env-description:"s3, fs or memory"`

	AWSRegion          string `env:"AWS_REGION" env-description:"AWS region (default eu-central-1)"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-description:"static AWS access key"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-description:"static AWS secret key"`

	DynamoDBTableName   string `env:"DYNAMODB_TABLE_NAME" env-description:"songs table (default alemar-capoeira-songs)"`
	DynamoDBEndpoint    string `env:"DYNAMODB_ENDPOINT" env-description:"custom endpoint, e.g. DynamoDB Local"`
	DynamoDBCreateTable string `env:"DYNAMODB_CREATE_TABLE" env-description:"create the table when missing"`

	S3BucketName    string `env:"S3_BUCKET_NAME" env-description:"media bucket (default alemar-capoeira-songs)"`
	S3Endpoint      string `env:"S3_ENDPOINT" env-description:"custom endpoint for S3-compatible services"`
	S3UsePathStyle  string `env:"S3_USE_PATH_STYLE" env-description:"use path-style addressing"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL" env-description:"base of unsigned public URLs, e.g. a CDN"`
	S3CreateBucket  string `env:"S3_CREATE_BUCKET" env-description:"create the bucket when missing"`
	S3SSE           string `env:"S3_SSE" env-description:"server-side encryption: AES256 or aws:kms"`
	S3KMSKeyID      string `env:"S3_KMS_KEY_ID" env-description:"KMS key for aws:kms encryption"`

	FSBaseDir            string `env:"FS_BASE_DIR" env-description:"filesystem storage directory"`
	FSURLPrefix          string `env:"FS_URL_PREFIX" env-description:"public URL where /storage is mounted"`
	FSSignatureSecretKey string `env:"FS_SIGNATURE_SECRET_KEY" env-description:"HMAC key for filesystem URLs"`

	SessionSecret string `env:"SESSION_SECRET" env-description:"HS256 secret for admin session tokens"`
	CacheTTL      string `env:"CACHE_TTL" env-description:"song list cache lifetime, e.g. 1m"`
}

// WithEnv applies environment variable overrides.
//
// Variables are read by their plain names. With a non-empty prefix the
// prefixed variant of each name wins over the plain one, so SONGBOOK_PORT
// overrides PORT when prefix is "SONGBOOK_". Unset or empty variables leave
// the current value alone.
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		var vars envVars
		if err := cleanenv.ReadEnv(&vars); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		if prefix != "" {
			overlayPrefixed(prefix, &vars)
		}
		return vars.apply(c)
	}
}

// EnvUsage describes the recognised environment variables
func EnvUsage() (string, error) {
	header := "Environment variables:"
	return cleanenv.GetDescription(&envVars{}, &header)
}

func overlayPrefixed(prefix string, vars *envVars) {
	v := reflect.ValueOf(vars).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("env")
		if raw, ok := os.LookupEnv(prefix + key); ok && raw != "" {
			v.Field(i).SetString(raw)
		}
	}
}

func (e *envVars) apply(c *ServerConfig) error {
	setString(&c.Port, e.Port)
	setString(&c.Environment, e.Environment)
	setString(&c.LogFormat, strings.ToLower(e.LogFormat))

	setString(&c.RecordStore, strings.ToLower(e.RecordStore))
	setString(&c.DatabaseURL, e.DatabaseURL)
	setString(&c.DBSchema, e.DBSchema)
	// A database URL alone is enough to pick postgres
	if e.DatabaseURL != "" && e.RecordStore == "" {
		c.RecordStore = RecordStorePostgres
	}

	setString(&c.BlobStore, strings.ToLower(e.BlobStore))

	setString(&c.AWS.Region, e.AWSRegion)
	setString(&c.AWS.AccessKeyID, e.AWSAccessKeyID)
	setString(&c.AWS.SecretAccessKey, e.AWSSecretAccessKey)

	setString(&c.DynamoDB.TableName, e.DynamoDBTableName)
	setString(&c.DynamoDB.Endpoint, e.DynamoDBEndpoint)
	if err := setBool(&c.DynamoDB.CreateTable, "DYNAMODB_CREATE_TABLE", e.DynamoDBCreateTable); err != nil {
		return err
	}

	setString(&c.S3.Bucket, e.S3BucketName)
	setString(&c.S3.Endpoint, e.S3Endpoint)
	setString(&c.S3.PublicBaseURL, e.S3PublicBaseURL)
	setString(&c.S3.Encryption, e.S3SSE)
	setString(&c.S3.KMSKeyID, e.S3KMSKeyID)
	if err := setBool(&c.S3.UsePathStyle, "S3_USE_PATH_STYLE", e.S3UsePathStyle); err != nil {
		return err
	}
	if err := setBool(&c.S3.CreateBucket, "S3_CREATE_BUCKET", e.S3CreateBucket); err != nil {
		return err
	}

	setString(&c.FS.BaseDir, e.FSBaseDir)
	setString(&c.FS.URLPrefix, e.FSURLPrefix)
	setString(&c.FS.SignatureSecretKey, e.FSSignatureSecretKey)

	setString(&c.SessionSecret, e.SessionSecret)

	if e.CacheTTL != "" {
		ttl, err := time.ParseDuration(e.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid duration for CACHE_TTL: %w", err)
		}
		c.CacheTTL = ttl
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key, raw string) error {
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid boolean for %s: %w", key, err)
	}
	*dst = parsed
	return nil
}
