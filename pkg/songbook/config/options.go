package config

import (
	"errors"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return errors.New("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the runtime environment
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return errors.New("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithMemory selects in-memory record and blob stores
func WithMemory() Option {
	return func(c *ServerConfig) error {
		c.RecordStore = RecordStoreMemory
		c.BlobStore = BlobStoreMemory
		return nil
	}
}

// WithPostgres selects the Postgres record store
func WithPostgres(databaseURL, schema string) Option {
	return func(c *ServerConfig) error {
		if databaseURL == "" {
			return errors.New("database URL cannot be empty")
		}
		c.RecordStore = RecordStorePostgres
		c.DatabaseURL = databaseURL
		c.DBSchema = schema
		return nil
	}
}

// WithDynamoDB selects the DynamoDB record store. An empty table keeps the default.
func WithDynamoDB(table, endpoint string) Option {
	return func(c *ServerConfig) error {
		c.RecordStore = RecordStoreDynamoDB
		if table != "" {
			c.DynamoDB.TableName = table
		}
		c.DynamoDB.Endpoint = endpoint
		return nil
	}
}

// WithS3 selects the S3 blob store. An empty bucket keeps the default.
func WithS3(bucket, endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		c.BlobStore = BlobStoreS3
		if bucket != "" {
			c.S3.Bucket = bucket
		}
		c.S3.Endpoint = endpoint
		c.S3.UsePathStyle = usePathStyle
		return nil
	}
}

// WithFilesystem selects the filesystem blob store
func WithFilesystem(baseDir, urlPrefix, secretKey string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return errors.New("base directory cannot be empty")
		}
		c.BlobStore = BlobStoreFS
		c.FS = FSConfig{
			BaseDir:            baseDir,
			URLPrefix:          urlPrefix,
			SignatureSecretKey: secretKey,
		}
		return nil
	}
}

// WithAWSCredentials sets the region and static credentials for AWS backends
func WithAWSCredentials(region, accessKeyID, secretAccessKey string) Option {
	return func(c *ServerConfig) error {
		if region != "" {
			c.AWS.Region = region
		}
		c.AWS.AccessKeyID = accessKeyID
		c.AWS.SecretAccessKey = secretAccessKey
		return nil
	}
}

// WithSessionSecret sets the admin token secret
func WithSessionSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.SessionSecret = secret
		return nil
	}
}

// WithCacheTTL sets the song list cache lifetime
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		if ttl < 0 {
			return errors.New("cache TTL cannot be negative")
		}
		c.CacheTTL = ttl
		return nil
	}
}

// WithLogFormat selects text or json logs
func WithLogFormat(format string) Option {
	return func(c *ServerConfig) error {
		c.LogFormat = format
		return nil
	}
}

// WithS3Encryption sets server-side encryption for uploaded media, AES256
// or aws:kms. kmsKeyID is only used with aws:kms.
func WithS3Encryption(mode, kmsKeyID string) Option {
	return func(c *ServerConfig) error {
		c.S3.Encryption = mode
		c.S3.KMSKeyID = kmsKeyID
		return nil
	}
}
