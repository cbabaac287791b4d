// Package config assembles a songbook service from defaults, functional
// options and environment variables.
package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/songbook/pkg/songbook"
	"github.com/tendant/songbook/pkg/songbook/auth"
	"github.com/tendant/songbook/pkg/songbook/awsutil"
	"github.com/tendant/songbook/pkg/songbook/client"
	repodynamo "github.com/tendant/songbook/pkg/songbook/repo/dynamodb"
	"github.com/tendant/songbook/pkg/songbook/repo/memory"
	repopg "github.com/tendant/songbook/pkg/songbook/repo/postgres"
	fsstorage "github.com/tendant/songbook/pkg/songbook/storage/fs"
	memorystorage "github.com/tendant/songbook/pkg/songbook/storage/memory"
	s3storage "github.com/tendant/songbook/pkg/songbook/storage/s3"
)

// Record store kinds
const (
	RecordStoreDynamoDB = "dynamodb"
	RecordStorePostgres = "postgres"
	RecordStoreMemory   = "memory"
)

// Blob store kinds
const (
	BlobStoreS3     = "s3"
	BlobStoreFS     = "fs"
	BlobStoreMemory = "memory"
)

// Default resource names shared by the DynamoDB table and the S3 bucket
const (
	DefaultTableName  = "alemar-capoeira-songs"
	DefaultBucketName = "alemar-capoeira-songs"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:        "8080",
		Environment: "development",
		LogFormat:   "text",
		RecordStore: RecordStoreMemory,
		BlobStore:   BlobStoreMemory,
		AWS: AWSConfig{
			Region: awsutil.DefaultRegion,
		},
		DynamoDB: DynamoDBConfig{
			TableName: DefaultTableName,
		},
		S3: S3Config{
			Bucket: DefaultBucketName,
		},
		FS: FSConfig{
			BaseDir:   "./data/storage",
			URLPrefix: "http://localhost:8080/storage",
		},
		CacheTTL: time.Minute,
	}
}

// ServerConfig represents configuration for the songbook server and CLI
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing
	LogFormat   string // text or json

	RecordStore string // dynamodb, postgres, memory
	DatabaseURL string
	DBSchema    string // Postgres search_path, empty keeps the server default

	BlobStore string // s3, fs, memory

	AWS      AWSConfig
	DynamoDB DynamoDBConfig
	S3       S3Config
	FS       FSConfig

	// SessionSecret signs and verifies admin session tokens
	SessionSecret string

	// CacheTTL bounds how long the web views reuse a fetched song list
	CacheTTL time.Duration
}

// AWSConfig holds the region and static credentials shared by S3 and DynamoDB.
// Empty credentials fall back to the default chain.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// DynamoDBConfig configures the DynamoDB record store
type DynamoDBConfig struct {
	TableName   string
	Endpoint    string
	CreateTable bool
}

// S3Config configures the S3 blob store
type S3Config struct {
	Bucket        string
	Endpoint      string
	UsePathStyle  bool
	PublicBaseURL string
	CreateBucket  bool

	// Encryption is "", AES256 or aws:kms
	Encryption string
	KMSKeyID   string
}

// FSConfig configures the filesystem blob store
type FSConfig struct {
	BaseDir            string
	URLPrefix          string
	SignatureSecretKey string
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be 'text' or 'json', got %q", c.LogFormat)
	}

	switch c.RecordStore {
	case RecordStoreMemory:
	case RecordStorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when using postgres")
		}
	case RecordStoreDynamoDB:
		if c.DynamoDB.TableName == "" {
			return errors.New("dynamodb table name is required when using dynamodb")
		}
	default:
		return fmt.Errorf("record_store must be 'dynamodb', 'postgres' or 'memory', got %q", c.RecordStore)
	}

	switch c.BlobStore {
	case BlobStoreMemory:
	case BlobStoreS3:
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket name is required when using s3")
		}
	case BlobStoreFS:
		if c.FS.BaseDir == "" {
			return errors.New("fs base directory is required when using fs")
		}
	default:
		return fmt.Errorf("blob_store must be 's3', 'fs' or 'memory', got %q", c.BlobStore)
	}

	if c.CacheTTL < 0 {
		return errors.New("cache_ttl must not be negative")
	}

	if c.Environment == "production" && c.SessionSecret == "" {
		return errors.New("session_secret is required in production")
	}

	return nil
}

// Runtime is a fully wired service together with the resources backing it
type Runtime struct {
	Service    songbook.Service
	Repository songbook.Repository
	BlobStore  songbook.BlobStore
	Cleaner    *songbook.Cleaner

	// Cache is the song list cache behind the web views. Every mutation the
	// service commits invalidates it.
	Cache *client.Cache

	// FS is set when the blob store is the filesystem backend. Its handlers
	// must be mounted at FS.URLPrefix for presigned URLs to resolve.
	FS *fsstorage.Backend

	pool *pgxpool.Pool
}

// Close drains the cleanup queue and releases database connections
func (r *Runtime) Close() {
	if r.Cleaner != nil {
		r.Cleaner.Close()
	}
	if r.pool != nil {
		r.pool.Close()
	}
}

// BuildService creates a Runtime from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context, options ...songbook.Option) (*Runtime, error) {
	rt := &Runtime{}

	repo, err := c.buildRepository(ctx, rt)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	rt.Repository = repo

	store, err := c.buildBlobStore(ctx, rt)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build blob store: %w", err)
	}
	rt.BlobStore = store
	rt.Cleaner = songbook.NewCleaner(store)

	// The cache reads through the service built below
	var svc songbook.Service
	rt.Cache = client.NewCache(client.FetcherFunc(func(ctx context.Context) ([]*songbook.Song, error) {
		return svc.ListSongs(ctx)
	}), client.WithTTL(c.CacheTTL))

	opts := []songbook.Option{
		songbook.WithRepository(repo),
		songbook.WithBlobStore(store),
		songbook.WithCleaner(rt.Cleaner),
		songbook.WithEventSink(songbook.MultiEventSink{
			songbook.NewLogEventSink(slog.Default()),
			client.NewInvalidationSink(rt.Cache),
		}),
	}
	svc, err = songbook.New(append(opts, options...)...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Service = svc

	return rt, nil
}

// BuildAuthenticator verifies sessions with SessionSecret. Outside
// production an empty secret is replaced by a random one, so tokens only
// work until the process exits.
func (c *ServerConfig) BuildAuthenticator() (*auth.Authenticator, error) {
	secret := c.SessionSecret
	if secret == "" && c.Environment != "production" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		slog.Warn("SESSION_SECRET not set, using a random secret for this process")
	}
	return auth.New(secret)
}

func (c *ServerConfig) buildRepository(ctx context.Context, rt *Runtime) (songbook.Repository, error) {
	switch c.RecordStore {
	case RecordStoreMemory:
		return memory.New(), nil
	case RecordStorePostgres:
		pool, err := c.newPool(ctx)
		if err != nil {
			return nil, err
		}
		rt.pool = pool
		repo := repopg.NewWithPool(pool)
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	case RecordStoreDynamoDB:
		return repodynamo.New(ctx, repodynamo.Config{
			Region:                c.AWS.Region,
			TableName:             c.DynamoDB.TableName,
			AccessKeyID:           c.AWS.AccessKeyID,
			SecretAccessKey:       c.AWS.SecretAccessKey,
			Endpoint:              c.DynamoDB.Endpoint,
			CreateTableIfNotExist: c.DynamoDB.CreateTable,
		})
	default:
		return nil, fmt.Errorf("unsupported record store: %s", c.RecordStore)
	}
}

func (c *ServerConfig) newPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema := c.DBSchema; schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// PingPostgres verifies connectivity to the configured database
func (c *ServerConfig) PingPostgres(ctx context.Context) error {
	if c.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	pool, err := c.newPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (c *ServerConfig) buildBlobStore(ctx context.Context, rt *Runtime) (songbook.BlobStore, error) {
	switch c.BlobStore {
	case BlobStoreMemory:
		return memorystorage.New(), nil
	case BlobStoreFS:
		backend, err := fsstorage.New(fsstorage.Config{
			BaseDir:            c.FS.BaseDir,
			URLPrefix:          c.FS.URLPrefix,
			SignatureSecretKey: c.FS.SignatureSecretKey,
		})
		if err != nil {
			return nil, err
		}
		rt.FS = backend
		return backend, nil
	case BlobStoreS3:
		return s3storage.New(ctx, s3storage.Config{
			Region:          c.AWS.Region,
			Bucket:          c.S3.Bucket,
			AccessKeyID:     c.AWS.AccessKeyID,
			SecretAccessKey: c.AWS.SecretAccessKey,
			Endpoint:        c.S3.Endpoint,
			UsePathStyle:    c.S3.UsePathStyle,
			PublicBaseURL:   c.S3.PublicBaseURL,
			Encryption:      c.S3.Encryption,
			KMSKeyID:        c.S3.KMSKeyID,
			CreateBucket:    c.S3.CreateBucket,
		})
	default:
		return nil, fmt.Errorf("unsupported blob store: %s", c.BlobStore)
	}
}
