package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvStores(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		wantRecord string
		wantBlob   string
		wantError  bool
	}{
		{"empty defaults to memory", nil, RecordStoreMemory, BlobStoreMemory, false},
		{"dynamodb and s3", map[string]string{"RECORD_STORE": "dynamodb", "BLOB_STORE": "s3"}, RecordStoreDynamoDB, BlobStoreS3, false},
		{"case insensitive", map[string]string{"RECORD_STORE": "DynamoDB"}, RecordStoreDynamoDB, BlobStoreMemory, false},
		{"database url implies postgres", map[string]string{"DATABASE_URL": "postgres://u:p@localhost/db"}, RecordStorePostgres, BlobStoreMemory, false},
		{"explicit store wins over database url", map[string]string{"DATABASE_URL": "postgres://u:p@localhost/db", "RECORD_STORE": "memory"}, RecordStoreMemory, BlobStoreMemory, false},
		{"postgres without url", map[string]string{"RECORD_STORE": "postgres"}, "", "", true},
		{"unknown blob store", map[string]string{"BLOB_STORE": "gcs"}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(WithEnv(""))
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRecord, cfg.RecordStore)
			assert.Equal(t, tt.wantBlob, cfg.BlobStore)
		})
	}
}

func TestEnvAWS(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "shh")
	t.Setenv("DYNAMODB_TABLE_NAME", "songs-test")
	t.Setenv("DYNAMODB_ENDPOINT", "http://localhost:8000")
	t.Setenv("S3_BUCKET_NAME", "media-test")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("S3_USE_PATH_STYLE", "true")
	t.Setenv("S3_SSE", "aws:kms")
	t.Setenv("S3_KMS_KEY_ID", "alias/songbook")

	cfg, err := Load(WithEnv(""))
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, "AKIA", cfg.AWS.AccessKeyID)
	assert.Equal(t, "shh", cfg.AWS.SecretAccessKey)
	assert.Equal(t, "songs-test", cfg.DynamoDB.TableName)
	assert.Equal(t, "http://localhost:8000", cfg.DynamoDB.Endpoint)
	assert.Equal(t, "media-test", cfg.S3.Bucket)
	assert.Equal(t, "http://localhost:9000", cfg.S3.Endpoint)
	assert.True(t, cfg.S3.UsePathStyle)
	assert.Equal(t, "aws:kms", cfg.S3.Encryption)
	assert.Equal(t, "alias/songbook", cfg.S3.KMSKeyID)
}

func TestEnvInvalidValues(t *testing.T) {
	t.Run("bool", func(t *testing.T) {
		t.Setenv("S3_USE_PATH_STYLE", "sometimes")
		_, err := Load(WithEnv(""))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "S3_USE_PATH_STYLE")
	})

	t.Run("duration", func(t *testing.T) {
		t.Setenv("CACHE_TTL", "soon")
		_, err := Load(WithEnv(""))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CACHE_TTL")
	})
}

func TestEnvMisc(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("CACHE_TTL", "45s")
	t.Setenv("BLOB_STORE", "fs")
	t.Setenv("FS_BASE_DIR", t.TempDir())
	t.Setenv("FS_URL_PREFIX", "http://example.com/storage")
	t.Setenv("FS_SIGNATURE_SECRET_KEY", "sig")

	cfg, err := Load(WithEnv(""))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "s3cret", cfg.SessionSecret)
	assert.Equal(t, 45*time.Second, cfg.CacheTTL)
	assert.Equal(t, BlobStoreFS, cfg.BlobStore)
	assert.Equal(t, "http://example.com/storage", cfg.FS.URLPrefix)
	assert.Equal(t, "sig", cfg.FS.SignatureSecretKey)
}

func TestEnvPrefix(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("SONGBOOK_PORT", "4000")
	t.Setenv("S3_BUCKET_NAME", "plain")

	cfg, err := Load(WithEnv("SONGBOOK_"))
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Port, "prefixed variable wins")
	assert.Equal(t, "plain", cfg.S3.Bucket, "plain variable still applies")
}

func TestEnvKeepsEarlierOptions(t *testing.T) {
	cfg, err := Load(WithPort("9999"), WithEnv(""))
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Port)
}

func TestEnvUsage(t *testing.T) {
	usage, err := EnvUsage()
	require.NoError(t, err)
	for _, key := range []string{"RECORD_STORE", "BLOB_STORE", "DYNAMODB_TABLE_NAME", "S3_BUCKET_NAME", "SESSION_SECRET"} {
		assert.True(t, strings.Contains(usage, key), key)
	}
}
