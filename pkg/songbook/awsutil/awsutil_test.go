package awsutil

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_StaticCredentials(t *testing.T) {
	cfg, err := LoadConfig(context.Background(), Credentials{
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultRegion, cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-key", creds.AccessKeyID)
}

func TestLoadConfig_Region(t *testing.T) {
	cfg, err := LoadConfig(context.Background(), Credentials{Region: "us-west-2"})
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", cfg.Region)
}

func TestErrorCode(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "ConditionalCheckFailedException", Message: "nope"}
	wrapped := fmt.Errorf("put item: %w", apiErr)

	assert.Equal(t, "ConditionalCheckFailedException", ErrorCode(wrapped))
	assert.True(t, HasErrorCode(wrapped, "Other", "ConditionalCheckFailedException"))
	assert.False(t, HasErrorCode(errors.New("plain"), "ConditionalCheckFailedException"))
	assert.Equal(t, "", ErrorCode(nil))
}
