package clients

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Client_ObjectKeyKeepsPrefixAndName(t *testing.T) {
	c, err := NewS3Client(context.Background(), S3Config{
		Endpoint: "localhost:9000",
		Bucket:   "notices",
		Prefix:   "notices/",
	})
	require.NoError(t, err)

	key, err := c.objectKey("dir/mise-en-demeure-Jean-Dupont.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "notices/"))
	assert.Equal(t, "mise-en-demeure-Jean-Dupont.pdf", OriginalName(key))
	assert.Equal(t, 15*time.Minute, c.ttl)
}

func TestS3Client_URLIsPresignedLocally(t *testing.T) {
	c, err := NewS3Client(context.Background(), S3Config{
		Endpoint:        "localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		Bucket:          "notices",
		Region:          "eu-west-3",
		URLTTL:          time.Minute,
	})
	require.NoError(t, err)

	raw, err := c.URL(context.Background(), "0a1b2c3d4e5f6a7b_notice.pdf")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/notices/0a1b2c3d4e5f6a7b_notice.pdf", u.Path)
	assert.Equal(t, "60", u.Query().Get("X-Amz-Expires"))
	assert.Equal(t, `attachment; filename="notice.pdf"`, u.Query().Get("response-content-disposition"))
}
