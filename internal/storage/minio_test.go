package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licitabrasil/licita-api/internal/config"
)

func TestPresignedURLSetsDownloadName(t *testing.T) {
	documents, err := New(config.StorageConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio-secret",
		Bucket:    "bidding-documents",
		Region:    "us-east-1",
		URLExpiry: 15 * time.Minute,
	}, zerolog.Nop())
	require.NoError(t, err)

	raw, err := documents.PresignedURL(context.Background(), "biddings/abc/doc.pdf", "edital pregão.pdf")
	require.NoError(t, err)

	link, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "http", link.Scheme)
	assert.Equal(t, "/bidding-documents/biddings/abc/doc.pdf", link.Path)
	assert.Equal(t, "900", link.Query().Get("X-Amz-Expires"))
	assert.Contains(t, link.Query().Get("response-content-disposition"), "attachment")
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename=edital.pdf`, ContentDisposition("edital.pdf"))
	assert.Equal(t, `attachment; filename="edital final.pdf"`, ContentDisposition("edital final.pdf"))
	assert.Contains(t, ContentDisposition("pregão.pdf"), "filename*=utf-8''preg%C3%A3o.pdf")
}
