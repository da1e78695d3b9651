package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/licitabrasil/licita-api/internal/config"
)

// Documents stores bidding notices in an S3 compatible bucket.
type Documents struct {
	client *minio.Client
	bucket string
	expiry time.Duration
	log    zerolog.Logger
}

func New(cfg config.StorageConfig, log zerolog.Logger) (*Documents, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Documents{
		client: client,
		bucket: cfg.Bucket,
		expiry: cfg.URLExpiry,
		log:    log.With().Str("component", "storage").Str("bucket", cfg.Bucket).Logger(),
	}, nil
}

func (d *Documents) EnsureBucket(ctx context.Context) error {
	found, err := d.client.BucketExists(ctx, d.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if found {
		return nil
	}
	if err := d.client.MakeBucket(ctx, d.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	d.log.Info().Msg("bucket created")
	return nil
}

func (d *Documents) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	info, err := d.client.PutObject(ctx, d.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	d.log.Debug().Str("key", key).Int64("size", info.Size).Msg("document stored")
	return nil
}

// PresignedURL returns a temporary GET link that downloads the object as downloadName.
func (d *Documents) PresignedURL(ctx context.Context, key, downloadName string) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", ContentDisposition(downloadName))
	link, err := d.client.PresignedGetObject(ctx, d.bucket, key, d.expiry, params)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return link.String(), nil
}

func ContentDisposition(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}
