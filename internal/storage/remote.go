package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"clipforge/internal/config"
)

// Remote stores assets in an S3-compatible bucket.
type Remote struct {
	client *minio.Client
	bucket string
}

// NewRemote builds an S3 client from configuration. The bucket must already
// exist; object creation does not attempt to provision it.
func NewRemote(cfg config.Storage) (*Remote, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 storage requires endpoint and bucket")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}
	return &Remote{client: client, bucket: cfg.Bucket}, nil
}

func (r *Remote) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	_, err = r.client.PutObject(ctx, r.bucket, cleaned, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("uploading asset %s: %w", key, err)
	}
	return nil
}

func (r *Remote) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	obj, err := r.client.GetObject(ctx, r.bucket, cleaned, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetching asset %s: %w", key, err)
	}
	return obj, nil
}

func (r *Remote) Delete(ctx context.Context, key string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := r.client.RemoveObject(ctx, r.bucket, cleaned, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("deleting asset %s: %w", key, err)
	}
	return nil
}

func (r *Remote) List(ctx context.Context, prefix string) ([]Asset, error) {
	cleaned, err := cleanKey(prefix)
	if err != nil {
		return nil, err
	}
	var out []Asset
	for obj := range r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{
		Prefix:    cleaned + "/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing %s: %w", prefix, obj.Err)
		}
		out = append(out, Asset{
			Key:          obj.Key,
			ContentType:  obj.ContentType,
			SizeBytes:    obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return out, nil
}

func (r *Remote) Move(ctx context.Context, srcKey, dstKey string) error {
	src, err := cleanKey(srcKey)
	if err != nil {
		return err
	}
	dst, err := cleanKey(dstKey)
	if err != nil {
		return err
	}
	_, err = r.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: r.bucket, Object: dst},
		minio.CopySrcOptions{Bucket: r.bucket, Object: src})
	if err != nil {
		return fmt.Errorf("copying %s to %s: %w", srcKey, dstKey, err)
	}
	if err := r.client.RemoveObject(ctx, r.bucket, src, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("removing moved asset %s: %w", srcKey, err)
	}
	return nil
}

func (r *Remote) Presign(ctx context.Context, key string, expiry time.Duration) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	u, err := r.client.PresignedGetObject(ctx, r.bucket, cleaned, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presigning asset %s: %w", key, err)
	}
	return u.String(), nil
}
