// Package storage resolves product image references against the
// object-storage bucket that backs the catalog media.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ImageResolver turns the bare object keys stored in the product tables
// into public URLs. Keys that are already absolute pass through.
type ImageResolver struct {
	client    *s3.Client
	bucket    string
	publicURL string
	log       zerolog.Logger
}

// ResolverConfig holds the object-storage settings for image URLs.
type ResolverConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
}

// NewImageResolver builds the resolver. With no endpoint configured it
// degrades to passthrough, which is what local development wants.
func NewImageResolver(ctx context.Context, cfg ResolverConfig, log zerolog.Logger) (*ImageResolver, error) {
	r := &ImageResolver{
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		log:       log,
	}
	if cfg.Endpoint == "" {
		return r, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	r.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = &cfg.Endpoint
		o.UsePathStyle = true
	})
	return r, nil
}

// Resolve maps an image reference to a servable URL. Absolute URLs and
// empty references are returned unchanged.
func (r *ImageResolver) Resolve(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if r.publicURL == "" {
		return ref
	}
	return r.publicURL + "/" + strings.TrimLeft(ref, "/")
}

// PresignUpload issues a short-lived PUT URL for the admin image upload
// flow. Requires a configured storage client.
func (r *ImageResolver) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if r.client == nil {
		return "", fmt.Errorf("object storage not configured")
	}
	presigner := s3.NewPresignClient(r.client)
	req, err := presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      &r.bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign upload: %w", err)
	}
	return req.URL, nil
}

// Healthy reports whether the storage backend answers. Passthrough mode
// is always healthy.
func (r *ImageResolver) Healthy(ctx context.Context) bool {
	if r.client == nil {
		return true
	}
	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &r.bucket})
	if err != nil {
		r.log.Warn().Err(err).Msg("storage health check failed")
		return false
	}
	return true
}
