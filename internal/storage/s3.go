package storage

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"alcyxob/gym-manager/internal/config"
)

// s3Media keeps workout media in one bucket of an S3-compatible store.
type s3Media struct {
	api     *s3.Client
	presign *s3.PresignClient
	bucket  string
	log     logrus.FieldLogger
}

// NewS3Storage creates the media store. A custom endpoint (MinIO, Spaces) switches
// the client to path-style addressing; without static keys the default AWS chain applies.
func NewS3Storage(ctx context.Context, cfg config.S3Config, log logrus.FieldLogger) (FileStorage, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		static := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(static))
	}
	sdkCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	api := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if cfg.Endpoint == "" {
			return
		}
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	log = log.WithFields(logrus.Fields{"component": "media", "bucket": cfg.BucketName})
	log.WithField("endpoint", cfg.Endpoint).Info("media storage ready")
	return &s3Media{api: api, presign: s3.NewPresignClient(api), bucket: cfg.BucketName, log: log}, nil
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultPresignedURLExpiry
	}
	return ttl
}

func (m *s3Media) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	// Content-Type is signed, so the uploader must send the same header.
	req, err := m.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttlOrDefault(ttl)))
	if err != nil {
		m.log.WithError(err).WithField("key", key).Error("presigning media upload failed")
		return "", err
	}
	return req.URL, nil
}

func (m *s3Media) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := m.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttlOrDefault(ttl)))
	if err != nil {
		m.log.WithError(err).WithField("key", key).Error("presigning media download failed")
		return "", err
	}
	return req.URL, nil
}

func (m *s3Media) Remove(ctx context.Context, key string) error {
	if _, err := m.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	}); err != nil {
		m.log.WithError(err).WithField("key", key).Error("removing media object failed")
		return err
	}
	m.log.WithField("key", key).Debug("media object removed")
	return nil
}
