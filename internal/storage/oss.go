package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"go.uber.org/zap"

	"github.com/asksenior/backend/internal/config"
	"github.com/asksenior/backend/internal/logger"
	"github.com/asksenior/backend/internal/models"
)

// OSS stores objects in an Aliyun OSS bucket.
type OSS struct {
	client  *oss.Client
	bucket  string
	baseURL string
}

var _ ObjectStore = (*OSS)(nil)

// New returns an OSS store when cfg names a bucket, and Disabled otherwise.
func New(cfg config.Storage) ObjectStore {
	if !cfg.Enabled() {
		logger.L.Warn("object storage not configured, uploads are disabled")
		return Disabled{}
	}
	ossCfg := oss.LoadDefaultConfig().
		WithRegion(cfg.Region).
		WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.AccessKeySecret,
			),
		)
	if cfg.Endpoint != "" {
		ossCfg = ossCfg.WithEndpoint(cfg.Endpoint)
	}
	return &OSS{
		client:  oss.NewClient(ossCfg),
		bucket:  cfg.Bucket,
		baseURL: publicBaseURL(cfg),
	}
}

func publicBaseURL(cfg config.Storage) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(cfg.PublicBaseURL, "/")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("oss-%s.aliyuncs.com", cfg.Region)
	}
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s", cfg.Bucket, endpoint)
}

func (s *OSS) Upload(ctx context.Context, data []byte, objectPath, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &oss.PutObjectRequest{
		Bucket:      oss.Ptr(s.bucket),
		Key:         oss.Ptr(objectPath),
		ContentType: oss.Ptr(contentType),
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		return "", models.NewUpstreamError("upload "+objectPath, err)
	}
	return s.baseURL + "/" + objectPath, nil
}

// Delete removes every path, continuing past failures.
func (s *OSS) Delete(ctx context.Context, objectPaths []string) error {
	var errs []error
	for _, p := range objectPaths {
		if p == "" {
			continue
		}
		_, err := s.client.DeleteObject(ctx, &oss.DeleteObjectRequest{
			Bucket: oss.Ptr(s.bucket),
			Key:    oss.Ptr(p),
		})
		if err != nil {
			logger.L.Warn("failed to delete object", zap.String("path", p), zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return models.NewUpstreamError("delete objects", errors.Join(errs...))
	}
	return nil
}
