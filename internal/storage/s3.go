// Package storage is the media collaborator boundary: it takes a raw payload
// and hands back a URL the message can reference.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Kind identifies the payload type for key layout and content type.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

type MediaStore interface {
	Store(ctx context.Context, payload []byte, kind Kind) (string, error)
}

// Disabled rejects every upload. Installed when no bucket is configured so
// text messages keep flowing while media sends fail cleanly.
type Disabled struct{}

func (Disabled) Store(context.Context, []byte, Kind) (string, error) {
	return "", errors.New("media storage not configured")
}

type S3Store struct {
	uploader *manager.Uploader
	bucket   string
	region   string
}

func NewS3Store(ctx context.Context, region, bucket string) (*S3Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	return &S3Store{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		region:   region,
	}, nil
}

func (s *S3Store) Store(ctx context.Context, payload []byte, kind Kind) (string, error) {
	key := string(kind) + "/" + uuid.New().String()
	contentType := "image/jpeg"
	if kind == KindVideo {
		contentType = "video/mp4"
	}
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	escaped := strings.ReplaceAll(url.PathEscape(key), "%2F", "/")
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped), nil
}
