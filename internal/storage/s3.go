package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore keeps documents in an S3 bucket under their derived CID, so
// the bucket itself is content-addressed.
type ObjectStore struct {
	client *s3.Client
	bucket string
}

func NewObjectStore(ctx context.Context, bucket, region string) (*ObjectStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &ObjectStore{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

func (o *ObjectStore) Name() string { return "s3" }

func (o *ObjectStore) Store(ctx context.Context, data []byte, filename string) (string, error) {
	key, err := DeriveCID(data)
	if err != nil {
		return "", err
	}

	contentType := http.DetectContentType(data)
	_, err = o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &o.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
		Metadata:    map[string]string{"filename": filename},
	})
	if err != nil {
		return "", fmt.Errorf("uploading to s3: %w", err)
	}
	return key, nil
}
