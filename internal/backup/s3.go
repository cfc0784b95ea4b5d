package backup

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Destination — куда складываются выгрузки.
type Destination interface {
	Put(ctx context.Context, key string, body []byte) error
}

// S3Config — параметры бакета.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // MinIO, LocalStack и т.п.
}

// S3Destination кладёт выгрузки в S3.
type S3Destination struct {
	client *s3.Client
	bucket string
}

// NewS3Destination создаёт клиент S3. Учётные данные берутся из
// стандартной цепочки AWS (переменные окружения, профиль, роль).
func NewS3Destination(ctx context.Context, cfg S3Config) (*S3Destination, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации AWS: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Destination{client: client, bucket: cfg.Bucket}, nil
}

func (d *S3Destination) Put(ctx context.Context, key string, body []byte) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("ошибка загрузки в s3://%s/%s: %w", d.bucket, key, err)
	}
	return nil
}
