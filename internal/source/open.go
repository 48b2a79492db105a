package source

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"gamestar/internal/config"
)

// objectGetter is the part of *s3.Client the opener needs.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// newS3Client is replaced in tests.
var newS3Client = func(ctx context.Context, region string) (objectGetter, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Open returns a reader over the catalog document described by src.
// The caller closes it.
func Open(ctx context.Context, src config.Source) (io.ReadCloser, error) {
	switch src.Kind {
	case "file", "":
		f, err := os.Open(src.File.Path)
		if err != nil {
			return nil, fmt.Errorf("open source file: %w", err)
		}
		return f, nil
	case "s3":
		client, err := newS3Client(ctx, src.S3.Region)
		if err != nil {
			return nil, err
		}
		return openObject(ctx, client, src.S3.Bucket, src.S3.Key)
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

func openObject(ctx context.Context, client objectGetter, bucket, key string) (io.ReadCloser, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

// Describe renders src for logs.
func Describe(src config.Source) string {
	if src.Kind == "s3" {
		return fmt.Sprintf("s3://%s/%s", src.S3.Bucket, src.S3.Key)
	}
	return src.File.Path
}
