package publish

import (
	"bytes"
	"context"
	"mime"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/skiff-dev/skiff/internal/errors"
)

// ObjectPutter is the part of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader publishes an exported dist directory to an S3 bucket.
type Uploader struct {
	client ObjectPutter
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewUploader creates an uploader targeting bucket under an optional
// key prefix.
func NewUploader(client ObjectPutter, bucket, prefix string, logger zerolog.Logger) *Uploader {
	return &Uploader{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}
}

// Upload walks dir and puts every regular file under the configured
// prefix, keyed by its dir-relative path. The first failure aborts the
// upload.
func (u *Uploader) Upload(ctx context.Context, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return exportErr(err)
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return exportErr(err)
		}
		key := filepath.ToSlash(rel)
		if u.prefix != "" {
			key = u.prefix + "/" + key
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return exportErr(err)
		}

		_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(u.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentTypeFor(path)),
		})
		if err != nil {
			return errors.New("E400").
				WithDetail("upload " + key + " to s3://" + u.bucket + ": " + err.Error()).
				WithSuggestion("Check the bucket name and AWS credentials").
				Wrap(err)
		}

		u.logger.Debug().Str("key", key).Int64("bytes", info.Size()).Msg("uploaded")
		return nil
	})
}

// contentTypeFor maps artifact files to content types.
func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".bundle":
		return "application/javascript"
	case ".map", ".json":
		return "application/json"
	case ".hbc":
		return "application/octet-stream"
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
