package s3blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	// archiveContentType marks every archive object as newline-delimited
	// JSON.
	archiveContentType = "application/x-ndjson"

	// partSize is the multipart chunk size and the payload size above which
	// Upload switches to the multipart path. 5 MiB is the S3 minimum part
	// size.
	partSize int64 = 5 << 20
)

// Writer uploads archive payloads to the client's bucket. Everything it
// writes is JSONL; the content type is fixed here rather than passed per
// call.
type Writer struct {
	client *s3.Client
	bucket string
}

// NewWriter creates a Writer backed by c.
func NewWriter(c *Client) *Writer {
	return &Writer{
		client: c.S3(),
		bucket: c.Bucket(),
	}
}

// Upload writes one archive object under key. Payloads up to one part go as
// a single PutObject; larger ones go through the SDK's multipart uploader,
// which splits and uploads parts concurrently.
func (w *Writer) Upload(ctx context.Context, key string, payload []byte) error {
	if useMultipart(int64(len(payload))) {
		return w.putMultipart(ctx, key, payload)
	}
	return w.put(ctx, key, payload)
}

// useMultipart reports whether a payload of the given size needs more than
// one part.
func useMultipart(size int64) bool {
	return size > partSize
}

func (w *Writer) put(ctx context.Context, key string, payload []byte) error {
	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(archiveContentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put %s: %w", key, err)
	}
	return nil
}

func (w *Writer) putMultipart(ctx context.Context, key string, payload []byte) error {
	uploader := manager.NewUploader(w.client, func(u *manager.Uploader) {
		u.PartSize = partSize
	})

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(archiveContentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: multipart upload %s: %w", key, err)
	}
	return nil
}
