// Package sink persists the derived tables as partitioned, Snappy-compressed
// Parquet files. Each table occupies its own directory under the output base
// path; partitioned tables nest key=value subdirectories. A write fully
// overwrites the table directory, so a run never mixes with prior output.
package sink

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"
)

// Partition is one key=value component of a partitioned table's directory
// layout, e.g. year=2018/month=11.
type Partition struct {
	Key   string
	Value string
}

// Writer writes tables under one output base path, local or s3://.
type Writer struct {
	base    string
	bucket  string
	prefix  string
	client  *s3.S3
	up      *s3manager.Uploader
	tempDir string
	runID   string
	logger  *zap.Logger
}

// NewWriter returns a Writer for the output path. The session may be nil for
// local paths; the run id lands in part file names so reruns are
// distinguishable in object listings.
func NewWriter(outputPath string, sess *session.Session, runID string, logger *zap.Logger) (*Writer, error) {
	w := &Writer{runID: runID, logger: logger}

	if !strings.HasPrefix(outputPath, "s3://") {
		w.base = outputPath
		if err := os.MkdirAll(outputPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", outputPath, err)
		}
		return w, nil
	}

	if sess == nil {
		return nil, fmt.Errorf("s3 output %s requires an aws session", outputPath)
	}
	rest := strings.TrimPrefix(outputPath, "s3://")
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, fmt.Errorf("invalid s3 output path %q", outputPath)
	}
	tempDir, err := os.MkdirTemp("", "songlake-parquet-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	w.bucket = bucket
	w.prefix = strings.TrimSuffix(prefix, "/")
	w.client = s3.New(sess)
	w.up = s3manager.NewUploader(sess)
	w.tempDir = tempDir
	return w, nil
}

// Close removes the local staging area used for S3 uploads.
func (w *Writer) Close() {
	if w.tempDir == "" {
		return
	}
	if err := os.RemoveAll(w.tempDir); err != nil {
		w.logger.Warn("failed to clean up temp directory",
			zap.String("dir", w.tempDir), zap.Error(err))
	}
}

func (w *Writer) remote() bool { return w.bucket != "" }

// truncateTable clears any prior output for the table. Local tables get the
// directory recreated empty; on S3 every object under the table prefix is
// deleted.
func (w *Writer) truncateTable(ctx context.Context, table string) error {
	if !w.remote() {
		dir := filepath.Join(w.base, table)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to clear table directory %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create table directory %s: %w", dir, err)
		}
		return nil
	}

	prefix := path.Join(w.prefix, table) + "/"
	var keys []string
	err := w.client.ListObjectsPagesWithContext(ctx,
		&s3.ListObjectsInput{Bucket: aws.String(w.bucket), Prefix: aws.String(prefix)},
		func(page *s3.ListObjectsOutput, lastPage bool) bool {
			for _, obj := range page.Contents {
				keys = append(keys, *obj.Key)
			}
			return !lastPage
		})
	if err != nil {
		return fmt.Errorf("failed to list s3://%s/%s: %w", w.bucket, prefix, err)
	}
	for _, key := range keys {
		_, err := w.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(w.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to delete s3://%s/%s: %w", w.bucket, key, err)
		}
	}
	return nil
}

func partitionDir(parts []Partition) string {
	if len(parts) == 0 {
		return ""
	}
	segments := make([]string, len(parts))
	for i, p := range parts {
		segments[i] = p.Key + "=" + p.Value
	}
	return path.Join(segments...)
}
