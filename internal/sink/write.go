package sink

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"go.uber.org/zap"
)

const parquetParallelism = 4

// WriteTable writes one table, grouped into partition directories by the
// partition values of each row. A nil partitions func writes the whole table
// into a single directory. Prior output for the table is removed first; an
// empty row set leaves the table present but empty.
func WriteTable[T any](ctx context.Context, w *Writer, table string, rows []T, partitions func(T) []Partition) error {
	if err := w.truncateTable(ctx, table); err != nil {
		return err
	}

	groups := make(map[string][]T)
	var order []string
	for _, r := range rows {
		dir := ""
		if partitions != nil {
			dir = partitionDir(partitions(r))
		}
		if _, ok := groups[dir]; !ok {
			order = append(order, dir)
		}
		groups[dir] = append(groups[dir], r)
	}

	for _, dir := range order {
		if err := writePart(ctx, w, table, dir, groups[dir]); err != nil {
			return err
		}
	}

	w.logger.Info("table written",
		zap.String("table", table),
		zap.Int("rows", len(rows)),
		zap.Int("partitions", len(order)))
	return nil
}

// writePart writes one partition's rows to a single part file. S3 parts are
// staged locally first, then uploaded and verified, matching the local-write
// path byte for byte.
func writePart[T any](ctx context.Context, w *Writer, table, dir string, rows []T) error {
	fileName := fmt.Sprintf("part-00000-%s.parquet", w.runID)

	if !w.remote() {
		target := filepath.Join(w.base, table, filepath.FromSlash(dir))
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create partition directory %s: %w", target, err)
		}
		return writeParquetFile(filepath.Join(target, fileName), rows)
	}

	localFile := filepath.Join(w.tempDir, uuid.NewString()+".parquet")
	if err := writeParquetFile(localFile, rows); err != nil {
		return err
	}
	defer os.Remove(localFile)

	key := path.Join(w.prefix, table, dir, fileName)
	file, err := os.Open(localFile)
	if err != nil {
		return fmt.Errorf("failed to open %s for upload: %w", localFile, err)
	}
	defer file.Close()

	_, err = w.up.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(key),
		Body:   file,
		Metadata: map[string]*string{
			"record-count": aws.String(strconv.Itoa(len(rows))),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", w.bucket, key, err)
	}

	_, err = w.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("upload verification failed for s3://%s/%s: %w", w.bucket, key, err)
	}
	return nil
}

// writeParquetFile writes rows as one Snappy-compressed parquet file.
func writeParquetFile[T any](path string, rows []T) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file %s: %w", path, err)
	}

	pw, err := writer.NewParquetWriter(fw, new(T), parquetParallelism)
	if err != nil {
		fw.Close()
		os.Remove(path)
		return fmt.Errorf("failed to create parquet writer for %s: %w", path, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range rows {
		if err := pw.Write(r); err != nil {
			pw.WriteStop()
			fw.Close()
			os.Remove(path)
			return fmt.Errorf("failed to write record to %s: %w", path, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		os.Remove(path)
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	if err := fw.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
