// Package source discovers and reads raw JSON input files from the local
// filesystem or S3. Input data is laid out under nested prefixes (song data
// by identifier letters, log data by year/month), so discovery is a
// recursive walk for .json keys rather than a flat listing.
package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Store lists and reads the JSON files under one input base path.
type Store interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, key string) ([]byte, error)
}

// Open returns a Store for a local directory or an s3://bucket/prefix path.
// The session may be nil for local paths.
func Open(path string, sess *session.Session) (Store, error) {
	if !strings.HasPrefix(path, "s3://") {
		return &LocalStore{Root: path}, nil
	}
	if sess == nil {
		return nil, fmt.Errorf("s3 path %s requires an aws session", path)
	}
	rest := strings.TrimPrefix(path, "s3://")
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, fmt.Errorf("invalid s3 path %q", path)
	}
	return &S3Store{
		Client:     s3.New(sess),
		Downloader: s3manager.NewDownloader(sess),
		Bucket:     bucket,
		Prefix:     prefix,
	}, nil
}

// LocalStore reads input files from a directory tree.
type LocalStore struct {
	Root string
}

func (s *LocalStore) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".json") {
			keys = append(keys, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.Root, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *LocalStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// S3Store reads input files from an S3 bucket prefix.
type S3Store struct {
	Client     *s3.S3
	Downloader *s3manager.Downloader
	Bucket     string
	Prefix     string
}

func (s *S3Store) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.Client.ListObjectsPagesWithContext(ctx,
		&s3.ListObjectsInput{
			Bucket: aws.String(s.Bucket),
			Prefix: aws.String(s.Prefix),
		},
		func(page *s3.ListObjectsOutput, lastPage bool) bool {
			for _, obj := range page.Contents {
				if strings.HasSuffix(*obj.Key, ".json") {
					keys = append(keys, *obj.Key)
				}
			}
			return !lastPage
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list s3://%s/%s: %w", s.Bucket, s.Prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *S3Store) Read(ctx context.Context, key string) ([]byte, error) {
	buffer := &aws.WriteAtBuffer{}
	_, err := s.Downloader.DownloadWithContext(ctx, buffer,
		&s3.GetObjectInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(key),
		})
	if err != nil {
		return nil, fmt.Errorf("failed to download s3://%s/%s: %w", s.Bucket, key, err)
	}
	return buffer.Bytes(), nil
}
