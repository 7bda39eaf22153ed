// Package source opens report inputs. Imports read either a local file or an
// object in S3 (s3://bucket/key); either way the caller gets a plain stream,
// and the pipeline stays unaware of where bytes come from.
package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Input is an opened report stream plus its display name for the ledger.
type Input struct {
	io.ReadCloser
	Name string
	Size int64 // -1 when unknown
}

// Open resolves a path or s3:// URL into a readable stream.
func Open(ctx context.Context, location string) (*Input, error) {
	if strings.HasPrefix(location, "s3://") {
		return openS3(ctx, location)
	}
	return openFile(location)
}

func openFile(p string) (*Input, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	size := int64(-1)
	if fi, err := f.Stat(); err == nil {
		size = fi.Size()
	}
	return &Input{ReadCloser: f, Name: path.Base(p), Size: size}, nil
}

func openS3(ctx context.Context, location string) (*Input, error) {
	u, err := url.Parse(location)
	if err != nil || u.Host == "" || u.Path == "" {
		return nil, fmt.Errorf("invalid S3 location %q", location)
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("S3 GetObject %s/%s: %w", bucket, key, err)
	}

	size := int64(-1)
	if resp.ContentLength != nil {
		size = *resp.ContentLength
	}
	return &Input{ReadCloser: resp.Body, Name: path.Base(key), Size: size}, nil
}
