// Package s3store stores remote saves in an S3 compatible bucket.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/savesync/savesync/internal/backend"
	"github.com/savesync/savesync/internal/utils"
)

const documentContentType = "application/json"

type Config struct {
	Bucket    string `mapstructure:"bucket" json:"bucket"`
	Region    string `mapstructure:"region" json:"region"`
	AccessKey string `mapstructure:"access_key" json:"access_key,omitempty"`
	SecretKey string `mapstructure:"secret_key" json:"secret_key,omitempty"`
	Endpoint  string `mapstructure:"endpoint" json:"endpoint,omitempty"`
	Prefix    string `mapstructure:"prefix" json:"prefix,omitempty"`
}

// objectAPI is the subset of the S3 client the backend needs.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Backend struct {
	client objectAPI
	bucket string
	prefix string
}

// New connects to the bucket described by cfg. Without static keys the
// default AWS credential chain is used.
func New(ctx context.Context, cfg *Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket cannot be empty")
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}

	opts := []func(*config.LoadOptions) error{
		config.WithHTTPClient(httpClient),
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func newWithClient(client objectAPI, bucket, prefix string) *Backend {
	return &Backend{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (b *Backend) String() string {
	if b.prefix == "" {
		return "s3://" + b.bucket
	}
	return "s3://" + b.bucket + "/" + b.prefix
}

func (b *Backend) LoadDocument(ctx context.Context, name string) ([]byte, error) {
	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &b.bucket,
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		return nil, b.wrap("get document", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read document %q: %w", name, err)
	}
	return data, nil
}

func (b *Backend) StoreDocument(ctx context.Context, name string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &b.bucket,
		Key:           aws.String(b.key(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(documentContentType),
	})
	if err != nil {
		return b.wrap("put document", name, err)
	}
	return nil
}

func (b *Backend) LoadArtifact(ctx context.Context, name, destination string) error {
	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket:       &b.bucket,
		Key:          aws.String(b.key(name)),
		ChecksumMode: types.ChecksumModeEnabled,
	})
	if err != nil {
		return b.wrap("get artifact", name, err)
	}
	defer resp.Body.Close()

	if err := utils.EnsureParent(destination); err != nil {
		return err
	}
	out, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("create %s: %w", destination, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("download artifact %q: %w", name, err)
	}
	return out.Close()
}

func (b *Backend) StoreArtifact(ctx context.Context, name, source string) error {
	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open %s: %w", source, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", source, err)
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &b.bucket,
		Key:           aws.String(b.key(name)),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return b.wrap("put artifact", name, err)
	}
	return nil
}

// RenameArtifact copies the object to its new key and removes the old one.
// S3 has no native rename.
func (b *Backend) RenameArtifact(ctx context.Context, oldName, newName string) error {
	_, err := b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     &b.bucket,
		CopySource: aws.String(fmt.Sprintf("%s/%s", b.bucket, b.key(oldName))),
		Key:        aws.String(b.key(newName)),
	})
	if err != nil {
		return b.wrap("copy artifact", oldName, err)
	}

	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &b.bucket,
		Key:    aws.String(b.key(oldName)),
	})
	if err != nil {
		return b.wrap("delete artifact", oldName, err)
	}
	return nil
}

// DeleteArtifact checks for the object first because DeleteObject succeeds
// on missing keys.
func (b *Backend) DeleteArtifact(ctx context.Context, name string) error {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &b.bucket,
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		return b.wrap("head artifact", name, err)
	}

	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &b.bucket,
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		return b.wrap("delete artifact", name, err)
	}
	return nil
}

func (b *Backend) key(name string) string {
	if b.prefix == "" {
		return name
	}
	return path.Join(b.prefix, name)
}

func (b *Backend) wrap(op, name string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s %q: %w", op, name, backend.ErrNotFound)
	}
	return fmt.Errorf("%s %q: %w", op, name, err)
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
