package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type UploadConfig struct {
	Access   string
	Secret   string
	Bucket   string
	Endpoint string
	Region   string
	// remote paths are Prefix + "/" + file name
	Prefix string
	// if false, connect over http (e.g. local minio)
	Secure       bool
	RequestTrace io.Writer
}

// UploadConfigFromEnv reads RECORDFORM_S3_* variables.
// Returns nil if access key, secret, bucket or endpoint is not set.
func UploadConfigFromEnv() *UploadConfig {
	c := &UploadConfig{
		Access:   os.Getenv("RECORDFORM_S3_ACCESS"),
		Secret:   os.Getenv("RECORDFORM_S3_SECRET"),
		Bucket:   os.Getenv("RECORDFORM_S3_BUCKET"),
		Endpoint: os.Getenv("RECORDFORM_S3_ENDPOINT"),
		Region:   os.Getenv("RECORDFORM_S3_REGION"),
		Prefix:   os.Getenv("RECORDFORM_S3_PREFIX"),
		Secure:   os.Getenv("RECORDFORM_S3_INSECURE") == "",
	}
	if c.validate() != nil {
		return nil
	}
	return c
}

func (c *UploadConfig) validate() error {
	if c == nil {
		return errors.New("must provide config")
	}
	if c.Access == "" || c.Secret == "" || c.Bucket == "" || c.Endpoint == "" {
		return errors.New("must provide Access, Secret, Bucket and Endpoint")
	}
	return nil
}

// RemotePath returns where a local snapshot is stored in the bucket
func (c *UploadConfig) RemotePath(localPath string) string {
	name := filepath.Base(localPath)
	if c.Prefix == "" {
		return name
	}
	return path.Join(c.Prefix, name)
}

type Uploader struct {
	Client *minio.Client
	config *UploadConfig
}

// NewUploader connects to the storage and checks that the bucket exists
func NewUploader(ctx context.Context, config *UploadConfig) (*Uploader, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	mc, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.Access, config.Secret, ""),
		Region: config.Region,
		Secure: config.Secure,
	})
	if err != nil {
		return nil, err
	}
	if config.RequestTrace != nil {
		mc.TraceOn(config.RequestTrace)
	}
	found, err := mc.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", config.Bucket)
	}
	return &Uploader{
		Client: mc,
		config: config,
	}, nil
}

// Upload uploads a snapshot and returns its remote path
func (u *Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	remotePath := u.config.RemotePath(localPath)
	opts := minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	}
	_, err := u.Client.FPutObject(ctx, u.config.Bucket, remotePath, localPath, opts)
	if err != nil {
		return "", fmt.Errorf("upload of '%s' as '%s' failed: %w", localPath, remotePath, err)
	}
	return remotePath, nil
}

// Download fetches a snapshot from the bucket to dstPath atomically
func (u *Uploader) Download(ctx context.Context, remotePath string, dstPath string) error {
	obj, err := u.Client.GetObject(ctx, u.config.Bucket, remotePath, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()
	if err = os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return err
	}
	return writeAtomically(dstPath, func(w io.Writer) error {
		_, err := io.Copy(w, obj)
		return err
	})
}
