// Package s3io is the S3 data path of the tests: objects are written with
// generated payloads, recorded through the data manager and read back to
// verify their checksums.
package s3io

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"cortx-e2e/common/cterror"
	"cortx-e2e/common/datagen"
	"cortx-e2e/common/datamanager"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// S3API is the part of the s3 client used here, for dependency injection and testing
type S3API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	PathStyle bool
}

type Client struct {
	s3 S3API
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, cterror.NewException(cterror.InvalidConfig, "s3 access and secret keys are required")
	}
	configOpts := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	}
	if cfg.Region != "" {
		configOpts = append(configOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, cterror.WrapException(err, cterror.InvalidConfig, "loading aws config")
	}
	return NewWithAPI(s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})), nil
}

func NewWithAPI(api S3API) *Client {
	return &Client{s3: api}
}

// CreateBucket succeeds if the bucket already exists.
func (c *Client) CreateBucket(ctx context.Context, bucket string) error {
	logf.Log.V(1).Info("Creating S3 bucket", "bucket", bucket)
	_, err := c.s3.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		var bucketAlreadyExists *types.BucketAlreadyExists
		var bucketAlreadyOwnedByYou *types.BucketAlreadyOwnedByYou
		if errors.As(err, &bucketAlreadyExists) || errors.As(err, &bucketAlreadyOwnedByYou) {
			return nil
		}
		return cterror.WrapException(err, cterror.S3BucketError, "create %s", bucket)
	}
	return nil
}

// DeleteBucket succeeds if the bucket does not exist.
func (c *Client) DeleteBucket(ctx context.Context, bucket string) error {
	logf.Log.V(1).Info("Deleting S3 bucket", "bucket", bucket)
	_, err := c.s3.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		var noSuchBucketErr *types.NoSuchBucket
		if errors.As(err, &noSuchBucketErr) {
			return nil
		}
		return cterror.WrapException(err, cterror.S3BucketError, "delete %s", bucket)
	}
	return nil
}

// EmptyAndDeleteBucket deletes every object of bucket and then the bucket.
func (c *Client) EmptyAndDeleteBucket(ctx context.Context, bucket string) error {
	keys, err := c.ListObjects(ctx, bucket, "")
	if err != nil {
		var noSuchBucketErr *types.NoSuchBucket
		if errors.As(err, &noSuchBucketErr) {
			return nil
		}
		return err
	}
	for _, key := range keys {
		if err := c.DeleteObject(ctx, bucket, key); err != nil {
			return err
		}
	}
	return c.DeleteBucket(ctx, bucket)
}

// PutGenerated uploads the payload generated for seed and size under key and
// returns the record describing it.
func (c *Client) PutGenerated(ctx context.Context, bucket, key string, seed, size int64) (datamanager.FileRecord, error) {
	payload := datagen.Bytes(seed, size)
	sum, _, err := datagen.Checksum(bytes.NewReader(payload))
	if err != nil {
		return datamanager.FileRecord{}, err
	}
	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return datamanager.FileRecord{}, cterror.WrapException(err, cterror.S3Error, "put %s/%s", bucket, key)
	}
	return datamanager.FileRecord{
		Name:     key,
		Checksum: sum,
		Size:     size,
		Seed:     seed,
		Mtime:    time.Now().UTC(),
	}, nil
}

// VerifyObject reads the object back and compares it with rec.
func (c *Client) VerifyObject(ctx context.Context, bucket string, rec datamanager.FileRecord) error {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(rec.Name)})
	if err != nil {
		return cterror.WrapException(err, cterror.S3Error, "get %s/%s", bucket, rec.Name)
	}
	defer out.Body.Close()
	sum, size, err := datagen.Checksum(out.Body)
	if err != nil {
		return cterror.WrapException(err, cterror.S3Error, "reading %s/%s", bucket, rec.Name)
	}
	if sum != rec.Checksum || size != rec.Size {
		return cterror.NewException(cterror.DataIntegrityError, "%s/%s read %d bytes md5 %s, recorded %d bytes md5 %s",
			bucket, rec.Name, size, sum, rec.Size, rec.Checksum)
	}
	return nil
}

func (c *Client) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return cterror.WrapException(err, cterror.S3Error, "delete %s/%s", bucket, key)
	}
	return nil
}

// ListObjects returns the keys of bucket starting with prefix, across all pages.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.s3, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return keys, cterror.WrapException(err, cterror.S3Error, "list %s/%s", bucket, prefix)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// BucketName makes a bucket name from parts, lower case and at most 63 characters.
func BucketName(parts ...string) string {
	name := strings.ToLower(strings.Join(parts, "-"))
	name = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '.' {
			return r
		}
		return '-'
	}, name)
	if len(name) > 63 {
		name = name[:63]
	}
	return strings.Trim(name, "-.")
}
