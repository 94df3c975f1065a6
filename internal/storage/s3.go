package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/lumenai/skillforge/internal/domain"
)

// ErrObjectNotFound is returned when a key is absent from the store
var ErrObjectNotFound = domain.NewDomainError(domain.ErrCodeNotFound, "storage object not found")

// S3GatewayConfig holds configuration for S3Gateway
type S3GatewayConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
}

// S3Gateway implements Gateway against S3-compatible storage (AWS S3,
// RustFS, MinIO)
type S3Gateway struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	region        string
	endpoint      string
}

// NewS3Gateway creates a new S3Gateway with the given configuration
func NewS3Gateway(ctx context.Context, cfg S3GatewayConfig) (*S3Gateway, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Gateway{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		endpoint:      cfg.Endpoint,
	}, nil
}

// Provider returns the provider name
func (g *S3Gateway) Provider() string {
	return ProviderS3
}

// Upload reads the full stream, hashes it and stores it under key
func (g *S3Gateway) Upload(ctx context.Context, r io.Reader, key string, contentType string) (*UploadResult, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.NewStorageError("upload", key, true, err)
	}

	sum := sha256.Sum256(content)

	input := &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := g.client.PutObject(ctx, input); err != nil {
		return nil, g.classify("upload", key, err)
	}

	return &UploadResult{
		Key:      key,
		URL:      g.objectURL(key),
		Bucket:   g.bucket,
		Region:   g.region,
		Provider: ProviderS3,
		Size:     int64(len(content)),
		SHA256:   hex.EncodeToString(sum[:]),
	}, nil
}

// Download returns the object bytes
func (g *S3Gateway) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, g.classify("download", key, err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, domain.NewStorageError("download", key, true, err)
	}
	return content, nil
}

// Delete removes the object. S3 treats deletion of a missing key as
// success, which matches the idempotent-delete contract.
func (g *S3Gateway) Delete(ctx context.Context, key string) error {
	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return g.classify("delete", key, err)
	}
	return nil
}

// PresignedURL creates a time-limited read URL for the object
func (g *S3Gateway) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := g.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", g.classify("presign", key, err)
	}
	return req.URL, nil
}

// Exists reports whether the object is present
func (g *S3Gateway) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		classified := g.classify("head", key, err)
		if errors.Is(classified, ErrObjectNotFound) {
			return false, nil
		}
		return false, classified
	}
	return true, nil
}

// Metadata returns size, modification time and content type of the object
func (g *S3Gateway) Metadata(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, g.classify("head", key, err)
	}

	info := &ObjectInfo{
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}
	if out.LastModified != nil {
		info.UpdatedAt = *out.LastModified
	}
	return info, nil
}

// List returns descriptors for every object under prefix
func (g *S3Gateway) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var infos []ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(g.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, g.classify("list", prefix, err)
		}
		for _, obj := range page.Contents {
			info := ObjectInfo{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				info.UpdatedAt = *obj.LastModified
			}
			infos = append(infos, info)
		}
	}
	return infos, nil
}

// Copy duplicates an object within the bucket
func (g *S3Gateway) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := g.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(g.bucket),
		CopySource: aws.String(g.bucket + "/" + srcKey),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return g.classify("copy", srcKey, err)
	}
	return nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (g *S3Gateway) EnsureBucket(ctx context.Context) error {
	_, err := g.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(g.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = g.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(g.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// objectURL builds the canonical (non-presigned) URL for a key
func (g *S3Gateway) objectURL(key string) string {
	if g.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(g.endpoint, "/"), g.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", g.bucket, g.region, key)
}

// classify maps S3 errors onto the domain taxonomy: missing keys are
// NotFound, authorization failures are permanent, everything else
// (network, throttling, 5xx) is transient and retryable.
func (g *S3Gateway) classify(op, key string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return domain.NewStorageError(op, key, false, err)
		}
	}

	return domain.NewStorageError(op, key, true, err)
}
