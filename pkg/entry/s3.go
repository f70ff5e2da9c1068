package entry

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used to enumerate buckets.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config holds S3 connection settings. Empty fields fall back to the
// default AWS credential chain and endpoint.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3Client builds an S3 client. A custom endpoint switches to path-style
// addressing so MinIO and other S3-compatible servers work.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

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

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Entry resolves key in bucket. An empty key or one ending in "/" is a
// directory prefix; otherwise the object is looked up and, if absent, the key
// is treated as a prefix.
func NewS3Entry(ctx context.Context, api S3API, bucket, key string, pageSize int) (Entry, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	if key == "" || strings.HasSuffix(key, "/") {
		return &S3Directory{api: api, bucket: bucket, prefix: key, pageSize: pageSize}, nil
	}

	head, err := api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return &S3Object{
			api:          api,
			bucket:       bucket,
			key:          key,
			lastModified: aws.ToTime(head.LastModified),
			size:         aws.ToInt64(head.ContentLength),
		}, nil
	}

	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return nil, fmt.Errorf("head s3://%s/%s: %w", bucket, key, err)
	}

	return &S3Directory{api: api, bucket: bucket, prefix: key + "/", pageSize: pageSize}, nil
}

// S3Directory is a key prefix treated as a directory.
type S3Directory struct {
	api      S3API
	bucket   string
	prefix   string
	pageSize int
}

// CreateReader returns a reader that issues one ListObjectsV2 call per page.
func (d *S3Directory) CreateReader() DirectoryReader {
	return &s3Reader{dir: d}
}

// IsDirectory always reports true.
func (d *S3Directory) IsDirectory() bool { return true }

// IsFile always reports false.
func (d *S3Directory) IsFile() bool { return false }

// Name returns the last path segment of the prefix, or the bucket for the root.
func (d *S3Directory) Name() string {
	trimmed := strings.TrimSuffix(d.prefix, "/")
	if trimmed == "" {
		return d.bucket
	}

	return path.Base(trimmed)
}

// S3Object is a single object treated as a file.
type S3Object struct {
	api          S3API
	bucket       string
	key          string
	lastModified time.Time
	size         int64
}

// File materializes the object with HeadObject so the timestamp is current.
func (o *S3Object) File(ctx context.Context) (FileObject, error) {
	head, err := o.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
	})
	if err != nil {
		return FileObject{}, fmt.Errorf("head s3://%s/%s: %w", o.bucket, o.key, err)
	}

	return FileObject{
		Name:         o.Name(),
		LastModified: aws.ToTime(head.LastModified),
		Size:         aws.ToInt64(head.ContentLength),
	}, nil
}

// IsDirectory always reports false.
func (o *S3Object) IsDirectory() bool { return false }

// IsFile always reports true.
func (o *S3Object) IsFile() bool { return true }

// Name returns the last path segment of the key.
func (o *S3Object) Name() string {
	return path.Base(o.key)
}

// s3Reader pages through one prefix level using the delimiter "/".
type s3Reader struct {
	dir   *S3Directory
	token *string
	done  bool
}

func (r *s3Reader) ReadEntries(ctx context.Context) ([]Entry, error) {
	for !r.done {
		out, err := r.dir.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(r.dir.bucket),
			Prefix:            aws.String(r.dir.prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: r.token,
			MaxKeys:           aws.Int32(int32(r.dir.pageSize)), //nolint:gosec // page sizes are small
		})
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", r.dir.bucket, r.dir.prefix, err)
		}

		r.token = out.NextContinuationToken
		r.done = !aws.ToBool(out.IsTruncated) || r.token == nil

		page := r.toEntries(out)
		if len(page) > 0 {
			return page, nil
		}
		// An empty but truncated page is not the end of the listing.
	}

	return nil, nil
}

func (r *s3Reader) toEntries(out *s3.ListObjectsV2Output) []Entry {
	page := make([]Entry, 0, len(out.CommonPrefixes)+len(out.Contents))

	for _, cp := range out.CommonPrefixes {
		page = append(page, &S3Directory{
			api:      r.dir.api,
			bucket:   r.dir.bucket,
			prefix:   aws.ToString(cp.Prefix),
			pageSize: r.dir.pageSize,
		})
	}

	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		// Zero-byte "folder" markers share the prefix.
		if key == r.dir.prefix {
			continue
		}

		page = append(page, &S3Object{
			api:          r.dir.api,
			bucket:       r.dir.bucket,
			key:          key,
			lastModified: aws.ToTime(obj.LastModified),
			size:         aws.ToInt64(obj.Size),
		})
	}

	return page
}
