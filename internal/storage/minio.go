package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/agnesscodex/s4/internal/domain"
)

// RemoteConfig encapsulates the connection info for one S3-compatible
// endpoint. Endpoint may carry an http:// or https:// scheme; without
// one, https is assumed.
type RemoteConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	PathStyle bool
	Insecure  bool
}

// RemoteClient wraps a minio client for one endpoint. Bucket-level
// operations live here; object operations go through a Scope.
type RemoteClient struct {
	core *minio.Core
}

// NewRemoteClient builds a RemoteClient from the given settings.
func NewRemoteClient(cfg RemoteConfig) (*RemoteClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("credentials must be provided")
	}

	endpoint := cfg.Endpoint
	secure := true
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint %q: %w", cfg.Endpoint, err)
		}
		secure = u.Scheme == "https"
		endpoint = u.Host
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	if cfg.Insecure && secure {
		opts.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	core, err := minio.NewCore(endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("could not build client for %s: %w", cfg.Endpoint, err)
	}

	return &RemoteClient{core: core}, nil
}

// ListBuckets returns all buckets visible to the credentials.
func (c *RemoteClient) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	buckets, err := c.core.Client.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buckets failed: %w", err)
	}
	out := make([]BucketInfo, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, BucketInfo{Name: b.Name, Created: b.CreationDate})
	}
	return out, nil
}

// MakeBucket creates a bucket in the client's region.
func (c *RemoteClient) MakeBucket(ctx context.Context, bucket string) error {
	if err := c.core.Client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket %s failed: %w", bucket, err)
	}
	return nil
}

// RemoveBucket deletes an empty bucket.
func (c *RemoteClient) RemoveBucket(ctx context.Context, bucket string) error {
	if err := c.core.Client.RemoveBucket(ctx, bucket); err != nil {
		return fmt.Errorf("remove bucket %s failed: %w", bucket, err)
	}
	return nil
}

// CopyObject performs a server-side copy between two locations on this
// endpoint.
func (c *RemoteClient) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := c.core.Client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: dstBucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: srcBucket, Object: srcKey},
	)
	if err != nil {
		return fmt.Errorf("copy %s/%s to %s/%s failed: %w", srcBucket, srcKey, dstBucket, dstKey, err)
	}
	return nil
}

// Scope roots an ObjectStore at bucket/prefix. The alias name is only
// used to render references back to the user.
func (c *RemoteClient) Scope(alias, bucket, prefix string) *RemoteStore {
	return &RemoteStore{
		client: c,
		alias:  alias,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// RemoteStore is the ObjectStore view of one bucket+prefix.
type RemoteStore struct {
	client *RemoteClient
	alias  string
	bucket string
	prefix string
}

var _ ObjectStore = (*RemoteStore)(nil)

func (s *RemoteStore) fullKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *RemoteStore) listPrefix() string {
	if s.prefix == "" {
		return ""
	}
	return s.prefix + "/"
}

func (s *RemoteStore) List(ctx context.Context) ([]domain.ObjectEntry, error) {
	entries := make([]domain.ObjectEntry, 0)
	opts := minio.ListObjectsOptions{
		Prefix:    s.listPrefix(),
		Recursive: true,
	}

	for obj := range s.client.core.Client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s failed: %w", s.Ref(""), obj.Err)
		}
		// Folder markers carry a trailing slash and no payload.
		if strings.HasSuffix(obj.Key, "/") && obj.Size == 0 {
			continue
		}
		key := strings.TrimPrefix(obj.Key, s.listPrefix())
		if key == "" {
			continue
		}
		entries = append(entries, domain.ObjectEntry{
			Key:          key,
			Size:         obj.Size,
			Fingerprint:  strings.Trim(obj.ETag, `"`),
			LastModified: obj.LastModified,
			Origin:       domain.OriginRemote,
		})
	}

	return entries, nil
}

func (s *RemoteStore) Stat(ctx context.Context, key string) (domain.ObjectEntry, error) {
	info, err := s.client.core.Client.StatObject(ctx, s.bucket, s.fullKey(key), minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return domain.ObjectEntry{}, ErrNotExist
		}
		return domain.ObjectEntry{}, fmt.Errorf("stat %s failed: %w", s.Ref(key), err)
	}

	return domain.ObjectEntry{
		Key:          key,
		Size:         info.Size,
		Fingerprint:  strings.Trim(info.ETag, `"`),
		LastModified: info.LastModified,
		Origin:       domain.OriginRemote,
		ContentType:  info.ContentType,
	}, nil
}

func (s *RemoteStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.core.Client.GetObject(ctx, s.bucket, s.fullKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s failed: %w", s.Ref(key), err)
	}
	return obj, nil
}

func (s *RemoteStore) GetRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(offset, offset+length-1); err != nil {
		return nil, fmt.Errorf("invalid range for %s: %w", s.Ref(key), err)
	}
	obj, err := s.client.core.Client.GetObject(ctx, s.bucket, s.fullKey(key), opts)
	if err != nil {
		return nil, fmt.Errorf("get %s failed: %w", s.Ref(key), err)
	}
	return obj, nil
}

func (s *RemoteStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.core.PutObject(ctx, s.bucket, s.fullKey(key), r, size, "", "",
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s failed: %w", s.Ref(key), err)
	}
	return nil
}

func (s *RemoteStore) Delete(ctx context.Context, key string) error {
	if err := s.client.core.Client.RemoveObject(ctx, s.bucket, s.fullKey(key), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s failed: %w", s.Ref(key), err)
	}
	return nil
}

func (s *RemoteStore) InitiateMultipart(ctx context.Context, key, contentType string) (string, error) {
	uploadID, err := s.client.core.NewMultipartUpload(ctx, s.bucket, s.fullKey(key),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("initiate multipart for %s failed: %w", s.Ref(key), err)
	}
	return uploadID, nil
}

func (s *RemoteStore) UploadPart(ctx context.Context, key, uploadID string, part domain.PartRange, r io.Reader) (string, error) {
	info, err := s.client.core.PutObjectPart(ctx, s.bucket, s.fullKey(key), uploadID,
		part.Index, r, part.Length, minio.PutObjectPartOptions{})
	if err != nil {
		return "", fmt.Errorf("upload part %d of %s failed: %w", part.Index, s.Ref(key), err)
	}
	return info.ETag, nil
}

func (s *RemoteStore) CompleteMultipart(ctx context.Context, key, uploadID string, parts []CompletedPart) error {
	completed := make([]minio.CompletePart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, minio.CompletePart{PartNumber: p.Index, ETag: p.ETag})
	}
	_, err := s.client.core.CompleteMultipartUpload(ctx, s.bucket, s.fullKey(key), uploadID,
		completed, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("complete multipart for %s failed: %w", s.Ref(key), err)
	}
	return nil
}

func (s *RemoteStore) AbortMultipart(ctx context.Context, key, uploadID string) error {
	if err := s.client.core.AbortMultipartUpload(ctx, s.bucket, s.fullKey(key), uploadID); err != nil {
		return fmt.Errorf("abort multipart for %s failed: %w", s.Ref(key), err)
	}
	return nil
}

// ContentType reads the stored content type from object metadata.
func (s *RemoteStore) ContentType(ctx context.Context, key string) (string, error) {
	entry, err := s.Stat(ctx, key)
	if err != nil {
		return "", err
	}
	return entry.ContentType, nil
}

func (s *RemoteStore) Ref(key string) string {
	ref := s.alias + "/" + s.bucket
	if s.prefix != "" {
		ref += "/" + s.prefix
	}
	if key != "" {
		ref += "/" + key
	}
	return ref
}

func (s *RemoteStore) Origin() domain.Origin { return domain.OriginRemote }

// IsTransient reports whether an operation is worth retrying: transport
// errors and throttling/5xx responses are, everything else is not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrNotExist) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return false
	}

	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch {
		case resp.StatusCode == http.StatusRequestTimeout,
			resp.StatusCode == http.StatusTooManyRequests,
			resp.StatusCode >= http.StatusInternalServerError:
			return true
		case resp.Code == "SlowDown", resp.Code == "RequestTimeout":
			return true
		default:
			return false
		}
	}

	return true
}
