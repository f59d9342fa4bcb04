// Package objectstore keeps the vault document as a single object in an
// S3-compatible bucket, using conditional writes for compare-and-swap.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/repository"
	"github.com/and161185/seedvault/internal/repository/wire"
)

// ObjectAPI is the subset of *s3.Client the store uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ ObjectAPI = (*s3.Client)(nil)

// Store implements repository.DurableStore on one object.
type Store struct {
	api    ObjectAPI
	bucket string
	key    string
	codec  *wire.Codec
	log    *zap.Logger

	mu      sync.Mutex
	etag    string
	version uint64
}

var _ repository.DurableStore = (*Store)(nil)

// New returns a store for bucket/key.
func New(api ObjectAPI, bucket, key string, codec *wire.Codec, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{api: api, bucket: bucket, key: key, codec: codec, log: log}
}

func (s *Store) fetch(ctx context.Context) (repository.Document, uint64, string, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(s.key)})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return repository.Document{}, 0, "", nil
		}
		return repository.Document{}, 0, "", fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()
	blob, err := io.ReadAll(out.Body)
	if err != nil {
		return repository.Document{}, 0, "", fmt.Errorf("read s3://%s/%s: %w", s.bucket, s.key, err)
	}
	etag := aws.ToString(out.ETag)
	doc, ver, err := s.codec.Decode(blob)
	if errors.Is(err, wire.ErrCorrupt) {
		s.log.Error("vault document is corrupt; starting from an empty vault",
			zap.String("bucket", s.bucket), zap.String("key", s.key), zap.Error(err))
		return repository.Document{}, 0, etag, nil
	}
	if err != nil {
		return repository.Document{}, 0, "", err
	}
	return doc, ver, etag, nil
}

// Load implements repository.DurableStore.
func (s *Store) Load(ctx context.Context) (repository.Document, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ver, etag, err := s.fetch(ctx)
	if err != nil {
		return repository.Document{}, 0, err
	}
	s.etag, s.version = etag, ver
	return doc, ver, nil
}

// CompareAndSwap implements repository.DurableStore. The object's ETag guards
// the write, so concurrent writers in other processes are detected.
func (s *Store) CompareAndSwap(ctx context.Context, expected uint64, doc repository.Document) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	etag := s.etag
	if s.version != expected {
		_, cur, fresh, err := s.fetch(ctx)
		if err != nil {
			return 0, err
		}
		s.etag, s.version = fresh, cur
		if cur != expected {
			return 0, fmt.Errorf("object at version %d, expected %d: %w", cur, expected, errs.ErrVersionConflict)
		}
		etag = fresh
	}

	next := expected + 1
	blob, err := s.codec.Encode(doc, next)
	if err != nil {
		return 0, err
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(blob),
		ContentType: aws.String("application/octet-stream"),
	}
	if etag == "" {
		in.IfNoneMatch = aws.String("*")
	} else {
		in.IfMatch = aws.String(etag)
	}
	out, err := s.api.PutObject(ctx, in)
	if err != nil {
		if isPreconditionFailed(err) {
			s.version = ^uint64(0)
			return 0, fmt.Errorf("object changed concurrently: %w", errs.ErrVersionConflict)
		}
		return 0, fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.key, err)
	}
	s.etag, s.version = aws.ToString(out.ETag), next
	return next, nil
}

func isPreconditionFailed(err error) bool {
	var api smithy.APIError
	if errors.As(err, &api) {
		switch api.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	var re interface{ HTTPStatusCode() int }
	if errors.As(err, &re) {
		return re.HTTPStatusCode() == http.StatusPreconditionFailed || re.HTTPStatusCode() == http.StatusConflict
	}
	return false
}
