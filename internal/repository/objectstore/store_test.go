package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/repository"
	"github.com/and161185/seedvault/internal/repository/wire"
)

// fakeBucket is a single-object bucket honoring conditional writes.
type fakeBucket struct {
	mu   sync.Mutex
	blob []byte
	etag string
	n    int
	puts int
}

var _ ObjectAPI = (*fakeBucket)(nil)

func (f *fakeBucket) GetObject(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blob == nil {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(f.blob)),
		ETag: aws.String(f.etag),
	}, nil
}

func (f *fakeBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.IfNoneMatch != nil && f.blob != nil {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed"}
	}
	if in.IfMatch != nil && aws.ToString(in.IfMatch) != f.etag {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed"}
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.n++
	f.puts++
	f.blob, f.etag = b, fmt.Sprintf("\"etag-%d\"", f.n)
	return &s3.PutObjectOutput{ETag: aws.String(f.etag)}, nil
}

func newStore(t *testing.T, b *fakeBucket) *Store {
	t.Helper()
	return New(b, "vault", "seedvault/document", wire.NewCodec(nil), zaptest.NewLogger(t))
}

func TestStore_MissingObject(t *testing.T) {
	t.Parallel()

	doc, ver, err := newStore(t, &fakeBucket{}).Load(context.Background())
	require.NoError(t, err)
	require.Zero(t, ver)
	require.Empty(t, doc.Seeds)
}

func TestStore_CompareAndSwap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := &fakeBucket{}
	a := newStore(t, b)
	_, _, err := a.Load(ctx)
	require.NoError(t, err)

	ver, err := a.CompareAndSwap(ctx, 0, repository.Document{NextSeedID: 1000})
	require.NoError(t, err)
	require.EqualValues(t, 1, ver)
	ver, err = a.CompareAndSwap(ctx, 1, repository.Document{NextSeedID: 1001})
	require.NoError(t, err)
	require.EqualValues(t, 2, ver)

	// A second process with a stale view loses the race.
	other := newStore(t, b)
	_, err = other.CompareAndSwap(ctx, 0, repository.Document{})
	require.ErrorIs(t, err, errs.ErrVersionConflict)

	doc, ver, err := other.Load(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, ver)
	require.EqualValues(t, 1001, doc.NextSeedID)

	ver, err = other.CompareAndSwap(ctx, 2, doc)
	require.NoError(t, err)
	require.EqualValues(t, 3, ver)

	// a now holds a stale etag; the conditional put is rejected.
	_, err = a.CompareAndSwap(ctx, 2, repository.Document{})
	require.ErrorIs(t, err, errs.ErrVersionConflict)
	require.Equal(t, 3, b.puts)
}

func TestStore_CorruptObjectLoadsEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := &fakeBucket{blob: []byte("junk"), etag: "\"x\""}
	s := newStore(t, b)
	doc, ver, err := s.Load(ctx)
	require.NoError(t, err)
	require.Zero(t, ver)
	require.Empty(t, doc.Seeds)

	ver, err = s.CompareAndSwap(ctx, 0, repository.Document{NextSeedID: 1000})
	require.NoError(t, err)
	require.EqualValues(t, 1, ver)
}
