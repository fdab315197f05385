package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	minioLib "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMinio はネットワークを使わないminioAPIの実装。
type fakeMinio struct {
	bucketExists    bool
	bucketExistsErr error
	makeBucketErr   error
	madeBucket      string

	putErr         error
	putKey         string
	putSize        int64
	putContentType string
	putBody        []byte

	getRC  io.ReadCloser
	getErr error

	removeErr error
	removed   []string

	statErr error
}

func (f *fakeMinio) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, f.bucketExistsErr
}

func (f *fakeMinio) MakeBucket(_ context.Context, bucket string, _ minioLib.MakeBucketOptions) error {
	f.madeBucket = bucket
	return f.makeBucketErr
}

func (f *fakeMinio) PutObject(_ context.Context, _ string, key string, r io.Reader, size int64, opts minioLib.PutObjectOptions) (minioLib.UploadInfo, error) {
	if f.putErr != nil {
		return minioLib.UploadInfo{}, f.putErr
	}
	f.putKey = key
	f.putSize = size
	f.putContentType = opts.ContentType
	f.putBody, _ = io.ReadAll(r)
	return minioLib.UploadInfo{Key: key, Size: size}, nil
}

func (f *fakeMinio) GetObject(_ context.Context, _ string, _ string, _ minioLib.GetObjectOptions) (io.ReadCloser, error) {
	return f.getRC, f.getErr
}

func (f *fakeMinio) RemoveObject(_ context.Context, _ string, key string, _ minioLib.RemoveObjectOptions) error {
	f.removed = append(f.removed, key)
	return f.removeErr
}

func (f *fakeMinio) StatObject(_ context.Context, _ string, _ string, _ minioLib.StatObjectOptions) (minioLib.ObjectInfo, error) {
	return minioLib.ObjectInfo{}, f.statErr
}

var errNoSuchKey = minioLib.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}

func TestNewClientWithAPI(t *testing.T) {
	ctx := context.Background()

	t.Run("既存バケット", func(t *testing.T) {
		api := &fakeMinio{bucketExists: true}
		c, err := NewClientWithAPI(ctx, api, "exports")
		require.NoError(t, err)
		assert.Equal(t, "exports", c.bucket)
		assert.Empty(t, api.madeBucket)
	})

	t.Run("バケット作成", func(t *testing.T) {
		api := &fakeMinio{}
		_, err := NewClientWithAPI(ctx, api, "exports")
		require.NoError(t, err)
		assert.Equal(t, "exports", api.madeBucket)
	})

	t.Run("存在確認エラー", func(t *testing.T) {
		c, err := NewClientWithAPI(ctx, &fakeMinio{bucketExistsErr: errors.New("boom")}, "exports")
		assert.Nil(t, c)
		assert.ErrorContains(t, err, "failed to ensure bucket exists")
	})

	t.Run("作成エラー", func(t *testing.T) {
		c, err := NewClientWithAPI(ctx, &fakeMinio{makeBucketErr: errors.New("denied")}, "exports")
		assert.Nil(t, c)
		assert.ErrorContains(t, err, "failed to create bucket")
	})
}

func TestClient_Upload(t *testing.T) {
	api := &fakeMinio{}
	c := &Client{api: api, bucket: "b"}

	err := c.Upload(context.Background(), "exports/u/d/deck.pdf", bytes.NewReader([]byte("%PDF")), 4, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "exports/u/d/deck.pdf", api.putKey)
	assert.Equal(t, int64(4), api.putSize)
	assert.Equal(t, "application/pdf", api.putContentType)
	assert.Equal(t, []byte("%PDF"), api.putBody)

	api.putErr = errors.New("put-fail")
	err = c.Upload(context.Background(), "k", bytes.NewReader(nil), 0, "")
	assert.ErrorContains(t, err, "failed to upload object")
}

func TestClient_Download(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		c := &Client{api: &fakeMinio{getRC: io.NopCloser(bytes.NewReader([]byte("abc")))}, bucket: "b"}
		rc, err := c.Download(ctx, "k")
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), data)
	})

	t.Run("not found", func(t *testing.T) {
		c := &Client{api: &fakeMinio{statErr: errNoSuchKey}, bucket: "b"}
		_, err := c.Download(ctx, "k")
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("stat error", func(t *testing.T) {
		c := &Client{api: &fakeMinio{statErr: errors.New("timeout")}, bucket: "b"}
		_, err := c.Download(ctx, "k")
		assert.ErrorContains(t, err, "failed to stat object")
	})

	t.Run("get error", func(t *testing.T) {
		c := &Client{api: &fakeMinio{getErr: errors.New("reset")}, bucket: "b"}
		_, err := c.Download(ctx, "k")
		assert.ErrorContains(t, err, "failed to get object")
	})
}

func TestClient_Delete(t *testing.T) {
	ctx := context.Background()

	api := &fakeMinio{}
	c := &Client{api: api, bucket: "b"}
	require.NoError(t, c.Delete(ctx, "k1"))
	assert.Equal(t, []string{"k1"}, api.removed)

	api.removeErr = errNoSuchKey
	assert.NoError(t, c.Delete(ctx, "k2"))

	api.removeErr = errors.New("denied")
	assert.ErrorContains(t, c.Delete(ctx, "k3"), "failed to delete object")
}

func TestClient_Ping(t *testing.T) {
	c := &Client{api: &fakeMinio{bucketExists: true}, bucket: "b"}
	assert.NoError(t, c.Ping(context.Background()))

	c = &Client{api: &fakeMinio{bucketExistsErr: errors.New("dial tcp")}, bucket: "b"}
	assert.ErrorContains(t, c.Ping(context.Background()), "storage unreachable")
}
