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

// fakeMinio implements minioAPI for testing without network.
type fakeMinio struct {
	bucketExists    bool
	bucketExistsErr error
	makeBucketErr   error

	putInfo        minioLib.UploadInfo
	putErr         error
	putContentType string

	getRC  io.ReadCloser
	getErr error

	removeErr error
}

func (f *fakeMinio) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, f.bucketExistsErr
}
func (f *fakeMinio) MakeBucket(_ context.Context, _ string, _ minioLib.MakeBucketOptions) error {
	return f.makeBucketErr
}
func (f *fakeMinio) PutObject(_ context.Context, _ string, _ string, _ io.Reader, _ int64, opts minioLib.PutObjectOptions) (minioLib.UploadInfo, error) {
	f.putContentType = opts.ContentType
	return f.putInfo, f.putErr
}
func (f *fakeMinio) GetObject(_ context.Context, _ string, _ string, _ minioLib.GetObjectOptions) (io.ReadCloser, error) {
	return f.getRC, f.getErr
}
func (f *fakeMinio) RemoveObject(_ context.Context, _ string, _ string, _ minioLib.RemoveObjectOptions) error {
	return f.removeErr
}

func TestNewClientWithAPI_BucketExists(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExists: true}
	c, err := NewClientWithAPI(ctx, api, "avatars")
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, "avatars", c.bucket)
}

func TestNewClientWithAPI_CreateBucket(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExists: false}
	c, err := NewClientWithAPI(ctx, api, "avatars")
	require.NoError(t, err)
	assert.Equal(t, "avatars", c.bucket)
}

func TestNewClientWithAPI_BucketExistsError(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExistsErr: errors.New("boom")}
	c, err := NewClientWithAPI(ctx, api, "avatars")
	assert.Nil(t, c)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ensure bucket exists")
}

func TestNewClientWithAPI_MakeBucketError(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExists: false, makeBucketErr: errors.New("fail")}
	c, err := NewClientWithAPI(ctx, api, "avatars")
	assert.Nil(t, c)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create bucket")
}

func TestClient_UploadSetsContentType(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExists: true}
	c, err := NewClientWithAPI(ctx, api, "avatars")
	require.NoError(t, err)

	err = c.Upload(ctx, "key", "image/png", bytes.NewReader([]byte("png")), 3)
	require.NoError(t, err)
	assert.Equal(t, "image/png", api.putContentType)
}

func TestClient_UploadError(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExists: true, putErr: errors.New("denied")}
	c, err := NewClientWithAPI(ctx, api, "avatars")
	require.NoError(t, err)

	err = c.Upload(ctx, "key", "image/png", bytes.NewReader(nil), 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload object")
}

func TestClient_Download(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExists: true, getRC: io.NopCloser(bytes.NewReader([]byte("data")))}
	c, err := NewClientWithAPI(ctx, api, "avatars")
	require.NoError(t, err)

	rc, err := c.Download(ctx, "key")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
}

func TestClient_Delete(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExists: true}
	c, err := NewClientWithAPI(ctx, api, "avatars")
	require.NoError(t, err)

	assert.NoError(t, c.Delete(ctx, "key"))
}

func TestClient_DeleteError(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExists: true, removeErr: errors.New("gone wrong")}
	c, err := NewClientWithAPI(ctx, api, "avatars")
	require.NoError(t, err)

	err = c.Delete(ctx, "key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to remove object")
}
