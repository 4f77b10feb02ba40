package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flameberry/PrimePatrol/config"
)

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "")

	url, err := store.Put(context.Background(), "1700000000000-pothole.jpg", bytes.NewBufferString("img"), 3, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, UploadsRoute+"/1700000000000-pothole.jpg", url)

	b, err := os.ReadFile(filepath.Join(dir, "1700000000000-pothole.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "img", string(b))

	withBase := NewLocalStore(dir, "https://files.example.org/uploads/")
	url, err = withBase.Put(context.Background(), "a b.png", bytes.NewBufferString("x"), 1, "")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.org/uploads/a%20b.png", url)
}

func TestLocalStoreRejectsPathKeys(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "")
	for _, key := range []string{"", "../etc/passwd", `dir\file`} {
		_, err := store.Put(context.Background(), key, bytes.NewBufferString("x"), 1, "")
		assert.Error(t, err, key)
	}
}

func TestLocalStoreStopsOnCancelledContext(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalStore(dir, "").Put(ctx, "k.jpg", bytes.NewBufferString("x"), 1, "")
	require.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(filepath.Join(dir, "k.jpg"))
	assert.True(t, os.IsNotExist(statErr))
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3StorePut(t *testing.T) {
	api := &fakeS3{}
	store := &S3Store{api: api, bucket: "primepatrol", region: "ap-south-1"}

	url, err := store.Put(context.Background(), "1-a.jpg", bytes.NewBufferString("data"), 4, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://primepatrol.s3.ap-south-1.amazonaws.com/1-a.jpg", url)
	assert.Equal(t, "primepatrol", aws.ToString(api.input.Bucket))
	assert.Equal(t, "1-a.jpg", aws.ToString(api.input.Key))
	assert.Equal(t, int64(4), aws.ToInt64(api.input.ContentLength))
	assert.Equal(t, "image/jpeg", aws.ToString(api.input.ContentType))
	assert.Equal(t, "data", string(api.body))

	store.publicBaseURL = "https://cdn.example.org/"
	assert.Equal(t, "https://cdn.example.org/x.jpg", store.URL("x.jpg"))

	api.err = errors.New("access denied")
	_, err = store.Put(context.Background(), "k", bytes.NewBufferString("x"), 1, "")
	assert.Error(t, err)
}

func TestNewSelectsDriver(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{Driver: "local", LocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	store, err = New(context.Background(), config.StorageConfig{Driver: "s3", Bucket: "b", Region: "us-east-1", AccessKeyID: "id", SecretAccessKey: "key"})
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, store)

	_, err = New(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}
