package download

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SatoshiReport/s3evacuate/internal/migration"
)

type fakeDownloadStore struct {
	files          []migration.ObjectRecord
	syncCompleted  []string
}

func (s *fakeDownloadStore) ListBucketFiles(bucket string) ([]migration.ObjectRecord, error) {
	return s.files, nil
}
func (s *fakeDownloadStore) MarkBucketSyncComplete(bucket string) error {
	s.syncCompleted = append(s.syncCompleted, bucket)
	return nil
}

type fakeDownloadS3 struct {
	content map[string][]byte
	failOn  map[string]bool
}

func (f *fakeDownloadS3) ListBuckets(ctx context.Context, in *s3.ListBucketsInput, opts ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	panic("unused")
}
func (f *fakeDownloadS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	panic("unused")
}
func (f *fakeDownloadS3) ListObjectVersions(ctx context.Context, in *s3.ListObjectVersionsInput, opts ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
	panic("unused")
}
func (f *fakeDownloadS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	panic("unused")
}
func (f *fakeDownloadS3) GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := *in.Key
	if f.failOn[key] {
		return nil, assertErr{key}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.content[key]))}, nil
}
func (f *fakeDownloadS3) RestoreObject(ctx context.Context, in *s3.RestoreObjectInput, opts ...func(*s3.Options)) (*s3.RestoreObjectOutput, error) {
	panic("unused")
}
func (f *fakeDownloadS3) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	panic("unused")
}
func (f *fakeDownloadS3) DeleteBucket(ctx context.Context, in *s3.DeleteBucketInput, opts ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	panic("unused")
}
func (f *fakeDownloadS3) ListMultipartUploads(ctx context.Context, in *s3.ListMultipartUploadsInput, opts ...func(*s3.Options)) (*s3.ListMultipartUploadsOutput, error) {
	panic("unused")
}
func (f *fakeDownloadS3) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, opts ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	panic("unused")
}

type assertErr struct{ key string }

func (e assertErr) Error() string { return "fake failure for " + e.key }

func TestSyncBucket_WritesAllFilesAndMarksComplete(t *testing.T) {
	dir := t.TempDir()
	st := &fakeDownloadStore{files: []migration.ObjectRecord{
		{Bucket: "b1", Key: "a.txt"},
		{Bucket: "b1", Key: "nested/b.txt"},
	}}
	s3c := &fakeDownloadS3{content: map[string][]byte{
		"a.txt":        []byte("hello"),
		"nested/b.txt": []byte("world"),
	}}
	d := New(s3c, st, nil, Config{Workers: 2, ChunkSize: 1024, BasePath: dir})

	result, err := d.SyncBucket(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Succeeded)
	assert.Equal(t, int64(0), result.Failed)
	assert.Equal(t, []string{"b1"}, st.syncCompleted)

	data, err := os.ReadFile(filepath.Join(dir, "b1", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "b1", "nested", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))
}

func TestSyncBucket_DoesNotMarkCompleteOnFailure(t *testing.T) {
	dir := t.TempDir()
	st := &fakeDownloadStore{files: []migration.ObjectRecord{{Bucket: "b1", Key: "bad.txt"}}}
	s3c := &fakeDownloadS3{failOn: map[string]bool{"bad.txt": true}}
	d := New(s3c, st, nil, Config{Workers: 2, ChunkSize: 1024, BasePath: dir})

	_, err := d.SyncBucket(context.Background(), "b1")
	require.Error(t, err)
	assert.Empty(t, st.syncCompleted)
}

func TestSyncBucket_RejectsTraversalKeyAsFailure(t *testing.T) {
	dir := t.TempDir()
	st := &fakeDownloadStore{files: []migration.ObjectRecord{{Bucket: "b1", Key: "../escape.txt"}}}
	s3c := &fakeDownloadS3{}
	d := New(s3c, st, nil, Config{Workers: 1, ChunkSize: 1024, BasePath: dir})

	_, err := d.SyncBucket(context.Background(), "b1")
	require.Error(t, err)
}
