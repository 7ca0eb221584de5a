package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	fakeS3API
	buckets []s3types.Bucket
	pages   [][]s3types.Object
	pageIdx int
}

func (f *fakeS3) ListBuckets(ctx context.Context, in *s3.ListBucketsInput, opts ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	return &s3.ListBucketsOutput{Buckets: f.buckets}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.pageIdx >= len(f.pages) {
		return &s3.ListObjectsV2Output{}, nil
	}
	page := f.pages[f.pageIdx]
	f.pageIdx++
	truncated := f.pageIdx < len(f.pages)
	return &s3.ListObjectsV2Output{Contents: page, IsTruncated: &truncated}, nil
}

type fakeStore struct {
	files   []recordedFile
	buckets map[string]savedBucket
}

type recordedFile struct {
	bucket, key, etag, storageClass, lastModified string
	size                                           int64
}

type savedBucket struct {
	fileCount, totalSize int64
	storageClasses       map[string]int64
	scanComplete         bool
}

func (s *fakeStore) AddFile(bucket, key string, size int64, etag, storageClass, lastModified string) error {
	s.files = append(s.files, recordedFile{bucket, key, etag, storageClass, lastModified, size})
	return nil
}

func (s *fakeStore) SaveBucketStatus(bucket string, fileCount, totalSize int64, storageClasses map[string]int64, scanComplete bool) error {
	if s.buckets == nil {
		s.buckets = map[string]savedBucket{}
	}
	s.buckets[bucket] = savedBucket{fileCount, totalSize, storageClasses, scanComplete}
	return nil
}

func ptr(s string) *string { return &s }

func TestListBuckets_ExcludesConfigured(t *testing.T) {
	s3c := &fakeS3{buckets: []s3types.Bucket{{Name: ptr("keep")}, {Name: ptr("skip-me")}}}
	sc := New(s3c, &fakeStore{}, nil, []string{"skip-me"})

	buckets, err := sc.ListBuckets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, buckets)
}

func TestScanBucket_SkipsDirectoryMarkersAndAccumulates(t *testing.T) {
	now := time.Now()
	s3c := &fakeS3{pages: [][]s3types.Object{
		{
			{Key: ptr("folder/"), Size: ref(int64(0))},
			{Key: ptr("a.txt"), Size: ref(int64(10)), ETag: ptr(`"abc"`), StorageClass: s3types.ObjectStorageClassStandard, LastModified: &now},
			{Key: ptr("b.txt"), Size: ref(int64(20)), StorageClass: s3types.ObjectStorageClassGlacier, LastModified: &now},
		},
	}}
	fs := &fakeStore{}
	sc := New(s3c, fs, nil, nil)

	require.NoError(t, sc.ScanBucket(context.Background(), "bucket1"))

	require.Len(t, fs.files, 2)
	assert.Equal(t, "a.txt", fs.files[0].key)
	assert.Equal(t, "abc", fs.files[0].etag)
	assert.Equal(t, "b.txt", fs.files[1].key)

	saved := fs.buckets["bucket1"]
	assert.Equal(t, int64(2), saved.fileCount)
	assert.Equal(t, int64(30), saved.totalSize)
	assert.True(t, saved.scanComplete)
}

func TestScanBucket_DefaultsMissingStorageClassToStandard(t *testing.T) {
	s3c := &fakeS3{pages: [][]s3types.Object{
		{{Key: ptr("a.txt"), Size: ref(int64(1))}},
	}}
	fs := &fakeStore{}
	sc := New(s3c, fs, nil, nil)

	require.NoError(t, sc.ScanBucket(context.Background(), "b"))
	require.Len(t, fs.files, 1)
	assert.Equal(t, "STANDARD", fs.files[0].storageClass)
}

func ref[T any](v T) *T { return &v }

// fakeS3API satisfies the unused-method surface of s3client.API so
// fakeS3 only needs to implement the calls scanner actually makes.
type fakeS3API struct{}

func (fakeS3API) ListObjectVersions(ctx context.Context, in *s3.ListObjectVersionsInput, opts ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
	panic("not used in scanner tests")
}
func (fakeS3API) HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	panic("not used in scanner tests")
}
func (fakeS3API) GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	panic("not used in scanner tests")
}
func (fakeS3API) RestoreObject(ctx context.Context, in *s3.RestoreObjectInput, opts ...func(*s3.Options)) (*s3.RestoreObjectOutput, error) {
	panic("not used in scanner tests")
}
func (fakeS3API) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	panic("not used in scanner tests")
}
func (fakeS3API) DeleteBucket(ctx context.Context, in *s3.DeleteBucketInput, opts ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	panic("not used in scanner tests")
}
func (fakeS3API) ListMultipartUploads(ctx context.Context, in *s3.ListMultipartUploadsInput, opts ...func(*s3.Options)) (*s3.ListMultipartUploadsOutput, error) {
	panic("not used in scanner tests")
}
func (fakeS3API) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, opts ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	panic("not used in scanner tests")
}
