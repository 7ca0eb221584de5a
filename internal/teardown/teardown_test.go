package teardown

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SatoshiReport/s3evacuate/internal/migerr"
)

type fakeTeardownStore struct {
	deleted []string
}

func (s *fakeTeardownStore) MarkBucketDeleteComplete(bucket string) error {
	s.deleted = append(s.deleted, bucket)
	return nil
}

type fakeTeardownS3 struct {
	versions          []types.ObjectVersion
	markers           []types.DeleteMarkerEntry
	uploads           []types.MultipartUpload
	deletedBatches    [][]types.ObjectIdentifier
	abortedUploads    []string
	bucketDeleted     bool
	residualAfterDelete bool
}

func (f *fakeTeardownS3) ListBuckets(ctx context.Context, in *s3.ListBucketsInput, opts ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	panic("unused")
}
func (f *fakeTeardownS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	panic("unused")
}
func (f *fakeTeardownS3) ListObjectVersions(ctx context.Context, in *s3.ListObjectVersionsInput, opts ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
	if in.MaxKeys != nil {
		if f.residualAfterDelete {
			return &s3.ListObjectVersionsOutput{Versions: []types.ObjectVersion{{Key: aws.String("residual.txt")}}}, nil
		}
		return &s3.ListObjectVersionsOutput{}, nil
	}
	return &s3.ListObjectVersionsOutput{Versions: f.versions, DeleteMarkers: f.markers}, nil
}
func (f *fakeTeardownS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	panic("unused")
}
func (f *fakeTeardownS3) GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	panic("unused")
}
func (f *fakeTeardownS3) RestoreObject(ctx context.Context, in *s3.RestoreObjectInput, opts ...func(*s3.Options)) (*s3.RestoreObjectOutput, error) {
	panic("unused")
}
func (f *fakeTeardownS3) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.deletedBatches = append(f.deletedBatches, in.Delete.Objects)
	return &s3.DeleteObjectsOutput{}, nil
}
func (f *fakeTeardownS3) DeleteBucket(ctx context.Context, in *s3.DeleteBucketInput, opts ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	f.bucketDeleted = true
	return &s3.DeleteBucketOutput{}, nil
}
func (f *fakeTeardownS3) ListMultipartUploads(ctx context.Context, in *s3.ListMultipartUploadsInput, opts ...func(*s3.Options)) (*s3.ListMultipartUploadsOutput, error) {
	return &s3.ListMultipartUploadsOutput{Uploads: f.uploads}, nil
}
func (f *fakeTeardownS3) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, opts ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.abortedUploads = append(f.abortedUploads, aws.ToString(in.Key))
	return &s3.AbortMultipartUploadOutput{}, nil
}

func TestDeleteBucket_HappyPath(t *testing.T) {
	s3c := &fakeTeardownS3{
		versions: []types.ObjectVersion{{Key: aws.String("a.txt"), VersionId: aws.String("v1")}},
		markers:  []types.DeleteMarkerEntry{{Key: aws.String("b.txt"), VersionId: aws.String("v2")}},
		uploads:  []types.MultipartUpload{{Key: aws.String("in-progress.bin"), UploadId: aws.String("up1")}},
	}
	st := &fakeTeardownStore{}
	d := New(s3c, st, nil)

	require.NoError(t, d.DeleteBucket(context.Background(), "b1"))
	assert.True(t, s3c.bucketDeleted)
	assert.Equal(t, []string{"in-progress.bin"}, s3c.abortedUploads)
	require.Len(t, s3c.deletedBatches, 1)
	assert.Len(t, s3c.deletedBatches[0], 2)
	assert.Equal(t, []string{"b1"}, st.deleted)
}

func TestDeleteBucket_ResidualObjectsBlockFinalDelete(t *testing.T) {
	s3c := &fakeTeardownS3{residualAfterDelete: true}
	st := &fakeTeardownStore{}
	d := New(s3c, st, nil)

	err := d.DeleteBucket(context.Background(), "b1")
	require.Error(t, err)
	var notEmpty *migerr.BucketNotEmptyError
	assert.ErrorAs(t, err, &notEmpty)
	assert.False(t, s3c.bucketDeleted)
	assert.Empty(t, st.deleted)
}

func TestDeleteBucket_BatchesLargeDeletes(t *testing.T) {
	versions := make([]types.ObjectVersion, 1500)
	for i := range versions {
		versions[i] = types.ObjectVersion{Key: aws.String("k"), VersionId: aws.String("v")}
	}
	s3c := &fakeTeardownS3{versions: versions}
	d := New(s3c, &fakeTeardownStore{}, nil)

	require.NoError(t, d.DeleteBucket(context.Background(), "b1"))
	require.Len(t, s3c.deletedBatches, 2)
	assert.Len(t, s3c.deletedBatches[0], 1000)
	assert.Len(t, s3c.deletedBatches[1], 500)
}
