package compressible

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldSkipBySuffix_Image(t *testing.T) {
	assert.Equal(t, "image", ShouldSkipBySuffix("photo.JPG", "photo.jpg"))
}

func TestShouldSkipBySuffix_Video(t *testing.T) {
	assert.Equal(t, "video", ShouldSkipBySuffix("clip.mp4", "clip.mp4"))
}

func TestShouldSkipBySuffix_AlreadyCompressed(t *testing.T) {
	assert.Equal(t, "compressed", ShouldSkipBySuffix("archive.tar.gz", "archive.tar.gz"))
}

func TestShouldSkipBySuffix_NumericExtension(t *testing.T) {
	assert.Equal(t, "numeric_extension", ShouldSkipBySuffix("backup.001", "backup.001"))
}

func TestShouldSkipBySuffix_NoMatchReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", ShouldSkipBySuffix("dataset.bin", "dataset.bin"))
}

func TestShouldSkipBySuffix_PriorityImageBeforeCompressed(t *testing.T) {
	// A name with both an image-like and a compressed-like token should
	// report image first, matching the priority order of the original scan.
	assert.Equal(t, "image", ShouldSkipBySuffix("scan.jpg.gz", "scan.jpg.gz"))
}

func TestParseSize_Megabytes(t *testing.T) {
	n, err := ParseSize("512M")
	assert.NoError(t, err)
	assert.Equal(t, int64(512*1024*1024), n)
}

func TestParseSize_Gigabytes(t *testing.T) {
	n, err := ParseSize("2G")
	assert.NoError(t, err)
	assert.Equal(t, int64(2*1024*1024*1024), n)
}

func TestParseSize_BareInteger(t *testing.T) {
	n, err := ParseSize("1048576")
	assert.NoError(t, err)
	assert.Equal(t, int64(1048576), n)
}

func TestParseSize_Empty(t *testing.T) {
	_, err := ParseSize("")
	assert.Error(t, err)
}

func TestParseSize_Invalid(t *testing.T) {
	_, err := ParseSize("notasize")
	assert.Error(t, err)
}
