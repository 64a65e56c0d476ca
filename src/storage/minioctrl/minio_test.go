package minioctrl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectURL(t *testing.T) {
	url := ObjectURL(UploadsBucket, "2024/01/report.pdf")
	assert.Equal(t, "uploads/2024/01/report.pdf", url)

	bucket, object := SplitObjectURL(url)
	assert.Equal(t, UploadsBucket, bucket)
	assert.Equal(t, "2024/01/report.pdf", object)

	bucket, object = SplitObjectURL("no-slash")
	assert.Empty(t, bucket)
	assert.Empty(t, object)
}

func TestNewMinioService(t *testing.T) {
	svc, err := NewMinioService("localhost:9000", "minioadmin", "minioadmin", false)
	assert.NoError(t, err)
	assert.NotNil(t, svc)
}
