package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStorageURL(t *testing.T) {
	bucket, key, err := splitStorageURL("https://my-bucket.s3.us-east-2.amazonaws.com/users/u1/documents/d1/notes.pdf")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "users/u1/documents/d1/notes.pdf", key)

	_, _, err = splitStorageURL("https://no-key-here")
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	svc := &DocumentService{}
	key := svc.objectKey("u1", "d1", "  my lecture notes.pdf ")
	assert.Equal(t, "users/u1/documents/d1/my_lecture_notes.pdf", key)
}
