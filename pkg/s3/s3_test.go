package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "uploads/01ABC/flights.csv", ObjectKey("uploads", "01ABC", "flights.csv"))
	assert.Equal(t, "uploads/01ABC/flights.csv", ObjectKey("uploads", "01ABC", `C:\data\flights.csv`))
	assert.Equal(t, "uploads/01ABC/passwd", ObjectKey("uploads", "01ABC", "../../etc/passwd"))
}

func TestExtractKeyFromS3Url(t *testing.T) {
	assert.Equal(t, "uploads/01ABC/a%20b.csv",
		extractKeyFromS3Url("https://bucket.s3.amazonaws.com/uploads/01ABC/a%20b.csv"))
	assert.Equal(t, "uploads/01ABC/a.csv", extractKeyFromS3Url("uploads/01ABC/a.csv"))
}
