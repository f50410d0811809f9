package uploadService

import (
	"strings"
	"testing"

	"AirlineETL/internal/api/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert_Docx(t *testing.T) {
	f := newFixture(t, Config{})
	content := buildDocx(t, []string{"name", "note"}, []string{"Garuda", `says "hi", twice`})

	res, err := f.svc.Convert(testCtx(), fileHeader(t, "report.docx", content, ""))
	require.NoError(t, err)
	assert.Equal(t, "report.csv", res.Filename)
	assert.Equal(t, "name,note\nGaruda,\"says \"\"hi\"\", twice\"", res.CSV)
}

func TestConvert_DocxByContentType(t *testing.T) {
	f := newFixture(t, Config{})
	content := buildDocx(t, []string{"a"}, []string{"1"})

	res, err := f.svc.Convert(testCtx(), fileHeader(t, "blob", content,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
	require.NoError(t, err)
	assert.Equal(t, "blob.csv", res.Filename)
	assert.True(t, strings.HasPrefix(res.CSV, "a\n"))
}

func TestConvert_CSVPassThrough(t *testing.T) {
	f := newFixture(t, Config{})

	res, err := f.svc.Convert(testCtx(), fileHeader(t, "flights.csv", []byte("a,b\n1,2\n"), "text/csv"))
	require.NoError(t, err)
	assert.Equal(t, "flights.csv", res.Filename)
	assert.Equal(t, "a,b\n1,2\n", res.CSV)

	res, err = f.svc.Convert(testCtx(), fileHeader(t, "export.txt", []byte("a;b\n1;2\n"), "text/plain"))
	require.NoError(t, err)
	assert.Equal(t, "data.csv", res.Filename)
}

func TestConvert_Rejections(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.svc.Convert(testCtx(), nil)
	assert.ErrorIs(t, err, upload.ErrNoFile)

	_, err = f.svc.Convert(testCtx(), fileHeader(t, "empty.csv", nil, ""))
	assert.ErrorIs(t, err, upload.ErrEmptyFile)

	_, err = f.svc.Convert(testCtx(), fileHeader(t, "picture.png", []byte("\x89PNG\r\n\x1a\n\x00\x00"), "image/png"))
	assert.ErrorIs(t, err, upload.ErrUnsupportedMediaType)

	_, err = f.svc.Convert(testCtx(), fileHeader(t, "huge.csv", []byte(strings.Repeat("a,b\n", 300*1024)), ""))
	assert.ErrorIs(t, err, upload.ErrFileTooLarge)
}
