package validation

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// mp4 files start with an ftyp box carrying an mp4 brand
var mp4Header = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("files", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	return req.MultipartForm.File["files"][0]
}

func TestValidateFileDetectsMediaType(t *testing.T) {
	got, err := ValidateFile(fileHeader(t, "banner.PNG", pngHeader), ImageConstraints, VideoConstraints)
	require.NoError(t, err)
	assert.Equal(t, "image", got.MediaType)
	assert.Equal(t, "image/png", got.MimeType)
	assert.Equal(t, ".png", got.Ext)

	got, err = ValidateFile(fileHeader(t, "promo.mp4", mp4Header), ImageConstraints, VideoConstraints)
	require.NoError(t, err)
	assert.Equal(t, "video", got.MediaType)
	assert.Equal(t, "video/mp4", got.MimeType)
}

func TestValidateFileRejects(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
	}{
		{name: "text disguised as image", filename: "evil.png", content: []byte("hello world, not an image")},
		{name: "image with wrong extension", filename: "banner.exe", content: pngHeader},
		{name: "empty file", filename: "empty.png", content: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateFile(fileHeader(t, tt.filename, tt.content), ImageConstraints, VideoConstraints)
			assert.Error(t, err)
		})
	}
}

func TestValidateFileEnforcesSize(t *testing.T) {
	h := fileHeader(t, "banner.png", pngHeader)
	h.Size = ImageConstraints.MaxSize + 1

	_, err := ValidateFile(h, ImageConstraints)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("pw123"))
	assert.NoError(t, ValidatePassword("correct horse battery staple"))

	assert.Error(t, ValidatePassword("pw12"))
	assert.Error(t, ValidatePassword(strings.Repeat("a", 73)))
	assert.Error(t, ValidatePassword("Password"))
	assert.Error(t, ValidatePassword("123456"))
}

func TestValidateEmailAndName(t *testing.T) {
	assert.NoError(t, ValidateEmail("alice@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@example.com"))

	assert.NoError(t, ValidateName("Alice"))
	assert.Error(t, ValidateName("   "))
	assert.Error(t, ValidateName(strings.Repeat("x", 101)))
}
