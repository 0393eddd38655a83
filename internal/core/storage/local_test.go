package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileHeader(t *testing.T, name string, body []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", name)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["image"][0]
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveImageAndRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocal(dir, "/uploads", 1<<20)
	require.NoError(t, err)

	url, err := s.SaveImage(fileHeader(t, "fone.png", pngBytes(t)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	stored := filepath.Join(dir, filepath.Base(url))
	assert.FileExists(t, stored)

	require.NoError(t, s.Remove(url))
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, s.Remove("/elsewhere/x.png"))
}

func TestSaveImageRejectsNonImage(t *testing.T) {
	s, err := NewLocal(t.TempDir(), "/uploads", 1<<20)
	require.NoError(t, err)
	_, err = s.SaveImage(fileHeader(t, "notes.txt", []byte("plain text file")))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSaveImageTooLarge(t *testing.T) {
	s, err := NewLocal(t.TempDir(), "/uploads", 10)
	require.NoError(t, err)
	_, err = s.SaveImage(fileHeader(t, "big.png", pngBytes(t)))
	assert.ErrorIs(t, err, ErrTooLarge)
}
