package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStorage(root, "https://ads.example.com/uploads/")
	require.NoError(t, err)

	key := "media/user-1/clip.mp4"
	require.NoError(t, s.Save(ctx, key, strings.NewReader("frames"), "video/mp4"))

	data, err := os.ReadFile(filepath.Join(root, "media", "user-1", "clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "frames", string(data))
	assert.Equal(t, "https://ads.example.com/uploads/media/user-1/clip.mp4", s.URL(ctx, key))

	srv := httptest.NewServer(http.StripPrefix("/uploads/", s.Handler()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/uploads/" + key)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "frames", string(body))

	resp, err = http.Get(srv.URL + "/uploads/media/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "directories are not listed")

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key), "deleting a missing object is not an error")
	_, err = os.Stat(filepath.Join(root, "media", "user-1", "clip.mp4"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageKeysStayUnderRoot(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	err = s.Save(context.Background(), "../../etc/passwd", strings.NewReader("x"), "")
	// Clean("/"+key) pins the key under root, so this lands inside it.
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(s.root, "etc", "passwd"))
	assert.NoError(t, err)

	assert.Error(t, s.Save(context.Background(), "", strings.NewReader("x"), ""), "empty key resolves to the root itself")
}
