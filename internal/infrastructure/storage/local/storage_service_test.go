package local

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *StorageService {
	t.Helper()
	return NewStorageService(t.TempDir(), "http://localhost:8080/", "test-secret")
}

func signedParts(t *testing.T, raw string) (path, expires, signature string) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return strings.TrimPrefix(u.Path, FilesRoute+"/"), u.Query().Get("expires"), u.Query().Get("signature")
}

func TestStorage_PutAndOpen(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	content := []byte("drawing bytes")

	require.NoError(t, s.Put(ctx, "p1/plan.pdf", bytes.NewReader(content), int64(len(content)), "application/pdf"))

	raw, err := s.SignedURL(ctx, "p1/plan.pdf", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "http://localhost:8080/api/v1/files/p1/plan.pdf?"))

	path, expires, sig := signedParts(t, raw)
	f, err := s.Open(path, expires, sig)
	require.NoError(t, err)
	defer f.Close()

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestStorage_PutRefusesOverwrite(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "p1/a.txt", strings.NewReader("one"), 3, "text/plain"))
	assert.Error(t, s.Put(ctx, "p1/a.txt", strings.NewReader("two"), 3, "text/plain"))
}

func TestStorage_OpenRejectsTamperingAndExpiry(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "p1/a.txt", strings.NewReader("a"), 1, "text/plain"))
	require.NoError(t, s.Put(ctx, "p1/b.txt", strings.NewReader("b"), 1, "text/plain"))

	raw, err := s.SignedURL(ctx, "p1/a.txt", time.Minute)
	require.NoError(t, err)
	_, expires, sig := signedParts(t, raw)

	_, err = s.Open("p1/b.txt", expires, sig)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = s.Open("p1/a.txt", "not-a-number", sig)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = s.Open("p1/a.txt", expires, sig)
	assert.ErrorIs(t, err, ErrURLExpired)
}

func TestStorage_RemoveIgnoresMissing(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "p1/a.txt", strings.NewReader("a"), 1, "text/plain"))

	require.NoError(t, s.Remove(ctx, []string{"p1/a.txt", "p1/missing.txt"}))
	_, err := os.Stat(filepath.Join(s.basePath, "p1", "a.txt"))
	assert.True(t, os.IsNotExist(err))

	_, err = s.SignedURL(ctx, "p1/a.txt", time.Minute)
	assert.Error(t, err)
}

func TestStorage_PathsStayInsideBase(t *testing.T) {
	s := newTestStorage(t)
	assert.Equal(t, filepath.Join(s.basePath, "etc", "passwd"), s.fullPath("../../etc/passwd"))
}
