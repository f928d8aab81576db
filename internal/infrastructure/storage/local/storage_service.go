package local

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrURLExpired       = errors.New("signed url expired")
)

// FilesRoute is where the HTTP layer serves signed local blobs
const FilesRoute = "/api/v1/files"

// StorageService keeps blobs on the local filesystem and signs download URLs
// with an HMAC so they can be served by the API itself.
type StorageService struct {
	basePath string
	baseURL  string
	secret   []byte
	now      func() time.Time
}

func NewStorageService(basePath, publicBaseURL, signingSecret string) *StorageService {
	return &StorageService{
		basePath: basePath,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		secret:   []byte(signingSecret),
		now:      time.Now,
	}
}

// fullPath resolves a blob path inside basePath
func (s *StorageService) fullPath(path string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(filepath.Clean("/"+path)))
}

func (s *StorageService) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	fullPath := s.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(fullPath)
		return fmt.Errorf("failed to write file content: %w", err)
	}
	return file.Close()
}

// Remove deletes the given blobs. Missing files are not an error.
func (s *StorageService) Remove(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := os.Remove(s.fullPath(path)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

func (s *StorageService) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	if _, err := os.Stat(s.fullPath(path)); err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	expires := s.now().Add(ttl).Unix()
	query := url.Values{}
	query.Set("expires", strconv.FormatInt(expires, 10))
	query.Set("signature", s.sign(path, expires))

	return fmt.Sprintf("%s%s/%s?%s", s.baseURL, FilesRoute, strings.TrimPrefix(path, "/"), query.Encode()), nil
}

// Open verifies a signed request and opens the blob
func (s *StorageService) Open(path, expires, signature string) (*os.File, error) {
	path = strings.TrimPrefix(path, "/")

	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return nil, ErrInvalidSignature
	}
	expected := s.sign(path, exp)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrInvalidSignature
	}
	if s.now().Unix() > exp {
		return nil, ErrURLExpired
	}

	return os.Open(s.fullPath(path))
}

func (s *StorageService) sign(path string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", strings.TrimPrefix(path, "/"), expires)
	return hex.EncodeToString(mac.Sum(nil))
}
