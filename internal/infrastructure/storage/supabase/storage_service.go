package supabase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	supabase "github.com/nedpals/supabase-go"
)

type StorageService struct {
	client     *supabase.Client
	baseURL    string
	bucketName string
}

type Config struct {
	URL    string
	APIKey string
	Bucket string
}

func NewStorageService(config Config) (*StorageService, error) {
	client := supabase.CreateClient(config.URL, config.APIKey)
	if client == nil {
		return nil, fmt.Errorf("failed to create Supabase client")
	}

	return &StorageService{
		client:     client,
		baseURL:    strings.TrimRight(config.URL, "/"),
		bucketName: config.Bucket,
	}, nil
}

func (s *StorageService) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	fileOptions := &supabase.FileUploadOptions{
		ContentType: contentType,
		Upsert:      false,
	}

	response := s.client.Storage.From(s.bucketName).Upload(path, r, fileOptions)
	if response.Key == "" {
		return fmt.Errorf("failed to upload file to Supabase: %s", response.Message)
	}
	return nil
}

func (s *StorageService) Remove(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	response := s.client.Storage.From(s.bucketName).Remove(paths)
	if response.Message != "" && response.Key == "" {
		return fmt.Errorf("failed to delete files from Supabase: %s", response.Message)
	}
	return nil
}

// SignedURL returns an absolute, time-limited download URL
func (s *StorageService) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	signed := s.client.Storage.From(s.bucketName).CreateSignedUrl(path, int(ttl.Seconds()))
	if signed.SignedUrl == "" {
		return "", fmt.Errorf("failed to generate signed URL for %s", path)
	}

	// the storage API answers with a path relative to /storage/v1
	if strings.HasPrefix(signed.SignedUrl, "/") {
		return s.baseURL + "/storage/v1" + signed.SignedUrl, nil
	}
	return signed.SignedUrl, nil
}
