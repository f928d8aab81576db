package httpfetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Fetcher downloads blob bytes from signed URLs
type Fetcher struct {
	client *resty.Client
}

func New(timeout time.Duration) *Fetcher {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "*/*")
	return &Fetcher{client: client}
}

func (f *Fetcher) Fetch(ctx context.Context, signedURL string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(signedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch signed url: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch signed url: unexpected status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}
