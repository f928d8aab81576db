package services

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by CacheService.Get for absent keys
var ErrCacheMiss = errors.New("cache miss")

// CacheService interface for caching operations
type CacheService interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// Get decodes the JSON value stored at key into dest
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error

	SAdd(ctx context.Context, key string, members ...interface{}) error
	SMembers(ctx context.Context, key string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}

// Cache key patterns for the application
const (
	DocumentListKeyPattern           = "doc_list:%s:%s"   // project:user
	DocumentListIndexKeyPattern      = "doc_list_keys:%s" // project
	DocumentListGenerationKeyPattern = "doc_list_gen:%s"  // project
)

// CacheShortTerm bounds how long a document list stays cached
const CacheShortTerm = 5 * time.Minute
