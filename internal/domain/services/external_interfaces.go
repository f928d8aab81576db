package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// External service interfaces that our domain services depend on

// BlobStore stores file bytes and hands out time-limited retrieval URLs
type BlobStore interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, paths []string) error
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// BlobFetcher retrieves bytes from a signed URL
type BlobFetcher interface {
	Fetch(ctx context.Context, signedURL string) ([]byte, error)
}

// Relation names a table whose row changes are published
type Relation string

const (
	RelationDocuments        Relation = "documents"
	RelationDocumentVersions Relation = "document_versions"
	RelationApprovals        Relation = "document_approvals"
)

// WatchedRelations are the relations a notifier session subscribes to
var WatchedRelations = []Relation{RelationDocuments, RelationDocumentVersions, RelationApprovals}

// ChangeEvent signals that a row changed. Consumers must not rely on EntityID
// being set; the event carries no diff.
type ChangeEvent struct {
	Relation  Relation  `json:"relation"`
	ProjectID uuid.UUID `json:"project_id"`
	EntityID  uuid.UUID `json:"entity_id,omitempty"`
	At        time.Time `json:"at"`
}

// ChangeBus publishes and subscribes to row-change events keyed by relation and project
type ChangeBus interface {
	Publish(ctx context.Context, event ChangeEvent) error
	Subscribe(ctx context.Context, relation Relation, projectID uuid.UUID) (Subscription, error)
	Close() error
}

// Subscription delivers events until closed
type Subscription interface {
	Events() <-chan ChangeEvent
	Close() error
}

// Identity is an authenticated caller as reported by the auth provider
type Identity struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

// TokenVerifier turns a bearer token into an identity
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}
