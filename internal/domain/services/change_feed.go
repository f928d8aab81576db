package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/archivus/sitedocs/pkg/logger"
	"github.com/google/uuid"
)

// ChangeFeed publishes row-change events after writes and drops cached
// document lists of the affected project. Either dependency may be nil.
type ChangeFeed struct {
	bus    ChangeBus
	lists  *listCache
	logger *logger.Logger
}

func NewChangeFeed(bus ChangeBus, cache CacheService, log *logger.Logger) *ChangeFeed {
	return &ChangeFeed{
		bus:    bus,
		lists:  &listCache{cache: cache, logger: log},
		logger: log,
	}
}

// Changed announces a write. Publish failures are logged, never returned.
func (f *ChangeFeed) Changed(ctx context.Context, relation Relation, projectID, entityID uuid.UUID) {
	f.lists.invalidate(ctx, projectID)

	if f.bus == nil {
		return
	}
	event := ChangeEvent{
		Relation:  relation,
		ProjectID: projectID,
		EntityID:  entityID,
		At:        time.Now().UTC(),
	}
	if err := f.bus.Publish(context.WithoutCancel(ctx), event); err != nil {
		f.logger.Warn("Failed to publish change event",
			"relation", relation,
			"project_id", projectID,
			"error", err,
		)
	}
}

// listCache caches unfiltered visible-document lists per project and caller
type listCache struct {
	cache  CacheService
	logger *logger.Logger
}

func (c *listCache) get(ctx context.Context, projectID, caller uuid.UUID) ([]models.Document, bool) {
	if c.cache == nil {
		return nil, false
	}

	var documents []models.Document
	if err := c.cache.Get(ctx, fmt.Sprintf(DocumentListKeyPattern, projectID, caller), &documents); err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("Failed to read document list cache", "project_id", projectID, "error", err)
		}
		return nil, false
	}
	return documents, true
}

// generation returns the project's invalidation token. Readers take it before
// querying and pass it to put, which skips lists an invalidation has overtaken.
func (c *listCache) generation(ctx context.Context, projectID uuid.UUID) string {
	if c.cache == nil {
		return ""
	}

	var token string
	if err := c.cache.Get(ctx, fmt.Sprintf(DocumentListGenerationKeyPattern, projectID), &token); err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("Failed to read document list generation", "project_id", projectID, "error", err)
		}
		return ""
	}
	return token
}

func (c *listCache) put(ctx context.Context, projectID, caller uuid.UUID, generation string, documents []models.Document) {
	if c.cache == nil {
		return
	}
	if current := c.generation(ctx, projectID); current != generation {
		c.logger.Debug("Skipping stale document list", "project_id", projectID)
		return
	}

	key := fmt.Sprintf(DocumentListKeyPattern, projectID, caller)
	if err := c.cache.Set(ctx, key, documents, CacheShortTerm); err != nil {
		c.logger.Warn("Failed to cache document list", "project_id", projectID, "error", err)
		return
	}
	if err := c.cache.SAdd(ctx, fmt.Sprintf(DocumentListIndexKeyPattern, projectID), key); err != nil {
		c.logger.Warn("Failed to index cached document list", "project_id", projectID, "error", err)
	}
}

func (c *listCache) invalidate(ctx context.Context, projectID uuid.UUID) {
	if c.cache == nil {
		return
	}

	generationKey := fmt.Sprintf(DocumentListGenerationKeyPattern, projectID)
	if err := c.cache.Set(ctx, generationKey, uuid.NewString(), CacheShortTerm); err != nil {
		c.logger.Warn("Failed to bump document list generation", "project_id", projectID, "error", err)
	}

	indexKey := fmt.Sprintf(DocumentListIndexKeyPattern, projectID)
	keys, err := c.cache.SMembers(ctx, indexKey)
	if err != nil {
		c.logger.Warn("Failed to read document list index", "project_id", projectID, "error", err)
		return
	}
	if err := c.cache.Delete(ctx, append(keys, indexKey)...); err != nil {
		c.logger.Warn("Failed to invalidate document lists", "project_id", projectID, "error", err)
	}
}
