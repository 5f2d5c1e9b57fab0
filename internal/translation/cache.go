package translation

import (
	"context"
	"log/slog"

	"babelchat/backend/internal/models"
)

// CacheStore is the persistence needed by Cache; storage.Service implements it.
type CacheStore interface {
	GetTranslation(ctx context.Context, messageID, lang string) (string, bool, error)
	GetTranslations(ctx context.Context, messageIDs []string, lang string) (map[string]string, error)
	SaveTranslation(ctx context.Context, tr *models.MessageTranslation) (bool, error)
}

// Cache is the permanent per-message translation cache. Messages are
// immutable, so an entry never expires and is never rewritten.
type Cache struct {
	store CacheStore
}

func NewCache(store CacheStore) *Cache {
	return &Cache{store: store}
}

// Get returns the cached translation of a message. A store failure is
// reported as a miss so callers fall through to the gateway.
func (c *Cache) Get(ctx context.Context, messageID, lang string) (string, bool) {
	text, ok, err := c.store.GetTranslation(ctx, messageID, lang)
	if err != nil {
		slog.Warn("translation_cache_lookup_failed", "message_id", messageID, "lang", lang, "error", err)
		return "", false
	}
	return text, ok
}

// GetMany is the bulk form of Get. On failure every id is a miss.
func (c *Cache) GetMany(ctx context.Context, messageIDs []string, lang string) map[string]string {
	found, err := c.store.GetTranslations(ctx, messageIDs, lang)
	if err != nil {
		slog.Warn("translation_cache_bulk_lookup_failed", "lang", lang, "count", len(messageIDs), "error", err)
		return map[string]string{}
	}
	return found
}

// Put stores a translation. Writing a pair that is already cached is a no-op.
func (c *Cache) Put(ctx context.Context, messageID, lang, text string) error {
	_, err := c.store.SaveTranslation(ctx, &models.MessageTranslation{
		MessageID:         messageID,
		TargetLanguage:    lang,
		TranslatedContent: text,
	})
	return err
}
