package translation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"babelchat/backend/internal/models"

	"golang.org/x/sync/errgroup"
)

// TextTranslator is the gateway contract used by Service.
type TextTranslator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Result is the outcome of resolving one message for one viewer language.
type Result struct {
	Text string
	// NotNeeded is set when the message is already in the target language.
	NotNeeded bool
	FromCache bool
	// Fallback is set when the gateway failed and Text is the original content.
	Fallback bool
}

// Service resolves message translations: permanent cache first, then the
// gateway, writing successful results back to the cache.
type Service struct {
	cache       *Cache
	gateway     TextTranslator
	concurrency int
}

func NewService(cache *Cache, gateway TextTranslator, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Service{cache: cache, gateway: gateway, concurrency: concurrency}
}

// NeedsTranslation reports whether a message in source must be translated for a target viewer.
func NeedsTranslation(source, target string) bool {
	return models.NormalizeLanguage(source) != models.NormalizeLanguage(target)
}

// Lookup is the cache-only step of Resolve.
func (s *Service) Lookup(ctx context.Context, msg models.Message, lang string) (string, bool) {
	if !NeedsTranslation(msg.SourceLanguage, lang) {
		return msg.Content, true
	}
	return s.cache.Get(ctx, msg.ID, models.NormalizeLanguage(lang))
}

// Resolve returns the text to display for msg to a viewer reading lang.
// It never fails: a gateway failure yields the original content with
// Fallback set, and that outcome is not cached.
func (s *Service) Resolve(ctx context.Context, msg models.Message, lang string) Result {
	if !NeedsTranslation(msg.SourceLanguage, lang) {
		return Result{Text: msg.Content, NotNeeded: true}
	}
	lang = models.NormalizeLanguage(lang)

	if text, ok := s.cache.Get(ctx, msg.ID, lang); ok {
		return Result{Text: text, FromCache: true}
	}
	return s.translateMiss(ctx, msg, lang)
}

// TranslateMessage skips the cache read and goes straight to the gateway.
// Callers use it after Lookup has already missed.
func (s *Service) TranslateMessage(ctx context.Context, msg models.Message, lang string) Result {
	if !NeedsTranslation(msg.SourceLanguage, lang) {
		return Result{Text: msg.Content, NotNeeded: true}
	}
	return s.translateMiss(ctx, msg, models.NormalizeLanguage(lang))
}

func (s *Service) translateMiss(ctx context.Context, msg models.Message, lang string) Result {
	translated, err := s.gateway.Translate(ctx, msg.Content, msg.SourceLanguage, lang)
	if err != nil {
		if !errors.Is(err, ErrTranslationUnavailable) {
			slog.Warn("translation_gateway_error", "message_id", msg.ID, "lang", lang, "error", err)
		}
		return Result{Text: msg.Content, Fallback: true}
	}

	if err := s.cache.Put(ctx, msg.ID, lang, translated); err != nil {
		slog.Warn("translation_cache_write_failed", "message_id", msg.ID, "lang", lang, "error", err)
	}
	return Result{Text: translated}
}

// BatchTranslate resolves many messages at once: one bulk cache lookup, then
// the misses are translated in parallel, bounded by the service concurrency.
func (s *Service) BatchTranslate(ctx context.Context, msgs []models.Message, lang string) map[string]Result {
	lang = models.NormalizeLanguage(lang)
	results := make(map[string]Result, len(msgs))

	var pending []models.Message
	var ids []string
	for _, m := range msgs {
		if !NeedsTranslation(m.SourceLanguage, lang) {
			results[m.ID] = Result{Text: m.Content, NotNeeded: true}
			continue
		}
		pending = append(pending, m)
		ids = append(ids, m.ID)
	}
	if len(pending) == 0 {
		return results
	}

	cached := s.cache.GetMany(ctx, ids, lang)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.concurrency)
	for _, m := range pending {
		if text, ok := cached[m.ID]; ok {
			mu.Lock()
			results[m.ID] = Result{Text: text, FromCache: true}
			mu.Unlock()
			continue
		}
		m := m
		g.Go(func() error {
			r := s.translateMiss(ctx, m, lang)
			mu.Lock()
			results[m.ID] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}
