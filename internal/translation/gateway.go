package translation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"babelchat/backend/internal/models"
)

// Backend is the network side of the gateway, implemented by lingo.Client.
type Backend interface {
	Localize(ctx context.Context, text, source, target string) (string, error)
	Recognize(ctx context.Context, text string) (string, error)
}

// Gateway turns (text, source, target) into translated text. It never
// blocks a conversation on the backend: failures return the input text.
type Gateway struct {
	backend Backend
	proxy   *ProxyCache
	timeout time.Duration
}

// NewGateway builds a gateway. proxy may be nil.
func NewGateway(backend Backend, proxy *ProxyCache, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{backend: backend, proxy: proxy, timeout: timeout}
}

// Translate returns text translated from source to target. When the
// languages match or text is blank it returns text without any network
// call. On failure it returns text unchanged together with an error
// wrapping ErrTranslationUnavailable.
func (g *Gateway) Translate(ctx context.Context, text, source, target string) (string, error) {
	src, tgt := models.NormalizeLanguage(source), models.NormalizeLanguage(target)
	if src == tgt || strings.TrimSpace(text) == "" {
		return text, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	call := func(ctx context.Context) (string, error) {
		return g.backend.Localize(ctx, text, src, tgt)
	}

	var (
		translated string
		err        error
	)
	if g.proxy != nil {
		translated, err = g.proxy.Do(ctx, text, src, tgt, call)
	} else {
		translated, err = call(ctx)
	}
	if err != nil {
		slog.Warn("translation_failed", "source", src, "target", tgt, "error", err)
		return text, fmt.Errorf("%w: %v", ErrTranslationUnavailable, err)
	}
	if translated == "" {
		return text, fmt.Errorf("%w: empty result", ErrTranslationUnavailable)
	}
	return translated, nil
}

// DetectLanguage asks the backend for the language of text and falls back
// to DetectHeuristic when the backend fails, gives no answer or answers a
// language outside SupportedLanguages.
func (g *Gateway) DetectLanguage(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return models.DefaultLanguage
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	locale, err := g.backend.Recognize(ctx, text)
	if err != nil {
		slog.Debug("detect_language_fallback", "error", err)
		return DetectHeuristic(text)
	}
	locale = models.NormalizeLanguage(locale)
	if locale == "" || !models.IsSupportedLanguage(locale) {
		return DetectHeuristic(text)
	}
	return locale
}
