package translation

import "errors"

// ErrTranslationUnavailable wraps every failure of the translation backend.
// Callers on the message display path get the original text alongside it
// and are expected to show that text instead of surfacing the error.
var ErrTranslationUnavailable = errors.New("translation unavailable")
