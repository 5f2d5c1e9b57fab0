package translation

import (
	"regexp"

	"babelchat/backend/internal/models"
)

type scriptRule struct {
	lang    string
	pattern *regexp.Regexp
}

// Kana is checked before Han: Japanese text mixes kanji with kana, while
// Chinese text has no kana. Devanagari is reported as Hindi even though
// Marathi and Nepali share the script.
var scriptRules = []scriptRule{
	{"ja", regexp.MustCompile(`[\x{3040}-\x{309f}\x{30a0}-\x{30ff}]`)},
	{"zh", regexp.MustCompile(`[\x{4e00}-\x{9fa5}]`)},
	{"ar", regexp.MustCompile(`[\x{0600}-\x{06ff}]`)},
	{"hi", regexp.MustCompile(`[\x{0900}-\x{097f}]`)},
	{"ko", regexp.MustCompile(`[\x{ac00}-\x{d7af}]`)},
	{"es", regexp.MustCompile(`(?i)[áéíóúüñ¿¡]`)},
	{"fr", regexp.MustCompile(`(?i)[àâäçèéêëîïôùûüœæ]`)},
	{"de", regexp.MustCompile(`(?i)[äöüß]`)},
}

// DetectHeuristic guesses the language of text from the scripts and
// accented letters it contains. Text with no distinguishing characters is
// reported as English.
func DetectHeuristic(text string) string {
	for _, rule := range scriptRules {
		if rule.pattern.MatchString(text) {
			return rule.lang
		}
	}
	return models.DefaultLanguage
}
