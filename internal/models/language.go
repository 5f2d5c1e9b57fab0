package models

import "strings"

// DefaultLanguage is used when a viewer has no preferred language.
const DefaultLanguage = "en"

// Language describes one supported display language.
type Language struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
}

// SupportedLanguages are the languages a profile can choose as preferred language.
var SupportedLanguages = []Language{
	{Code: "en", Name: "English", NativeName: "English"},
	{Code: "es", Name: "Spanish", NativeName: "Español"},
	{Code: "fr", Name: "French", NativeName: "Français"},
	{Code: "de", Name: "German", NativeName: "Deutsch"},
	{Code: "ja", Name: "Japanese", NativeName: "日本語"},
	{Code: "hi", Name: "Hindi", NativeName: "हिन्दी"},
}

// NormalizeLanguage lower-cases a locale and strips its region part,
// so "pt-BR" and "pt_br" both become "pt".
func NormalizeLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	return code
}

// IsSupportedLanguage reports whether code is one of SupportedLanguages.
func IsSupportedLanguage(code string) bool {
	code = NormalizeLanguage(code)
	for _, l := range SupportedLanguages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// LanguageName returns the English name for a code, or the code itself.
func LanguageName(code string) string {
	code = NormalizeLanguage(code)
	for _, l := range SupportedLanguages {
		if l.Code == code {
			return l.Name
		}
	}
	return code
}
