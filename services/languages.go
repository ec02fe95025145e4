package services

import (
	"sort"

	"github.com/samber/lo"
)

// Language is a narration target the service knows how to name and voice.
type Language struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Locale string `json:"locale"`
	// Voice is the fallback provider voice used when the request names no voice
	// that provider knows.
	Voice string `json:"voice,omitempty"`
}

var languages = map[string]Language{
	"en": {Code: "en", Name: "English", Locale: "en-US", Voice: "en-US-Standard-C"},
	"te": {Code: "te", Name: "Telugu", Locale: "te-IN", Voice: "te-IN-Standard-A"},
	"hi": {Code: "hi", Name: "Hindi", Locale: "hi-IN"},
	"ta": {Code: "ta", Name: "Tamil", Locale: "ta-IN"},
	"kn": {Code: "kn", Name: "Kannada", Locale: "kn-IN"},
	"ml": {Code: "ml", Name: "Malayalam", Locale: "ml-IN"},
	"mr": {Code: "mr", Name: "Marathi", Locale: "mr-IN"},
	"es": {Code: "es", Name: "Spanish", Locale: "es-ES", Voice: "es-ES-Standard-A"},
	"fr": {Code: "fr", Name: "French", Locale: "fr-FR", Voice: "fr-FR-Standard-A"},
	"de": {Code: "de", Name: "German", Locale: "de-DE", Voice: "de-DE-Standard-A"},
	"it": {Code: "it", Name: "Italian", Locale: "it-IT"},
	"pt": {Code: "pt", Name: "Portuguese", Locale: "pt-BR"},
	"ru": {Code: "ru", Name: "Russian", Locale: "ru-RU"},
	"ja": {Code: "ja", Name: "Japanese", Locale: "ja-JP"},
	"ko": {Code: "ko", Name: "Korean", Locale: "ko-KR"},
	"zh": {Code: "zh", Name: "Chinese", Locale: "cmn-CN"},
	"ar": {Code: "ar", Name: "Arabic", Locale: "ar-XA"},
	"bn": {Code: "bn", Name: "Bengali", Locale: "bn-IN"},
	"pa": {Code: "pa", Name: "Punjabi", Locale: "pa-IN"},
}

// LanguageName returns the display name for code, or code itself when unknown.
func LanguageName(code string) string {
	if lang, ok := languages[code]; ok {
		return lang.Name
	}
	return code
}

// LanguageLocale expands a short code to a BCP-47 locale, or returns code unchanged.
func LanguageLocale(code string) string {
	if lang, ok := languages[code]; ok {
		return lang.Locale
	}
	return code
}

// LanguageVoice returns the fallback provider voice for code, or "" to let the
// backend pick one for the locale.
func LanguageVoice(code string) string {
	return languages[code].Voice
}

// SupportedLanguages lists the known targets ordered by code.
func SupportedLanguages() []Language {
	list := lo.Values(languages)
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list
}
