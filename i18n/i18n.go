// Package i18n serves the storefront strings for English and Arabic
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Fallback is the language used when a key or language is missing
const Fallback = "en"

// Bundle holds the dictionaries of every supported language
type Bundle struct {
	dict    map[string]map[string]string
	matcher language.Matcher
	tags    []string
}

// Load reads the embedded locale files
func Load() (*Bundle, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	b := &Bundle{dict: map[string]map[string]string{}}
	for _, e := range entries {
		raw, err := localeFS.ReadFile(path.Join("locales", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", e.Name(), err)
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal locale %s: %w", e.Name(), err)
		}
		lang := e.Name()[:len(e.Name())-len(path.Ext(e.Name()))]
		b.dict[lang] = m
	}
	if _, ok := b.dict[Fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %s not loaded", Fallback)
	}

	// the fallback goes first so the matcher defaults to it
	b.tags = append(b.tags, Fallback)
	for lang := range b.dict {
		if lang != Fallback {
			b.tags = append(b.tags, lang)
		}
	}
	sort.Strings(b.tags[1:])
	tags := make([]language.Tag, len(b.tags))
	for i, l := range b.tags {
		tags[i] = language.Make(l)
	}
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

// MustLoad is Load for package init paths where the embedded files are known
// to be valid
func MustLoad() *Bundle {
	b, err := Load()
	if err != nil {
		panic(err)
	}
	return b
}

// Supported lists the loaded languages, fallback first
func (b *Bundle) Supported() []string {
	out := make([]string, len(b.tags))
	copy(out, b.tags)
	return out
}

// T returns the translation of key in lang, falling back to English and
// finally to the key itself
func (b *Bundle) T(lang, key string) string {
	if m, ok := b.dict[lang]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := b.dict[Fallback][key]; ok {
		return v
	}
	return key
}

// Match picks the best supported language for an Accept-Language header
// value
func (b *Bundle) Match(acceptLanguage string) string {
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return Fallback
	}
	_, idx, conf := b.matcher.Match(prefs...)
	if conf == language.No {
		return Fallback
	}
	return b.tags[idx]
}

// Translator binds the bundle to one language
type Translator struct {
	bundle *Bundle
	lang   string
}

// For returns a translator for lang. Unsupported languages use the fallback
func (b *Bundle) For(lang string) Translator {
	if _, ok := b.dict[lang]; !ok {
		lang = Fallback
	}
	return Translator{bundle: b, lang: lang}
}

// T looks up key
func (t Translator) T(key string) string { return t.bundle.T(t.lang, key) }

// Language is the bound language code
func (t Translator) Language() string { return t.lang }
