// Package i18n translates the strings reportforge draws into decks and
// reports: placeholder labels and report headings. Keys missing from the
// active language fall back to English, then to the key itself.
package i18n

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type Language string

const (
	English Language = "English"
	Chinese Language = "简体中文"
)

// Translator looks keys up in per-language tables.
type Translator struct {
	mu     sync.RWMutex
	lang   Language
	tables map[Language]map[string]string
}

// NewTranslator returns a translator with the built-in tables, set to lang.
func NewTranslator(lang Language) *Translator {
	return &Translator{
		lang: lang,
		tables: map[Language]map[string]string{
			English: englishTranslations,
			Chinese: chineseTranslations,
		},
	}
}

var (
	shared     *Translator
	sharedOnce sync.Once
)

// GetTranslator returns the process-wide translator, English until
// SetLanguage is called.
func GetTranslator() *Translator {
	sharedOnce.Do(func() { shared = NewTranslator(English) })
	return shared
}

func (t *Translator) SetLanguage(lang Language) {
	t.mu.Lock()
	t.lang = lang
	t.mu.Unlock()
}

func (t *Translator) GetLanguage() Language {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lang
}

// T formats key in the current language with fmt verbs.
func (t *Translator) T(key string, params ...interface{}) string {
	t.mu.RLock()
	text, ok := t.tables[t.lang][key]
	if !ok {
		text, ok = t.tables[English][key]
	}
	t.mu.RUnlock()

	if !ok {
		return key
	}
	if len(params) == 0 {
		return text
	}
	return fmt.Sprintf(text, params...)
}

// Keys lists the keys of lang, sorted.
func (t *Translator) Keys(lang Language) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.tables[lang]))
	for k := range t.tables[lang] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func T(key string, params ...interface{}) string { return GetTranslator().T(key, params...) }

func SetLanguage(lang Language) { GetTranslator().SetLanguage(lang) }

func GetLanguage() Language { return GetTranslator().GetLanguage() }

// ParseLanguage accepts a language name or code; anything unknown is English.
func ParseLanguage(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "简体中文", "zh", "zh-cn", "zh_cn", "chinese":
		return Chinese
	}
	return English
}
