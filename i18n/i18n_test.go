package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestT_FormatsParameters(t *testing.T) {
	SetLanguage(English)
	assert.Equal(t, "[Unknown Element: gauge]", T("placeholder.unknown_element", "gauge"))
	assert.Equal(t, "[chart]\nData unavailable", T("placeholder.data_unavailable", "chart"))
	assert.Equal(t, "Total jobs", T("batch.total"))
}

func TestT_MissingKeyReturnsKey(t *testing.T) {
	SetLanguage(English)
	assert.Equal(t, "no.such.key", T("no.such.key"))
}

func TestSetLanguage_Chinese(t *testing.T) {
	SetLanguage(Chinese)
	defer SetLanguage(English)

	assert.Equal(t, Chinese, GetLanguage())
	assert.NotEqual(t, englishTranslations["batch.title"], T("batch.title"))
	assert.Contains(t, T("placeholder.unknown_element", "gauge"), "gauge")
}

func TestParseLanguage(t *testing.T) {
	cases := map[string]Language{
		"":        English,
		"English": English,
		"fr":      English,
		"zh":      Chinese,
		" zh-CN ": Chinese,
		"Chinese": Chinese,
		"简体中文":    Chinese,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLanguage(in), in)
	}
}

func TestTranslations_SameKeys(t *testing.T) {
	tr := GetTranslator()
	assert.Equal(t, tr.Keys(English), tr.Keys(Chinese))
	for key, en := range englishTranslations {
		assert.NotEmpty(t, en, key)
		assert.NotEmpty(t, chineseTranslations[key], key)
	}
}

func TestTranslator_FallsBackToEnglish(t *testing.T) {
	tr := NewTranslator("Klingon")
	assert.Equal(t, "Pages", tr.T("report.pages"))
	assert.Equal(t, Language("Klingon"), tr.GetLanguage())
}
