package factory

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportforge/errs"
	"reportforge/templates"
)

func validConfig(t templates.ElementType) templates.ElementConfig {
	cfg := templates.ElementConfig{Type: t}
	switch t {
	case templates.TypeText:
		cfg.Text = &templates.TextConfig{TextSource: templates.TextSource{Content: "hi"}}
	case templates.TypeTable:
		cfg.Table = &templates.TableConfig{TableSource: templates.TableSource{Columns: []string{"A"}}}
	case templates.TypeImage:
		cfg.Image = &templates.ImageConfig{ImageSource: templates.ImageSource{Path: "logo.png"}}
	case templates.TypeChart:
		cfg.Chart = &templates.ChartConfig{ChartSource: templates.ChartSource{XColumn: "A", YColumn: "B"}}
	case templates.TypeSummary:
		cfg.Summary = &templates.SummaryConfig{}
	}
	return cfg
}

func TestCreate_EveryRegisteredType(t *testing.T) {
	f := New(nil)
	for _, name := range SupportedTypes() {
		typ := templates.ElementType(name)
		el, err := f.Create(validConfig(typ))
		require.NoError(t, err, name)
		assert.Equal(t, typ, el.Type())
		assert.Equal(t, typ, el.Serialize().Type)
	}
}

func TestCreate_UnknownType(t *testing.T) {
	_, err := New(nil).Create(templates.ElementConfig{Type: "chrt"})
	var ce *errs.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "chrt", ce.Type)
	assert.Equal(t, "chart", ce.Suggestion)
	assert.Contains(t, err.Error(), `"chrt"`)

	_, err = New(nil).Create(templates.ElementConfig{})
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "missing element type", ce.Reason)
}

func TestCreate_ValidatesConfig(t *testing.T) {
	cfg := validConfig(templates.TypeChart)
	cfg.Chart.YColumn = ""
	_, err := New(nil).Create(cfg)
	assert.Equal(t, errs.KindConfiguration, errs.KindOf(err))
}

func TestCreate_RefusesDecodeError(t *testing.T) {
	var cfg templates.ElementConfig
	require.NoError(t, json.Unmarshal([]byte(`{"type": "chart", "data_source": {"x_column": "A", "y_column": "B", "top_n": "5"}}`), &cfg))

	_, err := New(nil).Create(cfg)
	var ce *errs.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "chart", ce.Type)
	assert.Equal(t, "top_n", ce.Field)
	assert.Error(t, New(nil).ValidateOnly(cfg))
}

func TestCreateMany_IndexQualified(t *testing.T) {
	f := New(nil)
	cfgs := []templates.ElementConfig{
		validConfig(templates.TypeText),
		validConfig(templates.TypeTable),
		{Type: "gauge"},
		validConfig(templates.TypeSummary),
	}
	els, err := f.CreateMany(cfgs)
	assert.Nil(t, els)
	var ce *errs.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 2, ce.Index)
	assert.Contains(t, err.Error(), "component 2")

	els, err = f.CreateMany(cfgs[:2])
	require.NoError(t, err)
	assert.Len(t, els, 2)
}

func TestValidateOnly(t *testing.T) {
	f := New(nil)
	assert.NoError(t, f.ValidateOnly(validConfig(templates.TypeImage)))
	assert.Error(t, f.ValidateOnly(templates.ElementConfig{Type: templates.TypeImage, Image: &templates.ImageConfig{}}))
}

func TestSupportedTypesStable(t *testing.T) {
	assert.Equal(t, []string{"text", "table", "image", "chart", "summary"}, SupportedTypes())
}
