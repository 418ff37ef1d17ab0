package mapper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"reportforge/dataset"
	"reportforge/errs"
	"reportforge/templates"
)

var fixedNow = time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)

func newSalesMapper(t *testing.T) *Mapper {
	t.Helper()
	m := New(WithClock(func() time.Time { return fixedNow }))
	ds := dataset.New(
		[]string{"Region", "Revenue", "Units"},
		[][]any{
			{"North", 120.0, int64(10)},
			{"South", 340.0, int64(30)},
			{"East", 80.0, int64(5)},
			{"West", 210.0, int64(12)},
		},
	)
	m.SetDataset(ds, dataset.Meta{FileName: "sales.csv", FilePath: "/data/sales.csv", LoadedAt: fixedNow})
	return m
}

func boolPtr(b bool) *bool { return &b }

func TestVariableDict_Precedence(t *testing.T) {
	m := newSalesMapper(t)
	m.SetDeclaredVariables(map[string]string{"company": "Acme", "year": "FY24"})

	vars := m.VariableDict(map[string]string{"company": "Globex"})
	assert.Equal(t, "2024-03-05", vars["date"])
	assert.Equal(t, "March", vars["month"])
	assert.Equal(t, "5", vars["day"])
	assert.Equal(t, "14:30", vars["time"])
	assert.Equal(t, "4", vars["row_count"])
	assert.Equal(t, "sales.csv", vars["file_name"])
	assert.Equal(t, "FY24", vars["year"], "declared variables override defaults")
	assert.Equal(t, "Globex", vars["company"], "custom variables override declared ones")
}

func TestVariableDict_NoDataset(t *testing.T) {
	m := New(WithClock(func() time.Time { return fixedNow }))
	vars := m.VariableDict(nil)
	assert.Equal(t, "2024", vars["year"])
	_, ok := vars["row_count"]
	assert.False(t, ok)
}

func TestDataForComponent_Text(t *testing.T) {
	m := newSalesMapper(t)
	cfg := templates.ElementConfig{
		Type: templates.TypeText,
		Text: &templates.TextConfig{TextSource: templates.TextSource{
			Content:   "{title}",
			Variables: map[string]string{"title": "Element", "owner": "ops"},
		}},
	}
	data, err := m.DataForComponent(cfg, map[string]string{"title": "Runtime"})
	require.NoError(t, err)
	assert.Equal(t, "Runtime", data.Variables["title"])
	assert.Equal(t, "ops", data.Variables["owner"])
}

func TestDataForComponent_TableTopN(t *testing.T) {
	m := newSalesMapper(t)
	cfg := templates.ElementConfig{
		Type: templates.TypeTable,
		Table: &templates.TableConfig{TableSource: templates.TableSource{
			Columns:       []string{"Region", "Revenue", "Missing"},
			ColumnMapping: map[string]string{"Revenue": "Sales"},
			SortBy:        "Revenue",
			Ascending:     boolPtr(false),
			TopN:          2,
		}},
	}
	data, err := m.DataForComponent(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Region", "Sales"}, data.Dataset.Columns())
	assert.Equal(t, []any{"South", "West"}, data.Dataset.Column("Region"))
}

func TestDataForComponent_TableNoKnownColumns(t *testing.T) {
	m := newSalesMapper(t)
	cfg := templates.ElementConfig{
		Type:  templates.TypeTable,
		Table: &templates.TableConfig{TableSource: templates.TableSource{Columns: []string{"Revnue"}}},
	}
	_, err := m.DataForComponent(cfg, nil)
	var de *errs.DataUnavailableError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "Revenue", de.Suggestion)
}

func TestDataForComponent_ChartMissingY(t *testing.T) {
	m := newSalesMapper(t)
	cfg := templates.ElementConfig{
		Type:  templates.TypeChart,
		Chart: &templates.ChartConfig{ChartSource: templates.ChartSource{ChartType: "bar", XColumn: "Region", YColumn: "Profit"}},
	}
	_, err := m.DataForComponent(cfg, nil)
	assert.Equal(t, errs.KindData, errs.KindOf(err))
}

func TestDataForComponent_ChartColumns(t *testing.T) {
	m := newSalesMapper(t)
	cfg := templates.ElementConfig{
		Type:  templates.TypeChart,
		Chart: &templates.ChartConfig{ChartSource: templates.ChartSource{ChartType: "bar", XColumn: "Region", YColumn: "Units", SortBy: "Units", TopN: 3}},
	}
	data, err := m.DataForComponent(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Region", "Units"}, data.Dataset.Columns())
	assert.Equal(t, []any{int64(30), int64(12), int64(10)}, data.Dataset.Column("Units"))
}

func TestDataForComponent_ChartSortsByUnplottedColumn(t *testing.T) {
	m := newSalesMapper(t)
	cfg := templates.ElementConfig{
		Type:  templates.TypeChart,
		Chart: &templates.ChartConfig{ChartSource: templates.ChartSource{ChartType: "column", XColumn: "Region", YColumn: "Revenue", SortBy: "Units", TopN: 2}},
	}
	data, err := m.DataForComponent(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Region", "Revenue", "Units"}, data.Dataset.Columns())
	assert.Equal(t, []any{"South", "West"}, data.Dataset.Column("Region"))
}

func TestDataForComponent_SummaryKeepsNumericColumns(t *testing.T) {
	m := newSalesMapper(t)
	cfg := templates.ElementConfig{
		Type:    templates.TypeSummary,
		Summary: &templates.SummaryConfig{SummarySource: templates.SummarySource{InsightTypes: []string{"top_performers"}, CompareColumn: "Region"}},
	}
	data, err := m.DataForComponent(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Revenue", "Units"}, data.Dataset.NumericColumns())

	cfg.Summary.MetricColumns = []string{"Units"}
	data, err = m.DataForComponent(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Units", "Region"}, data.Dataset.Columns())
}

func TestDataForComponent_Image(t *testing.T) {
	m := newSalesMapper(t)
	raw := map[string]any{"type": "file", "path": "logo.png"}
	data, err := m.DataForComponent(templates.ElementConfig{Type: templates.TypeImage, RawSource: raw}, nil)
	require.NoError(t, err)
	assert.Equal(t, raw, data.Source)
	data.Source["path"] = "other.png"
	assert.Equal(t, "logo.png", raw["path"], "image source must be a copy")
}

func TestDataForComponent_NoDataset(t *testing.T) {
	m := New()
	cfg := templates.ElementConfig{Type: templates.TypeTable, Table: &templates.TableConfig{}}
	_, err := m.DataForComponent(cfg, nil)
	assert.Equal(t, errs.KindData, errs.KindOf(err))
}

func TestDataForComponent_UnknownType(t *testing.T) {
	m := newSalesMapper(t)
	_, err := m.DataForComponent(templates.ElementConfig{Type: "gauge"}, nil)
	assert.Equal(t, errs.KindConfiguration, errs.KindOf(err))
}

func TestFilterNarrowReset(t *testing.T) {
	m := newSalesMapper(t)
	north, err := m.Filter("Region", []any{"North", "South"}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, north.Len())
	assert.Equal(t, 4, m.Dataset().Len(), "Filter must not change the session")

	m.Narrow(north)
	assert.Equal(t, 2, m.Info().RowCount)
	m.Reset()
	assert.Equal(t, 4, m.Info().RowCount)
}

func TestAggregateAndStats(t *testing.T) {
	m := newSalesMapper(t)
	out, err := m.Aggregate(nil, []dataset.Aggregation{{Column: "Revenue", Func: "sum", As: "Total"}})
	require.NoError(t, err)
	total, _ := out.Value(0, "Total")
	assert.InDelta(t, 750.0, total, 1e-9)

	stats, err := m.SummaryStats("Units")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Count)
	assert.InDelta(t, 30.0, stats.Max, 1e-9)

	values, err := m.UniqueValues("Region")
	require.NoError(t, err)
	assert.Len(t, values, 4)

	info := m.Info()
	assert.True(t, info.Loaded)
	assert.Equal(t, []string{"Revenue", "Units"}, info.NumericColumns)
}

func TestLoad_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kpi.csv")
	require.NoError(t, os.WriteFile(path, []byte("Metric,Value\nUsers,120\nChurn,3.5\n"), 0644))

	m := New()
	require.NoError(t, m.Load(context.Background(), path))
	md := m.Metadata()
	assert.Equal(t, 2, md.RowCount)
	assert.Equal(t, "kpi.csv", md.FileName)
	assert.False(t, md.LoadedAt.IsZero())
}

func TestLoad_MissingFile(t *testing.T) {
	m := New()
	err := m.Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.False(t, m.Loaded())
}

// Feature: data-mapping, Property 1: derivations never mutate the session
//
// For any table configuration, DataForComponent leaves the held dataset equal
// to what it was before the call.
func TestProperty1_DerivationIsPure(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := New()
		n := rapid.IntRange(0, 30).Draw(t, "rows")
		rows := make([][]any, n)
		for i := range rows {
			rows[i] = []any{
				rapid.SampledFrom([]string{"a", "b", "c"}).Draw(t, "k"),
				rapid.Float64Range(-1000, 1000).Draw(t, "v"),
			}
		}
		m.SetDataset(dataset.New([]string{"k", "v"}, rows), dataset.Meta{})
		before := m.Dataset()

		cfg := templates.ElementConfig{
			Type: templates.TypeTable,
			Table: &templates.TableConfig{TableSource: templates.TableSource{
				SortBy:        rapid.SampledFrom([]string{"k", "v", "x"}).Draw(t, "sort"),
				Ascending:     boolPtr(rapid.Bool().Draw(t, "asc")),
				TopN:          rapid.IntRange(0, 10).Draw(t, "top"),
				ColumnMapping: map[string]string{"v": "value"},
			}},
		}
		data, err := m.DataForComponent(cfg, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !m.Dataset().Equal(before) {
			t.Fatal("session dataset changed")
		}
		if top := cfg.Table.TopN; top > 0 && data.Dataset.Len() > top {
			t.Fatalf("top_n %d exceeded: %d rows", top, data.Dataset.Len())
		}
	})
}
