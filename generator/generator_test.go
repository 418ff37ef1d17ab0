package generator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportforge/canvas"
	"reportforge/config"
	"reportforge/dataset"
	"reportforge/errs"
	"reportforge/export"
	"reportforge/logger"
	"reportforge/mapper"
	"reportforge/templates"
)

const salesTemplate = `{
  "metadata": {"name": "Sales Review", "author": "Finance"},
  "settings": {"page_size": "16:9", "variables": {"company": "Template Co", "region": "EMEA"}},
  "slides": [
    {"name": "Title", "layout": "title", "components": [
      {"type": "text", "position": {"x": 1, "y": 1}, "size": {"width": 8, "height": 1},
       "data_source": {"content": "{company} {region} {quarter}"}}
    ]},
    {"name": "Mixed", "layout": "blank", "components": [
      {"type": "text", "position": {"x": 0.5, "y": 0.2}, "size": {"width": 9, "height": 0.6},
       "data_source": {"content": "Before"}},
      {"type": "gauge", "position": {"x": 0.5, "y": 1}, "size": {"width": 4, "height": 2}},
      {"type": "table", "position": {"x": 0.5, "y": 3.2}, "size": {"width": 9, "height": 2},
       "data_source": {"columns": ["Region", "Revenue"], "sort_by": "Revenue", "ascending": false}}
    ]},
    {"name": "Chart", "components": [
      {"type": "chart", "position": {"x": 0.5, "y": 1}, "size": {"width": 6, "height": 4},
       "data_source": {"chart_type": "column", "x_column": "Region", "y_column": "Profit"}}
    ]}
  ]
}`

const salesCSV = "Region,Revenue\nNorth,120\nSouth,340\nWest,90\n"

func parseTemplate(t *testing.T, doc string) *templates.Template {
	t.Helper()
	tmpl, _, err := templates.Parse([]byte(doc), templates.FormatJSON, templates.ValidateOptions{Lenient: true})
	require.NoError(t, err)
	return tmpl
}

func salesMapper(t *testing.T) *mapper.Mapper {
	t.Helper()
	ds, err := dataset.ReadCSV(strings.NewReader(salesCSV))
	require.NoError(t, err)
	m := mapper.New()
	m.SetDataset(ds, dataset.Meta{FileName: "sales.csv"})
	return m
}

func testConfig(t *testing.T) config.Config {
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Chart.TempDir = t.TempDir()
	cfg.Variables = map[string]string{"company": "Config Co", "quarter": "Q1"}
	return cfg
}

func recorderGenerator(cfg config.Config, opts ...Option) (*Generator, **canvas.Recorder) {
	var rec *canvas.Recorder
	opts = append(opts, WithDocument(func(w, h float64) canvas.Document {
		rec = canvas.NewRecorder(w, h)
		return rec
	}))
	return New(cfg, opts...), &rec
}

func TestGenerate_PagePerSlideAndIsolation(t *testing.T) {
	cfg := testConfig(t)
	var logs bytes.Buffer
	g, rec := recorderGenerator(cfg, WithLogger(logger.NewWriterLogger(&logs, logger.LevelDebug)))
	assert.Equal(t, PhaseNotStarted, g.Phase())

	report, err := g.Generate(context.Background(), parseTemplate(t, salesTemplate), salesMapper(t), map[string]string{"quarter": "Q3"}, "")
	require.NoError(t, err)
	assert.Equal(t, PhaseSaved, g.Phase())
	assert.NotEmpty(t, report.RunID)

	pages := (*rec).Pages
	require.Len(t, pages, 3)
	assert.Equal(t, 3, report.Pages)
	assert.Equal(t, templates.LayoutIndex("title"), pages[0].Layout)
	assert.Equal(t, templates.LayoutIndex("blank"), pages[2].Layout)
	assert.Equal(t, 10.0, pages[0].Width)
	assert.Equal(t, 5.625, pages[0].Height)
	assert.Equal(t, "Sales Review", (*rec).Props.Title)

	// runtime beats template settings, which beat config
	assert.Equal(t, []string{"Template Co EMEA Q3"}, pages[0].Texts())

	texts := pages[1].Texts()
	require.GreaterOrEqual(t, len(texts), 6)
	assert.Equal(t, "Before", texts[0])
	assert.Equal(t, "[Unknown Element: gauge]", texts[1])
	assert.Equal(t, []string{"Region", "Revenue", "South", "340"}, texts[2:6])

	elems := report.Elements()
	require.Len(t, elems, 5)
	statuses := make([]string, len(elems))
	for i, e := range elems {
		statuses[i] = e.Status()
	}
	assert.Equal(t, []string{"rendered", "rendered", "failed", "rendered", "failed"}, statuses)

	gauge := elems[2]
	assert.Equal(t, 1, gauge.Slide)
	assert.Equal(t, 1, gauge.Index)
	require.NotNil(t, gauge.Diagnostic)
	assert.Equal(t, StageCreate, gauge.Diagnostic.Stage)
	assert.Equal(t, errs.KindConfiguration, gauge.Diagnostic.Kind)
	assert.Contains(t, gauge.Diagnostic.Message, "gauge")

	chart := elems[4]
	require.NotNil(t, chart.Diagnostic)
	assert.Equal(t, StageData, chart.Diagnostic.Stage)
	assert.Equal(t, errs.KindData, chart.Diagnostic.Kind)
	assert.Equal(t, []string{"[chart]\nData unavailable"}, pages[2].Texts())

	rendered, placeholders, failed := report.Counts()
	assert.Equal(t, 3, rendered)
	assert.Equal(t, 0, placeholders)
	assert.Equal(t, 2, failed)
	assert.Len(t, report.Diagnostics(), 2)

	_, err = os.Stat(report.Output)
	assert.NoError(t, err)
	assert.Contains(t, logs.String(), "gauge element failed at create")
}

func TestGenerate_DefaultOutputPath(t *testing.T) {
	cfg := testConfig(t)
	clock := func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	g, _ := recorderGenerator(cfg, WithClock(clock))

	tmpl := templates.NewEmpty("Q1 / Board Deck", "")
	tmpl.AddSlide("Agenda", "title_content")
	report, err := g.Generate(context.Background(), tmpl, nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "Q1___Board_Deck_20240102_030405.pptx"), report.Output)
	assert.Equal(t, 2, report.Pages)
}

func TestGenerate_OutputDirIsIOError(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	g, _ := recorderGenerator(cfg)

	tmpl := templates.NewEmpty("Deck", "")
	tmpl.AddSlide("One", "")
	_, err := g.Generate(context.Background(), tmpl, nil, nil, filepath.Join(blocker, "out", "deck.pptx"))
	require.Error(t, err)
	assert.Equal(t, errs.KindIO, errs.KindOf(err))
	assert.Equal(t, PhaseFailed, g.Phase())
}

func TestGenerateFromFiles_StructuralErrorRefuses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"metadata": {"name": "x"}, "settings": {}}`), 0644))

	g, rec := recorderGenerator(testConfig(t))
	_, err := g.GenerateFromFiles(context.Background(), path, "", nil, "")
	require.Error(t, err)
	assert.Equal(t, errs.KindStructural, errs.KindOf(err))
	assert.Equal(t, PhaseFailed, g.Phase())
	assert.Nil(t, *rec, "no document may be created for a refused template")
}

func writeInputs(t *testing.T, dir string) (tmplPath, dataPath string) {
	t.Helper()
	tmplPath = filepath.Join(dir, "sales.json")
	dataPath = filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(tmplPath, []byte(salesTemplate), 0644))
	require.NoError(t, os.WriteFile(dataPath, []byte(salesCSV), 0644))
	return tmplPath, dataPath
}

func TestGenerateFromFiles_PPTX(t *testing.T) {
	dir := t.TempDir()
	tmplPath, dataPath := writeInputs(t, dir)
	out := filepath.Join(dir, "decks", "sales.pptx")

	g := New(testConfig(t))
	report, err := g.GenerateFromFiles(context.Background(), tmplPath, dataPath, map[string]string{"quarter": "Q2"}, out)
	require.NoError(t, err)
	assert.Equal(t, out, report.Output)
	assert.NotEmpty(t, report.Warnings, "lenient load warns about the unknown type")
	assert.Contains(t, report.Warnings, `slide 1 declares layout "title"; it is written on the blank layout`)

	slides, err := export.Inspect(out)
	require.NoError(t, err)
	require.Len(t, slides, 3)
	assert.Contains(t, slides[0].Texts, "Template Co EMEA Q2")
	assert.Contains(t, slides[1].Texts, "[Unknown Element: gauge]")
	assert.Contains(t, slides[1].Texts, "South")
}

func TestReport_Export(t *testing.T) {
	g, _ := recorderGenerator(testConfig(t))
	report, err := g.Generate(context.Background(), parseTemplate(t, salesTemplate), salesMapper(t), nil, "")
	require.NoError(t, err)

	data := report.Export()
	require.NotNil(t, data.Table)
	require.Len(t, data.Table.Data, 5)
	row := data.Table.Data[2]
	assert.Equal(t, []interface{}{2, 2, "gauge", "failed"}, row[:4])
	assert.Contains(t, row[4], "create (configuration)")

	out := filepath.Join(t.TempDir(), "run.xlsx")
	require.NoError(t, export.WriteReport(out, data))
}

func TestBatch_IsolatesFailedJob(t *testing.T) {
	dir := t.TempDir()
	tmplPath, dataPath := writeInputs(t, dir)
	cfg := testConfig(t)

	b := NewBatch(func() *Generator {
		g, _ := recorderGenerator(cfg)
		return g
	})
	b.Add(Job{Template: tmplPath, Data: dataPath, Output: filepath.Join(dir, "a.pptx")})
	b.Add(Job{Template: filepath.Join(dir, "missing.json"), Data: dataPath})
	b.Add(Job{Template: tmplPath, Data: dataPath, Output: filepath.Join(dir, "c.pptx"), Variables: map[string]string{"quarter": "Q4"}})

	results := b.Run(context.Background())
	require.Len(t, results, 3)
	statuses := []string{results[0].Status, results[1].Status, results[2].Status}
	assert.Equal(t, []string{JobSuccess, JobFailed, JobSuccess}, statuses)
	assert.Contains(t, results[1].Error, "missing.json")
	assert.Equal(t, filepath.Join(dir, "c.pptx"), results[2].Output)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
	}

	summary := b.Summary()
	assert.Equal(t, 3, summary.TotalJobs)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, "66.7%", summary.SuccessRate)

	data := summary.Export()
	assert.Len(t, data.Table.Data, 3)
	assert.Equal(t, "66.7%", data.Metrics[3].Value)
	require.NoError(t, export.WriteReport(filepath.Join(dir, "batch.pdf"), data))
}

func TestLoadJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	content := "- template: a.json\n  data: a.csv\n  variables:\n    quarter: Q1\n- template: b.yaml\n  data: sqlite://b.db?table=sales\n  output: out/b.pptx\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	jobs, err := LoadJobs(path)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Q1", jobs[0].Variables["quarter"])
	assert.Equal(t, "out/b.pptx", jobs[1].Output)

	_, err = LoadJobs(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Equal(t, errs.KindIO, errs.KindOf(err))
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, "0.0%", successRate(0, 0))
	assert.Equal(t, "100.0%", successRate(4, 4))
	assert.Equal(t, "33.3%", successRate(1, 3))
}

// Feature: generation, Property 1: one page per slide, elements in order
//
// For any number of slides with any mix of known and unknown element types,
// the document has one page per slide and the report lists every element in
// template order.
func TestProperty1_PagePerSlide(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)
	cfg := testConfig(t)

	properties.Property("slides map to pages in order", prop.ForAll(
		func(kinds []string) bool {
			tmpl := &templates.Template{Metadata: templates.Metadata{Name: "Prop"}}
			for i, k := range kinds {
				s := tmpl.AddSlide(fmt.Sprintf("s%d", i), "blank")
				content := fmt.Sprintf("slide %d", i)
				s.Components = append(s.Components,
					templates.ElementConfig{Type: templates.ElementType(k)},
					templates.ElementConfig{Type: templates.TypeText, Text: &templates.TextConfig{TextSource: templates.TextSource{Content: content}}},
				)
			}
			g, rec := recorderGenerator(cfg)
			report, err := g.Generate(context.Background(), tmpl, nil, nil, filepath.Join(cfg.OutputDir, "prop.pptx"))
			if err != nil || (*rec).PageCount() != len(kinds) {
				return false
			}
			for i, page := range (*rec).Pages {
				texts := page.Texts()
				if len(texts) == 0 || texts[len(texts)-1] != fmt.Sprintf("slide %d", i) {
					return false
				}
			}
			elems := report.Elements()
			for i, e := range elems {
				if e.Slide != i/2 || e.Index != i%2 {
					return false
				}
			}
			return len(elems) == 2*len(kinds)
		},
		gen.SliceOfN(6, gen.OneConstOf("text", "gauge", "", "image", "summary"), reflect.TypeOf("")).SuchThat(func(v []string) bool { return len(v) > 0 }),
	))

	properties.TestingRun(t)
}
