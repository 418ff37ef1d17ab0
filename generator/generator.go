// Package generator walks a template slide by slide, asks the factory for
// each element, feeds it data from the mapper and writes the finished deck.
// A failing element is replaced by a placeholder and recorded in the Report;
// it never stops the slide or the document.
package generator

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"reportforge/canvas"
	"reportforge/config"
	"reportforge/dataset"
	"reportforge/element"
	"reportforge/errs"
	"reportforge/export"
	"reportforge/factory"
	"reportforge/i18n"
	"reportforge/logger"
	"reportforge/mapper"
	"reportforge/templates"
)

// Phase is the pipeline state of a Generator.
type Phase string

const (
	PhaseNotStarted     Phase = "not_started"
	PhaseTemplateLoaded Phase = "template_loaded"
	PhaseDataLoaded     Phase = "data_loaded"
	PhaseGenerating     Phase = "generating"
	PhaseSaved          Phase = "saved"
	PhaseFailed         Phase = "failed"
)

// DocumentFunc creates the output document for a page size in inches.
type DocumentFunc func(width, height float64) canvas.Document

func newPPTX(width, height float64) canvas.Document {
	return export.NewPPTX(width, height)
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the run logger.
func WithLogger(l *logger.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// WithDocument replaces the PPTX backend, e.g. with canvas.NewRecorder for
// dry runs.
func WithDocument(fn DocumentFunc) Option {
	return func(g *Generator) { g.newDoc = fn }
}

// WithClock fixes the time used for default output names.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithPreviews renders PNG previews of every slide into dir after saving.
func WithPreviews(dir string) Option {
	return func(g *Generator) { g.previewDir = dir }
}

// Unknown element types are configuration errors of one element during a
// live run, not of the whole template.
var liveValidation = templates.ValidateOptions{Lenient: true}

// Generator runs one generation at a time. It is not safe for concurrent use;
// create one per goroutine.
type Generator struct {
	cfg        config.Config
	log        *logger.Logger
	newDoc     DocumentFunc
	now        func() time.Time
	previewDir string

	phase Phase
	doc   canvas.Document
}

// New creates a Generator from cfg.
func New(cfg config.Config, opts ...Option) *Generator {
	g := &Generator{
		cfg:    cfg,
		newDoc: newPPTX,
		now:    time.Now,
		phase:  PhaseNotStarted,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Phase reports where the last run got to.
func (g *Generator) Phase() Phase { return g.phase }

// Document returns the document built by the last run.
func (g *Generator) Document() canvas.Document { return g.doc }

func (g *Generator) env(settings *templates.Settings) *element.Env {
	env := element.NewEnv(settings)
	env.ProjectRoot = g.cfg.ProjectRoot
	env.LogoDirs = g.cfg.LogoSearchDirs()
	if g.cfg.Chart.DPI > 0 {
		env.ChartDPI = g.cfg.Chart.DPI
	}
	if g.cfg.Chart.MaxRasterExtent > 0 {
		env.MaxRasterExtent = g.cfg.Chart.MaxRasterExtent
	}
	env.TempDir = g.cfg.Chart.TempDir
	if g.cfg.Image.FetchTimeoutSeconds > 0 {
		env.HTTPClient = &http.Client{Timeout: time.Duration(g.cfg.Image.FetchTimeoutSeconds) * time.Second}
	}
	env.Logger = g.log.Func()
	return env
}

// OutputPath returns the default output file for t:
// <OutputDir>/<safe name>_<YYYYMMDD_HHMMSS>.pptx.
func (g *Generator) OutputPath(t *templates.Template) string {
	name := fmt.Sprintf("%s_%s.pptx", t.SafeName(), g.now().Format("20060102_150405"))
	return filepath.Join(g.cfg.OutputDir, name)
}

func (g *Generator) fail(err error) error {
	g.phase = PhaseFailed
	g.log.Errorf("[GENERATE] %v", err)
	return err
}

// GenerateFromFiles loads the template and the dataset source, then runs
// Generate. A template that fails validation refuses generation.
func (g *Generator) GenerateFromFiles(ctx context.Context, templatePath, source string, vars map[string]string, output string) (*Report, error) {
	return g.generateFiles(ctx, templatePath, source, "", vars, output)
}

func (g *Generator) generateFiles(ctx context.Context, templatePath, source, sheet string, vars map[string]string, output string) (*Report, error) {
	g.phase = PhaseNotStarted
	tmpl, warnings, err := templates.Load(templatePath, liveValidation)
	if err != nil {
		return nil, g.fail(errs.Wrap("Generator", "LoadTemplate", err))
	}
	for _, w := range warnings {
		g.log.Warnf("[GENERATE] template %s: %s", templatePath, w)
	}

	m := mapper.New(
		mapper.WithLogger(g.log.Func()),
		mapper.WithLoadOptions(dataset.LoadOptions{
			Sheet:       sheet,
			Limit:       g.cfg.Database.RowLimit,
			MaxRetries:  g.cfg.Database.MaxRetries,
			RetryBaseMs: g.cfg.Database.RetryBaseMs,
		}),
	)
	if source != "" {
		if err := m.Load(ctx, source); err != nil {
			return nil, g.fail(err)
		}
	}
	return g.Generate(ctx, tmpl, m, vars, output)
}

// Generate renders tmpl with data from m and saves it to output, or to
// OutputPath when output is empty. m may be nil or unloaded; data-bound
// elements then render placeholders.
func (g *Generator) Generate(ctx context.Context, tmpl *templates.Template, m *mapper.Mapper, vars map[string]string, output string) (*Report, error) {
	g.phase = PhaseNotStarted
	g.doc = nil
	if tmpl == nil {
		return nil, g.fail(&errs.StructuralError{Reason: "no template"})
	}
	warnings, err := templates.Validate(tmpl, liveValidation)
	if err != nil {
		return nil, g.fail(errs.Wrap("Generator", "ValidateTemplate", err))
	}
	g.phase = PhaseTemplateLoaded

	if m == nil {
		m = mapper.New(mapper.WithLogger(g.log.Func()))
	}
	declared := map[string]string{}
	maps.Copy(declared, g.cfg.Variables)
	maps.Copy(declared, tmpl.Settings.Variables)
	m.SetDeclaredVariables(declared)
	g.phase = PhaseDataLoaded

	if output == "" {
		output = g.OutputPath(tmpl)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return nil, g.fail(&errs.IOError{Op: "create output dir", Path: filepath.Dir(output), Err: err})
	}

	report := &Report{
		RunID:     uuid.New().String(),
		Template:  tmpl.Metadata.Name,
		Output:    output,
		StartedAt: g.now(),
	}
	for _, w := range warnings {
		report.Warnings = append(report.Warnings, w.String())
	}

	g.phase = PhaseGenerating
	g.log.Logf("[GENERATE] run %s: %q, %d slides -> %s", report.RunID, tmpl.Metadata.Name, len(tmpl.Slides), output)

	width, height := tmpl.Settings.PageDimensions()
	doc := g.newDoc(width, height)
	doc.SetProperties(canvas.Properties{
		Title:   tmpl.Metadata.Name,
		Author:  tmpl.Metadata.Author,
		Subject: tmpl.Metadata.Description,
	})
	g.doc = doc

	f := factory.New(g.env(&tmpl.Settings))
	for si, slide := range tmpl.Slides {
		page, err := doc.AddPage(templates.LayoutIndex(slide.Layout))
		if err != nil {
			return report, g.fail(errs.Wrap("Generator", "AddPage", &errs.RenderBackendError{Backend: "document", Err: err}))
		}
		sr := SlideResult{Index: si, Name: slide.Name, Layout: slide.Layout}
		for ei, cfg := range slide.Components {
			res := g.renderElement(ctx, f, m, page, cfg, vars)
			res.Slide, res.Index = si, ei
			sr.Elements = append(sr.Elements, res)
		}
		report.Slides = append(report.Slides, sr)
	}
	if w, ok := doc.(interface{ Warnings() []string }); ok {
		for _, msg := range w.Warnings() {
			report.Warnings = append(report.Warnings, msg)
			g.log.Warnf("[GENERATE] %s", msg)
		}
	}

	if err := save(doc, output); err != nil {
		report.FinishedAt = g.now()
		return report, g.fail(err)
	}
	report.Pages = doc.PageCount()
	report.FinishedAt = g.now()
	g.phase = PhaseSaved

	rendered, placeholders, failed := report.Counts()
	g.log.Logf("[GENERATE] saved %s: %d pages, %d rendered, %d placeholders, %d failed",
		output, report.Pages, rendered, placeholders, failed)

	if g.previewDir != "" {
		report.Previews = g.previews(doc)
	}
	return report, nil
}

func save(doc canvas.Document, output string) error {
	f, err := os.Create(output)
	if err != nil {
		return &errs.IOError{Op: "create output", Path: output, Err: err}
	}
	if _, err := doc.WriteTo(f); err != nil {
		f.Close()
		os.Remove(output)
		return &errs.IOError{Op: "write output", Path: output, Err: err}
	}
	if err := f.Close(); err != nil {
		return &errs.IOError{Op: "close output", Path: output, Err: err}
	}
	return nil
}

// previews are best effort; a missing font or renderer problem is logged.
func (g *Generator) previews(doc canvas.Document) []string {
	p, ok := doc.(interface {
		Previews(dir string, width int) ([]string, error)
	})
	if !ok {
		g.log.Warnf("[GENERATE] previews are not supported by %T", doc)
		return nil
	}
	files, err := p.Previews(g.previewDir, g.cfg.PreviewWidth)
	if err != nil {
		g.log.Warnf("[GENERATE] preview rendering failed: %v", err)
		return nil
	}
	return files
}

// renderElement runs create, data and render for one config. Any failure,
// including a panic in a drawing backend, becomes a Diagnostic and a
// placeholder.
func (g *Generator) renderElement(ctx context.Context, f *factory.Factory, m *mapper.Mapper, page canvas.Page, cfg templates.ElementConfig, vars map[string]string) (res ElementResult) {
	res.Type = cfg.Type
	stage := StageCreate
	defer func() {
		if r := recover(); r != nil {
			g.placeholder(page, cfg, &res, stage, &errs.RenderBackendError{Backend: string(cfg.Type), Err: fmt.Errorf("panic: %v", r)}, f.Env())
		}
	}()

	el, err := f.Create(cfg)
	if err != nil {
		g.placeholder(page, cfg, &res, stage, err, f.Env())
		return res
	}

	stage = StageData
	data, err := m.DataForComponent(cfg, vars)
	if err != nil {
		g.placeholder(page, cfg, &res, stage, err, f.Env())
		return res
	}

	stage = StageRender
	outcome, err := el.Render(ctx, page, data)
	if err != nil {
		g.placeholder(page, cfg, &res, stage, err, f.Env())
		return res
	}
	res.Outcome = outcome
	if outcome.Placeholder {
		g.log.Warnf("[GENERATE] %s element drew a placeholder: %s", cfg.Type, outcome.Reason)
	} else {
		g.log.Debugf("[GENERATE] %s element: %s", cfg.Type, outcome)
	}
	return res
}

func (g *Generator) placeholder(page canvas.Page, cfg templates.ElementConfig, res *ElementResult, stage Stage, err error, env *element.Env) {
	res.Diagnostic = &Diagnostic{Stage: stage, Kind: errs.KindOf(err), Message: err.Error()}
	res.Outcome = element.Outcome{Placeholder: true, Reason: err.Error()}
	g.log.Warnf("[GENERATE] %s element failed at %s: %v", displayType(cfg.Type), stage, err)

	pos, size := cfg.ResolvedPosition(), cfg.ResolvedSize()
	box := canvas.Box{X: pos.X, Y: pos.Y, W: size.Width, H: size.Height}
	if box.W <= 0 || box.H <= 0 {
		return
	}
	font := env.Settings.DefaultFont
	if font == "" {
		font = templates.DefaultFont
	}
	if perr := element.DrawPlaceholder(page, box, placeholderLabel(cfg.Type, stage), font, 12); perr != nil {
		res.Diagnostic.Message += "; placeholder: " + perr.Error()
	}
}

func displayType(t templates.ElementType) string {
	if t == "" {
		return "untyped"
	}
	return string(t)
}

func placeholderLabel(t templates.ElementType, stage Stage) string {
	switch {
	case stage == StageCreate && !t.IsValid():
		return i18n.T("placeholder.unknown_element", displayType(t))
	case stage == StageCreate:
		return i18n.T("placeholder.invalid_element", t)
	case stage == StageData:
		return i18n.T("placeholder.data_unavailable", t)
	}
	return i18n.T("placeholder.render_failed", t)
}
