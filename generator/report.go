package generator

import (
	"fmt"
	"time"

	"reportforge/element"
	"reportforge/errs"
	"reportforge/export"
	"reportforge/i18n"
	"reportforge/templates"
)

// Stage names the per-element step that failed.
type Stage string

const (
	StageCreate Stage = "create"
	StageData   Stage = "data"
	StageRender Stage = "render"
)

// Diagnostic explains why an element was replaced by a placeholder.
type Diagnostic struct {
	Stage   Stage    `json:"stage"`
	Kind    errs.Kind `json:"kind"`
	Message string   `json:"message"`
}

// ElementResult is the outcome of one element config. Exactly one of a
// successful Outcome or a Diagnostic describes it.
type ElementResult struct {
	Slide      int                  `json:"slide"`
	Index      int                  `json:"index"`
	Type       templates.ElementType `json:"type"`
	Outcome    element.Outcome      `json:"outcome"`
	Diagnostic *Diagnostic          `json:"diagnostic,omitempty"`
}

func (r ElementResult) OK() bool { return r.Diagnostic == nil }

func (r ElementResult) Status() string {
	switch {
	case r.Diagnostic != nil:
		return "failed"
	case r.Outcome.Placeholder:
		return "placeholder"
	}
	return "rendered"
}

type SlideResult struct {
	Index    int             `json:"index"`
	Name     string          `json:"name"`
	Layout   string          `json:"layout"`
	Elements []ElementResult `json:"elements"`
}

// Report is the structured result of one Generate call.
type Report struct {
	RunID      string        `json:"run_id"`
	Template   string        `json:"template"`
	Output     string        `json:"output"`
	Pages      int           `json:"pages"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Warnings   []string      `json:"warnings,omitempty"`
	Slides     []SlideResult `json:"slides"`
	Previews   []string      `json:"previews,omitempty"`
}

// Elements flattens the per-slide results in slide then element order.
func (r *Report) Elements() []ElementResult {
	var out []ElementResult
	for _, s := range r.Slides {
		out = append(out, s.Elements...)
	}
	return out
}

// Counts splits the elements into fully rendered, self-reported placeholders
// and failures caught by the generator.
func (r *Report) Counts() (rendered, placeholders, failed int) {
	for _, e := range r.Elements() {
		switch e.Status() {
		case "failed":
			failed++
		case "placeholder":
			placeholders++
		default:
			rendered++
		}
	}
	return
}

// Diagnostics lists every failed element.
func (r *Report) Diagnostics() []ElementResult {
	var out []ElementResult
	for _, e := range r.Elements() {
		if !e.OK() {
			out = append(out, e)
		}
	}
	return out
}

// Export converts the report for the XLSX and PDF report writers: one row per
// element.
func (r *Report) Export() export.ReportData {
	rendered, placeholders, failed := r.Counts()
	data := export.ReportData{
		Title:    i18n.T("report.title", r.Template),
		Subtitle: i18n.T("report.subtitle", r.RunID, r.FinishedAt.Format("2006-01-02 15:04:05")),
		Metrics: []export.MetricData{
			{Title: i18n.T("report.output"), Value: r.Output},
			{Title: i18n.T("report.pages"), Value: fmt.Sprint(r.Pages)},
			{Title: i18n.T("report.rendered"), Value: fmt.Sprint(rendered)},
			{Title: i18n.T("report.placeholders"), Value: fmt.Sprint(placeholders)},
			{Title: i18n.T("report.failed"), Value: fmt.Sprint(failed)},
			{Title: i18n.T("report.duration"), Value: r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()},
		},
		Notes: r.Warnings,
		Table: &export.TableData{
			Columns: []export.TableColumn{
				{Title: i18n.T("report.col_slide"), Width: 8},
				{Title: i18n.T("report.col_element"), Width: 8},
				{Title: i18n.T("report.col_type")},
				{Title: i18n.T("report.col_status")},
				{Title: i18n.T("report.col_detail"), Width: 60},
			},
		},
	}
	for _, e := range r.Elements() {
		detail := e.Outcome.String()
		if e.Diagnostic != nil {
			detail = fmt.Sprintf("%s (%s): %s", e.Diagnostic.Stage, e.Diagnostic.Kind, e.Diagnostic.Message)
		}
		status := i18n.T("report.status_" + e.Status())
		data.Table.Data = append(data.Table.Data, []interface{}{e.Slide + 1, e.Index + 1, string(e.Type), status, detail})
	}
	return data
}
