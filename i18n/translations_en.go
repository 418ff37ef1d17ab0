package i18n

var englishTranslations = map[string]string{
	// Placeholders drawn by the generator
	"placeholder.unknown_element":  "[Unknown Element: %s]",
	"placeholder.invalid_element":  "[Invalid %s]",
	"placeholder.data_unavailable": "[%s]\nData unavailable",
	"placeholder.render_failed":    "[%s]\nRender failed",

	// Generation report
	"report.title":              "Generation report: %s",
	"report.subtitle":           "Run %s, %s",
	"report.output":             "Output",
	"report.pages":              "Pages",
	"report.rendered":           "Rendered",
	"report.placeholders":       "Placeholders",
	"report.failed":             "Failed",
	"report.duration":           "Duration",
	"report.col_slide":          "Slide",
	"report.col_element":        "Element",
	"report.col_type":           "Type",
	"report.col_status":         "Status",
	"report.col_detail":         "Detail",
	"report.status_rendered":    "rendered",
	"report.status_placeholder": "placeholder",
	"report.status_failed":      "failed",

	// Batch report
	"batch.title":        "Batch generation report",
	"batch.total":        "Total jobs",
	"batch.successful":   "Successful",
	"batch.failed":       "Failed",
	"batch.success_rate": "Success rate",
	"batch.col_job":      "Job",
	"batch.col_status":   "Status",
	"batch.col_template": "Template",
	"batch.col_data":     "Data",
	"batch.col_output":   "Output / Error",
	"batch.degraded":     "Job %d: %d placeholders, %d failed elements",
}
