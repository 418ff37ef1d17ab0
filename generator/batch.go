package generator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"reportforge/errs"
	"reportforge/export"
	"reportforge/i18n"
)

// Job is one template plus data source to generate.
type Job struct {
	Template  string            `json:"template" yaml:"template"`
	Data      string            `json:"data" yaml:"data"`
	Output    string            `json:"output,omitempty" yaml:"output,omitempty"`
	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Sheet     string            `json:"sheet,omitempty" yaml:"sheet,omitempty"`
}

// LoadJobs reads a YAML or JSON list of jobs.
func LoadJobs(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.IOError{Op: "read jobs", Path: path, Err: err}
	}
	var jobs []Job
	if err := yaml.Unmarshal(data, &jobs); err != nil {
		return nil, errs.WrapOperationf("parse jobs file %s", err, path)
	}
	return jobs, nil
}

const (
	JobSuccess = "success"
	JobFailed  = "failed"
)

// JobResult is the status of one batch job.
type JobResult struct {
	Index    int     `json:"job_index"`
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Template string  `json:"template"`
	Data     string  `json:"data"`
	Output   string  `json:"output_path,omitempty"`
	Error    string  `json:"error,omitempty"`
	Report   *Report `json:"report,omitempty"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	TotalJobs   int         `json:"total_jobs"`
	Successful  int         `json:"successful"`
	Failed      int         `json:"failed"`
	SuccessRate string      `json:"success_rate"`
	Duration    string      `json:"duration"`
	Results     []JobResult `json:"results"`
}

// Batch runs jobs one after another with a fresh Generator each, so one
// job's failure or state never reaches the next.
type Batch struct {
	newGenerator func() *Generator
	jobs         []Job
	results      []JobResult
	elapsed      time.Duration
}

// NewBatch creates a Batch whose jobs are run by generators from newGen.
func NewBatch(newGen func() *Generator) *Batch {
	return &Batch{newGenerator: newGen}
}

func (b *Batch) Add(job Job) { b.jobs = append(b.jobs, job) }

func (b *Batch) Jobs() []Job { return b.jobs }

// Run executes every job in submission order and returns one result per job.
func (b *Batch) Run(ctx context.Context) []JobResult {
	start := time.Now()
	b.results = make([]JobResult, 0, len(b.jobs))
	for i, job := range b.jobs {
		b.results = append(b.results, b.runJob(ctx, i, job))
	}
	b.elapsed = time.Since(start)
	return b.results
}

func (b *Batch) runJob(ctx context.Context, i int, job Job) (res JobResult) {
	res = JobResult{Index: i, ID: uuid.New().String(), Template: job.Template, Data: job.Data}
	g := b.newGenerator()
	g.log.Logf("[BATCH] Processing job %d/%d: %s", i+1, len(b.jobs), job.Template)

	defer func() {
		if r := recover(); r != nil {
			res.Status, res.Error = JobFailed, fmt.Sprintf("panic: %v", r)
			g.log.Errorf("[BATCH] Job %d failed: %s", i+1, res.Error)
		}
	}()

	report, err := g.generateFiles(ctx, job.Template, job.Data, job.Sheet, job.Variables, job.Output)
	res.Report = report
	if err != nil {
		res.Status, res.Error = JobFailed, err.Error()
		g.log.Errorf("[BATCH] Job %d failed: %v", i+1, err)
		return res
	}
	res.Status, res.Output = JobSuccess, report.Output
	g.log.Logf("[BATCH] Job %d completed: %s", i+1, report.Output)
	return res
}

func (b *Batch) Results() []JobResult { return b.results }

// Summary counts the results of the last Run. The success rate is relative
// to the number of submitted jobs and formatted with one decimal.
func (b *Batch) Summary() BatchSummary {
	s := BatchSummary{TotalJobs: len(b.jobs), Results: b.results, Duration: b.elapsed.Round(time.Millisecond).String()}
	for _, r := range b.results {
		if r.Status == JobSuccess {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	s.SuccessRate = successRate(s.Successful, s.TotalJobs)
	return s
}

func successRate(ok, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(ok)/float64(total)*100)
}

// Export converts the summary for the XLSX and PDF report writers.
func (s BatchSummary) Export() export.ReportData {
	data := export.ReportData{
		Title:    i18n.T("batch.title"),
		Subtitle: time.Now().Format("2006-01-02 15:04:05"),
		Metrics: []export.MetricData{
			{Title: i18n.T("batch.total"), Value: fmt.Sprint(s.TotalJobs)},
			{Title: i18n.T("batch.successful"), Value: fmt.Sprint(s.Successful)},
			{Title: i18n.T("batch.failed"), Value: fmt.Sprint(s.Failed)},
			{Title: i18n.T("batch.success_rate"), Value: s.SuccessRate},
		},
		Table: &export.TableData{
			Columns: []export.TableColumn{
				{Title: i18n.T("batch.col_job"), Width: 8},
				{Title: i18n.T("batch.col_status"), Width: 10},
				{Title: i18n.T("batch.col_template")},
				{Title: i18n.T("batch.col_data")},
				{Title: i18n.T("batch.col_output"), Width: 60},
			},
		},
	}
	for _, r := range s.Results {
		detail := r.Output
		if r.Status != JobSuccess {
			detail = r.Error
		} else if r.Report != nil {
			if _, placeholders, failed := r.Report.Counts(); placeholders+failed > 0 {
				data.Notes = append(data.Notes, i18n.T("batch.degraded", r.Index+1, placeholders, failed))
			}
		}
		data.Table.Data = append(data.Table.Data, []interface{}{r.Index + 1, r.Status, r.Template, r.Data, detail})
	}
	return data
}
