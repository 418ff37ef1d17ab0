package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"reportforge/canvas"
	"reportforge/config"
	"reportforge/dataset"
	"reportforge/dbpool"
	"reportforge/element"
	"reportforge/export"
	"reportforge/factory"
	"reportforge/generator"
	"reportforge/history"
	"reportforge/i18n"
	"reportforge/logger"
	"reportforge/templates"
)

const usage = `reportforge - render slide decks from templates and data

USAGE:
    reportforge [-config file] [-log-level level] <command> [flags]

COMMANDS:
    generate       Render one template with one dataset
    batch          Run a jobs file of template/data pairs
    validate       Check a template and every component config
    info           Describe a template
    list           List the templates in a directory
    new-template   Write an empty template
    inspect        List the text of a generated deck, optionally render previews
    data           Show a dataset source, optionally import it into SQLite
    history        List recorded generation runs (needs historyDb)

EXAMPLES:
    reportforge generate -template sales.json -data sales.csv -var quarter=Q3
    reportforge generate -template sales.yaml -data "sqlite://shop.db?table=orders" -report run.xlsx
    reportforge batch -jobs jobs.yaml -report batch.pdf
    reportforge validate -template sales.json
    reportforge new-template -name "Monthly Review" -out templates/monthly.yaml
    reportforge inspect -deck output/sales.pptx -preview previews
    reportforge data -source sales.xls -sheet Q3 -sqlite sales.db -table q3
    reportforge history -template "Sales Review" -limit 10

Run 'reportforge <command> -h' for the flags of a command.
`

// usageError is a command line mistake; it exits with status 2.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// varFlag collects repeated -var key=value flags.
type varFlag map[string]string

func (v varFlag) String() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k+"="+v[k])
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func (v varFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	v[strings.TrimSpace(key)] = value
	return nil
}

type app struct {
	ctx    context.Context
	cfg    config.Config
	log    *logger.Logger
	stdout io.Writer
	stderr io.Writer
	out    printer
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("reportforge", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", os.Getenv("REPORTFORGE_CONFIG"), "config file (JSON or YAML)")
	logLevel := global.String("log-level", "", "debug, info, warn or error")
	showVersion := global.Bool("version", false, "print version information")
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Fprintf(stdout, "reportforge %s\n", version)
		return 0
	}
	if global.NArg() == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		printer{w: stderr}.fail("%v", err)
		return 1
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	i18n.SetLanguage(i18n.ParseLanguage(cfg.Language))
	log, err := newLogger(cfg, stderr)
	if err != nil {
		printer{w: stderr}.fail("%v", err)
		return 1
	}
	defer log.Close()

	a := &app{ctx: ctx, cfg: cfg, log: log, stdout: stdout, stderr: stderr, out: printer{w: stdout}}
	if err := a.execute(global.Arg(0), global.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		printer{w: stderr}.fail("%v", err)
		var ue *usageError
		if errors.As(err, &ue) {
			return 2
		}
		return 1
	}
	return 0
}

func newLogger(cfg config.Config, stderr io.Writer) (*logger.Logger, error) {
	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.DetailedLog {
		level = logger.LevelDebug
	}
	if cfg.LogDir == "" {
		return logger.NewWriterLogger(stderr, level), nil
	}
	l := logger.NewLogger()
	l.SetLevel(level)
	if err := l.Init(cfg.LogDir); err != nil {
		return nil, err
	}
	return l, nil
}

func (a *app) execute(command string, args []string) error {
	switch command {
	case "generate", "gen":
		return a.generate(args)
	case "batch":
		return a.batch(args)
	case "validate":
		return a.validate(args)
	case "info":
		return a.info(args)
	case "list", "ls":
		return a.list(args)
	case "new-template", "new":
		return a.newTemplate(args)
	case "inspect":
		return a.inspect(args)
	case "data":
		return a.data(args)
	case "history":
		return a.history(args)
	case "help":
		fmt.Fprint(a.stdout, usage)
		return nil
	}
	return usagef("unknown command: %s. Use 'help' for usage information", command)
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) generate(args []string) error {
	fs := a.flags("generate")
	tmplPath := fs.String("template", "", "template file (JSON or YAML)")
	source := fs.String("data", "", "dataset file or sqlite:// / mysql:// source")
	output := fs.String("out", "", "output .pptx (default: <outputDir>/<name>_<timestamp>.pptx)")
	reportPath := fs.String("report", "", "write a generation report (.xlsx or .pdf)")
	previewDir := fs.String("preview", "", "render slide previews into this directory")
	dryRun := fs.Bool("dry-run", false, "render in memory and write a text dump instead of a deck")
	vars := varFlag{}
	fs.Var(vars, "var", "text variable key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tmplPath == "" {
		return usagef("generate requires -template")
	}

	opts := []generator.Option{generator.WithLogger(a.log)}
	if *previewDir != "" {
		opts = append(opts, generator.WithPreviews(*previewDir))
	}
	if *dryRun {
		opts = append(opts, generator.WithDocument(func(w, h float64) canvas.Document {
			return canvas.NewRecorder(w, h)
		}))
	}
	g := generator.New(a.cfg, opts...)
	report, err := g.GenerateFromFiles(a.ctx, *tmplPath, *source, vars, *output)
	if report != nil && !*dryRun {
		a.record(history.FromReport(report, err))
	}
	if err != nil {
		return err
	}
	a.printReport(report)

	if *reportPath != "" {
		if err := export.WriteReport(*reportPath, report.Export()); err != nil {
			return err
		}
		a.out.ok("report written to %s", *reportPath)
	}
	return nil
}

func (a *app) printReport(r *generator.Report) {
	rendered, placeholders, failed := r.Counts()
	a.out.title("Generated " + r.Output)
	a.out.field("Run", r.RunID)
	a.out.field("Template", r.Template)
	a.out.field("Pages", r.Pages)
	a.out.field("Rendered", rendered)
	a.out.field("Placeholders", placeholders)
	a.out.field("Failed", failed)
	for _, w := range r.Warnings {
		a.out.muted("  %s", w)
	}
	for _, e := range r.Elements() {
		switch {
		case e.Diagnostic != nil:
			a.out.warn("slide %d, element %d (%s): %s failed: %s", e.Slide+1, e.Index+1, e.Type, e.Diagnostic.Stage, e.Diagnostic.Message)
		case e.Outcome.Placeholder:
			a.out.muted("slide %d, element %d (%s): %s", e.Slide+1, e.Index+1, e.Type, e.Outcome.Reason)
		}
	}
	for _, p := range r.Previews {
		a.out.ok("preview %s", p)
	}
}

func (a *app) batch(args []string) error {
	fs := a.flags("batch")
	jobsPath := fs.String("jobs", "", "jobs file (YAML or JSON list of {template, data, output, variables, sheet})")
	reportPath := fs.String("report", "", "write a batch report (.xlsx or .pdf)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *jobsPath == "" {
		return usagef("batch requires -jobs")
	}
	jobs, err := generator.LoadJobs(*jobsPath)
	if err != nil {
		return err
	}

	b := generator.NewBatch(func() *generator.Generator {
		return generator.New(a.cfg, generator.WithLogger(a.log))
	})
	for _, j := range jobs {
		b.Add(j)
	}
	results := b.Run(a.ctx)
	summary := b.Summary()

	batchID := uuid.New().String()
	runs := make([]history.Run, len(results))
	for i, r := range results {
		runs[i] = history.FromJob(batchID, r)
	}
	a.record(runs...)

	a.out.title(fmt.Sprintf("Batch: %d jobs", summary.TotalJobs))
	rows := make([][]string, len(results))
	for i, r := range results {
		detail := r.Output
		if r.Status != generator.JobSuccess {
			detail = r.Error
		}
		rows[i] = []string{fmt.Sprint(r.Index + 1), r.Status, r.Template, detail}
	}
	a.out.table([]string{"JOB", "STATUS", "TEMPLATE", "OUTPUT / ERROR"}, rows)
	a.out.field("Successful", summary.Successful)
	a.out.field("Failed", summary.Failed)
	a.out.field("Success rate", summary.SuccessRate)
	a.out.field("Duration", summary.Duration)

	if *reportPath != "" {
		if err := export.WriteReport(*reportPath, summary.Export()); err != nil {
			return err
		}
		a.out.ok("report written to %s", *reportPath)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", summary.Failed, summary.TotalJobs)
	}
	return nil
}

func (a *app) validate(args []string) error {
	fs := a.flags("validate")
	tmplPath := fs.String("template", "", "template file")
	lenient := fs.Bool("lenient", false, "report unknown element types as warnings")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tmplPath == "" {
		return usagef("validate requires -template")
	}

	tmpl, warnings, err := templates.Load(*tmplPath, templates.ValidateOptions{Lenient: *lenient})
	for _, w := range warnings {
		a.out.warn("%s", w)
	}
	if err != nil {
		return err
	}

	f := factory.New(element.NewEnv(&tmpl.Settings))
	var problems, count int
	for i, slide := range tmpl.Slides {
		for j, cfg := range slide.Components {
			count++
			if *lenient && !cfg.Type.IsValid() {
				continue
			}
			if err := f.ValidateOnly(cfg); err != nil {
				problems++
				a.out.fail("slides[%d].components[%d]: %v", i, j, err)
			}
		}
	}
	if problems > 0 {
		return fmt.Errorf("%s: %d of %d components are invalid", *tmplPath, problems, count)
	}
	a.out.ok("%s is valid (%d slides, %d components)", *tmplPath, len(tmpl.Slides), count)
	return nil
}

func (a *app) info(args []string) error {
	fs := a.flags("info")
	tmplPath := fs.String("template", "", "template file")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tmplPath == "" {
		return usagef("info requires -template")
	}
	tmpl, _, err := templates.Load(*tmplPath, templates.ValidateOptions{Lenient: true})
	if err != nil {
		return err
	}
	info := templates.Describe(tmpl)
	if *asJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, string(data))
		return nil
	}

	a.out.title(info.Name)
	if info.Description != "" {
		a.out.muted("%s", info.Description)
	}
	a.out.field("Author", info.Author)
	a.out.field("Version", info.Version)
	a.out.field("Page size", info.PageSize)
	a.out.field("Slides", info.SlideCount)
	a.out.field("Components", info.ComponentCount)
	for _, t := range factory.SupportedTypes() {
		if n := info.ComponentCounts[t]; n > 0 {
			a.out.field("  "+t, n)
		}
	}
	rows := make([][]string, len(tmpl.Slides))
	for i, s := range tmpl.Slides {
		types := make([]string, len(s.Components))
		for j, c := range s.Components {
			types[j] = string(c.Type)
		}
		rows[i] = []string{fmt.Sprint(i + 1), s.Name, s.Layout, strings.Join(types, ", ")}
	}
	a.out.table([]string{"#", "SLIDE", "LAYOUT", "COMPONENTS"}, rows)
	return nil
}

func (a *app) list(args []string) error {
	fs := a.flags("list")
	dir := fs.String("dir", a.cfg.TemplateDir, "template directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	listing, err := templates.List(*dir, func(path string, err error) {
		a.out.warn("skipped %s: %v", path, err)
	})
	if err != nil {
		return err
	}
	if len(listing) == 0 {
		a.out.muted("no templates in %s", *dir)
		return nil
	}
	rows := make([][]string, len(listing))
	for i, l := range listing {
		rows[i] = []string{l.Name, fmt.Sprint(l.Slides), l.Path, l.Description}
	}
	a.out.table([]string{"NAME", "SLIDES", "PATH", "DESCRIPTION"}, rows)
	return nil
}

func (a *app) newTemplate(args []string) error {
	fs := a.flags("new-template")
	name := fs.String("name", "", "template name")
	description := fs.String("description", "", "template description")
	out := fs.String("out", "", "output file, .json or .yaml (default: <templateDir>/<name>.yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return usagef("new-template requires -name")
	}
	tmpl := templates.NewEmpty(*name, *description)
	path := *out
	if path == "" {
		path = filepath.Join(a.cfg.TemplateDir, tmpl.SafeName()+".yaml")
	}
	if err := templates.Save(tmpl, path); err != nil {
		return err
	}
	a.out.ok("created %s", path)
	return nil
}

func (a *app) inspect(args []string) error {
	fs := a.flags("inspect")
	deck := fs.String("deck", "", "generated .pptx file")
	previewDir := fs.String("preview", "", "render slide previews into this directory")
	width := fs.Int("width", a.cfg.PreviewWidth, "preview width in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deck == "" {
		return usagef("inspect requires -deck")
	}
	slides, err := export.Inspect(*deck)
	if err != nil {
		return err
	}
	a.out.title(fmt.Sprintf("%s: %d slides", *deck, len(slides)))
	for _, s := range slides {
		a.out.field(fmt.Sprintf("Slide %d", s.Index), fmt.Sprintf("%d shapes, %d pictures", s.Shapes, s.Pictures))
		for _, t := range s.Texts {
			a.out.muted("    %s", t)
		}
	}
	if *previewDir != "" {
		files, err := export.RenderPreviews(*deck, *previewDir, *width)
		if err != nil {
			return err
		}
		for _, f := range files {
			a.out.ok("preview %s", f)
		}
	}
	return nil
}

func (a *app) data(args []string) error {
	fs := a.flags("data")
	source := fs.String("source", "", "dataset file or sqlite:// / mysql:// source")
	sheet := fs.String("sheet", "", "workbook sheet (default: first)")
	head := fs.Int("rows", 5, "number of rows to show")
	sqlitePath := fs.String("sqlite", "", "import the dataset into this SQLite file")
	table := fs.String("table", "data", "table name for -sqlite")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *source == "" {
		return usagef("data requires -source")
	}
	ds, meta, err := dataset.Open(a.ctx, *source, dataset.LoadOptions{
		Sheet:       *sheet,
		Limit:       a.cfg.Database.RowLimit,
		MaxRetries:  a.cfg.Database.MaxRetries,
		RetryBaseMs: a.cfg.Database.RetryBaseMs,
		Logger:      a.log.Func(),
	})
	if err != nil {
		return err
	}

	a.out.title(meta.FileName)
	a.out.field("Rows", ds.Len())
	a.out.field("Columns", ds.NumColumns())

	numeric := map[string]bool{}
	for _, c := range ds.NumericColumns() {
		numeric[c] = true
	}
	var rows [][]string
	for _, c := range ds.Columns() {
		row := []string{c, ds.SQLType(c), "", "", ""}
		if numeric[c] {
			if st, err := ds.ColumnStats(c); err == nil && st.Count > 0 {
				row[2] = fmt.Sprintf("%.2f", st.Mean)
				row[3] = fmt.Sprintf("%g", st.Min)
				row[4] = fmt.Sprintf("%g", st.Max)
			}
		}
		rows = append(rows, row)
	}
	a.out.table([]string{"COLUMN", "TYPE", "MEAN", "MIN", "MAX"}, rows)

	if *head > 0 && ds.Len() > 0 {
		fmt.Fprintln(a.stdout)
		preview := ds.Head(*head)
		cells := make([][]string, preview.Len())
		for i := range cells {
			for _, v := range preview.Row(i) {
				cells[i] = append(cells[i], dataset.Format(v))
			}
		}
		a.out.table(preview.Columns(), cells)
	}

	if *sqlitePath != "" {
		mgr := dbpool.New(dbpool.EngineSQLite, a.log.Func())
		n, err := dataset.WriteSQL(a.ctx, mgr, dbpool.EngineSQLite, *sqlitePath, *table, ds)
		if err != nil {
			return err
		}
		a.out.ok("imported %d rows into %s table %s (source: sqlite://%s?table=%s)", n, *sqlitePath, *table, *sqlitePath, *table)
	}
	return nil
}

// record stores runs when a history database is configured. Failures are
// logged and never fail the command.
func (a *app) record(runs ...history.Run) {
	if a.cfg.HistoryDB == "" || len(runs) == 0 {
		return
	}
	store, err := history.Open(a.ctx, nil, a.cfg.HistoryDB, a.log.Func())
	if err != nil {
		a.log.Warnf("[HISTORY] %v", err)
		return
	}
	defer store.Close()
	for _, r := range runs {
		if _, err := store.Record(a.ctx, r); err != nil {
			a.log.Warnf("[HISTORY] record %s: %v", r.ID, err)
		}
	}
}

func (a *app) history(args []string) error {
	fs := a.flags("history")
	limit := fs.Int("limit", 20, "number of runs to list")
	tmplName := fs.String("template", "", "only runs of this template name")
	batchID := fs.String("batch", "", "only runs of this batch id")
	runID := fs.String("id", "", "show one run with its element diagnostics")
	pruneDays := fs.Int("prune-days", 0, "delete runs older than this many days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.cfg.HistoryDB == "" {
		return usagef("history needs historyDb in the config file or REPORTFORGE_HISTORY_DB")
	}
	store, err := history.Open(a.ctx, nil, a.cfg.HistoryDB, a.log.Func())
	if err != nil {
		return err
	}
	defer store.Close()

	if *pruneDays > 0 {
		n, err := store.Prune(a.ctx, time.Now().AddDate(0, 0, -*pruneDays))
		if err != nil {
			return err
		}
		a.out.ok("pruned %d runs older than %d days", n, *pruneDays)
		return nil
	}

	if *runID != "" {
		run, err := store.Get(a.ctx, *runID)
		if err != nil {
			return err
		}
		a.out.title(run.Template)
		a.out.field("Run", run.ID)
		if run.BatchID != "" {
			a.out.field("Batch", run.BatchID)
		}
		a.out.field("Status", run.Status)
		a.out.field("Output", run.Output)
		a.out.field("Finished", run.FinishedAt.Format("2006-01-02 15:04:05"))
		a.out.field("Pages", run.Pages)
		a.out.field("Rendered", run.Rendered)
		a.out.field("Placeholders", run.Placeholders)
		a.out.field("Failed", run.Failed)
		if run.Error != "" {
			a.out.fail("%s", run.Error)
		}
		for _, d := range run.Diagnostics {
			a.out.warn("slide %d, element %d (%s): %s failed (%s): %s", d.Slide+1, d.Element+1, d.Type, d.Stage, d.Kind, d.Message)
		}
		return nil
	}

	runs, err := store.List(a.ctx, history.Filter{Template: *tmplName, BatchID: *batchID, Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		a.out.muted("no recorded runs")
		return nil
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.FinishedAt.Format("2006-01-02 15:04"),
			r.ID,
			r.Template,
			r.Status,
			fmt.Sprintf("%d/%d/%d", r.Rendered, r.Placeholders, r.Failed),
		}
	}
	a.out.table([]string{"FINISHED", "RUN", "TEMPLATE", "STATUS", "OK/PH/FAIL"}, rows)
	return nil
}
