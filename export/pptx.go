// Package export writes generated documents and run reports: PPTX decks
// through GoPPT, plus XLSX and PDF summaries of generation runs.
package export

import (
	"bytes"
	"fmt"
	"io"
	"math"

	ppt "github.com/VantageDataChat/GoPPT"

	"reportforge/canvas"
	"reportforge/templates"
)

const emuPerInch = 914400

func emu(inches float64) int64 {
	return int64(math.Round(inches * emuPerInch))
}

// helper: create a solid fill
func solidFill(c canvas.Color) *ppt.Fill {
	return ppt.NewFill().SetSolid(ppt.NewColor(c.ARGB()))
}

func alignParagraph(p *ppt.Paragraph, a canvas.Align) {
	switch a {
	case canvas.AlignCenter:
		p.SetAlignment(ppt.NewAlignment().SetHorizontal(ppt.HorizontalCenter))
	case canvas.AlignRight:
		p.SetAlignment(ppt.NewAlignment().SetHorizontal(ppt.HorizontalRight))
	}
}

// PPTXDocument is a canvas.Document backed by a GoPPT presentation.
type PPTXDocument struct {
	pres          *ppt.Presentation
	width, height float64
	pages         []*pptxPage
}

// NewPPTX creates an empty presentation whose slides are width x height
// inches.
func NewPPTX(width, height float64) *PPTXDocument {
	pres := ppt.New()
	if width > 0 && height > 0 {
		pres.GetLayout().SetCustomLayout(emu(width), emu(height))
	}
	return &PPTXDocument{pres: pres, width: width, height: height}
}

// Warnings reports pages whose declared layout the deck cannot carry. GoPPT
// writes a single blank slide layout, so every other layout is drawn on it.
func (d *PPTXDocument) Warnings() []string {
	var out []string
	blank := templates.LayoutIndex("blank")
	for i, p := range d.pages {
		if p.layout != blank {
			out = append(out, fmt.Sprintf("slide %d declares layout %q; it is written on the blank layout", i+1, templates.LayoutTag(p.layout)))
		}
	}
	return out
}

func (d *PPTXDocument) SetProperties(p canvas.Properties) {
	props := d.pres.GetDocumentProperties()
	props.Title = p.Title
	props.Creator = p.Author
}

// AddPage appends a slide. The presentation starts with one slide, which
// becomes the first page.
func (d *PPTXDocument) AddPage(layout int) (canvas.Page, error) {
	var slide *ppt.Slide
	if len(d.pages) == 0 {
		slide = d.pres.GetActiveSlide()
	} else {
		slide = d.pres.CreateSlide()
	}
	if slide == nil {
		return nil, fmt.Errorf("failed to create slide %d", len(d.pages)+1)
	}
	page := &pptxPage{slide: slide, layout: layout, width: d.width, height: d.height}
	d.pages = append(d.pages, page)
	return page, nil
}

func (d *PPTXDocument) PageCount() int { return len(d.pages) }

// Presentation exposes the underlying deck, e.g. for previews.
func (d *PPTXDocument) Presentation() *ppt.Presentation { return d.pres }

// WriteTo encodes the deck as PPTX.
func (d *PPTXDocument) WriteTo(w io.Writer) (int64, error) {
	writer, err := ppt.NewWriter(d.pres, ppt.WriterPowerPoint2007)
	if err != nil {
		return 0, fmt.Errorf("failed to create PPT writer: %w", err)
	}
	var buf bytes.Buffer
	if err := writer.(*ppt.PPTXWriter).WriteTo(&buf); err != nil {
		return 0, fmt.Errorf("failed to save PPT: %w", err)
	}
	return buf.WriteTo(w)
}

type pptxPage struct {
	slide         *ppt.Slide
	layout        int
	width, height float64
}

func (p *pptxPage) Size() (float64, float64) { return p.width, p.height }

func (p *pptxPage) AddText(t canvas.TextBox) error {
	shape := p.slide.CreateRichTextShape()
	shape.SetOffsetX(emu(t.Box.X)).SetOffsetY(emu(t.Box.Y))
	shape.SetWidth(emu(t.Box.W)).SetHeight(emu(t.Box.H))
	if t.Fill != nil {
		shape.SetFill(solidFill(*t.Fill))
	}
	for i, para := range t.Paragraphs {
		if i > 0 {
			shape.CreateParagraph()
		}
		runs := para.Runs
		if len(runs) == 0 {
			runs = []canvas.Run{{Text: " "}}
		}
		for _, r := range runs {
			tr := shape.CreateTextRun(r.Text)
			font := tr.GetFont()
			if r.Font.Size > 0 {
				font.SetSize(int(math.Round(r.Font.Size)))
			}
			font.SetBold(r.Font.Bold).SetColor(ppt.NewColor(r.Font.Color.ARGB()))
			if r.Font.Name != "" {
				font.Name = r.Font.Name
			}
			font.Italic = r.Font.Italic
		}
		alignParagraph(shape.GetActiveParagraph(), para.Align)
	}
	return nil
}

// AddRect draws a filled, borderless shape.
func (p *pptxPage) AddRect(b canvas.Box, fill canvas.Color) error {
	shape := p.slide.CreateRichTextShape()
	shape.SetOffsetX(emu(b.X)).SetOffsetY(emu(b.Y))
	shape.SetWidth(emu(b.W)).SetHeight(emu(b.H))
	shape.SetFill(solidFill(fill))
	return nil
}

func (p *pptxPage) AddPicture(pic canvas.Picture) error {
	if len(pic.Data) == 0 {
		return fmt.Errorf("empty image data")
	}
	mime := pic.MIME
	if mime == "" {
		mime = "image/png"
	}
	shape := p.slide.CreateDrawingShape()
	shape.SetImageData(pic.Data, mime)
	shape.SetOffsetX(emu(pic.Box.X)).SetOffsetY(emu(pic.Box.Y))
	shape.SetWidth(emu(pic.Box.W)).SetHeight(emu(pic.Box.H))
	return nil
}
