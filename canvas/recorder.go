package canvas

import (
	"fmt"
	"io"
	"strings"
)

// ShapeKind tags a recorded draw call.
type ShapeKind string

const (
	ShapeText    ShapeKind = "text"
	ShapeRect    ShapeKind = "rect"
	ShapePicture ShapeKind = "picture"
)

// Shape is one recorded draw call.
type Shape struct {
	Kind    ShapeKind
	Box     Box
	Fill    *Color
	Text    *TextBox
	Picture *Picture
}

// RecordedPage keeps draw calls in order.
type RecordedPage struct {
	Layout        int
	Width, Height float64
	Shapes        []Shape
}

func (p *RecordedPage) Size() (float64, float64) { return p.Width, p.Height }

func (p *RecordedPage) AddText(t TextBox) error {
	p.Shapes = append(p.Shapes, Shape{Kind: ShapeText, Box: t.Box, Fill: t.Fill, Text: &t})
	return nil
}

func (p *RecordedPage) AddRect(b Box, fill Color) error {
	p.Shapes = append(p.Shapes, Shape{Kind: ShapeRect, Box: b, Fill: &fill})
	return nil
}

func (p *RecordedPage) AddPicture(pic Picture) error {
	p.Shapes = append(p.Shapes, Shape{Kind: ShapePicture, Box: pic.Box, Picture: &pic})
	return nil
}

// Texts returns the text of every text shape in draw order.
func (p *RecordedPage) Texts() []string {
	var out []string
	for _, s := range p.Shapes {
		if s.Kind == ShapeText {
			out = append(out, s.Text.Text())
		}
	}
	return out
}

// Recorder is an in-memory Document. It backs dry runs and tests.
type Recorder struct {
	Width, Height float64
	Props         Properties
	Pages         []*RecordedPage
}

// NewRecorder creates a Recorder whose pages have the given size.
func NewRecorder(width, height float64) *Recorder {
	return &Recorder{Width: width, Height: height}
}

func (r *Recorder) SetProperties(p Properties) { r.Props = p }

func (r *Recorder) AddPage(layout int) (Page, error) {
	p := &RecordedPage{Layout: layout, Width: r.Width, Height: r.Height}
	r.Pages = append(r.Pages, p)
	return p, nil
}

func (r *Recorder) PageCount() int { return len(r.Pages) }

// WriteTo writes a plain-text dump of the recorded pages.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	for i, p := range r.Pages {
		fmt.Fprintf(&sb, "page %d (layout %d)\n", i+1, p.Layout)
		for _, s := range p.Shapes {
			fmt.Fprintf(&sb, "  %s %.2f,%.2f %.2fx%.2f", s.Kind, s.Box.X, s.Box.Y, s.Box.W, s.Box.H)
			if s.Text != nil {
				fmt.Fprintf(&sb, " %q", s.Text.Text())
			}
			sb.WriteString("\n")
		}
	}
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}
