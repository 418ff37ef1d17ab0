// Package canvas is the drawing surface elements render onto. Coordinates
// and sizes are in inches from the top-left corner of the page.
package canvas

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Box is a placed rectangle.
type Box struct {
	X, Y, W, H float64
}

// Inset shrinks the box by d on every side.
func (b Box) Inset(d float64) Box {
	return Box{X: b.X + d, Y: b.Y + d, W: max(b.W-2*d, 0), H: max(b.H-2*d, 0)}
}

// Fit returns the largest box with the given aspect ratio (w/h) that fits
// inside b, centered.
func (b Box) Fit(aspect float64) Box {
	if aspect <= 0 || b.W <= 0 || b.H <= 0 {
		return b
	}
	w, h := b.W, b.W/aspect
	if h > b.H {
		h = b.H
		w = h * aspect
	}
	return Box{X: b.X + (b.W-w)/2, Y: b.Y + (b.H-h)/2, W: w, H: h}
}

// Color is an opaque RGB color with alpha.
type Color struct {
	R, G, B, A uint8
}

var (
	White = Color{255, 255, 255, 255}
	Black = Color{0, 0, 0, 255}
)

// ParseColor accepts "#RRGGBB", "RRGGBB", "#RGB" and "#AARRGGBB".
func ParseColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 && len(h) != 8 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	if len(h) == 6 {
		return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}
	return Color{A: uint8(v >> 24), R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// ColorOr parses s and returns def when s is empty or invalid.
func ColorOr(s string, def Color) Color {
	if s == "" {
		return def
	}
	c, err := ParseColor(s)
	if err != nil {
		return def
	}
	return c
}

// Hex formats the color as RRGGBB without a leading '#'.
func (c Color) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// ARGB formats the color as AARRGGBB.
func (c Color) ARGB() string {
	return fmt.Sprintf("%02X%02X%02X%02X", c.A, c.R, c.G, c.B)
}

// Align is horizontal paragraph alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// ParseAlign maps "left", "center"/"centre" and "right"; anything else is left.
func ParseAlign(s string) Align {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "center", "centre":
		return AlignCenter
	case "right":
		return AlignRight
	default:
		return AlignLeft
	}
}

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "left"
	}
}

// Font describes a text run.
type Font struct {
	Name   string
	Size   float64 // points
	Bold   bool
	Italic bool
	Color  Color
}

type Run struct {
	Text string
	Font Font
}

type Paragraph struct {
	Runs  []Run
	Align Align
}

// Text concatenates the paragraph's runs.
func (p Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// TextBox is a box of paragraphs with an optional solid fill.
type TextBox struct {
	Box        Box
	Fill       *Color
	Paragraphs []Paragraph
}

// Text joins the paragraphs with newlines.
func (t TextBox) Text() string {
	lines := make([]string, len(t.Paragraphs))
	for i, p := range t.Paragraphs {
		lines[i] = p.Text()
	}
	return strings.Join(lines, "\n")
}

// Lines builds one paragraph per line of s, all in the same font.
func Lines(s string, font Font, align Align) []Paragraph {
	parts := strings.Split(s, "\n")
	out := make([]Paragraph, len(parts))
	for i, line := range parts {
		out[i] = Paragraph{Runs: []Run{{Text: line, Font: font}}, Align: align}
	}
	return out
}

// Picture is an encoded image placed in a box.
type Picture struct {
	Box  Box
	Data []byte
	MIME string
}

// Page is one slide or page of a Document.
type Page interface {
	// Size returns the page width and height in inches.
	Size() (width, height float64)
	AddText(t TextBox) error
	AddRect(b Box, fill Color) error
	AddPicture(p Picture) error
}

// Properties are document-level metadata.
type Properties struct {
	Title   string
	Author  string
	Subject string
}

// Document is a multi-page output. Implementations are not safe for
// concurrent use.
type Document interface {
	SetProperties(p Properties)
	// AddPage appends a page using the backend's layout index.
	AddPage(layout int) (Page, error)
	PageCount() int
	WriteTo(w io.Writer) (int64, error)
}
