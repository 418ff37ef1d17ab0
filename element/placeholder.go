package element

import (
	"reportforge/canvas"
)

var (
	placeholderFill   = canvas.Color{R: 243, G: 244, B: 246, A: 255}
	placeholderBorder = canvas.Color{R: 209, G: 213, B: 219, A: 255}
	placeholderText   = canvas.Color{R: 156, G: 163, B: 175, A: 255}
)

// DrawPlaceholder draws the labeled gray box shown in place of content that
// could not be rendered.
func DrawPlaceholder(page canvas.Page, box canvas.Box, label, font string, size float64) error {
	const border = 1.0 / 72
	if err := page.AddRect(box, placeholderBorder); err != nil {
		return err
	}
	fill := placeholderFill
	return page.AddText(canvas.TextBox{
		Box:        box.Inset(border),
		Fill:       &fill,
		Paragraphs: canvas.Lines(label, canvas.Font{Name: font, Size: size, Color: placeholderText}, canvas.AlignCenter),
	})
}

// drawNotice draws unboxed gray text, used for empty tables and summaries.
func drawNotice(page canvas.Page, box canvas.Box, label, font string, size float64) error {
	return page.AddText(canvas.TextBox{
		Box:        box,
		Paragraphs: canvas.Lines(label, canvas.Font{Name: font, Size: size, Color: placeholderText}, canvas.AlignCenter),
	})
}
