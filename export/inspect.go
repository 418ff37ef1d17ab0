package export

import (
	"fmt"
	"strings"

	ppt "github.com/VantageDataChat/GoPPT"
)

// SlideSummary is the text content of one slide of a saved deck.
type SlideSummary struct {
	Index    int      `json:"index"`
	Shapes   int      `json:"shapes"`
	Pictures int      `json:"pictures"`
	Texts    []string `json:"texts"`
}

// Inspect reads a PPTX file and lists each slide's text.
func Inspect(path string) ([]SlideSummary, error) {
	reader := &ppt.PPTXReader{}
	pres, err := reader.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PPT file: %w", err)
	}

	slides := pres.GetAllSlides()
	out := make([]SlideSummary, 0, len(slides))
	for i, slide := range slides {
		sum := SlideSummary{Index: i + 1}
		for _, shape := range slide.GetShapes() {
			sum.Shapes++
			switch s := shape.(type) {
			case *ppt.DrawingShape:
				sum.Pictures++
			case *ppt.RichTextShape:
				for _, para := range s.GetParagraphs() {
					var text string
					for _, elem := range para.GetElements() {
						if run, ok := elem.(*ppt.TextRun); ok {
							text += run.GetText()
						}
					}
					if text = strings.TrimSpace(text); text != "" {
						sum.Texts = append(sum.Texts, text)
					}
				}
			}
		}
		out = append(out, sum)
	}
	return out, nil
}

// RenderPreviews draws every slide of the deck at path into dir as
// slide_<n>.png, width pixels wide, and returns the written files in order.
func RenderPreviews(path, dir string, width int) ([]string, error) {
	reader := &ppt.PPTXReader{}
	pres, err := reader.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PPT file: %w", err)
	}
	return renderPreviews(pres, dir, width)
}

// Previews draws the in-memory deck the same way as RenderPreviews.
func (d *PPTXDocument) Previews(dir string, width int) ([]string, error) {
	return renderPreviews(d.pres, dir, width)
}
