package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	ppt "github.com/VantageDataChat/GoPPT"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const defaultPreviewWidth = 960

var (
	previewBackground = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	// unknown pictures (SVG and the like) show as a grey frame
	previewPictureFill = color.NRGBA{R: 0xE5, G: 0xE7, B: 0xEB, A: 255}
)

// renderPreviews draws each slide into dir. Fills and pictures are placed at
// their frames; text is set in a fixed bitmap face, so a preview shows the
// layout of a slide rather than its typography.
func renderPreviews(pres *ppt.Presentation, dir string, width int) ([]string, error) {
	if width <= 0 {
		width = defaultPreviewWidth
	}
	layout := pres.GetLayout()
	if layout == nil || layout.CX <= 0 || layout.CY <= 0 {
		return nil, fmt.Errorf("presentation has no slide size")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create preview dir: %w", err)
	}

	scale := float64(width) / float64(layout.CX)
	height := int(math.Max(1, math.Round(float64(layout.CY)*scale)))

	slides := pres.GetAllSlides()
	files := make([]string, 0, len(slides))
	for i, slide := range slides {
		img := drawSlide(slide, width, height, scale)
		path := filepath.Join(dir, fmt.Sprintf("slide_%d.png", i+1))
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode slide %d: %w", i+1, err)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return nil, fmt.Errorf("failed to write preview: %w", err)
		}
		files = append(files, path)
	}
	return files, nil
}

func drawSlide(slide *ppt.Slide, width, height int, scale float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	bg := previewBackground
	if f := slide.GetBackground(); f != nil && f.Type == ppt.FillSolid {
		bg = nrgba(f.Color)
	}
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	for _, shape := range slide.GetShapes() {
		r := frame(shape, scale).Intersect(img.Bounds())
		if r.Empty() {
			continue
		}
		switch s := shape.(type) {
		case *ppt.RichTextShape:
			if f := s.GetFill(); f.Type == ppt.FillSolid {
				draw.Draw(img, r, image.NewUniform(nrgba(f.Color)), image.Point{}, draw.Over)
			}
			drawParagraphs(img.SubImage(r).(*image.RGBA), s.GetParagraphs())
		case *ppt.DrawingShape:
			src, _, err := image.Decode(bytes.NewReader(s.GetImageData()))
			if err != nil {
				draw.Draw(img, r, image.NewUniform(previewPictureFill), image.Point{}, draw.Over)
				continue
			}
			xdraw.ApproxBiLinear.Scale(img, frame(shape, scale), src, src.Bounds(), xdraw.Over, nil)
		}
	}
	return img
}

// frame converts a shape's EMU frame into pixels.
func frame(s ppt.Shape, scale float64) image.Rectangle {
	px := func(v int64) int { return int(math.Round(float64(v) * scale)) }
	x, y := px(s.GetOffsetX()), px(s.GetOffsetY())
	return image.Rect(x, y, x+px(s.GetWidth()), y+px(s.GetHeight()))
}

func drawParagraphs(dst *image.RGBA, paras []*ppt.Paragraph) {
	face := basicfont.Face7x13
	bounds := dst.Bounds()
	lineHeight := face.Metrics().Height.Ceil() + 2
	y := bounds.Min.Y + face.Metrics().Ascent.Ceil() + 2

	for _, para := range paras {
		var text strings.Builder
		ink := color.NRGBA{A: 255}
		for _, elem := range para.GetElements() {
			run, ok := elem.(*ppt.TextRun)
			if !ok {
				continue
			}
			if text.Len() == 0 && run.GetFont() != nil {
				ink = nrgba(run.GetFont().Color)
			}
			text.WriteString(run.GetText())
		}
		line := strings.TrimSpace(text.String())
		if line != "" {
			d := &font.Drawer{Dst: dst, Src: image.NewUniform(ink), Face: face}
			x := bounds.Min.X + 2
			advance := d.MeasureString(line).Ceil()
			if a := para.GetAlignment(); a != nil {
				switch a.Horizontal {
				case ppt.HorizontalCenter:
					x = bounds.Min.X + (bounds.Dx()-advance)/2
				case ppt.HorizontalRight:
					x = bounds.Max.X - advance - 2
				}
			}
			d.Dot = fixed.P(x, y)
			d.DrawString(line)
		}
		y += lineHeight
		if y > bounds.Max.Y+lineHeight {
			return
		}
	}
}

// nrgba converts a GoPPT color; an unset color is opaque black.
func nrgba(c ppt.Color) color.NRGBA {
	if len(c.ARGB) != 8 {
		return color.NRGBA{A: 255}
	}
	return color.NRGBA{R: c.GetRed(), G: c.GetGreen(), B: c.GetBlue(), A: c.GetAlpha()}
}
