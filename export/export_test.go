package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"reportforge/canvas"
	"reportforge/templates"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func buildDeck(t *testing.T) *PPTXDocument {
	t.Helper()
	doc := NewPPTX(10, 5.625)
	doc.SetProperties(canvas.Properties{Title: "Quarterly", Author: "Finance"})

	first, err := doc.AddPage(0)
	require.NoError(t, err)
	w, h := first.Size()
	assert.Equal(t, 10.0, w)
	assert.Equal(t, 5.625, h)

	font := canvas.Font{Name: "Calibri", Size: 18, Bold: true, Color: canvas.Black}
	require.NoError(t, first.AddText(canvas.TextBox{
		Box:        canvas.Box{X: 1, Y: 1, W: 8, H: 1},
		Paragraphs: canvas.Lines("Quarterly Review\nRevenue up", font, canvas.AlignCenter),
	}))
	require.NoError(t, first.AddRect(canvas.Box{X: 0, Y: 0, W: 10, H: 0.1}, canvas.ColorOr("#2563EB", canvas.Black)))

	second, err := doc.AddPage(1)
	require.NoError(t, err)
	require.NoError(t, second.AddPicture(canvas.Picture{Box: canvas.Box{X: 1, Y: 1, W: 2, H: 2}, Data: tinyPNG(t), MIME: "image/png"}))
	assert.Error(t, second.AddPicture(canvas.Picture{}))

	assert.Equal(t, 2, doc.PageCount())
	return doc
}

func TestPPTX_WriteAndInspect(t *testing.T) {
	doc := buildDeck(t)
	path := filepath.Join(t.TempDir(), "deck.pptx")

	var buf bytes.Buffer
	n, err := doc.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	slides, err := Inspect(path)
	require.NoError(t, err)
	require.Len(t, slides, 2)
	assert.Contains(t, slides[0].Texts, "Quarterly Review")
	assert.Contains(t, slides[0].Texts, "Revenue up")
	assert.Equal(t, 1, slides[1].Pictures)
}

func TestInspect_MissingFile(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "nope.pptx"))
	assert.Error(t, err)
}

func decodePreview(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestPPTX_Previews(t *testing.T) {
	doc := buildDeck(t)
	dir := filepath.Join(t.TempDir(), "previews")
	files, err := doc.Previews(dir, 320)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(dir, "slide_1.png"), files[0])

	first := decodePreview(t, files[0])
	assert.Equal(t, image.Rect(0, 0, 320, 180), first.Bounds())
	r, g, b, _ := first.At(160, 1).RGBA()
	assert.Equal(t, []uint32{0x25, 0x63, 0xEB}, []uint32{r >> 8, g >> 8, b >> 8}, "brand bar")
	r, g, b, _ = first.At(300, 170).RGBA()
	assert.Equal(t, []uint32{0xFF, 0xFF, 0xFF}, []uint32{r >> 8, g >> 8, b >> 8}, "background")

	// the 4x4 picture fills 32..96px; its red pixel lands around 48..64px
	r, g, _, _ = decodePreview(t, files[1]).At(56, 56).RGBA()
	assert.Greater(t, r>>8, uint32(200))
	assert.Less(t, g>>8, uint32(80))
}

func TestRenderPreviews_SavedDeck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.pptx")
	var buf bytes.Buffer
	_, err := NewPPTX(10, 7.5).WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	files, err := RenderPreviews(path, filepath.Join(dir, "png"), 200)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, image.Rect(0, 0, 200, 150), decodePreview(t, files[0]).Bounds())

	_, err = RenderPreviews(filepath.Join(dir, "missing.pptx"), dir, 200)
	assert.Error(t, err)
}

func sampleReport() ReportData {
	return ReportData{
		Title:    "Batch run",
		Subtitle: "3 jobs",
		Metrics:  []MetricData{{Title: "Success rate", Value: "66.7%"}, {Title: "Failed", Value: "1"}},
		Notes:    []string{"job 2: template not found"},
		Table: &TableData{
			Columns: []TableColumn{{Title: "Job"}, {Title: "Status"}, {Title: "Output", Width: 40}},
			Data: [][]interface{}{
				{1, "success", "out/a.pptx"},
				{2, "failed", ""},
				{3, "success", "out/c.pptx"},
			},
		},
	}
}

func TestReportXLSX(t *testing.T) {
	data, err := ReportXLSX(sampleReport())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	status, err := f.GetCellValue("Results", "B3")
	require.NoError(t, err)
	assert.Equal(t, "failed", status)
	rate, err := f.GetCellValue("Summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "66.7%", rate)

	_, err = ReportXLSX(ReportData{Title: "empty"})
	assert.Error(t, err)
}

func TestReportPDF(t *testing.T) {
	data, err := ReportPDF(sampleReport())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"r.xlsx", "r.pdf"} {
		path := filepath.Join(dir, "nested", name)
		require.NoError(t, WriteReport(path, sampleReport()))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Error(t, WriteReport(filepath.Join(dir, "r.docx"), sampleReport()))
}

func TestPPTX_SlideSizeFollowsPage(t *testing.T) {
	tests := []struct {
		name          string
		width, height float64
		cx, cy        int64
	}{
		{"16:9", 10, 5.625, 9144000, 5143500},
		{"4:3", 10, 7.5, 9144000, 6858000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := NewPPTX(tt.width, tt.height).Presentation().GetLayout()
			assert.Equal(t, tt.cx, layout.CX)
			assert.Equal(t, tt.cy, layout.CY)
		})
	}
}

func TestPPTX_WarnsOnDeclaredLayouts(t *testing.T) {
	doc := NewPPTX(10, 5.625)
	assert.Empty(t, doc.Warnings())

	for _, tag := range []string{"title", "blank", "two_content"} {
		_, err := doc.AddPage(templates.LayoutIndex(tag))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{
		`slide 1 declares layout "title"; it is written on the blank layout`,
		`slide 3 declares layout "two_content"; it is written on the blank layout`,
	}, doc.Warnings())
}
