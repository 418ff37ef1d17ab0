package canvas

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
		ok   bool
	}{
		{"#2563EB", Color{0x25, 0x63, 0xEB, 255}, true},
		{"ffffff", White, true},
		{"#fff", White, true},
		{"#80000000", Color{0, 0, 0, 0x80}, true},
		{"blue", Color{}, false},
		{"#12345", Color{}, false},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestColorFormats(t *testing.T) {
	c := ColorOr("#10B981", Black)
	assert.Equal(t, "10B981", c.Hex())
	assert.Equal(t, "FF10B981", c.ARGB())
	assert.Equal(t, Black, ColorOr("nonsense", Black))
}

func TestBoxFit(t *testing.T) {
	b := Box{X: 1, Y: 1, W: 4, H: 2}
	fit := b.Fit(1) // square
	assert.InDelta(t, 2.0, fit.W, 1e-9)
	assert.InDelta(t, 2.0, fit.H, 1e-9)
	assert.InDelta(t, 2.0, fit.X, 1e-9)
	assert.InDelta(t, 1.0, fit.Y, 1e-9)
}

func TestParseAlign(t *testing.T) {
	assert.Equal(t, AlignCenter, ParseAlign("Center"))
	assert.Equal(t, AlignRight, ParseAlign("right"))
	assert.Equal(t, AlignLeft, ParseAlign("justify"))
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(10, 5.625)
	p, err := r.AddPage(5)
	require.NoError(t, err)
	require.NoError(t, p.AddRect(Box{W: 1, H: 1}, White))
	require.NoError(t, p.AddText(TextBox{Box: Box{W: 2, H: 1}, Paragraphs: Lines("a\nb", Font{Size: 12}, AlignLeft)}))

	assert.Equal(t, 1, r.PageCount())
	page := r.Pages[0]
	assert.Equal(t, []string{"a\nb"}, page.Texts())
	w, h := page.Size()
	assert.Equal(t, 10.0, w)
	assert.Equal(t, 5.625, h)

	var buf bytes.Buffer
	_, err = r.WriteTo(&buf)
	require.NoError(t, err)
	assert.True(t, strings.Contains(buf.String(), `text 0.00,0.00 2.00x1.00 "a\nb"`))
}

// Feature: canvas, Property 1: Fit stays inside the box and keeps the ratio
func TestProperty1_FitInsideBox(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := Box{
			X: rapid.Float64Range(0, 10).Draw(t, "x"),
			Y: rapid.Float64Range(0, 10).Draw(t, "y"),
			W: rapid.Float64Range(0.1, 20).Draw(t, "w"),
			H: rapid.Float64Range(0.1, 20).Draw(t, "h"),
		}
		aspect := rapid.Float64Range(0.05, 20).Draw(t, "aspect")
		f := b.Fit(aspect)
		const eps = 1e-9
		if f.W > b.W+eps || f.H > b.H+eps || f.X < b.X-eps || f.Y < b.Y-eps {
			t.Fatalf("fit %+v escapes %+v", f, b)
		}
		if d := f.W/f.H - aspect; d > 1e-6 || d < -1e-6 {
			t.Fatalf("aspect %v, want %v", f.W/f.H, aspect)
		}
	})
}
