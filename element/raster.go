package element

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
)

// RasterPlan converts a size in inches at dpi into pixel dimensions. When
// either axis would exceed maxExtent the DPI is lowered proportionally; the
// image is never cropped.
func RasterPlan(widthIn, heightIn, dpi float64, maxExtent int) (w, h int, effectiveDPI float64) {
	if dpi <= 0 {
		dpi = DefaultChartDPI
	}
	if maxExtent <= 0 {
		maxExtent = DefaultMaxRasterExtent
	}
	effectiveDPI = dpi
	limit := float64(maxExtent)
	if widthIn > 0 && widthIn*effectiveDPI > limit {
		effectiveDPI = limit / widthIn
	}
	if heightIn > 0 && heightIn*effectiveDPI > limit {
		effectiveDPI = limit / heightIn
	}
	w = clampPixels(widthIn*effectiveDPI, maxExtent)
	h = clampPixels(heightIn*effectiveDPI, maxExtent)
	return w, h, effectiveDPI
}

func clampPixels(v float64, maxExtent int) int {
	n := int(math.Floor(v))
	if n < 1 {
		n = 1
	}
	if n > maxExtent {
		n = maxExtent
	}
	return n
}

// ConstrainRaster re-measures the PNG at path and scales it down in place if
// either axis exceeds maxExtent. It reports whether the file was rewritten.
func ConstrainRaster(path string, maxExtent int) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("failed to measure raster: %w", err)
	}
	if cfg.Width <= maxExtent && cfg.Height <= maxExtent {
		return false, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("failed to decode raster: %w", err)
	}
	scale := math.Min(float64(maxExtent)/float64(cfg.Width), float64(maxExtent)/float64(cfg.Height))
	dst := image.NewRGBA(image.Rect(0, 0,
		clampPixels(float64(cfg.Width)*scale, maxExtent),
		clampPixels(float64(cfg.Height)*scale, maxExtent)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return false, err
	}
	return true, os.WriteFile(path, buf.Bytes(), 0644)
}
