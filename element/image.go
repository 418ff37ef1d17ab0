package element

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"reportforge/canvas"
	"reportforge/mapper"
	"reportforge/templates"
)

const (
	imageNotFoundLabel = "[Image]\n%s\nNot Found"
	imageNoPathLabel   = "[Image Placeholder]"
	imageErrorLabel    = "[Image Error]\n%s"

	maxImageBytes = 32 << 20
)

var imageSourceTypes = []string{templates.ImageFile, templates.ImageURL, templates.ImageTemplateLogo, templates.ImageTemplateEmbeddedLogo}

// Image places a file, URL or template logo.
type Image struct {
	base
	conf templates.ImageConfig
}

func NewImage(cfg templates.ElementConfig, env *Env) *Image {
	i := &Image{base: newBase(cfg, env)}
	if cfg.Image != nil {
		i.conf = *cfg.Image
	}
	if i.conf.Type == "" {
		i.conf.Type = templates.ImageFile
	}
	return i
}

func (i *Image) isLogo() bool {
	return i.conf.Type == templates.ImageTemplateLogo || i.conf.Type == templates.ImageTemplateEmbeddedLogo
}

func (i *Image) Validate() error {
	if err := i.validateGeometry(); err != nil {
		return err
	}
	valid := false
	for _, t := range imageSourceTypes {
		valid = valid || t == i.conf.Type
	}
	if !valid {
		return i.configErr("type", "unknown image source type %q", i.conf.Type)
	}
	if i.conf.Path == "" && !i.isLogo() {
		return i.configErr("path", "path is required for %s images", i.conf.Type)
	}
	if i.conf.BorderWidth < 0 || i.conf.CornerRadius < 0 {
		return i.configErr("style", "border_width and corner_radius must not be negative")
	}
	if o := i.conf.Opacity; o != nil && (*o < 0 || *o > 100) {
		return i.configErr("opacity", "opacity must be within 0-100, got %g", *o)
	}
	return nil
}

// Opacity returns the configured opacity as a fraction. Values above 1 are
// read as percentages.
func (i *Image) Opacity() float64 {
	if i.conf.Opacity == nil {
		return 1
	}
	o := *i.conf.Opacity
	if o > 1 {
		o /= 100
	}
	return math.Max(0, math.Min(1, o))
}

func (i *Image) maintainAspect() bool {
	return i.conf.MaintainAspect == nil || *i.conf.MaintainAspect
}

// source is a resolved image location. url is set for remote images.
type source struct {
	path string
	url  bool
}

// Resolve walks the source chain: a render-time override, then the
// template logo, then the configured path. It returns an empty source when
// nothing is configured.
func (i *Image) Resolve(override map[string]any) source {
	for _, key := range []string{"image_path", "logo_path"} {
		if p, ok := override[key].(string); ok && p != "" && p != i.conf.Path {
			return i.local(p)
		}
	}
	if i.isLogo() {
		logo := i.env.Settings.LogoPath
		if i.conf.Type == templates.ImageTemplateEmbeddedLogo {
			logo = i.env.Settings.EmbeddedLogoPath
		}
		if logo != "" {
			if found, ok := i.findLogo(logo); ok {
				return source{path: found}
			}
		}
	}
	if i.conf.Path == "" {
		return source{}
	}
	if i.conf.Type == templates.ImageURL || isURL(i.conf.Path) {
		return source{path: i.conf.Path, url: true}
	}
	return i.local(i.conf.Path)
}

func isURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

func (i *Image) local(p string) source {
	if isURL(p) {
		return source{path: p, url: true}
	}
	if !filepath.IsAbs(p) && i.env.ProjectRoot != "" {
		if _, err := os.Stat(p); err != nil {
			p = filepath.Join(i.env.ProjectRoot, p)
		}
	}
	return source{path: p}
}

func (i *Image) findLogo(logo string) (string, bool) {
	candidates := []string{logo}
	if !filepath.IsAbs(logo) {
		for _, dir := range i.env.LogoDirs {
			candidates = append(candidates, filepath.Join(dir, logo))
		}
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c, true
		}
	}
	return "", false
}

func (i *Image) load(ctx context.Context, src source) ([]byte, error) {
	if !src.url {
		return os.ReadFile(src.path)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.path, nil)
	if err != nil {
		return nil, err
	}
	client := i.env.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fs.ErrNotExist
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", src.path, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

func (i *Image) Render(ctx context.Context, page canvas.Page, data mapper.ComponentData) (Outcome, error) {
	font := i.env.font()
	src := i.Resolve(data.Source)
	if src.path == "" {
		return Outcome{Placeholder: true, Reason: "no image path"},
			DrawPlaceholder(page, i.box, imageNoPathLabel, font, 12)
	}

	raw, err := i.load(ctx, src)
	if err != nil {
		i.env.logf("[image] %s: %v", src.path, err)
		label := fmt.Sprintf(imageErrorLabel, err)
		if errors.Is(err, fs.ErrNotExist) {
			label = fmt.Sprintf(imageNotFoundLabel, filepath.Base(src.path))
		}
		return Outcome{Placeholder: true, Reason: err.Error()}, DrawPlaceholder(page, i.box, label, font, 12)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	svg := err != nil && isSVG(raw)
	if svg {
		err = nil
	}
	if err != nil {
		i.env.logf("[image] %s: not a decodable image: %v", src.path, err)
		return Outcome{Placeholder: true, Reason: err.Error()},
			DrawPlaceholder(page, i.box, fmt.Sprintf(imageErrorLabel, err), font, 12)
	}

	var out Outcome
	box := i.box
	if i.maintainAspect() && cfg.Height > 0 {
		box = box.Fit(float64(cfg.Width) / float64(cfg.Height))
	}

	if i.conf.BorderWidth > 0 {
		if err := page.AddRect(box, canvas.ColorOr(i.conf.BorderColor, canvas.Black)); err != nil {
			return out, err
		}
		box = box.Inset(i.conf.BorderWidth / 72)
		out.Decorations = append(out.Decorations, Applied("border"))
	}

	raw, decorations := i.process(raw, box)
	out.Decorations = append(out.Decorations, decorations...)
	for _, d := range out.Decorations {
		i.env.logf("[image] %s %s", filepath.Base(src.path), d)
	}

	mime := http.DetectContentType(raw)
	if svg {
		mime = "image/svg+xml"
	}
	if err := page.AddPicture(canvas.Picture{Box: box, Data: raw, MIME: mime}); err != nil {
		return out, err
	}
	return out, nil
}

// isSVG reports whether raw looks like an SVG document. SVGs are embedded
// as-is since they cannot be measured or decoded here.
func isSVG(raw []byte) bool {
	head := raw
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// process applies opacity and corner rounding in pixel space. Images that
// cannot be decoded are returned untouched with the decorations marked
// unsupported.
func (i *Image) process(raw []byte, box canvas.Box) ([]byte, []Decoration) {
	opacity := i.Opacity()
	wantOpacity := opacity < 1
	wantCorners := i.conf.CornerRadius > 0
	if !wantOpacity && !wantCorners {
		return raw, nil
	}

	unsupported := func(reason string) []Decoration {
		var out []Decoration
		if wantCorners {
			out = append(out, Unsupported("corner_radius", reason))
		}
		if wantOpacity {
			out = append(out, Unsupported("opacity", reason))
		}
		return out
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return raw, unsupported("image format cannot be decoded")
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	// corner radius is given in points against the placed box
	radius := 0.0
	if wantCorners && box.W > 0 {
		radius = i.conf.CornerRadius / 72 * float64(b.Dx()) / box.W
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := dst.NRGBAAt(x, y)
			a := float64(c.A) * opacity
			if radius > 0 && outsideCorner(x, y, b.Dx(), b.Dy(), radius) {
				a = 0
			}
			c.A = uint8(math.Round(a))
			dst.SetNRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return raw, unsupported(err.Error())
	}
	var out []Decoration
	if wantCorners {
		out = append(out, Applied("corner_radius"))
	}
	if wantOpacity {
		out = append(out, Applied("opacity"))
	}
	return buf.Bytes(), out
}

func outsideCorner(x, y, w, h int, r float64) bool {
	fx, fy := float64(x)+0.5, float64(y)+0.5
	cx, cy := -1.0, -1.0
	switch {
	case fx < r:
		cx = r
	case fx > float64(w)-r:
		cx = float64(w) - r
	}
	switch {
	case fy < r:
		cy = r
	case fy > float64(h)-r:
		cy = float64(h) - r
	}
	if cx < 0 || cy < 0 {
		return false
	}
	return math.Hypot(fx-cx, fy-cy) > r
}

func (i *Image) Serialize() templates.ElementConfig {
	out := i.serialize()
	conf := i.conf
	out.Image = &conf
	return out
}
