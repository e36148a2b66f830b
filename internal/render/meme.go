// Package render draws text onto a fixed-size meme image.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const ellipsis = "…"

type Options struct {
	Width    int
	Height   int
	FontSize float64
	Margin   int
	// MemesDir holds optional background images; a random one is picked per render.
	MemesDir string
	// FontPath overrides the built-in Go Regular font.
	FontPath   string
	Background color.Color
	Foreground color.Color
	Shadow     color.Color
}

func DefaultOptions() Options {
	return Options{
		Width:      800,
		Height:     400,
		FontSize:   32,
		Margin:     24,
		Background: color.RGBA{R: 73, G: 109, B: 137, A: 255},
		Foreground: color.White,
		Shadow:     color.Black,
	}
}

type Renderer struct {
	opts Options
	face font.Face
	mu   sync.Mutex
	rng  *rand.Rand
}

func New(opts Options) (*Renderer, error) {
	data := goregular.TTF
	if opts.FontPath != "" {
		b, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		data = b
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: opts.FontSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	return &Renderer{
		opts: opts,
		face: face,
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}, nil
}

// Render returns a JPEG with text wrapped and centered. Text that does not fit is truncated.
func (r *Renderer) Render(text string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dst := image.NewRGBA(image.Rect(0, 0, r.opts.Width, r.opts.Height))
	r.paintBackground(dst)

	maxWidth := fixed.I(r.opts.Width - 2*r.opts.Margin)
	metrics := r.face.Metrics()
	lineHeight := metrics.Height.Ceil()
	maxLines := (r.opts.Height - 2*r.opts.Margin) / lineHeight
	if maxLines < 1 {
		maxLines = 1
	}
	lines := fitLines(r.face, text, maxWidth, maxLines)

	blockHeight := len(lines) * lineHeight
	y := (r.opts.Height-blockHeight)/2 + metrics.Ascent.Ceil()
	for _, line := range lines {
		w := font.MeasureString(r.face, line)
		x := (fixed.I(r.opts.Width) - w) / 2
		r.drawString(dst, line, x+fixed.I(2), fixed.I(y+2), r.opts.Shadow)
		r.drawString(dst, line, x, fixed.I(y), r.opts.Foreground)
		y += lineHeight
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawString(dst draw.Image, s string, x, y fixed.Int26_6, c color.Color) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: r.face, Dot: fixed.Point26_6{X: x, Y: y}}
	d.DrawString(s)
}

func (r *Renderer) paintBackground(dst *image.RGBA) {
	if bg := r.randomBackground(); bg != nil {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), bg, bg.Bounds(), draw.Src, nil)
		// darken so white text stays readable
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.RGBA{A: 96}), image.Point{}, draw.Over)
		return
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(r.opts.Background), image.Point{}, draw.Src)
}

func (r *Renderer) randomBackground() image.Image {
	if r.opts.MemesDir == "" {
		return nil
	}
	entries, err := os.ReadDir(r.opts.MemesDir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			if !e.IsDir() {
				files = append(files, filepath.Join(r.opts.MemesDir, e.Name()))
			}
		}
	}
	if len(files) == 0 {
		return nil
	}
	path := files[r.rng.IntN(len(files))]
	f, err := os.Open(path)
	if err != nil {
		log.WithError(err).Warnf("failed to open meme background %s", path)
		return nil
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	img, _, err := image.Decode(f)
	if err != nil {
		log.WithError(err).Warnf("failed to decode meme background %s", path)
		return nil
	}
	return img
}

// fitLines wraps text to maxWidth and keeps at most maxLines, marking truncation with an ellipsis.
func fitLines(face font.Face, text string, maxWidth fixed.Int26_6, maxLines int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, wrap(face, para, maxWidth)...)
	}
	if len(lines) <= maxLines {
		return lines
	}
	lines = lines[:maxLines]
	last := lines[maxLines-1]
	for last != "" && font.MeasureString(face, last+ellipsis) > maxWidth {
		rs := []rune(last)
		last = string(rs[:len(rs)-1])
	}
	lines[maxLines-1] = last + ellipsis
	return lines
}

func wrap(face font.Face, para string, maxWidth fixed.Int26_6) []string {
	words := strings.Fields(para)
	if len(words) == 0 {
		return []string{""}
	}
	var (
		lines []string
		cur   string
	)
	for _, w := range words {
		for font.MeasureString(face, w) > maxWidth {
			// a single word wider than the line is hard-split
			head, tail := splitToWidth(face, w, maxWidth)
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			lines = append(lines, head)
			w = tail
		}
		candidate := w
		if cur != "" {
			candidate = cur + " " + w
		}
		if font.MeasureString(face, candidate) <= maxWidth {
			cur = candidate
			continue
		}
		lines = append(lines, cur)
		cur = w
	}
	return append(lines, cur)
}

func splitToWidth(face font.Face, w string, maxWidth fixed.Int26_6) (string, string) {
	rs := []rune(w)
	n := 1
	for n < len(rs) && font.MeasureString(face, string(rs[:n+1])) <= maxWidth {
		n++
	}
	return string(rs[:n]), string(rs[n:])
}
