package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeJPEG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write jpeg: %v", err)
	}
	return path
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 0})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	jpg := writeJPEG(t, dir, "a.jpg", 10, 10)
	pngPath := writePNG(t, dir, "b.png", 10, 10)
	text := filepath.Join(dir, "notes.jpg")
	if err := os.WriteFile(text, []byte("just some text pretending"), 0o644); err != nil {
		t.Fatalf("write text: %v", err)
	}
	empty := filepath.Join(dir, "empty.png")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write empty: %v", err)
	}

	if got, err := Validate(jpg); err != nil || got != MIMEJPEG {
		t.Fatalf("Validate(jpg) = %q, %v; want %q", got, err, MIMEJPEG)
	}
	if got, err := Validate(pngPath); err != nil || got != MIMEPNG {
		t.Fatalf("Validate(png) = %q, %v; want %q", got, err, MIMEPNG)
	}

	cases := map[string]error{
		text:                          ErrUnsupported,
		empty:                         ErrEmpty,
		dir:                           ErrNotRegular,
		filepath.Join(dir, "missing"): ErrNotFound,
	}
	for path, want := range cases {
		if _, err := Validate(path); !errors.Is(err, want) {
			t.Fatalf("Validate(%s) = %v, want %v", filepath.Base(path), err, want)
		}
	}
}

func TestThumbnailer_ScalesDownKeepingAspect(t *testing.T) {
	path := writeJPEG(t, t.TempDir(), "wide.jpg", 400, 300)

	res, err := Thumbnailer{Size: 200, Quality: 85}.Make(path)
	if err != nil {
		t.Fatalf("Make returned error: %v", err)
	}
	if res.Width != 400 || res.Height != 300 {
		t.Fatalf("original dims = %dx%d, want 400x300", res.Width, res.Height)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(res.Thumbnail))
	if err != nil {
		t.Fatalf("thumbnail is not a jpeg: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 150 {
		t.Fatalf("thumbnail dims = %dx%d, want 200x150", cfg.Width, cfg.Height)
	}
	if res.MIME != MIMEJPEG || len(res.Original) == 0 {
		t.Fatalf("result = %+v, want original jpeg bytes", res.MIME)
	}
}

func TestThumbnailer_DoesNotUpscalePNG(t *testing.T) {
	path := writePNG(t, t.TempDir(), "small.png", 50, 80)

	res, err := Thumbnailer{}.Make(path)
	if err != nil {
		t.Fatalf("Make returned error: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(res.Thumbnail))
	if err != nil {
		t.Fatalf("thumbnail is not a jpeg: %v", err)
	}
	if cfg.Width != 50 || cfg.Height != 80 {
		t.Fatalf("thumbnail dims = %dx%d, want 50x80", cfg.Width, cfg.Height)
	}
	if res.MIME != MIMEPNG {
		t.Fatalf("MIME = %q, want png", res.MIME)
	}
}

func TestThumbnailer_RejectsCorruptImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := (Thumbnailer{}).Make(path); err == nil {
		t.Fatalf("Make on truncated jpeg returned nil error")
	}
}

func TestFit(t *testing.T) {
	cases := []struct {
		w, h, box, ww, wh int
	}{
		{400, 300, 200, 200, 150},
		{300, 400, 200, 150, 200},
		{200, 200, 200, 200, 200},
		{100, 50, 200, 100, 50},
		{5000, 10, 200, 200, 1},
	}
	for _, tc := range cases {
		w, h := Fit(tc.w, tc.h, tc.box)
		if w != tc.ww || h != tc.wh {
			t.Fatalf("Fit(%d,%d,%d) = %dx%d, want %dx%d", tc.w, tc.h, tc.box, w, h, tc.ww, tc.wh)
		}
	}
}

func TestOrient_RotatesQuarterTurns(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	red := color.NRGBA{R: 255, A: 255}
	src.Set(0, 0, red)

	cw := orient(src, 6)
	if b := cw.Bounds(); b.Dx() != 2 || b.Dy() != 4 {
		t.Fatalf("orient 6 bounds = %v, want 2x4", b)
	}
	if got := color.NRGBAModel.Convert(cw.At(1, 0)).(color.NRGBA); got != red {
		t.Fatalf("orient 6 top-right = %v, want red", got)
	}

	ccw := orient(src, 8)
	if got := color.NRGBAModel.Convert(ccw.At(0, 3)).(color.NRGBA); got != red {
		t.Fatalf("orient 8 bottom-left = %v, want red", got)
	}
	if orient(src, 1) != image.Image(src) {
		t.Fatalf("orient 1 should return the source unchanged")
	}
}
