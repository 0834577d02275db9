package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"golang.org/x/image/draw"
)

const (
	DefaultSize    = 200
	DefaultQuality = 85
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// Thumbnailer renders JPEG thumbnails that fit inside a Size x Size box.
type Thumbnailer struct {
	Size    int
	Quality int
}

// Result carries the original bytes alongside the rendered thumbnail.
type Result struct {
	Original  []byte
	Thumbnail []byte
	MIME      string
	// Width and Height are the original's dimensions after EXIF orientation.
	Width   int
	Height  int
	TakenAt time.Time
}

// Make reads path, applies its EXIF orientation and scales it down.
func (t Thumbnailer) Make(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	mtype, err := checkMIME(path, mimetype.Detect(data))
	if err != nil {
		return nil, err
	}

	var src image.Image
	switch mtype {
	case MIMEJPEG:
		src, err = jpeg.Decode(bytes.NewReader(data))
	case MIMEPNG:
		src, err = png.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	var takenAt time.Time
	orientation := 1
	if mtype == MIMEJPEG {
		if x, err := exif.Decode(bytes.NewReader(data)); err == nil {
			if tag, err := x.Get(exif.Orientation); err == nil {
				if v, err := tag.Int(0); err == nil {
					orientation = v
				}
			}
			if tm, err := x.DateTime(); err == nil {
				takenAt = tm
			}
		}
	}
	src = orient(src, orientation)

	thumb, err := t.render(src)
	if err != nil {
		return nil, fmt.Errorf("thumbnail %s: %w", path, err)
	}
	b := src.Bounds()
	return &Result{
		Original:  data,
		Thumbnail: thumb,
		MIME:      mtype,
		Width:     b.Dx(),
		Height:    b.Dy(),
		TakenAt:   takenAt,
	}, nil
}

func (t Thumbnailer) render(src image.Image) ([]byte, error) {
	size := t.Size
	if size <= 0 {
		size = DefaultSize
	}
	quality := t.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	w, h := Fit(src.Bounds().Dx(), src.Bounds().Dy(), size)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha; composite transparent PNGs onto white.
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Fit returns the largest dimensions no bigger than box on either side that
// keep the w:h ratio. Images already inside the box are not enlarged.
func Fit(w, h, box int) (int, int) {
	if w <= 0 || h <= 0 {
		return 1, 1
	}
	if w <= box && h <= box {
		return w, h
	}
	if w >= h {
		nh := h * box / w
		if nh < 1 {
			nh = 1
		}
		return box, nh
	}
	nw := w * box / h
	if nw < 1 {
		nw = 1
	}
	return nw, box
}

// orient applies an EXIF orientation value (1-8) so the result displays
// upright.
func orient(src image.Image, orientation int) image.Image {
	if orientation <= 1 || orientation > 8 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	swap := orientation >= 5
	dw, dh := w, h
	if swap {
		dw, dh = h, w
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch orientation {
			case 2:
				dx, dy = w-1-x, y
			case 3:
				dx, dy = w-1-x, h-1-y
			case 4:
				dx, dy = x, h-1-y
			case 5:
				dx, dy = y, x
			case 6:
				dx, dy = h-1-y, x
			case 7:
				dx, dy = h-1-y, w-1-x
			case 8:
				dx, dy = y, w-1-x
			}
			dst.Set(dx, dy, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
