package imaging

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/clone"
	"github.com/disintegration/imaging"
)

// Raster is a handle to a decoded 8-bit pixel buffer.
//
// Copies of a Raster share the underlying pixels; use Clone to obtain an
// independent buffer. The zero value is an empty raster.
//
// A Raster either carries an alpha channel (4 channels) or does not
// (3 channels). Rasters without alpha always store fully opaque pixels.
type Raster struct {
	img   *image.NRGBA
	alpha bool
}

// NewRaster converts img into a Raster.
//
// When keepAlpha is false the alpha channel is dropped and every pixel is
// made fully opaque. When it is true the raster reports an alpha channel
// only if the source color model can carry one.
func NewRaster(img image.Image, keepAlpha bool) Raster {
	if img == nil {
		return Raster{}
	}
	nrgba := imaging.Clone(img)
	alpha := keepAlpha && hasAlphaChannel(img)
	if !alpha {
		opaque(nrgba)
	}
	return Raster{img: nrgba, alpha: alpha}
}

// rasterFrom wraps an already converted buffer without copying it.
func rasterFrom(img *image.NRGBA, alpha bool) Raster {
	return Raster{img: img, alpha: alpha}
}

// Empty reports whether the raster holds no pixels.
func (r Raster) Empty() bool {
	return r.img == nil || r.img.Rect.Empty()
}

// Rows returns the image height in pixels.
func (r Raster) Rows() int {
	if r.img == nil {
		return 0
	}
	return r.img.Rect.Dy()
}

// Cols returns the image width in pixels.
func (r Raster) Cols() int {
	if r.img == nil {
		return 0
	}
	return r.img.Rect.Dx()
}

// Channels returns 4 for rasters with an alpha channel and 3 otherwise.
func (r Raster) Channels() int {
	if r.alpha {
		return 4
	}
	return 3
}

// HasAlpha reports whether the raster carries an alpha channel.
func (r Raster) HasAlpha() bool { return r.alpha }

// Image returns the underlying image. The returned image shares storage with r.
func (r Raster) Image() *image.NRGBA { return r.img }

// Clone returns a deep copy of r.
func (r Raster) Clone() Raster {
	if r.img == nil {
		return Raster{}
	}
	// AsRGBA premultiplies, which only round-trips exactly for opaque pixels.
	if r.alpha {
		return Raster{img: imaging.Clone(r.img), alpha: true}
	}
	rgba := clone.AsRGBA(r.img)
	out := image.NewNRGBA(rgba.Rect)
	copy(out.Pix, rgba.Pix)
	return Raster{img: out}
}

// Bytes returns the pixel buffer in row-major order with interleaved channels
// in BGR (or BGRA) order. The length is always Rows*Cols*Channels.
func (r Raster) Bytes() []byte {
	if r.Empty() {
		return nil
	}
	rows, cols, ch := r.Rows(), r.Cols(), r.Channels()
	out := make([]byte, 0, rows*cols*ch)
	for y := 0; y < rows; y++ {
		i := y * r.img.Stride
		for x := 0; x < cols; x++ {
			p := r.img.Pix[i : i+4 : i+4]
			out = append(out, p[2], p[1], p[0])
			if r.alpha {
				out = append(out, p[3])
			}
			i += 4
		}
	}
	return out
}

// hasAlphaChannel reports whether the color model of img can carry
// transparency.
func hasAlphaChannel(img image.Image) bool {
	switch src := img.(type) {
	case *image.NRGBA, *image.RGBA, *image.NRGBA64, *image.RGBA64, *image.Alpha, *image.Alpha16:
		return true
	case *image.Paletted:
		for _, c := range src.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
		return false
	default:
		return img.ColorModel() == color.NRGBAModel || img.ColorModel() == color.RGBAModel
	}
}

func opaque(img *image.NRGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
}
