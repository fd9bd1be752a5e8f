package imaging

import (
	"image"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/parallel"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/arion/internal/apperr"
)

// Interpolation selects the resampling kernel used by Transform.
type Interpolation int

const (
	InterpolationArea Interpolation = iota
	InterpolationNearest
	InterpolationLinear
	InterpolationCubic
	InterpolationLanczos4
)

var interpolationNames = map[string]Interpolation{
	"area":     InterpolationArea,
	"nearest":  InterpolationNearest,
	"linear":   InterpolationLinear,
	"cubic":    InterpolationCubic,
	"lanczos4": InterpolationLanczos4,
}

// ParseInterpolation parses an interpolation name. The second result is
// false for unknown names, in which case InterpolationArea is returned.
func ParseInterpolation(s string) (Interpolation, bool) {
	i, ok := interpolationNames[strings.ToLower(strings.TrimSpace(s))]
	return i, ok
}

func (i Interpolation) String() string {
	for name, v := range interpolationNames {
		if v == i {
			return name
		}
	}
	return "area"
}

// Filter returns the resampling filter for i.
func (i Interpolation) Filter() imaging.ResampleFilter {
	switch i {
	case InterpolationNearest:
		return imaging.NearestNeighbor
	case InterpolationLinear:
		return imaging.Linear
	case InterpolationCubic:
		return imaging.CatmullRom
	case InterpolationLanczos4:
		return imaging.Lanczos
	default:
		return imaging.Box
	}
}

// WatermarkType selects how the watermark blend factor is computed.
type WatermarkType int

const (
	// WatermarkStandard blends with a constant factor.
	WatermarkStandard WatermarkType = iota
	// WatermarkAdaptive scales the factor with the brightness of each
	// destination pixel.
	WatermarkAdaptive
)

// ParseWatermarkType parses "standard" or "adaptive".
func ParseWatermarkType(s string) (WatermarkType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard":
		return WatermarkStandard, true
	case "adaptive":
		return WatermarkAdaptive, true
	}
	return WatermarkStandard, false
}

func (t WatermarkType) String() string {
	if t == WatermarkAdaptive {
		return "adaptive"
	}
	return "standard"
}

// Watermark describes an overlay composited after resampling.
type Watermark struct {
	// Image must carry an alpha channel.
	Image Raster
	Type  WatermarkType
	// Amount is the blend factor for WatermarkStandard.
	Amount float64
	// Min and Max bound the blend factor for WatermarkAdaptive.
	Min float64
	Max float64
}

// TransformOptions configures Transform.
type TransformOptions struct {
	Geometry      Geometry
	Interpolation Interpolation
	// PreFilter blurs the crop region before resampling with
	// sigma = Geometry.Width / 1000.
	PreFilter bool
	// SharpenAmount is the unsharp mask strength in percent; 0 disables it.
	SharpenAmount float64
	// SharpenRadius is the sigma of the unsharp mask blur.
	SharpenRadius float64
	Watermark     *Watermark
}

// Transform crops, resamples, sharpens and watermarks src according to opts.
//
// The source raster is never modified; the result is always a new buffer of
// exactly Geometry.Width x Geometry.Height pixels.
//
// # Stages
//
//  1. Crop: a view of Geometry.Crop, no copy.
//  2. Pre-filter: optional Gaussian blur of the crop.
//  3. Resample: imaging.Resize with the selected kernel.
//  4. Sharpen: resized*(1+a/100) - blur(resized, radius)*(a/100).
//  5. Watermark: tiled alpha compositing.
//
// # Errors
//
//   - KindGeometry if src is empty or the crop lies outside src
//   - KindInvalidParam if the watermark has no alpha channel
func Transform(src Raster, opts TransformOptions) (Raster, error) {
	const op = "transform"

	if src.Empty() {
		return Raster{}, apperr.New(apperr.KindGeometry, op, apperr.ErrEmptyRaster)
	}
	g := opts.Geometry
	if g.Width <= 0 || g.Height <= 0 {
		return Raster{}, apperr.New(apperr.KindResourceLimit, op, apperr.ErrZeroDimension)
	}
	bounds := image.Rect(0, 0, src.Cols(), src.Rows())
	if g.Crop.Empty() || !g.Crop.In(bounds) {
		return Raster{}, apperr.Errorf(apperr.KindGeometry, op,
			"crop region %v outside image bounds %v", g.Crop, bounds)
	}

	var region image.Image = cropView(src.img, g.Crop)
	if opts.PreFilter {
		sigma := float64(g.Width) / 1000.0
		if sigma > 0 {
			region = imaging.Blur(region, sigma)
		}
	}

	resized := imaging.Resize(region, g.Width, g.Height, opts.Interpolation.Filter())

	if opts.SharpenAmount > 0 && opts.SharpenRadius > 0 {
		resized = unsharpMask(resized, opts.SharpenAmount, opts.SharpenRadius)
	}

	if opts.Watermark != nil {
		if !opts.Watermark.Image.HasAlpha() || opts.Watermark.Image.Empty() {
			return Raster{}, apperr.New(apperr.KindInvalidParam, op, apperr.ErrNoAlpha)
		}
		overlay(resized, opts.Watermark)
	}

	return rasterFrom(resized, src.alpha), nil
}

// unsharpMask returns img*(1+amount/100) - blur(img, radius)*(amount/100),
// rounded and clamped per channel. Alpha is copied unchanged.
func unsharpMask(img *image.NRGBA, amount, radius float64) *image.NRGBA {
	blurred := imaging.Blur(img, radius)
	out := image.NewNRGBA(img.Rect)

	k := amount / 100.0
	w := img.Rect.Dx()
	parallel.Line(img.Rect.Dy(), func(start, end int) {
		for y := start; y < end; y++ {
			si := y * img.Stride
			bi := y * blurred.Stride
			oi := y * out.Stride
			for x := 0; x < w; x++ {
				for c := 0; c < 3; c++ {
					v := float64(img.Pix[si+c])*(1+k) - float64(blurred.Pix[bi+c])*k
					out.Pix[oi+c] = uint8(clampFloat(math.Round(v), 0, 255))
				}
				out.Pix[oi+3] = img.Pix[si+3]
				si += 4
				bi += 4
				oi += 4
			}
		}
	})
	return out
}

// overlay composites wm onto dst in place, tiling the watermark when dst is
// larger. Fully transparent watermark pixels are skipped.
func overlay(dst *image.NRGBA, wm *Watermark) {
	src := wm.Image.img
	ww, wh := src.Rect.Dx(), src.Rect.Dy()
	dw := dst.Rect.Dx()

	parallel.Line(dst.Rect.Dy(), func(start, end int) {
		for y := start; y < end; y++ {
			wy := y % wh
			di := y * dst.Stride
			for x := 0; x < dw; x++ {
				wi := wy*src.Stride + (x%ww)*4
				alpha := src.Pix[wi+3]
				if alpha == 0 {
					di += 4
					continue
				}

				d := dst.Pix[di : di+3 : di+3]
				blend := wm.Amount
				if wm.Type == WatermarkAdaptive {
					blend = AdaptiveBlend(Brightness(d[0], d[1], d[2]), wm.Min, wm.Max)
				}
				opacity := blend * float64(alpha) / 255.0
				if opacity > 0 {
					for c := 0; c < 3; c++ {
						d[c] = blendChannel(d[c], src.Pix[wi+c], opacity)
					}
				}
				di += 4
			}
		}
	})
}
