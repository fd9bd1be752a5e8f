package operation

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/ironsheep/arion/internal/apperr"
	"github.com/ironsheep/arion/internal/imaging"
	"github.com/ironsheep/arion/internal/meta"
)

// Resize defaults.
const (
	DefaultWatermarkAmount = 0.05
	DefaultWatermarkMin    = 0.05
	DefaultWatermarkMax    = 0.5

	maxSharpenAmount = 1000
	maxSharpenRadius = 10
)

// Resize produces a new image from the source raster and writes it to
// output_url. The source raster is never modified.
type Resize struct {
	base

	mode          imaging.Mode
	width         int
	height        int
	gravity       imaging.Gravity
	quality       int
	interpolation imaging.Interpolation
	preserveMeta  bool
	preFilter     bool
	sharpenAmount float64
	sharpenRadius float64
	outputPath    string

	watermarkPath   string
	watermarkType   imaging.WatermarkType
	watermarkAmount float64
	watermarkMin    float64
	watermarkMax    float64

	output imaging.Raster
}

func newResize(b base) *Resize {
	return &Resize{
		base:            b,
		gravity:         imaging.GravityCenter,
		quality:         imaging.DefaultQuality,
		interpolation:   imaging.InterpolationArea,
		watermarkType:   imaging.WatermarkStandard,
		watermarkAmount: DefaultWatermarkAmount,
		watermarkMin:    DefaultWatermarkMin,
		watermarkMax:    DefaultWatermarkMax,
	}
}

// Setup reads the resize params. height, width and output_url are required.
// An unknown or missing type is accepted here and fails at run time.
func (r *Resize) Setup(p Params) error {
	const op = "resize setup"

	if t, ok := p.String("type"); ok {
		r.mode = imaging.ParseMode(t)
	}

	var ok bool
	if r.height, ok = p.Int("height"); !ok {
		return missing(op, "height")
	}
	if r.width, ok = p.Int("width"); !ok {
		return missing(op, "width")
	}
	url, ok := p.String("output_url")
	if !ok || LocalPath(url) == "" {
		return missing(op, "output_url")
	}
	r.outputPath = LocalPath(url)

	if g, ok := p.String("gravity"); ok {
		if gravity, ok := imaging.ParseGravity(g); ok {
			r.gravity = gravity
		}
	}
	if q, ok := p.Int("quality"); ok {
		r.quality = clampInt(q, 0, 100)
	}
	if s, ok := p.String("interpolation"); ok {
		if i, ok := imaging.ParseInterpolation(s); ok {
			r.interpolation = i
		}
	}
	if v, ok := p.Bool("preserve_meta"); ok {
		r.preserveMeta = v
	}
	if v, ok := p.Bool("pre_filter"); ok {
		r.preFilter = v
	}
	if v, ok := p.Float("sharpen_amount"); ok && v >= 0 && v <= maxSharpenAmount {
		r.sharpenAmount = v
	}
	if v, ok := p.Float("sharpen_radius"); ok && v > 0 && v < maxSharpenRadius {
		r.sharpenRadius = v
	}

	if url, ok := p.String("watermark_url"); ok {
		r.watermarkPath = LocalPath(url)
	}
	if s, ok := p.String("watermark_type"); ok {
		if t, ok := imaging.ParseWatermarkType(s); ok {
			r.watermarkType = t
		}
	}
	if v, ok := p.Float("watermark_amount"); ok && v >= 0 && v <= 1 {
		r.watermarkAmount = v
	}
	// min and max are accepted only as a consistent pair.
	lo, loOK := p.Float("watermark_min")
	hi, hiOK := p.Float("watermark_max")
	if !loOK {
		lo = r.watermarkMin
	}
	if !hiOK {
		hi = r.watermarkMax
	}
	if lo >= 0 && hi <= 1 && lo <= hi {
		r.watermarkMin, r.watermarkMax = lo, hi
	}
	return nil
}

// Run resizes src and writes the result to the output path, then writes
// metadata onto it: the whole source bundle when preserve_meta is set,
// otherwise the whitelist. oriented reports whether src was already rotated
// upright, in which case the written orientation is 1. Watermarks are loaded
// through cache, which may be nil.
//
// Metadata is only written to JPEG outputs.
func (r *Resize) Run(src imaging.Raster, bundle *meta.Bundle, oriented bool, cache *imaging.RasterCache) bool {
	return r.execute(func() error {
		out, err := r.transform(src, cache)
		if err != nil {
			return err
		}
		if err := imaging.EncodeFile(r.outputPath, out, r.quality); err != nil {
			return err
		}
		r.output = out

		if imaging.FormatFromPath(r.outputPath) != imaging.JPEG {
			return nil
		}
		var md *meta.Bundle
		switch {
		case r.preserveMeta && oriented:
			md = meta.Upright(bundle)
		case r.preserveMeta:
			md = bundle
		default:
			md = meta.Whitelist(bundle, oriented)
		}
		if md.Empty() {
			return nil
		}
		return meta.WriteFile(r.outputPath, md)
	})
}

func (r *Resize) transform(src imaging.Raster, cache *imaging.RasterCache) (imaging.Raster, error) {
	if src.Empty() {
		return imaging.Raster{}, apperr.New(apperr.KindGeometry, "resize", apperr.ErrNoSource)
	}
	geom, err := imaging.ComputeGeometry(src.Cols(), src.Rows(), r.mode, r.width, r.height, r.gravity)
	if err != nil {
		return imaging.Raster{}, err
	}
	r.log.Debug().
		Str("op", string(r.kind)).
		Str("mode", r.mode.String()).
		Int("crop_w", geom.Crop.Dx()).
		Int("crop_h", geom.Crop.Dy()).
		Int("width", geom.Width).
		Int("height", geom.Height).
		Msg("geometry")

	opts := imaging.TransformOptions{
		Geometry:      geom,
		Interpolation: r.interpolation,
		PreFilter:     r.preFilter,
		SharpenAmount: r.sharpenAmount,
		SharpenRadius: r.sharpenRadius,
	}
	if r.watermarkPath != "" {
		wm, err := r.loadWatermark(cache)
		if err != nil {
			return imaging.Raster{}, err
		}
		opts.Watermark = &imaging.Watermark{
			Image:  wm,
			Type:   r.watermarkType,
			Amount: r.watermarkAmount,
			Min:    r.watermarkMin,
			Max:    r.watermarkMax,
		}
	}
	return imaging.Transform(src, opts)
}

func (r *Resize) loadWatermark(cache *imaging.RasterCache) (imaging.Raster, error) {
	if cache != nil {
		return cache.Load(r.watermarkPath, true)
	}
	return imaging.LoadRaster(r.watermarkPath, true)
}

// EncodedBytes encodes the resized image in format at the requested quality.
func (r *Resize) EncodedBytes(format imaging.Format) ([]byte, error) {
	if r.status != StatusSuccess || r.output.Empty() {
		return nil, apperr.New(apperr.KindEncode, "resize", errors.New("no resized image available"))
	}
	return imaging.EncodeBytes(r.output, format, r.quality)
}

// ResizeResult is the result record of a resize.
type ResizeResult struct {
	Type         Kind    `json:"type"`
	Result       bool    `json:"result"`
	OutputURL    string  `json:"output_url"`
	OutputHeight int     `json:"output_height"`
	OutputWidth  int     `json:"output_width"`
	Time         float64 `json:"time"`
}

func (r *Resize) Result() any {
	if r.status != StatusSuccess {
		f := r.failure()
		f.OutputURL = FileURL(filepath.ToSlash(r.outputPath))
		return f
	}
	return ResizeResult{
		Type:         r.kind,
		Result:       true,
		OutputURL:    FileURL(filepath.ToSlash(r.outputPath)),
		OutputHeight: r.output.Rows(),
		OutputWidth:  r.output.Cols(),
		Time:         r.elapsed.Seconds(),
	}
}

func missing(op, field string) error {
	return apperr.New(apperr.KindSetup, op, errors.Wrapf(apperr.ErrMissingParam, "%s", field))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
