// Package arion runs batch image jobs: one source image is decoded once and
// a list of operations (resize, read_meta, copy, fingerprint) is executed
// against it, producing a JSON report.
//
// RunJSON runs a full command document. Resize is a shortcut for callers
// that want the encoded bytes of a single resize.
package arion

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ironsheep/arion/internal/imaging"
	"github.com/ironsheep/arion/internal/operation"
	"github.com/ironsheep/arion/internal/pipeline"
)

// OutputFormat selects the container of ResizeResult.OutputBytes.
type OutputFormat int

// Output formats. The zero value follows the output path's extension.
const (
	JPEG OutputFormat = iota + 1
	PNG
	GIF
	TIFF
	BMP
)

func (f OutputFormat) format(path string) imaging.Format {
	switch f {
	case JPEG:
		return imaging.JPEG
	case PNG:
		return imaging.PNG
	case GIF:
		return imaging.GIF
	case TIFF:
		return imaging.TIFF
	case BMP:
		return imaging.BMP
	}
	return imaging.FormatFromPath(path)
}

func (f OutputFormat) ext() string {
	switch f {
	case PNG:
		return ".png"
	case GIF:
		return ".gif"
	case TIFF:
		return ".tif"
	case BMP:
		return ".bmp"
	}
	return ".jpg"
}

// Return codes of Resize.
const (
	ReturnOK     = 0
	ReturnInput  = 1
	ReturnResize = 2
	ReturnEncode = 3
)

// InputOptions name the source and the output container.
type InputOptions struct {
	CorrectOrientation bool
	InputURL           string
	// OutputURL is used when ResizeOptions.OutputURL is empty. When both
	// are empty the resize is written to a temporary file that is removed
	// before Resize returns.
	OutputURL    string
	OutputFormat OutputFormat
}

// ResizeOptions mirror the params of a resize operation. Zero values keep
// the operation's defaults.
type ResizeOptions struct {
	Type            string
	Height          int
	Width           int
	Gravity         string
	Quality         int
	SharpenAmount   float64
	SharpenRadius   float64
	PreserveMeta    bool
	WatermarkURL    string
	WatermarkType   string
	WatermarkAmount float64
	WatermarkMin    float64
	WatermarkMax    float64
	OutputURL       string
}

func (o ResizeOptions) params(outputURL string) (operation.Params, error) {
	m := map[string]any{
		"type":       o.Type,
		"height":     o.Height,
		"width":      o.Width,
		"output_url": outputURL,
	}
	if o.Gravity != "" {
		m["gravity"] = o.Gravity
	}
	if o.Quality > 0 {
		m["quality"] = o.Quality
	}
	if o.SharpenAmount > 0 {
		m["sharpen_amount"] = o.SharpenAmount
	}
	if o.SharpenRadius > 0 {
		m["sharpen_radius"] = o.SharpenRadius
	}
	if o.PreserveMeta {
		m["preserve_meta"] = true
	}
	if o.WatermarkURL != "" {
		m["watermark_url"] = o.WatermarkURL
	}
	if o.WatermarkType != "" {
		m["watermark_type"] = o.WatermarkType
	}
	if o.WatermarkAmount > 0 {
		m["watermark_amount"] = o.WatermarkAmount
	}
	if o.WatermarkMin > 0 || o.WatermarkMax > 0 {
		m["watermark_min"] = o.WatermarkMin
		m["watermark_max"] = o.WatermarkMax
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return operation.ParseParams(raw)
}

// ResizeResult is the outcome of Resize. ResultJSON is always a report.
type ResizeResult struct {
	OutputBytes []byte
	OutputSize  int
	ReturnCode  int
	ResultJSON  string
}

// Option configures Resize and RunJSON.
type Option func(*settings)

type settings struct {
	logger zerolog.Logger
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func newSettings(opts []Option) settings {
	s := settings{logger: zerolog.Nop()}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// Resize decodes in.InputURL, runs a single resize and returns the result
// encoded in in.OutputFormat.
func Resize(in InputOptions, opts ResizeOptions, options ...Option) ResizeResult {
	s := newSettings(options)
	c := pipeline.New(pipeline.Options{Logger: s.logger, CorrectOrientation: in.CorrectOrientation})

	outputURL := opts.OutputURL
	if outputURL == "" {
		outputURL = in.OutputURL
	}
	if outputURL == "" {
		dir, err := os.MkdirTemp("", "arion-")
		if err != nil {
			return setupFailed(c, err)
		}
		defer os.RemoveAll(dir)
		outputURL = operation.FileURL(filepath.Join(dir, "output"+in.OutputFormat.ext()))
	}

	op, err := operation.New(string(operation.KindResize), s.logger)
	if err != nil {
		return setupFailed(c, err)
	}
	p, err := opts.params(outputURL)
	if err != nil {
		return setupFailed(c, err)
	}
	if err := op.Setup(p); err != nil {
		return setupFailed(c, err)
	}
	c.SetInput(operation.LocalPath(in.InputURL))
	c.AddOperation(op)

	if !c.Run() {
		if c.Err() != nil {
			return failed(c, ReturnInput)
		}
		return failed(c, ReturnResize)
	}

	data, err := c.EncodedBytes(0, in.OutputFormat.format(operation.LocalPath(outputURL)))
	if err != nil {
		return failed(c, ReturnEncode)
	}
	return ResizeResult{
		OutputBytes: data,
		OutputSize:  len(data),
		ReturnCode:  ReturnOK,
		ResultJSON:  c.JSON(false),
	}
}

func setupFailed(c *pipeline.Controller, err error) ResizeResult {
	c.Fail(err)
	return failed(c, ReturnInput)
}

func failed(c *pipeline.Controller, code int) ResizeResult {
	return ResizeResult{ReturnCode: code, ResultJSON: c.JSON(false)}
}

// RunJSON runs a command document and returns its report and result.
func RunJSON(input string, options ...Option) (string, bool) {
	s := newSettings(options)
	c := pipeline.New(pipeline.Options{Logger: s.logger})
	if c.Setup([]byte(input)) {
		c.Run()
	}
	return c.JSON(false), c.Report().Result
}
