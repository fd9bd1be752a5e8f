// Package pipeline runs one command document: it loads the source image and
// its metadata, runs every operation in order and builds the report.
//
// A Controller moves through Created -> Setup (ok or failed) -> Running ->
// Done. Every path ends with a report, so callers always have a document to
// emit. A failing operation never stops the ones after it; only a setup
// error or a missing source image is fatal.
package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ironsheep/arion/internal/apperr"
	"github.com/ironsheep/arion/internal/imaging"
	"github.com/ironsheep/arion/internal/meta"
	"github.com/ironsheep/arion/internal/operation"
)

type state int

const (
	stateCreated state = iota
	stateSetupOK
	stateSetupFailed
	stateRunning
	stateDone
)

// Options configure a Controller. A command document may override
// CorrectOrientation and IgnoreMetadata.
type Options struct {
	Logger zerolog.Logger
	// CorrectOrientation rotates the source upright using its EXIF
	// orientation before any operation runs.
	CorrectOrientation bool
	// IgnoreMetadata skips reading metadata from the source file.
	IgnoreMetadata bool
}

// Controller owns the source image, its metadata and the operation list of
// one invocation. It is not safe for concurrent use.
type Controller struct {
	opts Options
	log  zerolog.Logger

	state     state
	inputPath string
	source    imaging.Raster
	bundle    *meta.Bundle
	oriented  bool
	writeMeta overrides
	ops       []operation.Operation
	cache     *imaging.RasterCache

	report Report
	err    error
}

// New creates a Controller.
func New(opts Options) *Controller {
	return &Controller{
		opts:  opts,
		log:   opts.Logger,
		cache: imaging.NewRasterCache(),
	}
}

type operationEntry struct {
	Type   *string         `json:"type"`
	Params json.RawMessage `json:"params"`
}

// Setup parses a command document. Any malformed field, unknown operation
// type, missing params object or missing required param fails the whole
// setup, leaving an error report.
func (c *Controller) Setup(input []byte) bool {
	if err := c.setup(input); err != nil {
		c.state = stateSetupFailed
		c.fatal(err)
		return false
	}
	c.state = stateSetupOK
	c.log.Debug().Str("input", c.inputPath).Int("operations", len(c.ops)).Msg("setup complete")
	return true
}

func (c *Controller) setup(input []byte) error {
	const op = "setup"

	top, err := operation.ParseParams(input)
	if err != nil {
		return apperr.New(apperr.KindSetup, op, errors.Wrap(err, "invalid command document"))
	}

	if url, ok := top.String("input_url"); ok {
		c.inputPath = operation.LocalPath(url)
	}
	if v, ok := top.Bool("correct_rotation"); ok {
		c.opts.CorrectOrientation = v
	}
	if v, ok := top.Bool("ignore_metadata"); ok {
		c.opts.IgnoreMetadata = v
	}
	if top.Has("write_meta") {
		p, err := operation.ParseParams(top["write_meta"])
		if err != nil {
			return apperr.New(apperr.KindSetup, op, errors.Wrap(err, "write_meta"))
		}
		c.writeMeta = parseOverrides(p)
	}

	if !top.Has("operations") {
		return apperr.New(apperr.KindSetup, op, errors.Wrap(apperr.ErrMissingParam, "operations"))
	}
	var entries []operationEntry
	if err := json.Unmarshal(top["operations"], &entries); err != nil {
		return apperr.New(apperr.KindSetup, op, errors.Wrap(err, "operations must be an array of objects"))
	}
	for i, entry := range entries {
		o, err := c.parseOperation(entry)
		if err != nil {
			return apperr.Wrap(apperr.KindSetup, op, fmt.Errorf("could not parse operation %d: %w", i+1, err))
		}
		c.ops = append(c.ops, o)
	}
	return nil
}

func (c *Controller) parseOperation(entry operationEntry) (operation.Operation, error) {
	if entry.Type == nil {
		return nil, errors.Wrap(apperr.ErrMissingParam, "type")
	}
	o, err := operation.New(*entry.Type, c.log)
	if err != nil {
		return nil, err
	}
	p, err := operation.ParseParams(entry.Params)
	if err != nil {
		return nil, errors.Wrap(apperr.ErrMissingParam, "params")
	}
	if err := o.Setup(p); err != nil {
		return nil, err
	}
	return o, nil
}

// SetInput sets the source file, replacing any input_url.
func (c *Controller) SetInput(path string) { c.inputPath = path }

// SetSource supplies the source raster directly. The controller keeps its own
// copy of r. The input file, if any, is then only used for metadata and
// copying.
func (c *Controller) SetSource(r imaging.Raster) { c.source = r.Clone() }

// AddOperation appends a configured operation.
func (c *Controller) AddOperation(op operation.Operation) { c.ops = append(c.ops, op) }

// Operations returns the operation list in execution order.
func (c *Controller) Operations() []operation.Operation { return c.ops }

// Run executes every operation and builds the report. It returns the
// report's result: true only if nothing failed.
func (c *Controller) Run() bool {
	switch c.state {
	case stateSetupFailed:
		return false
	case stateRunning, stateDone:
		return c.report.Result
	}
	c.state = stateRunning
	defer func() { c.state = stateDone }()

	start := time.Now()
	if err := c.prepare(); err != nil {
		c.fatal(err)
		return false
	}

	md5, err := operation.PixelMD5(c.source)
	if err != nil {
		c.fatal(err)
		return false
	}
	c.orient()
	if !c.writeMeta.empty() {
		b, err := c.writeMeta.apply(c.bundle)
		if err != nil {
			c.fatal(apperr.New(apperr.KindMetadata, "write_meta", err))
			return false
		}
		c.bundle = b
	}

	r := Report{
		Height: c.source.Rows(),
		Width:  c.source.Cols(),
		MD5:    md5,
		Info:   make([]any, 0, len(c.ops)),
	}
	for _, o := range c.ops {
		if !c.runOperation(o) {
			r.FailedOperations++
		}
		r.TotalOperations++
		r.Info = append(r.Info, o.Result())
	}
	r.Result = r.FailedOperations == 0
	r.Time = time.Since(start).Seconds()
	c.report = r

	c.log.Info().
		Int("total", r.TotalOperations).
		Int("failed", r.FailedOperations).
		Int("watermarks", c.cache.Len()).
		Dur("duration", time.Since(start)).
		Msg("pipeline finished")
	c.cache.Clear()
	return r.Result
}

// prepare loads the source raster and metadata.
func (c *Controller) prepare() error {
	if c.source.Empty() && c.inputPath != "" {
		t := time.Now()
		r, err := imaging.LoadSource(c.inputPath)
		if err != nil {
			return err
		}
		c.source = r
		c.log.Debug().Str("step", "decode").Int("width", r.Cols()).Int("height", r.Rows()).Dur("duration", time.Since(t)).Msg("source loaded")
	}
	if c.source.Empty() {
		return apperr.New(apperr.KindIO, "load source", apperr.ErrNoSource)
	}

	c.bundle = &meta.Bundle{}
	if c.inputPath == "" || c.opts.IgnoreMetadata {
		return nil
	}
	b, err := meta.ReadFile(c.inputPath)
	if err != nil {
		// Source metadata is best effort.
		c.log.Warn().Err(err).Str("input", c.inputPath).Msg("ignoring unreadable metadata")
	}
	if b != nil {
		c.bundle = b
	}
	return nil
}

func (c *Controller) orient() {
	if !c.opts.CorrectOrientation {
		return
	}
	tag := c.bundle.Orientation()
	r, changed := imaging.Orient(c.source, tag)
	if !changed {
		return
	}
	c.source = r
	c.oriented = true
	c.log.Debug().Int("orientation", tag).Int("width", r.Cols()).Int("height", r.Rows()).Msg("orientation corrected")
}

// runOperation hands each operation the shared state it borrows.
func (c *Controller) runOperation(o operation.Operation) bool {
	switch o := o.(type) {
	case *operation.Resize:
		return o.Run(c.source, c.bundle, c.oriented, c.cache)
	case *operation.ReadMeta:
		return o.Run(c.bundle)
	case *operation.Copy:
		return o.Run(c.inputPath, c.bundle)
	case *operation.Fingerprint:
		return o.Run(c.source)
	}
	c.log.Error().Str("op", string(o.Kind())).Msg("unsupported operation")
	return false
}

// Fail aborts a controller that has not run yet, as a setup error would.
// The report becomes the error-only form for err.
func (c *Controller) Fail(err error) {
	if c.state == stateRunning || c.state == stateDone {
		return
	}
	c.state = stateSetupFailed
	c.fatal(err)
}

func (c *Controller) fatal(err error) {
	c.err = err
	c.report = errorOnly(err.Error())
	c.log.Error().Err(err).Msg("pipeline failed")
}

// Err returns the fatal error that stopped the pipeline, if any.
func (c *Controller) Err() error { return c.err }

// Report returns the report. Before Run it is empty unless setup failed.
func (c *Controller) Report() Report { return c.report }

// JSON returns the serialized report.
func (c *Controller) JSON(pretty bool) string {
	s, err := c.report.Encode(pretty)
	if err != nil {
		s, _ = errorOnly(err.Error()).Encode(pretty)
	}
	return s
}

// EncodedBytes encodes the output of the resize operation at index in
// format.
func (c *Controller) EncodedBytes(index int, format imaging.Format) ([]byte, error) {
	if index < 0 || index >= len(c.ops) {
		return nil, apperr.Errorf(apperr.KindInvalidParam, "encoded bytes", "no operation at index %d", index)
	}
	r, ok := c.ops[index].(*operation.Resize)
	if !ok {
		return nil, apperr.Errorf(apperr.KindInvalidType, "encoded bytes",
			"operation %d is %s, not resize", index, c.ops[index].Kind())
	}
	return r.EncodedBytes(format)
}
