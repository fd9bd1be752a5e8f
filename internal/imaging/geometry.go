package imaging

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/ironsheep/arion/internal/apperr"
)

// MaxPixels bounds the output size of a single resize.
const MaxPixels = 100_000_000

// Mode selects how the target width and height constrain a resize.
type Mode int

const (
	ModeInvalid Mode = iota
	// ModeWidth fixes the width; height is an upper bound.
	ModeWidth
	// ModeHeight fixes the height; width is an upper bound.
	ModeHeight
	// ModeSquare crops the largest centered square and resizes to width x width.
	ModeSquare
	// ModeFill crops to the target aspect ratio and resizes to exactly width x height.
	ModeFill
)

var modeNames = map[Mode]string{
	ModeWidth:  "width",
	ModeHeight: "height",
	ModeSquare: "square",
	ModeFill:   "fill",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "invalid"
}

// ParseMode parses a resize type. Unknown names return ModeInvalid.
func ParseMode(s string) Mode {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return m
		}
	}
	return ModeInvalid
}

// Gravity selects which part of the source survives a fill crop.
type Gravity int

const (
	GravityCenter Gravity = iota
	GravityNorth
	GravitySouth
	GravityEast
	GravityWest
	GravityNorthEast
	GravityNorthWest
	GravitySouthEast
	GravitySouthWest
)

var gravityNames = []struct {
	g     Gravity
	names []string
}{
	{GravityCenter, []string{"center", "c"}},
	{GravityNorth, []string{"north", "n"}},
	{GravitySouth, []string{"south", "s"}},
	{GravityEast, []string{"east", "e"}},
	{GravityWest, []string{"west", "w"}},
	{GravityNorthEast, []string{"northeast", "ne"}},
	{GravityNorthWest, []string{"northwest", "nw"}},
	{GravitySouthEast, []string{"southeast", "se"}},
	{GravitySouthWest, []string{"southwest", "sw"}},
}

func (g Gravity) String() string {
	for _, e := range gravityNames {
		if e.g == g {
			return e.names[0]
		}
	}
	return "center"
}

// ParseGravity parses a gravity name, long or short form, ignoring case.
// The second result is false for unknown names.
func ParseGravity(s string) (Gravity, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, e := range gravityNames {
		for _, name := range e.names {
			if s == name {
				return e.g, true
			}
		}
	}
	return GravityCenter, false
}

// Geometry is the crop and output size of one resize.
type Geometry struct {
	// Crop is the source region to resample, in source coordinates.
	Crop image.Rectangle
	// Width and Height are the output dimensions.
	Width  int
	Height int
}

// ComputeGeometry derives the crop region and output size for a resize of a
// srcW x srcH source.
//
// Parameters:
//   - mode: one of ModeWidth, ModeHeight, ModeSquare, ModeFill.
//   - width, height: requested bounds. Both must be positive.
//   - gravity: crop anchor, used by ModeFill only.
//
// # Errors
//
//   - KindInvalidType for ModeInvalid
//   - KindResourceLimit with ErrZeroDimension when width or height is not positive
//   - KindResourceLimit with ErrTooManyPixels when the output exceeds MaxPixels
//   - KindGeometry when the source is empty
func ComputeGeometry(srcW, srcH int, mode Mode, width, height int, gravity Gravity) (Geometry, error) {
	const op = "geometry"

	if mode == ModeInvalid {
		return Geometry{}, apperr.New(apperr.KindInvalidType, op, apperr.ErrInvalidType)
	}
	if width <= 0 || height <= 0 {
		return Geometry{}, apperr.New(apperr.KindResourceLimit, op, apperr.ErrZeroDimension)
	}
	if int64(width)*int64(height) > MaxPixels || (mode == ModeSquare && int64(width)*int64(width) > MaxPixels) {
		return Geometry{}, apperr.New(apperr.KindResourceLimit, op,
			fmt.Errorf("%w: %dx%d", apperr.ErrTooManyPixels, width, height))
	}
	if srcW <= 0 || srcH <= 0 {
		return Geometry{}, apperr.New(apperr.KindGeometry, op, apperr.ErrEmptyRaster)
	}

	full := image.Rect(0, 0, srcW, srcH)
	aspect := float64(srcH) / float64(srcW)

	switch mode {
	case ModeWidth:
		w := width
		h := aspectHeight(w, aspect)
		if h > height {
			h = height
			w = aspectWidth(h, aspect)
		}
		return Geometry{Crop: full, Width: atLeastOne(w), Height: atLeastOne(h)}, nil

	case ModeHeight:
		h := height
		w := aspectWidth(h, aspect)
		if w > width {
			w = width
			h = aspectHeight(w, aspect)
		}
		return Geometry{Crop: full, Width: atLeastOne(w), Height: atLeastOne(h)}, nil

	case ModeSquare:
		return Geometry{Crop: squareCrop(srcW, srcH), Width: width, Height: width}, nil

	default:
		return Geometry{Crop: fillCrop(srcW, srcH, width, height, gravity), Width: width, Height: height}, nil
	}
}

func aspectHeight(width int, aspect float64) int {
	return int(math.Round(float64(width) * aspect))
}

func aspectWidth(height int, aspect float64) int {
	return int(math.Round(float64(height) / aspect))
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
