package imaging

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/arion/internal/apperr"
)

func fullGeometry(w, h int) Geometry {
	return Geometry{Crop: image.Rect(0, 0, w, h), Width: w, Height: h}
}

func TestTransformOutputSize(t *testing.T) {
	src := NewRaster(createPatternImage(600, 400), false)
	modes := []struct {
		mode          Mode
		width, height int
		wantW, wantH  int
	}{
		{ModeWidth, 300, 1000, 300, 200},
		{ModeHeight, 1000, 100, 150, 100},
		{ModeSquare, 50, 50, 50, 50},
		{ModeFill, 120, 40, 120, 40},
	}
	for _, m := range modes {
		t.Run(m.mode.String(), func(t *testing.T) {
			g, err := ComputeGeometry(src.Cols(), src.Rows(), m.mode, m.width, m.height, GravityCenter)
			if err != nil {
				t.Fatal(err)
			}
			out, err := Transform(src, TransformOptions{Geometry: g})
			if err != nil {
				t.Fatalf("Transform failed: %v", err)
			}
			if out.Cols() != m.wantW || out.Rows() != m.wantH {
				t.Errorf("got %dx%d, want %dx%d", out.Cols(), out.Rows(), m.wantW, m.wantH)
			}
			if out.HasAlpha() {
				t.Error("output of an opaque source should stay opaque")
			}
		})
	}
}

func TestTransformDoesNotModifySource(t *testing.T) {
	src := NewRaster(createPatternImage(64, 64), false)
	before := src.Bytes()

	wm := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range wm.Pix {
		wm.Pix[i] = 255
	}
	_, err := Transform(src, TransformOptions{
		Geometry:      fullGeometry(64, 64),
		PreFilter:     true,
		SharpenAmount: 200,
		SharpenRadius: 2,
		Watermark:     &Watermark{Image: NewRaster(wm, true), Amount: 0.5},
	})
	if err != nil {
		t.Fatal(err)
	}
	after := src.Bytes()
	for i := range before {
		if before[i] != after[i] {
			t.Fatal("Transform modified the source raster")
		}
	}
}

func TestTransformSquareKeepsCenter(t *testing.T) {
	// Left and right thirds red, middle blue: a centered square crop keeps only blue.
	img := image.NewNRGBA(image.Rect(0, 0, 300, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 300; x++ {
			c := color.NRGBA{255, 0, 0, 255}
			if x >= 100 && x < 200 {
				c = color.NRGBA{0, 0, 255, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	src := NewRaster(img, false)
	g, err := ComputeGeometry(300, 100, ModeSquare, 10, 10, GravityCenter)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Transform(src, TransformOptions{Geometry: g, Interpolation: InterpolationNearest})
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if got := out.Image().NRGBAAt(x, y); got != (color.NRGBA{0, 0, 255, 255}) {
				t.Fatalf("pixel (%d,%d) = %v, want blue", x, y, got)
			}
		}
	}
}

func TestTransformErrors(t *testing.T) {
	src := createTestRaster(10, 10, color.NRGBA{1, 2, 3, 255})
	opaqueWM := createTestRaster(2, 2, color.NRGBA{255, 255, 255, 255})

	tests := []struct {
		name     string
		src      Raster
		opts     TransformOptions
		kind     apperr.Kind
		sentinel error
	}{
		{"empty source", Raster{}, TransformOptions{Geometry: fullGeometry(10, 10)}, apperr.KindGeometry, apperr.ErrEmptyRaster},
		{"zero size", src, TransformOptions{Geometry: Geometry{Crop: image.Rect(0, 0, 10, 10)}}, apperr.KindResourceLimit, apperr.ErrZeroDimension},
		{"crop outside", src, TransformOptions{Geometry: Geometry{Crop: image.Rect(5, 5, 20, 20), Width: 5, Height: 5}}, apperr.KindGeometry, nil},
		{"watermark without alpha", src, TransformOptions{Geometry: fullGeometry(10, 10), Watermark: &Watermark{Image: opaqueWM, Amount: 1}}, apperr.KindInvalidParam, apperr.ErrNoAlpha},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transform(tt.src, tt.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if !apperr.IsKind(err, tt.kind) {
				t.Errorf("kind = %q, want %q", apperr.KindOf(err), tt.kind)
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("error %v does not match %v", err, tt.sentinel)
			}
		})
	}
}

func TestInterpolationFilter(t *testing.T) {
	tests := []struct {
		name string
		want imaging.ResampleFilter
	}{
		{"nearest", imaging.NearestNeighbor},
		{"linear", imaging.Linear},
		{"cubic", imaging.CatmullRom},
		{"area", imaging.Box},
		{"lanczos4", imaging.Lanczos},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, ok := ParseInterpolation(tt.name)
			if !ok {
				t.Fatalf("ParseInterpolation(%q) not recognized", tt.name)
			}
			if i.String() != tt.name {
				t.Errorf("String() = %q", i.String())
			}
			if got := i.Filter(); got.Support != tt.want.Support {
				t.Errorf("Filter() does not match the %s kernel", tt.name)
			}
		})
	}

	if i, ok := ParseInterpolation("bicubic-ish"); ok || i != InterpolationArea {
		t.Errorf("unknown interpolation should fall back to area, got %v %v", i, ok)
	}
}

func TestUnsharpMaskUniform(t *testing.T) {
	src := createTestRaster(16, 16, color.NRGBA{90, 120, 150, 255})
	out := unsharpMask(src.Image(), 300, 2)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if got := out.NRGBAAt(x, y); got != (color.NRGBA{90, 120, 150, 255}) {
				t.Fatalf("uniform image changed at (%d,%d): %v", x, y, got)
			}
		}
	}
}

func TestUnsharpMaskIncreasesEdgeContrast(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 20; x++ {
			v := uint8(100)
			if x >= 10 {
				v = 150
			}
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	out := unsharpMask(img, 100, 1)
	if dark := out.NRGBAAt(9, 1).R; dark >= 100 {
		t.Errorf("dark side of edge = %d, want < 100", dark)
	}
	if light := out.NRGBAAt(10, 1).R; light <= 150 {
		t.Errorf("light side of edge = %d, want > 150", light)
	}
	if far := out.NRGBAAt(0, 1).R; far != 100 {
		t.Errorf("pixel far from edge = %d, want 100", far)
	}
}

func TestUnsharpMaskClamps(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 1))
	for x := 0; x < 10; x++ {
		v := uint8(0)
		if x >= 5 {
			v = 255
		}
		img.SetNRGBA(x, 0, color.NRGBA{v, v, v, 255})
	}
	out := unsharpMask(img, 1000, 1)
	if out.NRGBAAt(4, 0).R != 0 || out.NRGBAAt(5, 0).R != 255 {
		t.Errorf("expected clamped extremes, got %d and %d", out.NRGBAAt(4, 0).R, out.NRGBAAt(5, 0).R)
	}
}

func TestWatermarkTiles(t *testing.T) {
	dst := createTestRaster(5, 5, color.NRGBA{0, 0, 0, 255})
	wmImg := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range wmImg.Pix {
		wmImg.Pix[i] = 255
	}
	out, err := Transform(dst, TransformOptions{
		Geometry:  fullGeometry(5, 5),
		Watermark: &Watermark{Image: NewRaster(wmImg, true), Type: WatermarkStandard, Amount: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			if got := out.Image().NRGBAAt(x, y); got != (color.NRGBA{255, 255, 255, 255}) {
				t.Fatalf("pixel (%d,%d) = %v, want watermark color", x, y, got)
			}
		}
	}
}

func TestWatermarkSkipsTransparentPixels(t *testing.T) {
	dst := createTestRaster(4, 4, color.NRGBA{100, 100, 100, 255})
	wmImg := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			wmImg.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	wmImg.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 0})

	out, err := Transform(dst, TransformOptions{
		Geometry:  fullGeometry(4, 4),
		Watermark: &Watermark{Image: NewRaster(wmImg, true), Amount: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []image.Point{{0, 0}, {2, 0}, {0, 2}, {2, 2}} {
		if got := out.Image().NRGBAAt(p.X, p.Y).R; got != 100 {
			t.Errorf("transparent tile pixel %v = %d, want 100", p, got)
		}
	}
	if got := out.Image().NRGBAAt(1, 1).R; got != 255 {
		t.Errorf("opaque tile pixel = %d, want 255", got)
	}
}

func TestWatermarkStandardBlend(t *testing.T) {
	dst := createTestRaster(2, 2, color.NRGBA{100, 100, 100, 255})
	wmImg := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	wmImg.SetNRGBA(0, 0, color.NRGBA{200, 200, 200, 255})

	out, err := Transform(dst, TransformOptions{
		Geometry:  fullGeometry(2, 2),
		Watermark: &Watermark{Image: NewRaster(wmImg, true), Amount: 0.5},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := uint8(150)
	if got := out.Image().NRGBAAt(1, 1).R; got != want {
		t.Errorf("blended = %d, want %d", got, want)
	}
}

func TestWatermarkAdaptiveBlend(t *testing.T) {
	wmImg := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	wmImg.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
	wm := &Watermark{Image: NewRaster(wmImg, true), Type: WatermarkAdaptive, Min: 0, Max: 1}

	black := createTestRaster(1, 1, color.NRGBA{0, 0, 0, 255})
	out, err := Transform(black, TransformOptions{Geometry: fullGeometry(1, 1), Watermark: wm})
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Image().NRGBAAt(0, 0).R; got != 0 {
		t.Errorf("black background with min blend 0 = %d, want 0", got)
	}

	gray := createTestRaster(1, 1, color.NRGBA{128, 128, 128, 255})
	out, err = Transform(gray, TransformOptions{Geometry: fullGeometry(1, 1), Watermark: wm})
	if err != nil {
		t.Fatal(err)
	}
	blend := math.Log10(1 + (9.0/255.0)*128)
	want := uint8(128*(1-blend) + 255*blend)
	if got := out.Image().NRGBAAt(0, 0).R; got != want {
		t.Errorf("gray background = %d, want %d", got, want)
	}
}

func TestParseWatermarkType(t *testing.T) {
	if wt, ok := ParseWatermarkType("Adaptive"); !ok || wt != WatermarkAdaptive {
		t.Errorf("ParseWatermarkType(Adaptive) = %v, %v", wt, ok)
	}
	if wt, ok := ParseWatermarkType("standard"); !ok || wt != WatermarkStandard {
		t.Errorf("ParseWatermarkType(standard) = %v, %v", wt, ok)
	}
	if wt, ok := ParseWatermarkType("fancy"); ok || wt != WatermarkStandard {
		t.Errorf("unknown type should fall back to standard, got %v, %v", wt, ok)
	}
	if WatermarkAdaptive.String() != "adaptive" {
		t.Error("unexpected String output")
	}
}
