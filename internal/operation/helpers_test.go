package operation

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ironsheep/arion/internal/imaging"
	"github.com/ironsheep/arion/internal/meta"
)

// createTestRaster returns an opaque raster with a horizontal gradient.
func createTestRaster(width, height int) imaging.Raster {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 255 / width), uint8(y * 255 / height), 128, 255})
		}
	}
	return imaging.NewRaster(img, false)
}

// writeImage encodes a raster to dir/name, choosing the format from the name.
func writeImage(t *testing.T, dir, name string, r imaging.Raster) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := imaging.EncodeFile(path, r, 90); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// writeWatermark writes a small half-transparent PNG.
func writeWatermark(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 128})
		}
	}
	return writeImage(t, dir, "wm.png", imaging.NewRaster(img, true))
}

// exifWithOrientation builds a little-endian TIFF block holding only the
// orientation tag.
func exifWithOrientation(t *testing.T, orientation int) *meta.EXIF {
	t.Helper()
	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.WriteString("II")
	binary.Write(&buf, le, uint16(42))
	binary.Write(&buf, le, uint32(8))
	binary.Write(&buf, le, uint16(1))
	binary.Write(&buf, le, uint16(0x0112))
	binary.Write(&buf, le, uint16(3))
	binary.Write(&buf, le, uint32(1))
	binary.Write(&buf, le, uint16(orientation))
	binary.Write(&buf, le, uint16(0))
	binary.Write(&buf, le, uint32(0))
	x, err := meta.ParseEXIF(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseEXIF failed: %v", err)
	}
	return x
}

// params builds Params from a Go map through JSON.
func params(t *testing.T, m map[string]any) Params {
	t.Helper()
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	p, err := ParseParams(raw)
	if err != nil {
		t.Fatalf("ParseParams failed: %v", err)
	}
	return p
}

func newOp(t *testing.T, kind string) Operation {
	t.Helper()
	op, err := New(kind, zerolog.Nop())
	if err != nil {
		t.Fatalf("New(%q) failed: %v", kind, err)
	}
	return op
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
