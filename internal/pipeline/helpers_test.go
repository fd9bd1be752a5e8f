package pipeline

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ironsheep/arion/internal/imaging"
	"github.com/ironsheep/arion/internal/meta"
)

// createPatternImage returns an opaque raster whose left half is red and
// right half is blue.
func createPatternImage(width, height int) imaging.Raster {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{200, 30, 30, 255}
			if x >= width/2 {
				c = color.NRGBA{30, 30, 200, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return imaging.NewRaster(img, false)
}

// writeSource writes a JPEG source image to dir and returns its path.
func writeSource(t *testing.T, dir string, width, height int) string {
	t.Helper()
	path := filepath.Join(dir, "source.jpg")
	if err := imaging.EncodeFile(path, createPatternImage(width, height), 95); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}
	return path
}

// writeSourceWithMeta writes a JPEG source carrying an EXIF orientation and
// an IPTC caption.
func writeSourceWithMeta(t *testing.T, dir string, width, height, orientation int, caption string) string {
	t.Helper()
	path := writeSource(t, dir, width, height)

	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.WriteString("II")
	for _, v := range []any{uint16(42), uint32(8), uint16(1), uint16(0x0112), uint16(3), uint32(1), uint16(orientation), uint16(0), uint32(0)} {
		binary.Write(&buf, le, v)
	}
	x, err := meta.ParseEXIF(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseEXIF failed: %v", err)
	}
	b := &meta.Bundle{EXIF: x}
	if caption != "" {
		b.IPTC = meta.NewIPTC()
		b.IPTC.Set(meta.KeyCaption, caption)
	}
	if err := meta.WriteFile(path, b); err != nil {
		t.Fatalf("failed to write metadata: %v", err)
	}
	return path
}

// command marshals a command document.
func command(t *testing.T, m map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func op(kind string, params map[string]any) map[string]any {
	return map[string]any{"type": kind, "params": params}
}

func newController() *Controller {
	return New(Options{Logger: zerolog.Nop()})
}

// decodeReport parses a serialized report into a generic map.
func decodeReport(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("report is not valid JSON: %v\n%s", err, s)
	}
	return m
}
