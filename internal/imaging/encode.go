package imaging

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/ironsheep/arion/internal/apperr"
)

// DefaultQuality is the JPEG quality used when none is requested.
const DefaultQuality = 92

// Format identifies an output container.
type Format = imaging.Format

// Output formats supported by Encode.
const (
	JPEG = imaging.JPEG
	PNG  = imaging.PNG
	GIF  = imaging.GIF
	TIFF = imaging.TIFF
	BMP  = imaging.BMP
)

// FormatFromPath picks the output format from the file extension.
// Unknown or missing extensions fall back to JPEG.
func FormatFromPath(path string) Format {
	f, err := imaging.FormatFromExtension(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return JPEG
	}
	return f
}

// Encode writes r to w in the given format. quality is clamped to 0..100 and
// only affects JPEG output.
func Encode(w io.Writer, r Raster, format Format, quality int) error {
	if r.Empty() {
		return apperr.New(apperr.KindEncode, "encode", apperr.ErrEmptyRaster)
	}
	quality = clamp(quality, 0, 100)
	if err := imaging.Encode(w, r.img, format, imaging.JPEGQuality(quality)); err != nil {
		return apperr.New(apperr.KindEncode, "encode", errors.Wrapf(err, "failed to encode %s", format))
	}
	return nil
}

// EncodeBytes encodes r into a new byte slice.
func EncodeBytes(r Raster, format Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, r, format, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeFile encodes r to path, choosing the format from the extension.
// A partially written file may remain on error.
func EncodeFile(path string, r Raster, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return apperr.New(apperr.KindIO, "encode", errors.Wrap(err, "failed to create output file"))
	}
	if err := Encode(f, r, FormatFromPath(path), quality); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return apperr.New(apperr.KindIO, "encode", errors.Wrap(err, "failed to write output file"))
	}
	return nil
}
