// Package meta reads and writes the metadata blocks carried by JPEG files:
// EXIF, XMP, IPTC (inside a Photoshop APP13 segment) and ICC profiles.
//
// A Bundle holds whichever blocks a file had. Bundles read from a source are
// shared read-only; writers build a new Bundle and inject it into an output
// file, replacing the blocks present on the bundle and leaving the others.
package meta

import (
	"bytes"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/ironsheep/arion/internal/apperr"
)

// Bundle is the metadata of one image. Any block may be nil.
type Bundle struct {
	EXIF *EXIF
	XMP  *XMP
	IPTC *IPTC
	ICC  []byte
}

// Empty reports whether the bundle carries no block at all.
func (b *Bundle) Empty() bool {
	return b == nil || (b.EXIF == nil && b.XMP == nil && b.IPTC == nil && len(b.ICC) == 0)
}

// Clone returns a copy of b whose IPTC block can be modified without
// affecting b. EXIF and XMP blocks are immutable and shared.
func (b *Bundle) Clone() *Bundle {
	if b == nil {
		return &Bundle{}
	}
	return &Bundle{
		EXIF: b.EXIF,
		XMP:  b.XMP,
		IPTC: b.IPTC.Clone(),
		ICC:  append([]byte(nil), b.ICC...),
	}
}

// Orientation returns the EXIF orientation, or 1 when there is none.
func (b *Bundle) Orientation() int {
	if b == nil || b.EXIF == nil {
		return 1
	}
	if v, ok := b.EXIF.Orientation(); ok {
		return v
	}
	return 1
}

// Get looks up a dotted key in the block named by its first component:
// "Exif.", "Xmp." or "Iptc.".
func (b *Bundle) Get(key string) (string, bool) {
	if b == nil {
		return "", false
	}
	switch {
	case strings.HasPrefix(key, "Exif."):
		if b.EXIF != nil {
			return b.EXIF.Get(key)
		}
	case strings.HasPrefix(key, "Xmp."):
		if b.XMP != nil {
			return b.XMP.Get(key)
		}
	case strings.HasPrefix(key, "Iptc."):
		return b.IPTC.Get(key)
	}
	return "", false
}

// Fields returns every EXIF, XMP and IPTC value keyed by its dotted name.
func (b *Bundle) Fields() map[string]string {
	out := make(map[string]string)
	if b == nil {
		return out
	}
	for _, m := range []map[string]string{b.EXIF.Fields(), b.XMP.Fields(), b.IPTC.Fields()} {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// ReadFile reads the metadata of the image at path. Files that are not JPEG
// yield an empty bundle.
func ReadFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.New(apperr.KindIO, "read metadata", errors.Wrap(err, "failed to read image"))
	}
	return Parse(data)
}

// Parse extracts the metadata blocks from a JPEG stream. Blocks that fail to
// decode are dropped and reported in the returned error; the bundle still
// holds every block that decoded.
func Parse(data []byte) (*Bundle, error) {
	b := &Bundle{}
	if !isJPEG(data) {
		return b, nil
	}
	segs, err := parseSegments(data)
	if err != nil {
		return b, apperr.New(apperr.KindMetadata, "read metadata", err)
	}

	var (
		icc  []iccChunk
		errs []string
	)
	for _, s := range segs {
		switch {
		case s.is(markerAPP1, exifPrefix) && b.EXIF == nil:
			x, err := ParseEXIF(s.data[len(exifPrefix):])
			if err != nil {
				errs = append(errs, err.Error())
				continue
			}
			b.EXIF = x
		case s.is(markerAPP1, xmpPrefix) && b.XMP == nil:
			x, err := ParseXMP(s.data[len(xmpPrefix):])
			if err != nil {
				errs = append(errs, err.Error())
				continue
			}
			b.XMP = x
		case s.is(markerAPP2, iccPrefix) && len(s.data) >= len(iccPrefix)+2:
			icc = append(icc, iccChunk{seq: int(s.data[len(iccPrefix)]), data: s.data[len(iccPrefix)+2:]})
		case s.is(markerAPP13, photoshopPrefix):
			res, err := parseResources(s.data[len(photoshopPrefix):])
			if err != nil {
				errs = append(errs, err.Error())
			}
			for _, r := range res {
				if r.id != resourceIPTC {
					continue
				}
				p, err := ParseIPTC(r.data)
				if err != nil {
					errs = append(errs, err.Error())
				}
				if p != nil && !p.Empty() {
					b.IPTC = p
				}
			}
		}
	}
	if len(icc) > 0 {
		b.ICC = joinICC(icc)
	}
	if len(errs) > 0 {
		return b, apperr.New(apperr.KindMetadata, "read metadata", errors.New(strings.Join(errs, "; ")))
	}
	return b, nil
}

// Whitelist returns the conservative subset of b carried onto resized images:
// the EXIF orientation and color space, and the ICC profile. When the pixels
// were already rotated upright, the orientation is written as 1.
func Whitelist(b *Bundle, orientationApplied bool) *Bundle {
	out := &Bundle{}
	if b == nil {
		return out
	}
	if b.EXIF != nil {
		orientation, _ := b.EXIF.Orientation()
		if orientationApplied && orientation != 0 {
			orientation = 1
		}
		colorSpace, _ := b.EXIF.ColorSpace()
		if raw := buildEXIF(orientation, colorSpace); raw != nil {
			if x, err := ParseEXIF(raw); err == nil {
				out.EXIF = x
			}
		}
	}
	out.ICC = append([]byte(nil), b.ICC...)
	return out
}

// Upright returns a copy of b whose EXIF orientation is reset to 1, for
// writing alongside pixels that were already rotated.
func Upright(b *Bundle) *Bundle {
	out := b.Clone()
	if out.EXIF != nil {
		if _, ok := out.EXIF.Orientation(); ok {
			out.EXIF = out.EXIF.WithOrientation(1)
		}
	}
	return out
}

// Inject writes the blocks present on b into the JPEG stream data and
// returns the new stream. Blocks absent from b are left as they are. An IPTC
// block replaces only the IPTC resource of an existing APP13 segment.
//
// # Errors
//
//   - KindMetadata with ErrUnsupportedContainer if data is not a JPEG stream
//   - KindMetadata if a block does not fit in a JPEG segment
func Inject(data []byte, b *Bundle) ([]byte, error) {
	const op = "write metadata"

	if !isJPEG(data) {
		return nil, apperr.New(apperr.KindMetadata, op, apperr.ErrUnsupportedContainer)
	}
	segs, err := parseSegments(data)
	if err != nil {
		return nil, apperr.New(apperr.KindMetadata, op, err)
	}
	if b.Empty() {
		return data, nil
	}

	var resources []resource
	kept := make([]segment, 0, len(segs))
	for _, s := range segs {
		switch {
		case b.EXIF != nil && s.is(markerAPP1, exifPrefix):
		case b.XMP != nil && s.is(markerAPP1, xmpPrefix):
		case len(b.ICC) > 0 && s.is(markerAPP2, iccPrefix):
		case b.IPTC != nil && s.is(markerAPP13, photoshopPrefix):
			res, err := parseResources(s.data[len(photoshopPrefix):])
			if err == nil {
				resources = append(resources, res...)
			}
		default:
			kept = append(kept, s)
		}
	}

	var added []segment
	if b.EXIF != nil {
		added = append(added, segment{marker: markerAPP1, data: concat(exifPrefix, b.EXIF.Raw())})
	}
	if b.XMP != nil {
		added = append(added, segment{marker: markerAPP1, data: concat(xmpPrefix, b.XMP.Raw())})
	}
	if len(b.ICC) > 0 {
		icc, err := splitICC(b.ICC)
		if err != nil {
			return nil, apperr.New(apperr.KindMetadata, op, err)
		}
		added = append(added, icc...)
	}
	if b.IPTC != nil {
		iim, err := b.IPTC.Encode()
		if err != nil {
			return nil, apperr.New(apperr.KindMetadata, op, err)
		}
		resources = replaceIPTCResource(resources, iim)
		if len(resources) > 0 {
			added = append(added, segment{marker: markerAPP13, data: encodeResources(resources)})
		}
	}

	at := insertionPoint(kept)
	out := make([]segment, 0, len(kept)+len(added))
	out = append(out, kept[:at]...)
	out = append(out, added...)
	out = append(out, kept[at:]...)

	encoded, err := writeSegments(out)
	if err != nil {
		return nil, apperr.New(apperr.KindMetadata, op, err)
	}
	return encoded, nil
}

// WriteFile injects b into the JPEG file at path, rewriting it in place.
func WriteFile(path string, b *Bundle) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.New(apperr.KindIO, "write metadata", errors.Wrap(err, "failed to reopen output"))
	}
	out, err := Inject(data, b)
	if err != nil {
		return err
	}
	if bytes.Equal(out, data) {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return apperr.New(apperr.KindIO, "write metadata", err)
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return apperr.New(apperr.KindIO, "write metadata", errors.Wrap(err, "failed to rewrite output"))
	}
	return nil
}

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
