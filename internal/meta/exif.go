package meta

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

const (
	tagOrientation    = 0x0112
	tagExifIFDPointer = 0x8769
	tagColorSpace     = 0xA001
)

// EXIF is a raw EXIF block (a TIFF structure without the "Exif\0\0" header)
// together with its decoded tags.
type EXIF struct {
	raw []byte
	x   *exif.Exif
}

// ParseEXIF decodes a raw TIFF-structured EXIF block. Damage confined to the
// EXIF, GPS or interoperability sub-directories is tolerated.
func ParseEXIF(raw []byte) (*EXIF, error) {
	if len(raw) < 8 {
		return nil, errors.New("exif block too short")
	}
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil, errors.Wrap(err, "failed to decode exif")
	}
	return &EXIF{raw: append([]byte(nil), raw...), x: x}, nil
}

// Raw returns the TIFF-structured EXIF bytes.
func (e *EXIF) Raw() []byte { return e.raw }

// Get returns the value of an EXIF tag as a string. Keys may be bare field
// names ("Orientation") or dotted ("Exif.Image.Orientation"). ASCII values
// are returned without quotes.
func (e *EXIF) Get(key string) (string, bool) {
	tag := e.tag(key)
	if tag == nil {
		return "", false
	}
	if tag.Format() == tiff.StringVal {
		s, err := tag.StringVal()
		if err != nil {
			return "", false
		}
		return strings.TrimRight(s, "\x00 "), true
	}
	return tag.String(), true
}

func (e *EXIF) tag(key string) *tiff.Tag {
	if e == nil || e.x == nil {
		return nil
	}
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	tag, err := e.x.Get(exif.FieldName(key))
	if err != nil {
		return nil
	}
	return tag
}

func (e *EXIF) intTag(key string) (int, bool) {
	tag := e.tag(key)
	if tag == nil || tag.Format() != tiff.IntVal {
		return 0, false
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Orientation returns the orientation tag (1..8).
func (e *EXIF) Orientation() (int, bool) {
	v, ok := e.intTag(string(exif.Orientation))
	if !ok || v < 1 || v > 8 {
		return 0, false
	}
	return v, true
}

// ColorSpace returns the ColorSpace tag (1 = sRGB, 0xFFFF = uncalibrated).
func (e *EXIF) ColorSpace() (int, bool) {
	return e.intTag(string(exif.ColorSpace))
}

// Fields returns every decoded tag as a dotted key and its string value.
func (e *EXIF) Fields() map[string]string {
	out := make(map[string]string)
	if e == nil || e.x == nil {
		return out
	}
	e.x.Walk(fieldWalker(out))
	return out
}

type fieldWalker map[string]string

func (w fieldWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	val := tag.String()
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		val = val[1 : len(val)-1]
	}
	w["Exif."+string(name)] = val
	return nil
}

// WithOrientation returns a copy of e whose IFD0 orientation is set to v.
// The block is patched in place; if it has no orientation tag it is
// returned unchanged.
func (e *EXIF) WithOrientation(v int) *EXIF {
	raw := append([]byte(nil), e.raw...)
	order, ifd, ok := tiffHeader(raw)
	if !ok || ifd+2 > len(raw) {
		return e
	}
	n := int(order.Uint16(raw[ifd:]))
	for i := 0; i < n; i++ {
		entry := ifd + 2 + i*12
		if entry+12 > len(raw) {
			break
		}
		if order.Uint16(raw[entry:]) == tagOrientation {
			order.PutUint16(raw[entry+8:], uint16(v))
			out, err := ParseEXIF(raw)
			if err != nil {
				return e
			}
			return out
		}
	}
	return e
}

func tiffHeader(raw []byte) (binary.ByteOrder, int, bool) {
	if len(raw) < 8 {
		return nil, 0, false
	}
	var order binary.ByteOrder
	switch string(raw[:4]) {
	case "II*\x00":
		order = binary.LittleEndian
	case "MM\x00*":
		order = binary.BigEndian
	default:
		return nil, 0, false
	}
	return order, int(order.Uint32(raw[4:8])), true
}

// buildEXIF writes a minimal little-endian EXIF block holding only the
// orientation in IFD0 and the color space in the EXIF sub-IFD. Zero values
// are omitted. It returns nil when there is nothing to write.
func buildEXIF(orientation, colorSpace int) []byte {
	type entry struct {
		tag, typ uint16
		value    uint32
	}
	const (
		typeShort = 3
		typeLong  = 4
	)

	var ifd0 []entry
	if orientation > 0 {
		ifd0 = append(ifd0, entry{tagOrientation, typeShort, uint32(orientation)})
	}
	exifIFDOffset := 8 + 2 + (len(ifd0)+1)*12 + 4
	if colorSpace > 0 {
		ifd0 = append(ifd0, entry{tagExifIFDPointer, typeLong, uint32(exifIFDOffset)})
	}
	if len(ifd0) == 0 {
		return nil
	}

	var buf bytes.Buffer
	le := binary.LittleEndian
	write := func(v any) { binary.Write(&buf, le, v) }

	buf.WriteString("II")
	write(uint16(0x2A))
	write(uint32(8))

	writeIFD := func(entries []entry) {
		write(uint16(len(entries)))
		for _, e := range entries {
			write(e.tag)
			write(e.typ)
			write(uint32(1))
			if e.typ == typeShort {
				write(uint16(e.value))
				write(uint16(0))
			} else {
				write(e.value)
			}
		}
		write(uint32(0))
	}

	writeIFD(ifd0)
	if colorSpace > 0 {
		writeIFD([]entry{{tagColorSpace, typeShort, uint32(colorSpace)}})
	}
	return buf.Bytes()
}
