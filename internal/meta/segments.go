package meta

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerSOS   = 0xDA
	markerAPP0  = 0xE0
	markerAPP1  = 0xE1
	markerAPP2  = 0xE2
	markerAPP13 = 0xED

	// maxSegmentData is the largest payload a marker segment can carry.
	maxSegmentData = 0xFFFF - 2
)

var (
	exifPrefix      = []byte("Exif\x00\x00")
	xmpPrefix       = []byte("http://ns.adobe.com/xap/1.0/\x00")
	iccPrefix       = []byte("ICC_PROFILE\x00")
	photoshopPrefix = []byte("Photoshop 3.0\x00")
)

var errNotJPEG = errors.New("not a JPEG stream")

// segment is one JPEG marker segment. Marker 0 holds the entropy-coded scan
// data and everything after it, verbatim.
type segment struct {
	marker byte
	data   []byte
}

func (s segment) is(marker byte, prefix []byte) bool {
	return s.marker == marker && bytes.HasPrefix(s.data, prefix)
}

// isJPEG reports whether data starts with a JPEG SOI marker.
func isJPEG(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xFF && data[1] == markerSOI
}

// parseSegments splits a JPEG stream into marker segments up to and
// including SOS. Everything from the SOS payload onwards is kept as a single
// raw segment so the compressed image is never reinterpreted.
func parseSegments(data []byte) ([]segment, error) {
	if !isJPEG(data) {
		return nil, errNotJPEG
	}
	segs := []segment{{marker: markerSOI}}

	i := 2
	for i < len(data) {
		if data[i] != 0xFF {
			return nil, errors.Errorf("expected marker at offset %d", i)
		}
		// Fill bytes before a marker are legal.
		for i < len(data) && data[i] == 0xFF {
			i++
		}
		if i >= len(data) {
			return nil, errors.New("truncated marker")
		}
		marker := data[i]
		i++

		if marker == markerEOI {
			segs = append(segs, segment{marker: markerEOI})
			return segs, nil
		}
		if marker >= 0xD0 && marker <= 0xD7 || marker == 0x01 {
			segs = append(segs, segment{marker: marker})
			continue
		}

		if i+2 > len(data) {
			return nil, errors.New("truncated segment length")
		}
		n := int(binary.BigEndian.Uint16(data[i:i+2])) - 2
		i += 2
		if n < 0 || i+n > len(data) {
			return nil, errors.Errorf("segment 0x%02X overruns stream", marker)
		}
		segs = append(segs, segment{marker: marker, data: data[i : i+n]})
		i += n

		if marker == markerSOS {
			segs = append(segs, segment{marker: 0, data: data[i:]})
			return segs, nil
		}
	}
	return segs, nil
}

// writeSegments serializes segments back into a JPEG stream.
func writeSegments(segs []segment) ([]byte, error) {
	var buf bytes.Buffer
	for _, s := range segs {
		switch {
		case s.marker == 0:
			buf.Write(s.data)
		case s.marker == markerSOI || s.marker == markerEOI || (s.marker >= 0xD0 && s.marker <= 0xD7) || s.marker == 0x01:
			buf.Write([]byte{0xFF, s.marker})
		default:
			if len(s.data) > maxSegmentData {
				return nil, errors.Errorf("segment 0x%02X too large: %d bytes", s.marker, len(s.data))
			}
			buf.Write([]byte{0xFF, s.marker})
			var n [2]byte
			binary.BigEndian.PutUint16(n[:], uint16(len(s.data)+2))
			buf.Write(n[:])
			buf.Write(s.data)
		}
	}
	return buf.Bytes(), nil
}

// insertionPoint returns the index after SOI and any leading APP0 segments,
// where new metadata segments belong.
func insertionPoint(segs []segment) int {
	i := 1
	for i < len(segs) && segs[i].marker == markerAPP0 {
		i++
	}
	return i
}
