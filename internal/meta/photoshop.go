package meta

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// resourceIPTC is the Photoshop image resource holding the IIM stream.
const resourceIPTC = 0x0404

var resourceSignature = []byte("8BIM")

// resource is one Photoshop image resource block from an APP13 segment.
type resource struct {
	id   uint16
	name []byte
	data []byte
}

// parseResources decodes the image resource blocks that follow the
// "Photoshop 3.0\0" header.
func parseResources(data []byte) ([]resource, error) {
	var out []resource
	i := 0
	for i < len(data) {
		if i+4 > len(data) || !bytes.Equal(data[i:i+4], resourceSignature) {
			if allZero(data[i:]) {
				break
			}
			return out, errors.Errorf("photoshop: bad resource signature at offset %d", i)
		}
		i += 4
		if i+3 > len(data) {
			return out, errors.New("photoshop: truncated resource header")
		}
		id := binary.BigEndian.Uint16(data[i:])
		i += 2
		// Pascal string, padded so length byte plus name is even.
		nameLen := int(data[i])
		padded := nameLen + 1
		if padded%2 != 0 {
			padded++
		}
		if i+padded+4 > len(data) {
			return out, errors.New("photoshop: truncated resource name")
		}
		name := append([]byte(nil), data[i+1:i+1+nameLen]...)
		i += padded
		size := int(binary.BigEndian.Uint32(data[i:]))
		i += 4
		if i+size > len(data) {
			return out, errors.Errorf("photoshop: resource 0x%04X overruns segment", id)
		}
		out = append(out, resource{id: id, name: name, data: append([]byte(nil), data[i:i+size]...)})
		i += size
		if size%2 != 0 {
			i++
		}
	}
	return out, nil
}

// encodeResources serializes resources into an APP13 payload including the
// Photoshop header.
func encodeResources(res []resource) []byte {
	var buf bytes.Buffer
	buf.Write(photoshopPrefix)
	for _, r := range res {
		buf.Write(resourceSignature)
		var id [2]byte
		binary.BigEndian.PutUint16(id[:], r.id)
		buf.Write(id[:])
		buf.WriteByte(byte(len(r.name)))
		buf.Write(r.name)
		if (len(r.name)+1)%2 != 0 {
			buf.WriteByte(0)
		}
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(r.data)))
		buf.Write(size[:])
		buf.Write(r.data)
		if len(r.data)%2 != 0 {
			buf.WriteByte(0)
		}
	}
	return buf.Bytes()
}

// replaceIPTCResource returns res with the IPTC resource replaced by iim, or
// removed when iim is empty. Other resources keep their order.
func replaceIPTCResource(res []resource, iim []byte) []resource {
	out := make([]resource, 0, len(res)+1)
	replaced := false
	for _, r := range res {
		if r.id != resourceIPTC {
			out = append(out, r)
			continue
		}
		if !replaced && len(iim) > 0 {
			out = append(out, resource{id: resourceIPTC, name: r.name, data: iim})
		}
		replaced = true
	}
	if !replaced && len(iim) > 0 {
		out = append(out, resource{id: resourceIPTC, data: iim})
	}
	return out
}
