package meta

import (
	"sort"

	"github.com/pkg/errors"
)

// maxICCChunk is the profile payload that fits in one APP2 segment after the
// "ICC_PROFILE\0" header and the two sequence bytes.
const maxICCChunk = maxSegmentData - 14

type iccChunk struct {
	seq  int
	data []byte
}

// joinICC reassembles a profile from APP2 chunks in sequence order.
func joinICC(chunks []iccChunk) []byte {
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].seq < chunks[j].seq })
	var out []byte
	for _, c := range chunks {
		out = append(out, c.data...)
	}
	return out
}

// splitICC cuts a profile into APP2 segment payloads.
func splitICC(profile []byte) ([]segment, error) {
	if len(profile) == 0 {
		return nil, nil
	}
	count := (len(profile) + maxICCChunk - 1) / maxICCChunk
	if count > 255 {
		return nil, errors.Errorf("icc profile too large: %d bytes", len(profile))
	}
	segs := make([]segment, 0, count)
	for i := 0; i < count; i++ {
		start := i * maxICCChunk
		end := start + maxICCChunk
		if end > len(profile) {
			end = len(profile)
		}
		data := make([]byte, 0, len(iccPrefix)+2+end-start)
		data = append(data, iccPrefix...)
		data = append(data, byte(i+1), byte(count))
		data = append(data, profile[start:end]...)
		segs = append(segs, segment{marker: markerAPP2, data: data})
	}
	return segs, nil
}
