package meta

import (
	"bytes"
	"encoding/binary"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// IPTC dataset keys, named after the IIM record and dataset they address.
const (
	KeyCharacterSet        = "Iptc.Envelope.CharacterSet"
	KeyRecordVersion       = "Iptc.Application2.RecordVersion"
	KeyObjectName          = "Iptc.Application2.ObjectName"
	KeySubject             = "Iptc.Application2.Subject"
	KeyCategory            = "Iptc.Application2.Category"
	KeySuppCategory        = "Iptc.Application2.SuppCategory"
	KeyKeywords            = "Iptc.Application2.Keywords"
	KeySpecialInstructions = "Iptc.Application2.SpecialInstructions"
	KeyDateCreated         = "Iptc.Application2.DateCreated"
	KeyTimeCreated         = "Iptc.Application2.TimeCreated"
	KeyByline              = "Iptc.Application2.Byline"
	KeyBylineTitle         = "Iptc.Application2.BylineTitle"
	KeyCity                = "Iptc.Application2.City"
	KeySubLocation         = "Iptc.Application2.SubLocation"
	KeyProvinceState       = "Iptc.Application2.ProvinceState"
	KeyCountryCode         = "Iptc.Application2.CountryCode"
	KeyCountryName         = "Iptc.Application2.CountryName"
	KeyTransmissionRef     = "Iptc.Application2.TransmissionReference"
	KeyHeadline            = "Iptc.Application2.Headline"
	KeyCredit              = "Iptc.Application2.Credit"
	KeySource              = "Iptc.Application2.Source"
	KeyCopyright           = "Iptc.Application2.Copyright"
	KeyContact             = "Iptc.Application2.Contact"
	KeyCaption             = "Iptc.Application2.Caption"
	KeyCaptionWriter       = "Iptc.Application2.Writer"
)

type datasetID struct {
	record, number byte
}

var iptcKeys = map[string]datasetID{
	KeyCharacterSet:        {1, 90},
	KeyRecordVersion:       {2, 0},
	KeyObjectName:          {2, 5},
	KeySubject:             {2, 12},
	KeyCategory:            {2, 15},
	KeySuppCategory:        {2, 20},
	KeyKeywords:            {2, 25},
	KeySpecialInstructions: {2, 40},
	KeyDateCreated:         {2, 55},
	KeyTimeCreated:         {2, 60},
	KeyByline:              {2, 80},
	KeyBylineTitle:         {2, 85},
	KeyCity:                {2, 90},
	KeySubLocation:         {2, 92},
	KeyProvinceState:       {2, 95},
	KeyCountryCode:         {2, 100},
	KeyCountryName:         {2, 101},
	KeyTransmissionRef:     {2, 103},
	KeyHeadline:            {2, 105},
	KeyCredit:              {2, 110},
	KeySource:              {2, 115},
	KeyCopyright:           {2, 116},
	KeyContact:             {2, 118},
	KeyCaption:             {2, 120},
	KeyCaptionWriter:       {2, 122},
}

// utf8Marker is the ISO 2022 escape sequence declaring UTF-8 in dataset 1:90.
var utf8Marker = []byte{0x1B, '%', 'G'}

// Dataset is one IIM dataset. Unknown datasets are kept so they survive a
// rewrite.
type Dataset struct {
	Record byte
	Number byte
	Value  []byte
}

// IPTC is an ordered collection of IIM datasets. Repeatable datasets such as
// keywords appear once per value.
type IPTC struct {
	datasets []Dataset
}

// NewIPTC returns an empty IPTC block.
func NewIPTC() *IPTC {
	return &IPTC{}
}

// ParseIPTC decodes an IIM stream (the payload of Photoshop resource 0x0404).
func ParseIPTC(data []byte) (*IPTC, error) {
	p := NewIPTC()
	i := 0
	for i < len(data) {
		if data[i] != 0x1C {
			// Trailing padding is common.
			if allZero(data[i:]) {
				break
			}
			return p, errors.Errorf("iptc: bad tag marker at offset %d", i)
		}
		if i+5 > len(data) {
			return p, errors.New("iptc: truncated dataset header")
		}
		rec, num := data[i+1], data[i+2]
		n := int(binary.BigEndian.Uint16(data[i+3 : i+5]))
		i += 5
		if n&0x8000 != 0 {
			// Extended dataset: the low bits give the size of the length field.
			size := n & 0x7FFF
			if size > 4 || i+size > len(data) {
				return p, errors.New("iptc: unsupported extended dataset")
			}
			n = 0
			for _, b := range data[i : i+size] {
				n = n<<8 | int(b)
			}
			i += size
		}
		if i+n > len(data) {
			return p, errors.Errorf("iptc: dataset %d:%d overruns block", rec, num)
		}
		p.datasets = append(p.datasets, Dataset{Record: rec, Number: num, Value: append([]byte(nil), data[i:i+n]...)})
		i += n
	}
	return p, nil
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func lookup(key string) (datasetID, error) {
	id, ok := iptcKeys[key]
	if !ok {
		return datasetID{}, errors.Errorf("unknown iptc key %q", key)
	}
	return id, nil
}

// Len returns the number of datasets.
func (p *IPTC) Len() int {
	if p == nil {
		return 0
	}
	return len(p.datasets)
}

// Empty reports whether p holds no datasets.
func (p *IPTC) Empty() bool { return p.Len() == 0 }

// snapshot returns a copy of the datasets in order.
func (p *IPTC) snapshot() []Dataset {
	if p == nil {
		return nil
	}
	return append([]Dataset(nil), p.datasets...)
}

// Get returns the first value stored under key.
func (p *IPTC) Get(key string) (string, bool) {
	vals := p.GetAll(key)
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// GetAll returns every value stored under key, in order.
func (p *IPTC) GetAll(key string) []string {
	if p == nil {
		return nil
	}
	id, err := lookup(key)
	if err != nil {
		return nil
	}
	var out []string
	for _, d := range p.datasets {
		if d.Record == id.record && d.Number == id.number {
			out = append(out, string(d.Value))
		}
	}
	return out
}

// Set replaces every value under key with value. The new dataset takes the
// position of the first existing one, or is appended.
func (p *IPTC) Set(key, value string) error {
	return p.SetAll(key, []string{value})
}

// SetAll replaces every value under key with values.
func (p *IPTC) SetAll(key string, values []string) error {
	id, err := lookup(key)
	if err != nil {
		return err
	}
	at := -1
	kept := p.datasets[:0:0]
	for _, d := range p.datasets {
		if d.Record == id.record && d.Number == id.number {
			if at < 0 {
				at = len(kept)
			}
			continue
		}
		kept = append(kept, d)
	}
	if at < 0 {
		at = len(kept)
	}
	added := make([]Dataset, 0, len(values))
	for _, v := range values {
		added = append(added, Dataset{Record: id.record, Number: id.number, Value: []byte(v)})
	}
	p.datasets = append(kept[:at:at], append(added, kept[at:]...)...)
	return nil
}

// Add appends a value under key, keeping existing ones.
func (p *IPTC) Add(key, value string) error {
	id, err := lookup(key)
	if err != nil {
		return err
	}
	p.datasets = append(p.datasets, Dataset{Record: id.record, Number: id.number, Value: []byte(value)})
	return nil
}

// Clone returns a deep copy of p.
func (p *IPTC) Clone() *IPTC {
	if p == nil {
		return nil
	}
	out := &IPTC{datasets: make([]Dataset, len(p.datasets))}
	for i, d := range p.datasets {
		out.datasets[i] = Dataset{Record: d.Record, Number: d.Number, Value: append([]byte(nil), d.Value...)}
	}
	return out
}

// Fields returns the known datasets as dotted keys. Repeated values are
// joined with ", ".
func (p *IPTC) Fields() map[string]string {
	out := make(map[string]string)
	for key := range iptcKeys {
		if vals := p.GetAll(key); len(vals) > 0 {
			out[key] = strings.Join(vals, ", ")
		}
	}
	return out
}

// Encode serializes p as an IIM stream. Datasets are ordered by record, the
// record version is written first when missing, and the character set is
// declared as UTF-8 when any value needs it.
func (p *IPTC) Encode() ([]byte, error) {
	if p.Empty() {
		return nil, nil
	}
	ds := p.snapshot()

	var hasVersion, hasCharset, hasApp, needsUTF8 bool
	for _, d := range ds {
		switch {
		case d.Record == 2 && d.Number == 0:
			hasVersion = true
		case d.Record == 1 && d.Number == 90:
			hasCharset = true
		}
		if d.Record == 2 {
			hasApp = true
		}
		if !isASCII(d.Value) && utf8.Valid(d.Value) {
			needsUTF8 = true
		}
	}
	if needsUTF8 && !hasCharset {
		ds = append(ds, Dataset{Record: 1, Number: 90, Value: utf8Marker})
	}
	if hasApp && !hasVersion {
		ds = append(ds, Dataset{Record: 2, Number: 0, Value: []byte{0x00, 0x04}})
	}
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Record != ds[j].Record {
			return ds[i].Record < ds[j].Record
		}
		// Record version leads its record.
		return ds[i].Number == 0 && ds[j].Number != 0
	})

	var buf bytes.Buffer
	for _, d := range ds {
		if len(d.Value) > 0x7FFF {
			return nil, errors.Errorf("iptc: dataset %d:%d too large (%d bytes)", d.Record, d.Number, len(d.Value))
		}
		buf.Write([]byte{0x1C, d.Record, d.Number})
		var n [2]byte
		binary.BigEndian.PutUint16(n[:], uint16(len(d.Value)))
		buf.Write(n[:])
		buf.Write(d.Value)
	}
	return buf.Bytes(), nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
