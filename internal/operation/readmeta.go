package operation

import (
	"strings"

	"github.com/ironsheep/arion/internal/meta"
)

const (
	modelReleasedPhrase    = "model released (mr)"
	propertyReleasedPhrase = "property released (pr)"
)

// ReadMeta reports a fixed set of IPTC fields from the source metadata.
// Fields are only read when the info param is true. A field missing from
// IPTC falls back to its XMP equivalent. With the all param every decoded
// EXIF, XMP and IPTC value is reported as well.
type ReadMeta struct {
	base

	info   bool
	all    bool
	fields ReadMetaResult
}

// Setup reads the optional info and all flags.
func (m *ReadMeta) Setup(p Params) error {
	if v, ok := p.Bool("info"); ok {
		m.info = v
	}
	if v, ok := p.Bool("all"); ok {
		m.all = v
	}
	return nil
}

type metaField struct {
	iptc string
	xmp  string
	dst  func(*ReadMetaResult) *string
}

var metaFields = []metaField{
	{meta.KeyCaption, "Xmp.dc.description", func(r *ReadMetaResult) *string { return &r.Caption }},
	{meta.KeyCopyright, "Xmp.dc.rights", func(r *ReadMetaResult) *string { return &r.Copyright }},
	{meta.KeySpecialInstructions, "Xmp.photoshop.Instructions", func(r *ReadMetaResult) *string { return &r.SpecialInstructions }},
	{meta.KeySubject, "Xmp.Iptc4xmpCore.SubjectCode", func(r *ReadMetaResult) *string { return &r.Subject }},
	{meta.KeyCity, "Xmp.photoshop.City", func(r *ReadMetaResult) *string { return &r.City }},
	{meta.KeyProvinceState, "Xmp.photoshop.State", func(r *ReadMetaResult) *string { return &r.ProvinceState }},
	{meta.KeyCountryName, "Xmp.photoshop.Country", func(r *ReadMetaResult) *string { return &r.CountryName }},
	{meta.KeyCountryCode, "Xmp.Iptc4xmpCore.CountryCode", func(r *ReadMetaResult) *string { return &r.CountryCode }},
	{meta.KeyHeadline, "Xmp.photoshop.Headline", func(r *ReadMetaResult) *string { return &r.Headline }},
	{meta.KeyByline, "Xmp.dc.creator", func(r *ReadMetaResult) *string { return &r.Byline }},
	{meta.KeyCredit, "Xmp.photoshop.Credit", func(r *ReadMetaResult) *string { return &r.Credit }},
	{meta.KeySource, "Xmp.photoshop.Source", func(r *ReadMetaResult) *string { return &r.Source }},
	{meta.KeyObjectName, "Xmp.dc.title", func(r *ReadMetaResult) *string { return &r.ObjectName }},
}

// Run reads the fields from bundle, which may be nil.
func (m *ReadMeta) Run(bundle *meta.Bundle) bool {
	return m.execute(func() error {
		m.fields = ReadMetaResult{Keywords: []string{}}
		if m.all && !bundle.Empty() {
			m.fields.Fields = bundle.Fields()
		}
		if !m.info || bundle.Empty() {
			return nil
		}
		for _, f := range metaFields {
			*f.dst(&m.fields) = lookup(bundle, f.iptc, f.xmp)
		}
		m.fields.Keywords = keywords(bundle)

		instructions := strings.ToLower(m.fields.SpecialInstructions)
		m.fields.ModelReleased = strings.Contains(instructions, modelReleasedPhrase)
		m.fields.PropertyReleased = strings.Contains(instructions, propertyReleasedPhrase)
		return nil
	})
}

func lookup(b *meta.Bundle, iptcKey, xmpKey string) string {
	if v, ok := b.Get(iptcKey); ok && v != "" {
		return v
	}
	if v, ok := b.Get(xmpKey); ok {
		return v
	}
	return ""
}

func keywords(b *meta.Bundle) []string {
	out := []string{}
	for _, k := range b.IPTC.GetAll(meta.KeyKeywords) {
		if k != "" {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		out = append(out, b.XMP.GetAll("Xmp.dc.subject")...)
	}
	return out
}

// ReadMetaResult is the result record of read_meta. The fields after
// Keywords are omitted when empty.
type ReadMetaResult struct {
	Type                Kind     `json:"type"`
	Result              bool     `json:"result"`
	ModelReleased       bool     `json:"model_released"`
	PropertyReleased    bool     `json:"property_released"`
	SpecialInstructions string   `json:"special_instructions"`
	Subject             string   `json:"subject"`
	Copyright           string   `json:"copyright"`
	City                string   `json:"city"`
	ProvinceState       string   `json:"province_state"`
	CountryName         string   `json:"country_name"`
	CountryCode         string   `json:"country_code"`
	Caption             string   `json:"caption"`
	Keywords            []string `json:"keywords"`
	Headline            string   `json:"headline,omitempty"`
	Byline              string   `json:"byline,omitempty"`
	Credit              string   `json:"credit,omitempty"`
	Source              string   `json:"source,omitempty"`
	ObjectName          string   `json:"object_name,omitempty"`

	Fields map[string]string `json:"fields,omitempty"`
}

func (m *ReadMeta) Result() any {
	if m.status != StatusSuccess {
		return m.failure()
	}
	r := m.fields
	r.Type = m.kind
	r.Result = true
	return r
}
