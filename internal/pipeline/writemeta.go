package pipeline

import (
	"github.com/ironsheep/arion/internal/meta"
	"github.com/ironsheep/arion/internal/operation"
)

// writeMetaKeys maps write_meta fields to the IPTC datasets they override.
var writeMetaKeys = []struct {
	field string
	key   string
}{
	{"caption", meta.KeyCaption},
	{"copyright", meta.KeyCopyright},
	{"province_state", meta.KeyProvinceState},
	{"city", meta.KeyCity},
	{"country_name", meta.KeyCountryName},
	{"country_code", meta.KeyCountryCode},
	{"special_instructions", meta.KeySpecialInstructions},
	{"subject", meta.KeySubject},
	{"headline", meta.KeyHeadline},
	{"byline", meta.KeyByline},
	{"credit", meta.KeyCredit},
	{"source", meta.KeySource},
	{"object_name", meta.KeyObjectName},
}

// overrides holds the write_meta values of a command, already mapped to
// IPTC keys. Empty values are dropped at parse time.
type overrides struct {
	values   map[string]string
	keywords []string
}

func parseOverrides(p operation.Params) overrides {
	o := overrides{values: make(map[string]string)}
	for _, k := range writeMetaKeys {
		if v, ok := p.String(k.field); ok && v != "" {
			o.values[k.key] = v
		}
	}
	if kw, ok := p.Strings("keywords"); ok {
		for _, k := range kw {
			if k != "" {
				o.keywords = append(o.keywords, k)
			}
		}
	}
	return o
}

func (o overrides) empty() bool {
	return len(o.values) == 0 && len(o.keywords) == 0
}

// apply returns a copy of b with the overrides written into its IPTC block,
// allocating the block when b has none. b itself is not modified.
func (o overrides) apply(b *meta.Bundle) (*meta.Bundle, error) {
	out := b.Clone()
	if out.IPTC == nil {
		out.IPTC = meta.NewIPTC()
	}
	for _, k := range writeMetaKeys {
		v, ok := o.values[k.key]
		if !ok {
			continue
		}
		if err := out.IPTC.Set(k.key, v); err != nil {
			return nil, err
		}
	}
	if len(o.keywords) > 0 {
		if err := out.IPTC.SetAll(meta.KeyKeywords, o.keywords); err != nil {
			return nil, err
		}
	}
	return out, nil
}
