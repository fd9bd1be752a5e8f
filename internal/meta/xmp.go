package meta

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Namespace URIs mapped to the prefixes used in dotted XMP keys.
var xmpPrefixes = map[string]string{
	"http://purl.org/dc/elements/1.1/":             "dc",
	"http://ns.adobe.com/photoshop/1.0/":           "photoshop",
	"http://ns.adobe.com/xap/1.0/":                 "xmp",
	"http://ns.adobe.com/xap/1.0/rights/":          "xmpRights",
	"http://ns.adobe.com/xap/1.0/mm/":              "xmpMM",
	"http://iptc.org/std/Iptc4xmpCore/1.0/xmlns/":  "Iptc4xmpCore",
	"http://ns.adobe.com/tiff/1.0/":                "tiff",
	"http://ns.adobe.com/exif/1.0/":                "exif",
	"http://ns.adobe.com/lightroom/1.0/":           "lr",
	"http://ns.useplus.org/ldf/xmp/1.0/":           "plus",
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#":  "rdf",
	"adobe:ns:meta/":                               "x",
	"http://ns.adobe.com/xmp/1.0/DynamicMedia/":    "xmpDM",
	"http://ns.adobe.com/camera-raw-settings/1.0/": "crs",
}

const rdfNS = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

// XMP is a raw XMP packet together with the simple and array properties
// found in it. Keys look like "Xmp.dc.title".
type XMP struct {
	raw    []byte
	fields map[string][]string
}

// ParseXMP decodes an XMP packet. Properties in unknown namespaces are keyed
// by their local name only ("Xmp.<local>").
func ParseXMP(raw []byte) (*XMP, error) {
	x := &XMP{raw: append([]byte(nil), raw...), fields: make(map[string][]string)}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Strict = false
	var stack []xml.Name
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse xmp")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name)
			if t.Name.Space == rdfNS && t.Name.Local == "Description" {
				for _, a := range t.Attr {
					if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" || a.Name.Space == rdfNS {
						continue
					}
					x.add(xmpKey(a.Name), a.Value)
				}
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			val := strings.TrimSpace(string(t))
			if val == "" {
				continue
			}
			if prop, ok := owningProperty(stack); ok {
				x.add(xmpKey(prop), val)
			}
		}
	}
	return x, nil
}

// owningProperty returns the innermost element on the stack that is a
// property rather than RDF or packet structure.
func owningProperty(stack []xml.Name) (xml.Name, bool) {
	for i := len(stack) - 1; i >= 0; i-- {
		n := stack[i]
		if n.Space == rdfNS || n.Space == "adobe:ns:meta/" {
			continue
		}
		return n, true
	}
	return xml.Name{}, false
}

func xmpKey(n xml.Name) string {
	if p, ok := xmpPrefixes[n.Space]; ok {
		return "Xmp." + p + "." + n.Local
	}
	return "Xmp." + n.Local
}

func (x *XMP) add(key, val string) {
	x.fields[key] = append(x.fields[key], val)
}

// Raw returns the XMP packet.
func (x *XMP) Raw() []byte { return x.raw }

// Get returns the first value of key.
func (x *XMP) Get(key string) (string, bool) {
	vals := x.GetAll(key)
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// GetAll returns every value of key in document order.
func (x *XMP) GetAll(key string) []string {
	if x == nil {
		return nil
	}
	return x.fields[key]
}

// Fields returns every property with repeated values joined by ", ".
func (x *XMP) Fields() map[string]string {
	out := make(map[string]string)
	if x == nil {
		return out
	}
	for k, v := range x.fields {
		out[k] = strings.Join(v, ", ")
	}
	return out
}
