package operation

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Params holds the raw "params" object of one operation. Accessors are
// tolerant: numbers may be given as strings and booleans as "true", "1" or 1.
// Each accessor reports false when the key is absent or cannot be converted,
// so callers keep their defaults.
type Params map[string]json.RawMessage

// ParseParams decodes a params object. A missing or null object is an error.
func ParseParams(raw json.RawMessage) (Params, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.New("params must be an object")
	}
	var p Params
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, errors.Wrap(err, "params must be an object")
	}
	if p == nil {
		p = Params{}
	}
	return p, nil
}

// Has reports whether key is present and not null.
func (p Params) Has(key string) bool {
	raw, ok := p[key]
	return ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// String returns key as a string. Numbers and booleans are returned in their
// JSON text form.
func (p Params) String(key string) (string, bool) {
	if !p.Has(key) {
		return "", false
	}
	raw := bytes.TrimSpace(p[key])
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[':
		return "", false
	default:
		return string(raw), true
	}
}

// Float returns key as a float64.
func (p Params) Float(key string) (float64, bool) {
	s, ok := p.String(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int returns key as an int. Fractional values are rejected.
func (p Params) Int(key string) (int, bool) {
	f, ok := p.Float(key)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// Bool returns key as a bool.
func (p Params) Bool(key string) (bool, bool) {
	s, ok := p.String(key)
	if !ok {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	}
	return false, false
}

// Strings returns key as a list of strings. A single string is returned as a
// one-element list.
func (p Params) Strings(key string) ([]string, bool) {
	if !p.Has(key) {
		return nil, false
	}
	raw := bytes.TrimSpace(p[key])
	if raw[0] == '[' {
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, false
		}
		return list, true
	}
	s, ok := p.String(key)
	if !ok {
		return nil, false
	}
	return []string{s}, true
}

// LocalPath strips the file:// scheme from a URL. Anything else is taken as
// a local path.
func LocalPath(url string) string {
	return strings.TrimPrefix(strings.TrimSpace(url), "file://")
}

// FileURL is the inverse of LocalPath.
func FileURL(path string) string {
	return "file://" + path
}
