package operation

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ironsheep/arion/internal/apperr"
	"github.com/ironsheep/arion/internal/imaging"
)

// Fingerprint hashes the decoded pixels of the source raster. Only "md5" is
// defined; any other type fails at run time.
type Fingerprint struct {
	base

	hashType string
	sum      string
}

// Setup reads the hash type. A missing type is reported by Run.
func (f *Fingerprint) Setup(p Params) error {
	if t, ok := p.String("type"); ok {
		f.hashType = strings.ToLower(strings.TrimSpace(t))
	}
	return nil
}

// Run computes the fingerprint of src.
func (f *Fingerprint) Run(src imaging.Raster) bool {
	return f.execute(func() error {
		if f.hashType != "md5" {
			return apperr.New(apperr.KindInvalidType, "fingerprint",
				fmt.Errorf("%w: fingerprint type %q", apperr.ErrInvalidType, f.hashType))
		}
		sum, err := PixelMD5(src)
		if err != nil {
			return err
		}
		f.sum = sum
		return nil
	})
}

// PixelMD5 returns the hex MD5 of the raster's interleaved pixel bytes.
func PixelMD5(r imaging.Raster) (string, error) {
	if r.Empty() {
		return "", apperr.New(apperr.KindGeometry, "fingerprint", apperr.ErrEmptyRaster)
	}
	sum := md5.Sum(r.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// FingerprintResult is the result record of fingerprint.
type FingerprintResult struct {
	Type   Kind   `json:"type"`
	Result bool   `json:"result"`
	MD5    string `json:"md5"`
}

func (f *Fingerprint) Result() any {
	if f.status != StatusSuccess {
		return f.failure()
	}
	return FingerprintResult{Type: f.kind, Result: true, MD5: f.sum}
}
