package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// Orient applies an EXIF orientation tag to r and reports whether the pixels
// changed. Tags outside 2..8 leave r untouched.
//
//	1 normal               5 transpose
//	2 flip horizontal      6 rotate 90 clockwise
//	3 rotate 180           7 transverse
//	4 flip vertical        8 rotate 90 counter-clockwise
func Orient(r Raster, orientation int) (Raster, bool) {
	if r.Empty() {
		return r, false
	}

	var out *image.NRGBA
	switch orientation {
	case 2:
		out = imaging.FlipH(r.img)
	case 3:
		out = imaging.Rotate180(r.img)
	case 4:
		out = imaging.FlipV(r.img)
	case 5:
		out = imaging.Transpose(r.img)
	case 6:
		out = imaging.Rotate270(r.img)
	case 7:
		out = imaging.Transverse(r.img)
	case 8:
		out = imaging.Rotate90(r.img)
	default:
		return r, false
	}
	return rasterFrom(out, r.alpha), true
}
