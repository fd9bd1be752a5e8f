package imaging

import (
	"image"
	"math"
)

// squareCrop returns the largest square centered in a srcW x srcH image.
func squareCrop(srcW, srcH int) image.Rectangle {
	switch {
	case srcW > srcH:
		x := int(math.Round(float64(srcW-srcH) / 2))
		return image.Rect(x, 0, x+srcH, srcH)
	case srcH > srcW:
		y := int(math.Round(float64(srcH-srcW) / 2))
		return image.Rect(0, y, srcW, y+srcW)
	default:
		return image.Rect(0, 0, srcW, srcH)
	}
}

// fillCrop returns the region of a srcW x srcH image that matches the
// width:height aspect ratio, anchored by gravity. The region never exceeds
// the source bounds.
func fillCrop(srcW, srcH, width, height int, gravity Gravity) image.Rectangle {
	xf := float64(width) / float64(srcW)
	yf := float64(height) / float64(srcH)

	cropW, cropH := srcW, srcH
	if xf > yf {
		cropH = int(math.Round(float64(srcW) * float64(height) / float64(width)))
	} else {
		cropW = int(math.Round(float64(srcH) * float64(width) / float64(height)))
	}
	cropW = clamp(cropW, 1, srcW)
	cropH = clamp(cropH, 1, srcH)

	var x, y int
	switch gravity {
	case GravityWest, GravityNorthWest, GravitySouthWest:
		x = 0
	case GravityEast, GravityNorthEast, GravitySouthEast:
		x = srcW - cropW
	default:
		x = int(math.Round(float64(srcW-cropW) / 2))
	}
	switch gravity {
	case GravityNorth, GravityNorthEast, GravityNorthWest:
		y = 0
	case GravitySouth, GravitySouthEast, GravitySouthWest:
		y = srcH - cropH
	default:
		y = int(math.Round(float64(srcH-cropH) / 2))
	}

	return image.Rect(x, y, x+cropW, y+cropH)
}

// cropView returns the region of img as a view sharing its pixels.
func cropView(img *image.NRGBA, rect image.Rectangle) *image.NRGBA {
	rect = rect.Add(img.Rect.Min).Intersect(img.Rect)
	if rect == img.Rect {
		return img
	}
	return img.SubImage(rect).(*image.NRGBA)
}
