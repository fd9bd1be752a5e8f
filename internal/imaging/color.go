package imaging

import "math"

// Brightness estimates the perceived brightness of an RGB pixel with the
// integer luma approximation (3R + 4G + B) / 8. The result is in 0..255.
func Brightness(r, g, b uint8) int {
	return (int(r) + int(r) + int(r) + int(b) + int(g) + int(g) + int(g) + int(g)) >> 3
}

// AdaptiveBlend maps a brightness in 0..255 onto [min, max] with a
// logarithmic curve, so darker pixels receive a fainter watermark.
//
//	blend = min + (max - min) * log10(1 + (9/255) * brightness)
//
// A brightness of 0 yields min and a brightness of 255 yields max.
func AdaptiveBlend(brightness int, min, max float64) float64 {
	return min + (max-min)*math.Log10(1+(9.0/255.0)*float64(brightness))
}

// blendChannel combines a background and foreground channel value.
// The result is truncated, not rounded.
func blendChannel(bg, fg uint8, opacity float64) uint8 {
	v := float64(bg)*(1-opacity) + float64(fg)*opacity
	return uint8(clampFloat(v, 0, 255))
}

// clamp restricts an integer value to a specified range.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func clampFloat(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
