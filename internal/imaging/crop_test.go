package imaging

import (
	"image"
	"testing"
)

func TestSquareCropCentered(t *testing.T) {
	tests := []struct {
		name       string
		srcW, srcH int
		want       image.Rectangle
	}{
		{"landscape", 600, 400, image.Rect(100, 0, 500, 400)},
		{"portrait", 400, 600, image.Rect(0, 100, 400, 500)},
		{"odd difference rounds half up", 5, 2, image.Rect(2, 0, 4, 2)},
		{"square", 10, 10, image.Rect(0, 0, 10, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := squareCrop(tt.srcW, tt.srcH); got != tt.want {
				t.Errorf("squareCrop(%d, %d) = %v, want %v", tt.srcW, tt.srcH, got, tt.want)
			}
		})
	}
}

func TestFillCropGravity(t *testing.T) {
	// 600x400 source cropped to a 1:1 region of 400x400.
	horizontal := []struct {
		gravity Gravity
		want    image.Rectangle
	}{
		{GravityCenter, image.Rect(100, 0, 500, 400)},
		{GravityWest, image.Rect(0, 0, 400, 400)},
		{GravityNorthWest, image.Rect(0, 0, 400, 400)},
		{GravitySouthWest, image.Rect(0, 0, 400, 400)},
		{GravityEast, image.Rect(200, 0, 600, 400)},
		{GravityNorthEast, image.Rect(200, 0, 600, 400)},
		{GravitySouthEast, image.Rect(200, 0, 600, 400)},
		{GravityNorth, image.Rect(100, 0, 500, 400)},
		{GravitySouth, image.Rect(100, 0, 500, 400)},
	}
	for _, tt := range horizontal {
		t.Run("wide/"+tt.gravity.String(), func(t *testing.T) {
			if got := fillCrop(600, 400, 100, 100, tt.gravity); got != tt.want {
				t.Errorf("fillCrop = %v, want %v", got, tt.want)
			}
		})
	}

	// 400x600 source cropped to a 2:1 region of 400x200.
	vertical := []struct {
		gravity Gravity
		want    image.Rectangle
	}{
		{GravityCenter, image.Rect(0, 200, 400, 400)},
		{GravityNorth, image.Rect(0, 0, 400, 200)},
		{GravityNorthEast, image.Rect(0, 0, 400, 200)},
		{GravitySouth, image.Rect(0, 400, 400, 600)},
		{GravitySouthWest, image.Rect(0, 400, 400, 600)},
		{GravityEast, image.Rect(0, 200, 400, 400)},
	}
	for _, tt := range vertical {
		t.Run("tall/"+tt.gravity.String(), func(t *testing.T) {
			if got := fillCrop(400, 600, 200, 100, tt.gravity); got != tt.want {
				t.Errorf("fillCrop = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCropViewSharesPixels(t *testing.T) {
	img := createPatternImage(10, 10)
	view := cropView(img, image.Rect(5, 5, 10, 10))
	if view.Rect.Dx() != 5 || view.Rect.Dy() != 5 {
		t.Fatalf("view size = %v", view.Rect)
	}
	view.Pix[0] = 1
	if img.NRGBAAt(5, 5).R != 1 {
		t.Error("crop view should share storage with the source")
	}
	if full := cropView(img, img.Rect); full != img {
		t.Error("full-frame crop should return the source image")
	}
}
