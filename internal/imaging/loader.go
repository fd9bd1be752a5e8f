package imaging

import (
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/ironsheep/arion/internal/apperr"
)

// LoadRaster decodes the image file at path into a Raster.
//
// Parameters:
//   - path: Local file path. Supported formats are JPEG, PNG, GIF, BMP, TIFF
//     and WebP.
//   - keepAlpha: Keep the alpha channel when the file has one. Source images
//     are loaded without alpha; watermarks are loaded with it.
//
// The file is decoded as stored. EXIF orientation is not applied here; see
// Orient.
//
// # Errors
//
//   - KindIO if the file cannot be opened
//   - KindDecode if the contents are not a supported image
func LoadRaster(path string, keepAlpha bool) (Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return Raster{}, apperr.New(apperr.KindIO, "load", errors.Wrap(err, "failed to open image"))
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return Raster{}, apperr.New(apperr.KindDecode, "load", errors.Wrapf(err, "failed to decode %s", path))
	}

	r := NewRaster(img, keepAlpha)
	if r.Empty() {
		return Raster{}, apperr.New(apperr.KindDecode, "load", apperr.ErrEmptyRaster)
	}
	return r, nil
}

// MaxSourcePixels bounds the size of an image LoadSource will decode.
const MaxSourcePixels = 1 << 30

// LoadSource loads an opaque source image. The stored dimensions are checked
// against MaxSourcePixels before any pixel is decoded.
//
// # Errors
//
//   - KindIO if the file cannot be opened
//   - KindDecode if the header or contents are not a supported image
//   - KindResourceLimit with ErrTooManyPixels if the image is too large
func LoadSource(path string) (Raster, error) {
	w, h, err := DecodeConfig(path)
	if err != nil {
		return Raster{}, err
	}
	if int64(w)*int64(h) > MaxSourcePixels {
		return Raster{}, apperr.New(apperr.KindResourceLimit, "load",
			errors.Wrapf(apperr.ErrTooManyPixels, "source is %dx%d", w, h))
	}
	return LoadRaster(path, false)
}

// DecodeConfig returns the stored dimensions of the image at path without
// decoding its pixels.
func DecodeConfig(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, apperr.New(apperr.KindIO, "decode config", errors.Wrap(err, "failed to open image"))
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, apperr.New(apperr.KindDecode, "decode config", err)
	}
	return cfg.Width, cfg.Height, nil
}

// RasterCache provides thread-safe caching of decoded rasters to avoid
// redundant disk reads.
//
// The pipeline uses one cache per run for watermark images, so several resize
// operations that share a watermark decode it once.
//
// Cached rasters remain in memory until Clear.
//
// # Example Usage
//
//	cache := imaging.NewRasterCache()
//	wm, err := cache.Load("/path/to/watermark.png", true)
//	if err != nil {
//	    return err
//	}
//	defer cache.Clear()
type RasterCache struct {
	mu      sync.RWMutex
	rasters map[cacheKey]Raster
}

type cacheKey struct {
	path  string
	alpha bool
}

// NewRasterCache creates and initializes a new empty raster cache.
func NewRasterCache() *RasterCache {
	return &RasterCache{
		rasters: make(map[cacheKey]Raster),
	}
}

// Load retrieves a raster from the cache or decodes it from disk if not cached.
//
// Rasters are cached by the exact path string and keepAlpha flag. Callers must
// treat the returned raster as read-only.
func (c *RasterCache) Load(path string, keepAlpha bool) (Raster, error) {
	key := cacheKey{path: path, alpha: keepAlpha}

	c.mu.RLock()
	if r, ok := c.rasters[key]; ok {
		c.mu.RUnlock()
		return r, nil
	}
	c.mu.RUnlock()

	r, err := LoadRaster(path, keepAlpha)
	if err != nil {
		return Raster{}, err
	}

	c.mu.Lock()
	c.rasters[key] = r
	c.mu.Unlock()

	return r, nil
}

// Len returns the number of cached rasters.
func (c *RasterCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rasters)
}

// Clear removes all rasters from the cache.
func (c *RasterCache) Clear() {
	c.mu.Lock()
	c.rasters = make(map[cacheKey]Raster)
	c.mu.Unlock()
}
