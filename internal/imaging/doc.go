// Package imaging provides the raster handle and the resize engine.
//
// A Raster wraps a decoded 8-bit image. Sources are loaded without alpha;
// watermarks keep theirs. Rasters are never modified in place by this
// package: orientation correction and Transform both return new buffers.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner. Crop
// regions are half-open rectangles: Min is inclusive and Max is exclusive.
//
// # Resize Pipeline
//
// A resize runs in two steps:
//
//  1. ComputeGeometry turns the source size and the requested mode, bounds
//     and gravity into a crop region and an output size. Requests over
//     MaxPixels are rejected here, before any buffer is allocated.
//  2. Transform crops, optionally pre-blurs, resamples, optionally sharpens
//     and optionally watermarks.
//
// Encode, EncodeBytes and EncodeFile write the result as JPEG, PNG, GIF, TIFF
// or BMP.
//
// # Thread Safety
//
// RasterCache is safe for concurrent use. Rasters may be read concurrently;
// callers that need to modify pixels must Clone first.
package imaging
