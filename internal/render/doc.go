// Package render rasterizes SVG icons into deterministic square images and
// derives ink signatures from them for near-duplicate scoring.
//
// Every raster is flattened onto an opaque white square so cloud and local
// providers see visually comparable input. Signatures crop each raster to
// its ink before sampling, so thin-stroke icons are compared by their marks
// rather than by the white space around them.
package render
