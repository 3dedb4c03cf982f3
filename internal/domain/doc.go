// Package domain models USGS earthquake events and the rules for drawing them.
//
// # Data Sources
//
// Earthquakes come from the USGS real-time summary feed, by default
// https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson,
// a GeoJSON FeatureCollection regenerated every minute. Plate boundaries come
// from the PB2002 model (Bird, 2003) as published in GeoJSON by
// https://github.com/fraxen/tectonicplates.
//
// # USGS Feed Conventions
//
// Geometry:
//
//	Point [longitude, latitude, depth_km]. Depth is positive down.
//
// Properties used here:
//
//	mag      float or null; null for events still under review
//	place    human-readable description, e.g. "10 km SSW of Idyllwild, CA"
//	time     event origin time, milliseconds since the Unix epoch
//	updated  last revision time, milliseconds since the Unix epoch
//	magType  magnitude algorithm: ml, md, mb, mww, ...
//	type     "earthquake", "quarry blast", "explosion", ...
//
// Magnitudes are not bounded. Small local events are routinely reported with
// negative magnitudes (down to about -2), and the largest recorded event was
// 9.5. A null or non-numeric magnitude is rejected at parse time; the record
// is skipped rather than drawn with a guessed size.
//
// # Marker Styling
//
// Color buckets (first match from the top wins):
//
//	>= 5   #ff0000  red
//	>= 4   #e7552c  orange-red
//	>= 3   #ff8000  orange
//	>= 2   #ffff00  yellow
//	>= 1   #adff2f  yellow-green
//	else   #00ff00  green (negative magnitudes included)
//
// Radius is magnitude × 5 pixels, clamped to zero for negative magnitudes.
// The legend is built from the same [BreakpointTable] the colors come from,
// via a shared [Styler].
package domain
