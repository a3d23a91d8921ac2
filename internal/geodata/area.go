// Package geodata derives area measurements from GeoJSON and shapefile
// polygon layers for the growth-rate indicators.
package geodata

import (
	"math"

	"github.com/twpayne/go-geom"
)

// wgs84Radius is the WGS84 equatorial radius in meters.
const wgs84Radius = 6378137.0

// GeometryArea returns the geodesic area of a geometry in square meters.
// Coordinates are assumed to be lon/lat degrees (EPSG:4326). Points and
// lines have zero area.
func GeometryArea(g geom.T) float64 {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonArea(t.Coords())
	case *geom.MultiPolygon:
		var total float64
		for _, poly := range t.Coords() {
			total += polygonArea(poly)
		}
		return total
	case *geom.GeometryCollection:
		var total float64
		for _, sub := range t.Geoms() {
			total += GeometryArea(sub)
		}
		return total
	default:
		return 0
	}
}

// polygonArea is the outer ring's area minus any interior rings.
func polygonArea(rings [][]geom.Coord) float64 {
	if len(rings) == 0 {
		return 0
	}
	area := math.Abs(ringArea(rings[0]))
	for _, hole := range rings[1:] {
		area -= math.Abs(ringArea(hole))
	}
	if area < 0 {
		return 0
	}
	return area
}

// ringArea computes the signed spherical area of a ring using the
// Chamberlain & Duquette algorithm (the same one turf.js and most GIS
// toolkits use for geodesic area on unprojected coordinates).
func ringArea(coords []geom.Coord) float64 {
	n := len(coords)
	if n <= 2 {
		return 0
	}

	var total float64
	for i := 0; i < n; i++ {
		lower := coords[i]
		middle := coords[(i+1)%n]
		upper := coords[(i+2)%n]
		total += (radians(upper[0]) - radians(lower[0])) * math.Sin(radians(middle[1]))
	}
	return total * wgs84Radius * wgs84Radius / 2
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
