package geodata

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// ShapefileArea opens a shapefile and sums the geodesic area of its polygon
// shapes in square meters. Non-polygon shapes are skipped.
func ShapefileArea(path string) (float64, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "geodata: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	var total float64
	for reader.Next() {
		_, shape := reader.Shape()
		g := shapeGeometry(shape)
		if g == nil {
			continue
		}
		total += GeometryArea(g)
	}
	return total, nil
}

// shapeGeometry converts a go-shp shape to a go-geom geometry. Only polygon
// shapes are supported; anything else returns nil. Shapefile exterior rings
// wind clockwise and interior (hole) rings counter-clockwise, so each
// clockwise part starts a new polygon and following counter-clockwise parts
// attach to it as holes.
func shapeGeometry(shape shp.Shape) geom.T {
	p, ok := shape.(*shp.Polygon)
	if !ok || p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	var cur *geom.Polygon
	flush := func() {
		if cur == nil || cur.NumLinearRings() == 0 {
			cur = nil
			return
		}
		if err := mp.Push(cur); err != nil {
			zap.L().Debug("geodata: skipping malformed polygon part", zap.Error(err))
		}
		cur = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		if cur == nil || !ringIsHole(flat) {
			flush()
			cur = geom.NewPolygon(geom.XY)
		}
		if err := cur.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("geodata: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// ringIsHole reports counter-clockwise winding via the planar shoelace sum,
// which is positive for counter-clockwise rings.
func ringIsHole(flat []float64) bool {
	n := len(flat) / 2
	if n < 3 {
		return false
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += flat[2*i]*flat[2*j+1] - flat[2*j]*flat[2*i+1]
	}
	return sum > 0
}
