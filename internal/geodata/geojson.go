package geodata

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// DecodeFeatureCollection parses GeoJSON bytes into a FeatureCollection.
func DecodeFeatureCollection(data []byte) (*geojson.FeatureCollection, error) {
	var fc geojson.FeatureCollection
	if err := fc.UnmarshalJSON(data); err != nil {
		return nil, eris.Wrap(err, "geodata: decode feature collection")
	}
	return &fc, nil
}

// CollectionArea sums the geodesic area of every feature in the collection,
// in square meters. Non-polygonal features contribute zero.
func CollectionArea(fc *geojson.FeatureCollection) float64 {
	var total float64
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		total += GeometryArea(f.Geometry)
	}
	return total
}
