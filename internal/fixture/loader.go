package fixture

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"golang.org/x/sync/errgroup"

	"github.com/sdg-tools/crosswalk-cli/internal/geodata"
	"github.com/sdg-tools/crosswalk-cli/internal/record"
)

// RateSources names the four inputs of the growth-rate demo. The built-up
// layers may be GeoJSON sources or local .shp paths.
type RateSources struct {
	BuiltUpT    string
	BuiltUpTN   string
	AdminUnit   string
	Populations string
}

// Populations is the shape of populations.json.
type Populations struct {
	T            int     `json:"t"`
	TN           int     `json:"t_n"`
	PopulationT  float64 `json:"population_t"`
	PopulationTN float64 `json:"population_tn"`
}

// RateInputs is the joined result of loading all four fixtures.
type RateInputs struct {
	AreaT       float64
	AreaTN      float64
	Boundary    *geojson.FeatureCollection
	Populations Populations
}

// LoadRateInputs loads the four fixtures as independent operations joined
// with an errgroup: the first failure fails the whole load and the partial
// results are discarded.
func (f *Fetcher) LoadRateInputs(ctx context.Context, src RateSources) (*RateInputs, error) {
	var in RateInputs

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		area, err := f.loadArea(ctx, src.BuiltUpT)
		if err != nil {
			return err
		}
		in.AreaT = area
		return nil
	})

	g.Go(func() error {
		area, err := f.loadArea(ctx, src.BuiltUpTN)
		if err != nil {
			return err
		}
		in.AreaTN = area
		return nil
	})

	g.Go(func() error {
		data, err := f.Read(ctx, src.AdminUnit)
		if err != nil {
			return err
		}
		fc, err := geodata.DecodeFeatureCollection(data)
		if err != nil {
			return err
		}
		in.Boundary = fc
		return nil
	})

	g.Go(func() error {
		data, err := f.Read(ctx, src.Populations)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &in.Populations); err != nil {
			return eris.Wrapf(err, "fixture: parse %s", src.Populations)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "fixture: load rate inputs")
	}
	return &in, nil
}

// loadArea computes the total built-up area of a polygon layer source.
func (f *Fetcher) loadArea(ctx context.Context, source string) (float64, error) {
	if strings.HasSuffix(strings.ToLower(source), ".shp") {
		return geodata.ShapefileArea(source)
	}

	data, err := f.Read(ctx, source)
	if err != nil {
		return 0, err
	}
	fc, err := geodata.DecodeFeatureCollection(data)
	if err != nil {
		return 0, err
	}
	return geodata.CollectionArea(fc), nil
}

// LoadCrosswalk loads a record collection fixture through the standard
// import rules (object coerced to one element, array used as-is).
func (f *Fetcher) LoadCrosswalk(ctx context.Context, source string) ([]record.Record, error) {
	data, err := f.Read(ctx, source)
	if err != nil {
		return nil, err
	}
	records, err := record.ImportCollection(data)
	if err != nil {
		return nil, eris.Wrapf(err, "fixture: parse %s", source)
	}
	return records, nil
}
