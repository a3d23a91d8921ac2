// Package rates computes annualized urban-growth indicators from paired
// built-up area and population measurements: the Land Consumption Rate
// (LCR), the Population Growth Rate (PGR) and their ratio.
package rates

import "math"

// Inputs holds the two measurement points. Areas are square meters.
type Inputs struct {
	AreaT  float64 `json:"area_t"`
	AreaTN float64 `json:"area_tn"`
	YearT  int     `json:"t"`
	YearTN int     `json:"t_n"`
	PopT   float64 `json:"population_t"`
	PopTN  float64 `json:"population_tn"`
}

// Stats is the computed indicator set. A nil field means the indicator is
// undefined for the given inputs (non-positive measurement or zero PGR);
// undefined is absence, never zero.
type Stats struct {
	Years int      `json:"years"`
	LCR   *float64 `json:"lcr,omitempty"`
	PGR   *float64 `json:"pgr,omitempty"`
	Ratio *float64 `json:"ratio,omitempty"`
}

// Compute derives the annualized logarithmic growth rates. Elapsed years
// are clamped to a floor of one, so a zero or negative interval never
// divides by zero. Non-positive areas or populations leave the affected
// indicator undefined rather than raising an error.
func Compute(in Inputs) Stats {
	years := in.YearTN - in.YearT
	if years < 1 {
		years = 1
	}

	out := Stats{Years: years}

	if in.AreaT > 0 && in.AreaTN > 0 {
		lcr := math.Log(in.AreaTN/in.AreaT) / float64(years)
		out.LCR = &lcr
	}
	if in.PopT > 0 && in.PopTN > 0 {
		pgr := math.Log(in.PopTN/in.PopT) / float64(years)
		out.PGR = &pgr
	}
	if out.LCR != nil && out.PGR != nil && *out.PGR != 0 {
		ratio := *out.LCR / *out.PGR
		out.Ratio = &ratio
	}

	return out
}
