package crosstab

import (
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
)

// Routing splits the configured fields between the axis trees and the
// per-cell facet.
type Routing struct {
	NestRows      []pivot.Field
	NestColumns   []pivot.Field
	Facets        []pivot.Field   // dimensions laid out inside a cell
	FacetMeasures []pivot.Measure // measures fetched for each cell
	ViewMeasures  []pivot.Measure // measures drawn by each cell
}

// DeriveAxisRouting decides the routing for vis. Number views nest every
// column; chart views move the last column into the cell as a facet, and a
// scatter view draws only the last measure.
func DeriveAxisRouting(vis pivot.VisType, rows, columns []pivot.Field, measures []pivot.Measure) Routing {
	r := Routing{
		NestRows:      rows,
		NestColumns:   columns,
		FacetMeasures: measures,
		ViewMeasures:  measures,
	}
	if !vis.IsList() {
		return r
	}
	if n := len(columns); n > 0 {
		r.NestColumns = columns[:n-1]
		r.Facets = columns[n-1:]
	}
	if vis == pivot.VisScatter && len(measures) > 0 {
		r.ViewMeasures = measures[len(measures)-1:]
	}
	return r
}
