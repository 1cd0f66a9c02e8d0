package domain

import "github.com/paulmach/orb"

// ViewMode selects the shape of the records a viewport query returns.
type ViewMode string

const (
	// ViewPoint returns one [lon, lat] position per sounding.
	ViewPoint ViewMode = "point"
	// ViewPolygon returns the 4-corner ground footprint per sounding.
	ViewPolygon ViewMode = "polygon"
)

// ViewportQuery describes one map viewport request. Bounds is kept exactly
// as the caller supplied it; an inverted box simply matches nothing.
// StartDate and EndDate are inclusive "YYYY-MM-DD" strings, empty when the
// corresponding end of the range is open.
type ViewportQuery struct {
	Bounds    orb.Bound
	Zoom      float64
	Mode      ViewMode
	StartDate string
	EndDate   string
}

// DateFiltered reports whether the query constrains acquisition dates at all.
func (q ViewportQuery) DateFiltered() bool {
	return q.StartDate != "" || q.EndDate != ""
}
