package domain

import (
	"fmt"
	"time"
)

// FootprintVertices is the number of corners in a sounding footprint.
const FootprintVertices = 4

// Granule holds the decoded columns of one source file. All slices are
// parallel: index i across every column describes the same sounding.
// Vertex columns are nil when the granule was read without footprints.
type Granule struct {
	Latitude        []float64
	Longitude       []float64
	XCO2            []float64
	QualityFlag     []int
	SoundingID      []int64
	VertexLatitude  [][FootprintVertices]float64
	VertexLongitude [][FootprintVertices]float64
}

// Len returns the number of soundings in the granule.
func (g *Granule) Len() int {
	return len(g.SoundingID)
}

// Validate checks that every column present has the same length, so
// positional indexing cannot run past a short column mid-scan.
func (g *Granule) Validate(withFootprints bool) error {
	n := g.Len()
	cols := map[string]int{
		"latitude":     len(g.Latitude),
		"longitude":    len(g.Longitude),
		"xco2":         len(g.XCO2),
		"quality_flag": len(g.QualityFlag),
	}
	if withFootprints {
		cols["vertex_latitude"] = len(g.VertexLatitude)
		cols["vertex_longitude"] = len(g.VertexLongitude)
	}
	for name, l := range cols {
		if l != n {
			return fmt.Errorf("column %s has %d entries, sounding_id has %d", name, l, n)
		}
	}
	return nil
}

// GranuleInfo is catalog metadata for one granule, cheap to gather
// without decoding the data columns.
type GranuleInfo struct {
	Name          string    `json:"name"`
	SizeBytes     int64     `json:"size_bytes"`
	ModTime       time.Time `json:"mod_time"`
	Soundings     int       `json:"soundings"`
	HasFootprints bool      `json:"has_footprints"`
}

// CatalogStats aggregates the collection for dashboards and readiness.
type CatalogStats struct {
	Granules          int       `json:"granules"`
	Soundings         int64     `json:"soundings"`
	SizeBytes         int64     `json:"size_bytes"`
	FootprintGranules int       `json:"footprint_granules"`
	LastRefresh       time.Time `json:"last_refresh"`
}
