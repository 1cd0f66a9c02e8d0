package domain

import (
	"strconv"

	"github.com/paulmach/orb"
)

// Footprint is the 4-corner ground polygon a sounding's measurement covers,
// ordered bottom-left, bottom-right, top-right, top-left. Each corner is an
// orb.Point, i.e. [lon, lat].
type Footprint [4]orb.Point

// SoundingRecord is one observation projected for the map client.
// Vertices is only populated in polygon (footprint) mode.
type SoundingRecord struct {
	Position   orb.Point  `json:"position"`
	Vertices   *Footprint `json:"vertices,omitempty"`
	XCO2       float64    `json:"xco2"`
	SoundingID string     `json:"sounding_id"`
}

// Selection is the outcome of one full scan of the granule collection:
// the concatenated records plus per-granule failures that were skipped.
type Selection struct {
	Records []SoundingRecord
	Skipped []GranuleError
	Scanned int
}

// GranuleError records a granule that failed to contribute to a selection.
type GranuleError struct {
	Granule string
	Err     error
}

func (e GranuleError) Error() string {
	return e.Granule + ": " + e.Err.Error()
}

func (e GranuleError) Unwrap() error {
	return e.Err
}

// SoundingDate derives the acquisition date ("YYYY-MM-DD") from a sounding
// id whose decimal form starts with YYYYMMDD. Ids shorter than 14 digits
// carry no usable date and report ok=false.
func SoundingDate(id int64) (date string, ok bool) {
	s := strconv.FormatInt(id, 10)
	if len(s) < 14 {
		return "", false
	}
	return s[0:4] + "-" + s[4:6] + "-" + s[6:8], true
}
