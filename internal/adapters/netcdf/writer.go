package netcdf

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"

	"github.com/calvales/co2scope/internal/core/domain"
)

// WriteGranule writes g to path as a classic-format NetCDF file laid out
// the way Read expects it back: lat/lon/ids as doubles, xco2 as float,
// quality flags as short. Footprint columns are written only when g
// carries them.
func WriteGranule(path string, g *domain.Granule) error {
	withFootprints := len(g.VertexLatitude) > 0 || len(g.VertexLongitude) > 0
	if err := g.Validate(withFootprints); err != nil {
		return fmt.Errorf("granule columns: %w", err)
	}
	n := g.Len()

	dims := []string{dimSounding}
	lengths := []int{n}
	if withFootprints {
		dims = append(dims, dimVertex)
		lengths = append(lengths, domain.FootprintVertices)
	}
	h := cdf.NewHeader(dims, lengths)
	h.AddAttribute("", "title", "ACOS bias-corrected XCO2 soundings")

	h.AddVariable(varLatitude, []string{dimSounding}, []float64{0})
	h.AddAttribute(varLatitude, "units", "degrees_north")
	h.AddVariable(varLongitude, []string{dimSounding}, []float64{0})
	h.AddAttribute(varLongitude, "units", "degrees_east")
	h.AddVariable(varXCO2, []string{dimSounding}, []float32{0})
	h.AddAttribute(varXCO2, "units", "ppm")
	h.AddVariable(varQualityFlag, []string{dimSounding}, []int16{0})
	h.AddVariable(varSoundingID, []string{dimSounding}, []float64{0})
	if withFootprints {
		h.AddVariable(varVertexLatitude, []string{dimSounding, dimVertex}, []float64{0})
		h.AddAttribute(varVertexLatitude, "units", "degrees_north")
		h.AddVariable(varVertexLongitude, []string{dimSounding, dimVertex}, []float64{0})
		h.AddAttribute(varVertexLongitude, "units", "degrees_east")
	}
	h.Define()

	ff, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create granule: %w", err)
	}
	defer ff.Close()

	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	xco2 := make([]float32, n)
	for i, v := range g.XCO2 {
		xco2[i] = float32(v)
	}
	quality := make([]int16, n)
	for i, v := range g.QualityFlag {
		quality[i] = int16(v)
	}
	ids := make([]float64, n)
	for i, v := range g.SoundingID {
		ids[i] = float64(v)
	}

	if err := writeColumn(f, varLatitude, g.Latitude); err != nil {
		return err
	}
	if err := writeColumn(f, varLongitude, g.Longitude); err != nil {
		return err
	}
	if err := writeColumn(f, varXCO2, xco2); err != nil {
		return err
	}
	if err := writeColumn(f, varQualityFlag, quality); err != nil {
		return err
	}
	if err := writeColumn(f, varSoundingID, ids); err != nil {
		return err
	}
	if withFootprints {
		if err := writeColumn(f, varVertexLatitude, flattenVertices(g.VertexLatitude)); err != nil {
			return err
		}
		if err := writeColumn(f, varVertexLongitude, flattenVertices(g.VertexLongitude)); err != nil {
			return err
		}
	}

	if err := cdf.UpdateNumRecs(ff); err != nil {
		return fmt.Errorf("finalize granule: %w", err)
	}
	return nil
}

func writeColumn(f *cdf.File, name string, data interface{}) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %q: %w", name, err)
	}
	return nil
}

func flattenVertices(rows [][domain.FootprintVertices]float64) []float64 {
	out := make([]float64, 0, len(rows)*domain.FootprintVertices)
	for i := range rows {
		out = append(out, rows[i][:]...)
	}
	return out
}
