package netcdf

import (
	"fmt"
	"math"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/calvales/co2scope/internal/core/domain"
)

// Variable and dimension names used in the granule files. The layout
// follows the ACOS/OCO-2 lite product: one record per retained sounding,
// footprint corners on a second dimension of length 4.
const (
	varLatitude        = "latitude"
	varLongitude       = "longitude"
	varXCO2            = "xco2"
	varQualityFlag     = "xco2_quality_flag"
	varSoundingID      = "sounding_id"
	varVertexLatitude  = "vertex_latitude"
	varVertexLongitude = "vertex_longitude"

	dimSounding = "sounding_id"
	dimVertex   = "vertices"
)

func hasVariable(f *cdf.File, name string) bool {
	for _, v := range f.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

// readColumn decodes one variable into a dense float64 array regardless of
// the on-disk type (the files mix double, float and short).
func readColumn(f *cdf.File, name string) (*sparse.DenseArray, error) {
	if !hasVariable(f, name) {
		return nil, fmt.Errorf("variable %q not present", name)
	}
	dims := f.Header.Lengths(name)
	n := 1
	for _, d := range dims {
		n *= d
	}
	r := f.Reader(name, nil, nil)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("read %q: %w", name, err)
	}
	arr := sparse.ZerosDense(dims...)
	if err := fillDense(arr, buf); err != nil {
		return nil, fmt.Errorf("decode %q: %w", name, err)
	}
	return arr, nil
}

func fillDense(arr *sparse.DenseArray, buf interface{}) error {
	switch v := buf.(type) {
	case []float64:
		copy(arr.Elements, v)
	case []float32:
		for i, e := range v {
			arr.Elements[i] = float64(e)
		}
	case []int32:
		for i, e := range v {
			arr.Elements[i] = float64(e)
		}
	case []int16:
		for i, e := range v {
			arr.Elements[i] = float64(e)
		}
	case []int8:
		for i, e := range v {
			arr.Elements[i] = float64(e)
		}
	case []byte:
		for i, e := range v {
			arr.Elements[i] = float64(e)
		}
	default:
		return fmt.Errorf("unsupported element type %T", buf)
	}
	return nil
}

func intColumn(arr *sparse.DenseArray) []int {
	out := make([]int, len(arr.Elements))
	for i, e := range arr.Elements {
		out[i] = int(math.Round(e))
	}
	return out
}

// int64Column recovers integer sounding ids stored as doubles. Ids are 16
// decimal digits, well inside float64's exact integer range.
func int64Column(arr *sparse.DenseArray) []int64 {
	out := make([]int64, len(arr.Elements))
	for i, e := range arr.Elements {
		out[i] = int64(math.Round(e))
	}
	return out
}

func vertexRows(arr *sparse.DenseArray) ([][domain.FootprintVertices]float64, error) {
	if len(arr.Shape) != 2 || arr.Shape[1] != domain.FootprintVertices {
		return nil, fmt.Errorf("vertex array has shape %v, want (n, %d)", arr.Shape, domain.FootprintVertices)
	}
	rows := make([][domain.FootprintVertices]float64, arr.Shape[0])
	for i := range rows {
		copy(rows[i][:], arr.Elements[i*domain.FootprintVertices:(i+1)*domain.FootprintVertices])
	}
	return rows, nil
}
