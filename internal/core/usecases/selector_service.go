package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/calvales/co2scope/internal/core/domain"
	"github.com/calvales/co2scope/internal/core/ports"
	"github.com/calvales/co2scope/internal/pkg/telemetry"
)

// SelectorConfig holds the zoom thresholds and value bounds that drive
// viewport selection. It is fixed at construction time.
type SelectorConfig struct {
	// GridVisibleZoom is the minimum zoom at which footprint polygons are
	// rendered at all.
	GridVisibleZoom float64
	// DensePointsZoom is the zoom at which point mode stops subsampling.
	DensePointsZoom float64
	// SparseStride keeps every Nth passing sounding below DensePointsZoom.
	SparseStride int
	// XCO2Min and XCO2Max bound the plausible concentration band in ppm.
	XCO2Min float64
	XCO2Max float64
}

// DefaultSelectorConfig matches the thresholds the map client was tuned
// against.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		GridVisibleZoom: 4,
		DensePointsZoom: 4,
		SparseStride:    20,
		XCO2Min:         380,
		XCO2Max:         420,
	}
}

// SelectorService answers viewport queries by scanning every granule in
// the collection, one at a time, on the calling goroutine.
type SelectorService struct {
	granules ports.GranuleSource
	cfg      SelectorConfig
}

func NewSelectorService(granules ports.GranuleSource, cfg SelectorConfig) *SelectorService {
	if cfg.SparseStride < 1 {
		cfg.SparseStride = 1
	}
	return &SelectorService{granules: granules, cfg: cfg}
}

// Config returns the thresholds the service was built with.
func (s *SelectorService) Config() SelectorConfig {
	return s.cfg
}

// Select runs one full scan for a viewport query. A granule that fails to
// decode is logged, recorded in the selection's Skipped list and does not
// disturb the records gathered from the others. Only failures that
// prevent the scan from starting at all surface as an error.
func (s *SelectorService) Select(ctx context.Context, q domain.ViewportQuery) (*domain.Selection, error) {
	ctx, span := otel.Tracer("co2scope/selector").Start(ctx, "selector.Select",
		trace.WithAttributes(
			attribute.Float64Slice("bounds", []float64{q.Bounds.Min[0], q.Bounds.Min[1], q.Bounds.Max[0], q.Bounds.Max[1]}),
			attribute.Float64("zoom", q.Zoom),
			attribute.String("mode", string(q.Mode)),
		))
	defer span.End()

	slog.Info("processing viewport query",
		"zoom", q.Zoom,
		"mode", q.Mode,
		"start_date", q.StartDate,
		"end_date", q.EndDate)

	sel := &domain.Selection{}

	// Footprints are invisible this far out, so skip the scan entirely.
	if q.Mode == domain.ViewPolygon && q.Zoom < s.cfg.GridVisibleZoom {
		slog.Info("zoom below footprint threshold", "zoom", q.Zoom, "threshold", s.cfg.GridVisibleZoom)
		return sel, nil
	}

	paths, err := s.granules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list granules: %w", err)
	}

	for _, path := range paths {
		var (
			recs []domain.SoundingRecord
			err  error
		)
		if q.Mode == domain.ViewPolygon {
			recs, err = s.footprintsFromGranule(ctx, path, q)
		} else {
			recs, err = s.pointsFromGranule(ctx, path, q)
		}
		sel.Scanned++
		if err != nil {
			slog.Error("error processing granule", "granule", path, "error", err)
			sel.Skipped = append(sel.Skipped, domain.GranuleError{Granule: path, Err: err})
			continue
		}
		sel.Records = append(sel.Records, recs...)
	}

	servedAttr := telemetry.AttrSoundingsServed
	if q.Mode == domain.ViewPolygon {
		servedAttr = telemetry.AttrFootprintsServed
	}
	span.SetAttributes(
		attribute.Int(servedAttr, len(sel.Records)),
		attribute.Int(telemetry.AttrGranulesScanned, sel.Scanned),
		attribute.Int(telemetry.AttrGranulesSkipped, len(sel.Skipped)),
	)
	slog.Info("selection complete",
		"mode", q.Mode,
		"records", len(sel.Records),
		"granules", sel.Scanned,
		"skipped", len(sel.Skipped))
	return sel, nil
}

// pointsFromGranule extracts point records from one granule. Below the
// dense-points zoom the passing soundings are strided first and the
// viewport check runs per sampled sounding afterwards, so a sampled
// sounding outside the viewport is dropped rather than replaced by a
// neighbour. At dense zooms the viewport check joins the filter chain and
// every survivor is returned.
func (s *SelectorService) pointsFromGranule(ctx context.Context, path string, q domain.ViewportQuery) ([]domain.SoundingRecord, error) {
	g, err := s.granules.Read(ctx, path, false)
	if err != nil {
		return nil, err
	}

	stride := 1
	deferBounds := false
	if q.Zoom < s.cfg.DensePointsZoom {
		stride = s.cfg.SparseStride
		deferBounds = true
	}

	var recs []domain.SoundingRecord
	kept := 0
	for i := 0; i < g.Len(); i++ {
		if !s.passes(g, i, q) {
			continue
		}
		if !deferBounds && !q.Bounds.Contains(orb.Point{g.Longitude[i], g.Latitude[i]}) {
			continue
		}
		sampled := kept%stride == 0
		kept++
		if !sampled {
			continue
		}
		if deferBounds && !q.Bounds.Contains(orb.Point{g.Longitude[i], g.Latitude[i]}) {
			continue
		}
		recs = append(recs, domain.SoundingRecord{
			Position:   orb.Point{g.Longitude[i], g.Latitude[i]},
			XCO2:       g.XCO2[i],
			SoundingID: strconv.FormatInt(g.SoundingID[i], 10),
		})
	}
	return recs, nil
}

// footprintsFromGranule extracts polygon records from one granule. Every
// passing sounding is returned; there is no subsampling in polygon mode.
func (s *SelectorService) footprintsFromGranule(ctx context.Context, path string, q domain.ViewportQuery) ([]domain.SoundingRecord, error) {
	g, err := s.granules.Read(ctx, path, true)
	if err != nil {
		return nil, err
	}

	var recs []domain.SoundingRecord
	for i := 0; i < g.Len(); i++ {
		if !s.passes(g, i, q) {
			continue
		}
		if !q.Bounds.Contains(orb.Point{g.Longitude[i], g.Latitude[i]}) {
			continue
		}
		fp := domain.Footprint{}
		for v := 0; v < domain.FootprintVertices; v++ {
			fp[v] = orb.Point{g.VertexLongitude[i][v], g.VertexLatitude[i][v]}
		}
		recs = append(recs, domain.SoundingRecord{
			Position:   orb.Point{g.Longitude[i], g.Latitude[i]},
			Vertices:   &fp,
			XCO2:       g.XCO2[i],
			SoundingID: strconv.FormatInt(g.SoundingID[i], 10),
		})
	}
	return recs, nil
}

// passes applies the quality, concentration and date predicates shared by
// both modes.
func (s *SelectorService) passes(g *domain.Granule, i int, q domain.ViewportQuery) bool {
	if g.QualityFlag[i] != 0 {
		return false
	}
	if g.XCO2[i] < s.cfg.XCO2Min || g.XCO2[i] > s.cfg.XCO2Max {
		return false
	}
	if q.DateFiltered() && !dateInRange(g.SoundingID[i], q.StartDate, q.EndDate) {
		return false
	}
	return true
}

// dateInRange compares the sounding's derived date against an inclusive
// range. A sounding whose id carries no usable date never matches once a
// range is given.
func dateInRange(id int64, start, end string) bool {
	date, ok := domain.SoundingDate(id)
	if !ok {
		return false
	}
	if start != "" && date < start {
		return false
	}
	if end != "" && date > end {
		return false
	}
	return true
}
