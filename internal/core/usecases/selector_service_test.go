package usecases_test

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"testing"

	"github.com/paulmach/orb"

	"github.com/calvales/co2scope/internal/core/domain"
	"github.com/calvales/co2scope/internal/core/usecases"
)

// --- Mock GranuleSource ---

type mockGranuleSource struct {
	listFn func(ctx context.Context) ([]string, error)
	readFn func(ctx context.Context, path string, withFootprints bool) (*domain.Granule, error)
	statFn func(ctx context.Context, path string) (*domain.GranuleInfo, error)
	pingFn func(ctx context.Context) error
}

func (m *mockGranuleSource) List(ctx context.Context) ([]string, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockGranuleSource) Read(ctx context.Context, path string, withFootprints bool) (*domain.Granule, error) {
	if m.readFn != nil {
		return m.readFn(ctx, path, withFootprints)
	}
	return nil, fmt.Errorf("no granule %s", path)
}

func (m *mockGranuleSource) Stat(ctx context.Context, path string) (*domain.GranuleInfo, error) {
	if m.statFn != nil {
		return m.statFn(ctx, path)
	}
	return nil, fmt.Errorf("no granule %s", path)
}

func (m *mockGranuleSource) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

// --- Fixtures ---

const baseID = int64(2015010100000000)

type soundingRow struct {
	lat, lon, xco2 float64
	quality        int
	id             int64
}

func granuleOf(rows ...soundingRow) *domain.Granule {
	g := &domain.Granule{}
	for _, r := range rows {
		g.Latitude = append(g.Latitude, r.lat)
		g.Longitude = append(g.Longitude, r.lon)
		g.XCO2 = append(g.XCO2, r.xco2)
		g.QualityFlag = append(g.QualityFlag, r.quality)
		g.SoundingID = append(g.SoundingID, r.id)
	}
	return g
}

// granuleWithFootprints adds square footprints around each position,
// corners ordered bottom-left, bottom-right, top-right, top-left.
func granuleWithFootprints(rows ...soundingRow) *domain.Granule {
	g := granuleOf(rows...)
	const d = 0.05
	for _, r := range rows {
		g.VertexLatitude = append(g.VertexLatitude,
			[domain.FootprintVertices]float64{r.lat - d, r.lat - d, r.lat + d, r.lat + d})
		g.VertexLongitude = append(g.VertexLongitude,
			[domain.FootprintVertices]float64{r.lon - d, r.lon + d, r.lon + d, r.lon - d})
	}
	return g
}

func fixedSource(granules map[string]*domain.Granule, order ...string) *mockGranuleSource {
	return &mockGranuleSource{
		listFn: func(ctx context.Context) ([]string, error) {
			return order, nil
		},
		readFn: func(ctx context.Context, path string, withFootprints bool) (*domain.Granule, error) {
			g, ok := granules[path]
			if !ok {
				return nil, fmt.Errorf("no granule %s", path)
			}
			return g, nil
		},
	}
}

func box(minLon, minLat, maxLon, maxLat float64) orb.Bound {
	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}
}

func pointQuery(zoom float64, b orb.Bound) domain.ViewportQuery {
	return domain.ViewportQuery{Bounds: b, Zoom: zoom, Mode: domain.ViewPoint}
}

func newSelector(src *mockGranuleSource) *usecases.SelectorService {
	return usecases.NewSelectorService(src, usecases.DefaultSelectorConfig())
}

// --- Tests ---

func TestSelectorService_PointMode_FiltersQuality(t *testing.T) {
	g := granuleOf(
		soundingRow{lat: 10, lon: 10, xco2: 400, quality: 0, id: baseID + 1},
		soundingRow{lat: 11, lon: 11, xco2: 410, quality: 1, id: baseID + 2},
	)
	src := fixedSource(map[string]*domain.Granule{"a.nc4": g}, "a.nc4")

	sel, err := newSelector(src).Select(context.Background(), pointQuery(10, box(0, 0, 20, 20)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sel.Records))
	}
	rec := sel.Records[0]
	if rec.XCO2 != 400 {
		t.Errorf("expected xco2 400, got %v", rec.XCO2)
	}
	if rec.Position != (orb.Point{10, 10}) {
		t.Errorf("expected position [10 10], got %v", rec.Position)
	}
	if rec.SoundingID != strconv.FormatInt(baseID+1, 10) {
		t.Errorf("expected sounding id %d, got %s", baseID+1, rec.SoundingID)
	}
	if rec.Vertices != nil {
		t.Error("point mode record should carry no vertices")
	}
}

func TestSelectorService_PointMode_SparseZoomKeepsFirstSample(t *testing.T) {
	g := granuleOf(
		soundingRow{lat: 10, lon: 10, xco2: 400, quality: 0, id: baseID + 1},
		soundingRow{lat: 11, lon: 11, xco2: 410, quality: 1, id: baseID + 2},
	)
	src := fixedSource(map[string]*domain.Granule{"a.nc4": g}, "a.nc4")

	sel, err := newSelector(src).Select(context.Background(), pointQuery(2, box(0, 0, 20, 20)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sel.Records))
	}
	if sel.Records[0].SoundingID != strconv.FormatInt(baseID+1, 10) {
		t.Errorf("expected the passing sounding, got %s", sel.Records[0].SoundingID)
	}
}

func TestSelectorService_PolygonMode_HiddenBelowThreshold(t *testing.T) {
	listCalled := false
	readCalled := false
	src := &mockGranuleSource{
		listFn: func(ctx context.Context) ([]string, error) {
			listCalled = true
			return []string{"a.nc4"}, nil
		},
		readFn: func(ctx context.Context, path string, withFootprints bool) (*domain.Granule, error) {
			readCalled = true
			return granuleWithFootprints(soundingRow{lat: 10, lon: 10, xco2: 400, id: baseID + 1}), nil
		},
	}

	q := domain.ViewportQuery{Bounds: box(0, 0, 20, 20), Zoom: 2, Mode: domain.ViewPolygon}
	sel, err := newSelector(src).Select(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 0 {
		t.Fatalf("expected empty selection, got %d records", len(sel.Records))
	}
	if listCalled || readCalled {
		t.Error("no granule should be touched below the footprint zoom threshold")
	}
}

func TestSelectorService_DateRange(t *testing.T) {
	jan1 := int64(2015010112345678)
	jan2 := int64(2015010212345678)
	g := granuleOf(
		soundingRow{lat: 10, lon: 10, xco2: 400, id: jan1},
		soundingRow{lat: 11, lon: 11, xco2: 401, id: jan2},
	)
	src := fixedSource(map[string]*domain.Granule{"a.nc4": g}, "a.nc4")
	svc := newSelector(src)

	q := pointQuery(10, box(0, 0, 20, 20))
	q.StartDate, q.EndDate = "2015-01-01", "2015-01-01"
	sel, err := svc.Select(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sel.Records))
	}
	if sel.Records[0].SoundingID != strconv.FormatInt(jan1, 10) {
		t.Errorf("expected the Jan 1 sounding, got %s", sel.Records[0].SoundingID)
	}

	q.StartDate, q.EndDate = "", ""
	sel, err = svc.Select(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 2 {
		t.Fatalf("expected both records without a date range, got %d", len(sel.Records))
	}
}

func TestSelectorService_DateRange_ShortIDNeverMatches(t *testing.T) {
	g := granuleOf(
		soundingRow{lat: 10, lon: 10, xco2: 400, id: 12345},
		soundingRow{lat: 11, lon: 11, xco2: 401, id: baseID + 1},
	)
	src := fixedSource(map[string]*domain.Granule{"a.nc4": g}, "a.nc4")
	svc := newSelector(src)

	q := pointQuery(10, box(0, 0, 20, 20))
	sel, err := svc.Select(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 2 {
		t.Fatalf("expected both records without a date range, got %d", len(sel.Records))
	}

	q.StartDate = "2014-01-01"
	sel, err = svc.Select(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sel.Records))
	}
	if sel.Records[0].SoundingID != strconv.FormatInt(baseID+1, 10) {
		t.Errorf("short-id sounding should not match a dated query, got %s", sel.Records[0].SoundingID)
	}
}

func TestSelectorService_PointMode_StrideOverFilteredSet(t *testing.T) {
	rows := make([]soundingRow, 41)
	for i := range rows {
		rows[i] = soundingRow{lat: 1, lon: 1, xco2: 400, id: baseID + int64(i)}
	}
	src := fixedSource(map[string]*domain.Granule{"a.nc4": granuleOf(rows...)}, "a.nc4")

	sel, err := newSelector(src).Select(context.Background(), pointQuery(2, box(0, 0, 20, 20)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		strconv.FormatInt(baseID, 10),
		strconv.FormatInt(baseID+20, 10),
		strconv.FormatInt(baseID+40, 10),
	}
	var got []string
	for _, r := range sel.Records {
		got = append(got, r.SoundingID)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected samples %v, got %v", want, got)
	}
}

func TestSelectorService_PointMode_ViewportCheckedAfterSampling(t *testing.T) {
	// Sounding 0 passes every filter but sits outside the viewport. At a
	// sparse zoom it still occupies stride position 0, so it is sampled
	// and then dropped; the next sample is sounding 20, not sounding 1.
	rows := make([]soundingRow, 21)
	for i := range rows {
		rows[i] = soundingRow{lat: 1, lon: 1, xco2: 400, id: baseID + int64(i)}
	}
	rows[0].lon = 50
	src := fixedSource(map[string]*domain.Granule{"a.nc4": granuleOf(rows...)}, "a.nc4")

	sel, err := newSelector(src).Select(context.Background(), pointQuery(2, box(0, 0, 20, 20)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sel.Records))
	}
	if sel.Records[0].SoundingID != strconv.FormatInt(baseID+20, 10) {
		t.Errorf("expected sounding 20 to be the surviving sample, got %s", sel.Records[0].SoundingID)
	}
}

func TestSelectorService_PointMode_DenseZoomChecksViewportUpFront(t *testing.T) {
	rows := make([]soundingRow, 21)
	for i := range rows {
		rows[i] = soundingRow{lat: 1, lon: 1, xco2: 400, id: baseID + int64(i)}
	}
	rows[0].lon = 50
	src := fixedSource(map[string]*domain.Granule{"a.nc4": granuleOf(rows...)}, "a.nc4")

	sel, err := newSelector(src).Select(context.Background(), pointQuery(4, box(0, 0, 20, 20)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 20 {
		t.Fatalf("expected all 20 in-viewport records at a dense zoom, got %d", len(sel.Records))
	}
	if sel.Records[0].SoundingID != strconv.FormatInt(baseID+1, 10) {
		t.Errorf("expected sounding 1 first, got %s", sel.Records[0].SoundingID)
	}
}

func TestSelectorService_XCO2BandInclusive(t *testing.T) {
	g := granuleOf(
		soundingRow{lat: 1, lon: 1, xco2: 379.9, id: baseID + 1},
		soundingRow{lat: 1, lon: 2, xco2: 380, id: baseID + 2},
		soundingRow{lat: 1, lon: 3, xco2: 420, id: baseID + 3},
		soundingRow{lat: 1, lon: 4, xco2: 420.1, id: baseID + 4},
	)
	src := fixedSource(map[string]*domain.Granule{"a.nc4": g}, "a.nc4")

	sel, err := newSelector(src).Select(context.Background(), pointQuery(10, box(0, 0, 20, 20)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 2 {
		t.Fatalf("expected the 2 in-band records, got %d", len(sel.Records))
	}
	if sel.Records[0].XCO2 != 380 || sel.Records[1].XCO2 != 420 {
		t.Errorf("expected band edges 380 and 420, got %v and %v", sel.Records[0].XCO2, sel.Records[1].XCO2)
	}
}

func TestSelectorService_PolygonMode_BuildsFootprints(t *testing.T) {
	g := granuleWithFootprints(
		soundingRow{lat: 10, lon: 10, xco2: 400, id: baseID + 1},
		soundingRow{lat: 11, lon: 11, xco2: 410, quality: 2, id: baseID + 2},
	)
	src := fixedSource(map[string]*domain.Granule{"a.nc4": g}, "a.nc4")

	q := domain.ViewportQuery{Bounds: box(0, 0, 20, 20), Zoom: 4, Mode: domain.ViewPolygon}
	sel, err := newSelector(src).Select(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 1 {
		t.Fatalf("expected 1 footprint at the threshold zoom, got %d", len(sel.Records))
	}
	rec := sel.Records[0]
	if rec.Vertices == nil {
		t.Fatal("polygon mode record should carry vertices")
	}
	want := domain.Footprint{
		orb.Point{9.95, 9.95},
		orb.Point{10.05, 9.95},
		orb.Point{10.05, 10.05},
		orb.Point{9.95, 10.05},
	}
	if *rec.Vertices != want {
		t.Errorf("expected corners %v, got %v", want, *rec.Vertices)
	}
	if rec.Position != (orb.Point{10, 10}) {
		t.Errorf("expected position [10 10], got %v", rec.Position)
	}
}

func TestSelectorService_PolygonMode_NoSubsampling(t *testing.T) {
	rows := make([]soundingRow, 45)
	for i := range rows {
		rows[i] = soundingRow{lat: 1, lon: 1, xco2: 400, id: baseID + int64(i)}
	}
	src := fixedSource(map[string]*domain.Granule{"a.nc4": granuleWithFootprints(rows...)}, "a.nc4")

	q := domain.ViewportQuery{Bounds: box(0, 0, 20, 20), Zoom: 6, Mode: domain.ViewPolygon}
	sel, err := newSelector(src).Select(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 45 {
		t.Fatalf("expected all 45 footprints, got %d", len(sel.Records))
	}
}

func TestSelectorService_GranuleErrorSkipsGranule(t *testing.T) {
	good := granuleOf(soundingRow{lat: 10, lon: 10, xco2: 400, id: baseID + 1})
	src := &mockGranuleSource{
		listFn: func(ctx context.Context) ([]string, error) {
			return []string{"bad.nc4", "good.nc4"}, nil
		},
		readFn: func(ctx context.Context, path string, withFootprints bool) (*domain.Granule, error) {
			if path == "bad.nc4" {
				return nil, fmt.Errorf("truncated header")
			}
			return good, nil
		},
	}

	sel, err := newSelector(src).Select(context.Background(), pointQuery(10, box(0, 0, 20, 20)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 1 {
		t.Fatalf("expected the good granule's record, got %d records", len(sel.Records))
	}
	if sel.Scanned != 2 {
		t.Errorf("expected 2 granules scanned, got %d", sel.Scanned)
	}
	if len(sel.Skipped) != 1 || sel.Skipped[0].Granule != "bad.nc4" {
		t.Errorf("expected bad.nc4 in the skipped list, got %v", sel.Skipped)
	}
}

func TestSelectorService_ListErrorFails(t *testing.T) {
	src := &mockGranuleSource{
		listFn: func(ctx context.Context) ([]string, error) {
			return nil, fmt.Errorf("directory gone")
		},
	}

	_, err := newSelector(src).Select(context.Background(), pointQuery(10, box(0, 0, 20, 20)))
	if err == nil {
		t.Fatal("expected an error when the collection cannot be listed")
	}
}

func TestSelectorService_OrderFollowsGranuleOrder(t *testing.T) {
	a := granuleOf(
		soundingRow{lat: 1, lon: 1, xco2: 400, id: baseID + 1},
		soundingRow{lat: 1, lon: 2, xco2: 401, id: baseID + 2},
	)
	b := granuleOf(
		soundingRow{lat: 1, lon: 3, xco2: 402, id: baseID + 3},
	)
	src := fixedSource(map[string]*domain.Granule{"a.nc4": a, "b.nc4": b}, "a.nc4", "b.nc4")

	sel, err := newSelector(src).Select(context.Background(), pointQuery(10, box(0, 0, 20, 20)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []string
	for _, r := range sel.Records {
		got = append(got, r.SoundingID)
	}
	want := []string{
		strconv.FormatInt(baseID+1, 10),
		strconv.FormatInt(baseID+2, 10),
		strconv.FormatInt(baseID+3, 10),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected order %v, got %v", want, got)
	}
}

func TestSelectorService_RepeatedQueryIsStable(t *testing.T) {
	g := granuleOf(
		soundingRow{lat: 10, lon: 10, xco2: 400, id: baseID + 1},
		soundingRow{lat: 11, lon: 11, xco2: 405, id: baseID + 2},
	)
	src := fixedSource(map[string]*domain.Granule{"a.nc4": g}, "a.nc4")
	svc := newSelector(src)
	q := pointQuery(10, box(0, 0, 20, 20))

	first, err := svc.Select(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Select(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first.Records, second.Records) {
		t.Error("the same query over unchanged granules should return identical records")
	}
}

func TestSelectorService_WiderDateRangeIsSuperset(t *testing.T) {
	g := granuleOf(
		soundingRow{lat: 1, lon: 1, xco2: 400, id: 2015010112345678},
		soundingRow{lat: 1, lon: 2, xco2: 401, id: 2015010212345678},
		soundingRow{lat: 1, lon: 3, xco2: 402, id: 2015010312345678},
	)
	src := fixedSource(map[string]*domain.Granule{"a.nc4": g}, "a.nc4")
	svc := newSelector(src)

	narrow := pointQuery(10, box(0, 0, 20, 20))
	narrow.StartDate, narrow.EndDate = "2015-01-02", "2015-01-02"
	narrowSel, err := svc.Select(context.Background(), narrow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wide := narrow
	wide.StartDate, wide.EndDate = "2015-01-01", "2015-01-03"
	wideSel, err := svc.Select(context.Background(), wide)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wideIDs := map[string]bool{}
	for _, r := range wideSel.Records {
		wideIDs[r.SoundingID] = true
	}
	for _, r := range narrowSel.Records {
		if !wideIDs[r.SoundingID] {
			t.Errorf("record %s from the narrow range missing from the wide range", r.SoundingID)
		}
	}
	if len(narrowSel.Records) != 1 || len(wideSel.Records) != 3 {
		t.Errorf("expected 1 narrow and 3 wide records, got %d and %d",
			len(narrowSel.Records), len(wideSel.Records))
	}
}

func TestSelectorService_EmptyCollection(t *testing.T) {
	src := &mockGranuleSource{
		listFn: func(ctx context.Context) ([]string, error) { return nil, nil },
	}

	sel, err := newSelector(src).Select(context.Background(), pointQuery(10, box(0, 0, 20, 20)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 0 || sel.Scanned != 0 {
		t.Errorf("expected an empty selection, got %d records over %d granules", len(sel.Records), sel.Scanned)
	}
}

func TestSelectorService_InvertedBoundsMatchNothing(t *testing.T) {
	g := granuleOf(soundingRow{lat: 10, lon: 10, xco2: 400, id: baseID + 1})
	src := fixedSource(map[string]*domain.Granule{"a.nc4": g}, "a.nc4")

	sel, err := newSelector(src).Select(context.Background(), pointQuery(10, box(20, 20, 0, 0)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 0 {
		t.Errorf("inverted bounds should match nothing, got %d records", len(sel.Records))
	}
}

func TestSelectorService_UnknownModeBehavesAsPoint(t *testing.T) {
	g := granuleOf(soundingRow{lat: 10, lon: 10, xco2: 400, id: baseID + 1})
	src := fixedSource(map[string]*domain.Granule{"a.nc4": g}, "a.nc4")

	q := domain.ViewportQuery{Bounds: box(0, 0, 20, 20), Zoom: 10, Mode: "heatmap"}
	sel, err := newSelector(src).Select(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Records) != 1 || sel.Records[0].Vertices != nil {
		t.Errorf("unrecognized modes fall back to points, got %+v", sel.Records)
	}
}
