package http

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/calvales/co2scope/internal/core/domain"
	"github.com/calvales/co2scope/internal/pkg/geospatial"
	"github.com/calvales/co2scope/internal/pkg/metrics"
)

var errMissingParams = errors.New("bounds and zoom query parameters are required")

// parseBounds parses "min_lon,min_lat,max_lon,max_lat". The box is kept
// exactly as given; a box whose min exceeds its max matches nothing.
func parseBounds(raw string) (orb.Bound, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bounds must be min_lon,min_lat,max_lon,max_lat, got %q", raw)
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid bounds value %q", p)
		}
		vals[i] = v
	}
	return orb.Bound{Min: orb.Point{vals[0], vals[1]}, Max: orb.Point{vals[2], vals[3]}}, nil
}

// viewportQueryFromRequest builds the viewport query from query parameters.
// Missing bounds or zoom return errMissingParams; any other failure means
// the parameters were present but unusable.
func viewportQueryFromRequest(c *fiber.Ctx) (domain.ViewportQuery, error) {
	boundsRaw := c.Query("bounds")
	zoomRaw := c.Query("zoom")
	if boundsRaw == "" || zoomRaw == "" {
		return domain.ViewportQuery{}, errMissingParams
	}

	bounds, err := parseBounds(boundsRaw)
	if err != nil {
		return domain.ViewportQuery{}, err
	}
	zoom, err := strconv.ParseFloat(zoomRaw, 64)
	if err != nil {
		return domain.ViewportQuery{}, fmt.Errorf("invalid zoom %q", zoomRaw)
	}

	return domain.ViewportQuery{
		Bounds:    bounds,
		Zoom:      zoom,
		Mode:      domain.ViewMode(c.Query("view_mode", string(domain.ViewPoint))),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}, nil
}

// respondQueryError maps parameter failures onto the wire: only missing
// parameters are a client error, malformed values are a 500.
func respondQueryError(c *fiber.Ctx, err error) error {
	if errors.Is(err, errMissingParams) {
		return errBadRequest(c, err.Error())
	}
	return errInternal(c, err.Error())
}

// selectAndObserve runs the scan and records the selector metrics.
func selectAndObserve(c *fiber.Ctx, deps *Dependencies, q domain.ViewportQuery) (*domain.Selection, error) {
	spanKm := geospatial.BoundDiagonalKm(q.Bounds)
	metrics.ViewportSpanKm.Observe(spanKm)
	LoggerFromCtx(c.UserContext()).Debug("viewport span", "km", spanKm, "zoom", q.Zoom)

	start := time.Now()
	sel, err := deps.Selector.Select(c.Context(), q)
	if err != nil {
		return nil, err
	}

	mode := string(domain.ViewPoint)
	if q.Mode == domain.ViewPolygon {
		mode = string(domain.ViewPolygon)
	}
	metrics.ObserveSelection(mode, time.Since(start), len(sel.Records), sel.Scanned, len(sel.Skipped))
	return sel, nil
}

type soundingsResponse struct {
	Data    []domain.SoundingRecord `json:"data"`
	Skipped []string                `json:"skipped_granules,omitempty"`
}

// SelectSoundingsHandler serves viewport queries. Granules that failed to
// decode are named in skipped_granules; they never fail the request.
func SelectSoundingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := viewportQueryFromRequest(c)
		if err != nil {
			return respondQueryError(c, err)
		}

		sel, err := selectAndObserve(c, deps, q)
		if err != nil {
			return errInternal(c, err.Error())
		}

		resp := soundingsResponse{Data: sel.Records}
		if resp.Data == nil {
			resp.Data = []domain.SoundingRecord{}
		}
		for _, skip := range sel.Skipped {
			resp.Skipped = append(resp.Skipped, skip.Granule)
		}
		if len(resp.Skipped) > 0 {
			LoggerFromCtx(c.UserContext()).Warn("selection skipped granules",
				"count", len(resp.Skipped), "granules", strings.Join(resp.Skipped, ","))
		}
		return c.JSON(resp)
	}
}

// LegacySoundingsHandler serves the original data endpoint with its exact
// response envelope.
func LegacySoundingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := viewportQueryFromRequest(c)
		if err != nil {
			return respondQueryError(c, err)
		}

		sel, err := selectAndObserve(c, deps, q)
		if err != nil {
			return errInternal(c, err.Error())
		}

		recs := sel.Records
		if recs == nil {
			recs = []domain.SoundingRecord{}
		}
		return c.JSON(fiber.Map{"data": recs})
	}
}

// ExportGeoJSONHandler serves the same selection as a GeoJSON
// FeatureCollection: Point features in point mode, closed Polygon rings in
// polygon mode.
func ExportGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := viewportQueryFromRequest(c)
		if err != nil {
			return respondQueryError(c, err)
		}

		sel, err := selectAndObserve(c, deps, q)
		if err != nil {
			return errInternal(c, err.Error())
		}

		fc := geojson.NewFeatureCollection()
		for _, r := range sel.Records {
			var f *geojson.Feature
			if r.Vertices != nil {
				ring := orb.Ring{r.Vertices[0], r.Vertices[1], r.Vertices[2], r.Vertices[3], r.Vertices[0]}
				f = geojson.NewFeature(orb.Polygon{ring})
			} else {
				f = geojson.NewFeature(r.Position)
			}
			f.Properties["xco2"] = r.XCO2
			f.Properties["sounding_id"] = r.SoundingID
			fc.Append(f)
		}

		c.Set("Content-Type", "application/geo+json")
		c.Set("Content-Disposition", `attachment; filename="soundings.geojson"`)
		return c.JSON(fc)
	}
}

// ListGranulesHandler returns catalog metadata for every readable granule.
func ListGranulesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		infos, err := deps.Catalog.Granules(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}

		// Apply offset/limit pagination on the full list
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		total := len(infos)
		if offset >= total {
			infos = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			infos = infos[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: infos, Pagination: pg})
	}
}

// GetGranuleHandler returns catalog metadata for one granule by file name.
func GetGranuleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("name")
		if name == "" {
			return errBadRequest(c, "granule name is required")
		}

		infos, err := deps.Catalog.Granules(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}
		for _, info := range infos {
			if info.Name == name {
				return c.JSON(info)
			}
		}
		return errNotFound(c, "granule not found")
	}
}

// CatalogStatsHandler returns the aggregate view of the collection.
func CatalogStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := deps.Catalog.Stats(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}
