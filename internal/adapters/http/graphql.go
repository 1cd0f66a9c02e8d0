package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/paulmach/orb"

	"github.com/calvales/co2scope/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	soundingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Sounding",
		Fields: graphql.Fields{
			"position": &graphql.Field{
				Type:        graphql.NewList(graphql.Float),
				Description: "[lon, lat] of the sounding",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r := p.Source.(domain.SoundingRecord)
					return []float64{r.Position[0], r.Position[1]}, nil
				},
			},
			"vertices": &graphql.Field{
				Type:        graphql.NewList(graphql.NewList(graphql.Float)),
				Description: "Footprint corners as [lon, lat] pairs, null in point mode",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r := p.Source.(domain.SoundingRecord)
					if r.Vertices == nil {
						return nil, nil
					}
					corners := make([][]float64, 0, domain.FootprintVertices)
					for _, v := range r.Vertices {
						corners = append(corners, []float64{v[0], v[1]})
					}
					return corners, nil
				},
			},
			"xco2": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.SoundingRecord).XCO2, nil
				},
			},
			"sounding_id": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.SoundingRecord).SoundingID, nil
				},
			},
		},
	})

	granuleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Granule",
		Fields: graphql.Fields{
			"name": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.GranuleInfo).Name, nil
				},
			},
			"size_bytes": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return float64(p.Source.(domain.GranuleInfo).SizeBytes), nil
				},
			},
			"mod_time": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.GranuleInfo).ModTime.UTC().Format(time.RFC3339), nil
				},
			},
			"soundings": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.GranuleInfo).Soundings, nil
				},
			},
			"has_footprints": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.GranuleInfo).HasFootprints, nil
				},
			},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CatalogStats",
		Fields: graphql.Fields{
			"granules": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.CatalogStats).Granules, nil
				},
			},
			"soundings": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return float64(p.Source.(*domain.CatalogStats).Soundings), nil
				},
			},
			"size_bytes": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return float64(p.Source.(*domain.CatalogStats).SizeBytes), nil
				},
			},
			"footprint_granules": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.CatalogStats).FootprintGranules, nil
				},
			},
			"last_refresh": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					last := p.Source.(*domain.CatalogStats).LastRefresh
					if last.IsZero() {
						return nil, nil
					}
					return last.UTC().Format(time.RFC3339), nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"soundings": &graphql.Field{
				Type:        graphql.NewList(soundingType),
				Description: "Select soundings for a map viewport",
				Args: graphql.FieldConfigArgument{
					"min_lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"min_lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"max_lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"max_lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"zoom":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"mode":       &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: string(domain.ViewPoint)},
					"start_date": &graphql.ArgumentConfig{Type: graphql.String},
					"end_date":   &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := domain.ViewportQuery{
						Bounds: orb.Bound{
							Min: orb.Point{p.Args["min_lon"].(float64), p.Args["min_lat"].(float64)},
							Max: orb.Point{p.Args["max_lon"].(float64), p.Args["max_lat"].(float64)},
						},
						Zoom: p.Args["zoom"].(float64),
						Mode: domain.ViewMode(p.Args["mode"].(string)),
					}
					if v, ok := p.Args["start_date"].(string); ok {
						q.StartDate = v
					}
					if v, ok := p.Args["end_date"].(string); ok {
						q.EndDate = v
					}

					sel, err := deps.Selector.Select(p.Context, q)
					if err != nil {
						return nil, err
					}
					return sel.Records, nil
				},
			},
			"granules": &graphql.Field{
				Type:        graphql.NewList(granuleType),
				Description: "List granules in the collection",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Catalog.Granules(p.Context)
				},
			},
			"granule": &graphql.Field{
				Type:        granuleType,
				Description: "Get one granule by file name",
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					name := p.Args["name"].(string)
					infos, err := deps.Catalog.Granules(p.Context)
					if err != nil {
						return nil, err
					}
					for _, info := range infos {
						if info.Name == name {
							return info, nil
						}
					}
					return nil, nil
				},
			},
			"catalogStats": &graphql.Field{
				Type:        statsType,
				Description: "Aggregate view of the collection",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Catalog.Stats(p.Context)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
