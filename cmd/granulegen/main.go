// Command granulegen writes synthetic sounding granules for local
// development and the test suites. Values follow the shape of real ACOS
// Lite files: 16-digit sounding ids whose leading digits encode the day,
// a quality flag that mostly passes, and an XCO2 band centered near
// 395 ppm with a tail of out-of-band values.
//
// Usage:
//
//	go run ./cmd/granulegen \
//	  -out ./data \
//	  -granules 5 \
//	  -soundings 2000 \
//	  -start-date 2016-02-20
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/calvales/co2scope/internal/adapters/netcdf"
	"github.com/calvales/co2scope/internal/core/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for granule files")
	granules := flag.Int("granules", 3, "number of granules, one per day")
	soundings := flag.Int("soundings", 2000, "soundings per granule")
	seed := flag.Int64("seed", 42, "random seed")
	startDate := flag.String("start-date", "2016-02-20", "date of the first granule (YYYY-MM-DD)")
	footprints := flag.Bool("footprints", true, "include footprint vertex variables")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	day, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		return fmt.Errorf("parse -start-date: %w", err)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))

	var totalRows, totalGood int
	for i := 0; i < *granules; i++ {
		date := day.AddDate(0, 0, i)
		name := fmt.Sprintf("oco2_LtCO2_%s_B11100Ar.nc4", date.Format("060102"))

		g := buildGranule(rng, date, *soundings, *footprints)
		if err := netcdf.WriteGranule(filepath.Join(*out, name), g); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}

		good := countGood(g)
		totalRows += g.Len()
		totalGood += good
		log.Printf("%s: %d soundings, %d pass quality control", name, g.Len(), good)
	}

	log.Printf("wrote %d granules to %s: %d soundings, %d usable",
		*granules, *out, totalRows, totalGood)
	return nil
}

// buildGranule walks a ground track across the day and samples soundings
// along it.
func buildGranule(rng *rand.Rand, date time.Time, n int, footprints bool) *domain.Granule {
	g := &domain.Granule{
		Latitude:    make([]float64, n),
		Longitude:   make([]float64, n),
		XCO2:        make([]float64, n),
		QualityFlag: make([]int, n),
		SoundingID:  make([]int64, n),
	}
	if footprints {
		g.VertexLatitude = make([][domain.FootprintVertices]float64, n)
		g.VertexLongitude = make([][domain.FootprintVertices]float64, n)
	}

	dateNum := int64(date.Year())*10000 + int64(date.Month())*100 + int64(date.Day())

	// The track keeps clear of the antimeridian so footprint corners stay
	// inside plain [-180, 180] longitudes.
	lat := rng.Float64()*120 - 60
	lon := rng.Float64()*359 - 179.5
	for i := 0; i < n; i++ {
		// Successive soundings sit a couple of km apart along the track
		lat += 0.015 + rng.Float64()*0.005
		lon += 0.002
		if lat > 60 {
			lat = -60
			lon = rng.Float64()*359 - 179.5
		}
		if lon > 179.5 {
			lon = -179.5
		}

		xco2 := 395 + rng.NormFloat64()*6
		if i%10 == 9 {
			// Retrieval outliers outside the plausible band
			if rng.Intn(2) == 0 {
				xco2 = 375 - rng.Float64()*5
			} else {
				xco2 = 425 + rng.Float64()*5
			}
		}

		quality := 0
		if rng.Float64() >= 0.85 {
			quality = 1
		}

		g.Latitude[i] = lat
		g.Longitude[i] = lon
		g.XCO2[i] = xco2
		g.QualityFlag[i] = quality
		g.SoundingID[i] = dateNum*1e8 + int64(i+1)

		if footprints {
			const d = 0.012
			g.VertexLatitude[i] = [domain.FootprintVertices]float64{lat - d, lat - d, lat + d, lat + d}
			g.VertexLongitude[i] = [domain.FootprintVertices]float64{lon - d, lon + d, lon + d, lon - d}
		}
	}

	return g
}

func countGood(g *domain.Granule) int {
	var good int
	for i := 0; i < g.Len(); i++ {
		if g.QualityFlag[i] == 0 && g.XCO2[i] >= 380 && g.XCO2[i] <= 420 {
			good++
		}
	}
	return good
}
