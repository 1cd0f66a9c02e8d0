// Command granulecheck runs integrity checks over a granule collection
// before it is served: every file must decode, columns must line up,
// sounding ids must carry a valid acquisition date, and footprint corners
// must sit near their sounding center.
//
// Usage:
//
//	go run ./cmd/granulecheck -data-dir ./data
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/calvales/co2scope/internal/adapters/netcdf"
	"github.com/calvales/co2scope/internal/core/domain"
	"github.com/calvales/co2scope/internal/pkg/geospatial"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data-dir", "", "directory containing granule files")
	pattern := flag.String("pattern", "*.nc4", "glob pattern for granule files")
	maxFootprintKm := flag.Float64("max-footprint-km", 10, "maximum distance from sounding center to a footprint corner")
	flag.Parse()

	if *dataDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dataDir, *pattern, *maxFootprintKm); code != 0 {
		os.Exit(code)
	}
}

// loaded pairs a granule with its file metadata.
type loaded struct {
	name    string
	info    *domain.GranuleInfo
	granule *domain.Granule
}

func run(dataDir, pattern string, maxFootprintKm float64) int {
	ctx := context.Background()
	store := netcdf.NewStore(dataDir, pattern)

	fmt.Println("=== Granule Collection Validation ===")
	fmt.Println()

	if err := store.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: data directory: %v\n", err)
		return 1
	}

	paths, err := store.List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: list granules: %v\n", err)
		return 1
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no granules match %s in %s\n", pattern, dataDir)
		return 1
	}

	granules, decodePhase := loadAll(ctx, store, paths)

	phases := []*phase{
		decodePhase,
		validateColumns(granules),
		validateSoundingIDs(granules),
		validateQuality(granules),
		validateFootprints(granules, maxFootprintKm),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	var rows, usable int
	for _, g := range granules {
		rows += g.granule.Len()
		usable += countUsable(g.granule)
	}
	fmt.Println()
	fmt.Printf("Granules: %d files, %d soundings, %d usable\n", len(granules), rows, usable)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// loadAll reads every granule. Decode failures go into the phase rather
// than stopping the run, so one bad file doesn't hide the rest.
func loadAll(ctx context.Context, store *netcdf.Store, paths []string) ([]loaded, *phase) {
	p := &phase{name: "Phase 1: Decode (NetCDF files)"}

	var granules []loaded
	for _, path := range paths {
		name := filepath.Base(path)

		info, err := store.Stat(ctx, path)
		if err != nil {
			p.errorf("%s: stat: %v", name, err)
			continue
		}

		g, err := store.Read(ctx, path, info.HasFootprints)
		if err != nil {
			p.errorf("%s: read: %v", name, err)
			continue
		}

		if g.Len() != info.Soundings {
			p.errorf("%s: header says %d soundings, decoded %d", name, info.Soundings, g.Len())
		}

		granules = append(granules, loaded{name: name, info: info, granule: g})
	}
	return granules, p
}

// validateColumns checks column alignment and coordinate ranges.
func validateColumns(granules []loaded) *phase {
	p := &phase{name: "Phase 2: Column Integrity"}

	for _, l := range granules {
		g := l.granule
		if err := g.Validate(l.info.HasFootprints); err != nil {
			p.errorf("%s: %v", l.name, err)
			continue
		}

		for i := 0; i < g.Len(); i++ {
			if g.Latitude[i] < -90 || g.Latitude[i] > 90 {
				p.errorf("%s row %d: latitude %g out of range", l.name, i, g.Latitude[i])
			}
			if g.Longitude[i] < -180 || g.Longitude[i] > 180 {
				p.errorf("%s row %d: longitude %g out of range", l.name, i, g.Longitude[i])
			}
		}
	}
	return p
}

// validateSoundingIDs checks that every id encodes a calendar day.
func validateSoundingIDs(granules []loaded) *phase {
	p := &phase{name: "Phase 3: Sounding IDs (date encoding)"}

	for _, l := range granules {
		g := l.granule
		seen := make(map[int64]int, g.Len())
		for i := 0; i < g.Len(); i++ {
			id := g.SoundingID[i]
			if prev, dup := seen[id]; dup {
				p.errorf("%s row %d: duplicate sounding id %d (also row %d)", l.name, i, id, prev)
			}
			seen[id] = i

			if _, ok := domain.SoundingDate(id); !ok {
				p.errorf("%s row %d: sounding id %d too short to carry a date", l.name, i, id)
			}
		}
	}
	return p
}

// validateQuality checks flag values and that the collection is not all
// rejects.
func validateQuality(granules []loaded) *phase {
	p := &phase{name: "Phase 4: Quality Flags and XCO2 Band"}

	var usable int
	for _, l := range granules {
		g := l.granule
		for i := 0; i < g.Len(); i++ {
			if q := g.QualityFlag[i]; q != 0 && q != 1 {
				p.errorf("%s row %d: quality flag %d (expected 0 or 1)", l.name, i, q)
			}
			if x := g.XCO2[i]; x < 300 || x > 500 {
				p.errorf("%s row %d: xco2 %g ppm is not physical", l.name, i, x)
			}
		}
		usable += countUsable(g)
	}

	if usable == 0 {
		p.errorf("no sounding in the collection passes quality control")
	}
	return p
}

// validateFootprints checks vertex geometry against the sounding center.
func validateFootprints(granules []loaded, maxKm float64) *phase {
	p := &phase{name: "Phase 5: Footprint Geometry"}

	for _, l := range granules {
		if !l.info.HasFootprints {
			continue
		}
		g := l.granule
		for i := 0; i < g.Len(); i++ {
			for v := 0; v < domain.FootprintVertices; v++ {
				vlat := g.VertexLatitude[i][v]
				vlon := g.VertexLongitude[i][v]
				if vlat < -90 || vlat > 90 || vlon < -180 || vlon > 180 {
					p.errorf("%s row %d vertex %d: (%g, %g) out of range", l.name, i, v, vlat, vlon)
					continue
				}

				km := geospatial.Haversine(g.Latitude[i], g.Longitude[i], vlat, vlon) / 1000
				if km > maxKm {
					p.errorf("%s row %d vertex %d: %.1f km from center (max %.1f)", l.name, i, v, km, maxKm)
				}
			}
		}
	}
	return p
}

func countUsable(g *domain.Granule) int {
	var n int
	for i := 0; i < g.Len(); i++ {
		if g.QualityFlag[i] == 0 && g.XCO2[i] >= 380 && g.XCO2[i] <= 420 {
			n++
		}
	}
	return n
}
