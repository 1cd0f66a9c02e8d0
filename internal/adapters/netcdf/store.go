// Package netcdf implements ports.GranuleSource over a directory of
// classic-format NetCDF granule files.
package netcdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ctessum/cdf"

	"github.com/calvales/co2scope/internal/core/domain"
)

// Store reads granules from a single directory. It keeps no state between
// calls, so a file dropped into the directory is visible on the next List.
type Store struct {
	dir     string
	pattern string
}

// NewStore returns a Store over dir. pattern is a filename glob,
// defaulting to "*.nc4".
func NewStore(dir, pattern string) *Store {
	if pattern == "" {
		pattern = "*.nc4"
	}
	return &Store{dir: dir, pattern: pattern}
}

// List returns the matching granule paths sorted by name.
func (s *Store) List(ctx context.Context) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, s.pattern))
	if err != nil {
		return nil, fmt.Errorf("glob granules: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Ping verifies the data directory exists and is a directory.
func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory %s is not a directory", s.dir)
	}
	return nil
}

// Read decodes every column of one granule. Any missing variable, short
// column or undecodable buffer is reported as an error for the caller to
// treat as a granule-level failure.
func (s *Store) Read(ctx context.Context, path string, withFootprints bool) (*domain.Granule, error) {
	ff, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open granule: %w", err)
	}
	defer ff.Close()

	f, err := cdf.Open(ff)
	if err != nil {
		return nil, fmt.Errorf("parse granule: %w", err)
	}

	lat, err := readColumn(f, varLatitude)
	if err != nil {
		return nil, err
	}
	lon, err := readColumn(f, varLongitude)
	if err != nil {
		return nil, err
	}
	xco2, err := readColumn(f, varXCO2)
	if err != nil {
		return nil, err
	}
	quality, err := readColumn(f, varQualityFlag)
	if err != nil {
		return nil, err
	}
	ids, err := readColumn(f, varSoundingID)
	if err != nil {
		return nil, err
	}

	g := &domain.Granule{
		Latitude:    lat.Elements,
		Longitude:   lon.Elements,
		XCO2:        xco2.Elements,
		QualityFlag: intColumn(quality),
		SoundingID:  int64Column(ids),
	}

	if withFootprints {
		vlat, err := readColumn(f, varVertexLatitude)
		if err != nil {
			return nil, err
		}
		vlon, err := readColumn(f, varVertexLongitude)
		if err != nil {
			return nil, err
		}
		if g.VertexLatitude, err = vertexRows(vlat); err != nil {
			return nil, fmt.Errorf("%s: %w", varVertexLatitude, err)
		}
		if g.VertexLongitude, err = vertexRows(vlon); err != nil {
			return nil, fmt.Errorf("%s: %w", varVertexLongitude, err)
		}
	}

	if err := g.Validate(withFootprints); err != nil {
		return nil, err
	}
	return g, nil
}

// Stat reads only the header plus the file metadata, so catalog listings
// stay cheap even for large granules.
func (s *Store) Stat(ctx context.Context, path string) (*domain.GranuleInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat granule: %w", err)
	}

	ff, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open granule: %w", err)
	}
	defer ff.Close()

	f, err := cdf.Open(ff)
	if err != nil {
		return nil, fmt.Errorf("parse granule: %w", err)
	}
	if !hasVariable(f, varSoundingID) {
		return nil, fmt.Errorf("variable %q not present", varSoundingID)
	}

	n := 0
	if dims := f.Header.Lengths(varSoundingID); len(dims) > 0 {
		n = dims[0]
	}

	return &domain.GranuleInfo{
		Name:          filepath.Base(path),
		SizeBytes:     fi.Size(),
		ModTime:       fi.ModTime(),
		Soundings:     n,
		HasFootprints: hasVariable(f, varVertexLatitude) && hasVariable(f, varVertexLongitude),
	}, nil
}
