package pipeline

import (
	"archive/zip"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"

	"github.com/openfido/census-cli/internal/boundary"
	"github.com/openfido/census-cli/internal/fetcher"
)

func squareRing(minX, minY, maxX, maxY float64) []shp.Point {
	return []shp.Point{
		{X: minX, Y: minY},
		{X: minX, Y: maxY},
		{X: maxX, Y: maxY},
		{X: maxX, Y: minY},
		{X: minX, Y: minY},
	}
}

type shpRecord struct {
	ring  []shp.Point
	attrs []string
}

func writeShapefileZIP(t *testing.T, fieldNames []string, records []shpRecord) []byte {
	t.Helper()

	dir := t.TempDir()
	shpPath := filepath.Join(dir, "fixture.shp")

	w, err := shp.Create(shpPath, shp.POLYGON)
	require.NoError(t, err)

	fields := make([]shp.Field, len(fieldNames))
	for i, name := range fieldNames {
		fields[i] = shp.StringField(name, 64)
	}
	w.SetFields(fields)

	for i, rec := range records {
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{rec.ring}))
		w.Write(&poly)
		for j, val := range rec.attrs {
			w.WriteAttribute(i, j, val)
		}
	}
	w.Close()

	zipPath := filepath.Join(dir, "fixture.zip")
	zf, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(zf)
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		data, err := os.ReadFile(filepath.Join(dir, "fixture"+ext))
		require.NoError(t, err)
		entry, err := zw.Create("fixture" + ext)
		require.NoError(t, err)
		_, err = entry.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, zf.Close())

	data, err := os.ReadFile(zipPath)
	require.NoError(t, err)
	return data
}

// newTestCache builds a boundary cache over fixture datasets: square
// "states" DC, CT, and TX, each containing one ZCTA.
func newTestCache(t *testing.T) *boundary.Cache {
	t.Helper()

	states := writeShapefileZIP(t,
		[]string{"STUSPS", "NAME"},
		[]shpRecord{
			{ring: squareRing(-78, 38, -76, 40), attrs: []string{"DC", "District of Columbia"}},
			{ring: squareRing(0, 0, 10, 10), attrs: []string{"CT", "Connecticut"}},
			{ring: squareRing(20, 0, 30, 30), attrs: []string{"TX", "Texas"}},
		},
	)
	zipcodes := writeShapefileZIP(t,
		[]string{"GEOID10", "ZCTA5CE10"},
		[]shpRecord{
			{ring: squareRing(-77.5, 38.5, -76.5, 39.5), attrs: []string{"20001", "20001"}},
			{ring: squareRing(2, 2, 8, 8), attrs: []string{"06510", "06510"}},
			{ring: squareRing(22, 2, 28, 8), attrs: []string{"75001", "75001"}},
		},
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/STATE/"):
			_, _ = w.Write(states)
		case strings.Contains(r.URL.Path, "/ZCTA5/"):
			_, _ = w.Write(zipcodes)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	return boundary.NewCache(boundary.CacheConfig{
		Dir:             t.TempDir(),
		BaseURL:         srv.URL,
		StatesFilename:  "tl_2020_us_state.zip",
		ZipcodeFilename: "tl_2020_us_zcta510.zip",
	}, fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 10 * time.Second}))
}
