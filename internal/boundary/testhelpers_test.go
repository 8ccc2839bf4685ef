package boundary

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// shpRecord is one fixture polygon with its attribute values, in field
// order.
type shpRecord struct {
	rings [][]shp.Point
	attrs []string
}

// squareRing returns a closed clockwise ring (a shapefile exterior ring)
// around the given bounds.
func squareRing(minX, minY, maxX, maxY float64) []shp.Point {
	return []shp.Point{
		{X: minX, Y: minY},
		{X: minX, Y: maxY},
		{X: maxX, Y: maxY},
		{X: maxX, Y: minY},
		{X: minX, Y: minY},
	}
}

// writeShapefileZIP writes a polygon shapefile with the given fields and
// records, zips its parts, and returns the archive bytes.
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
		poly := shp.Polygon(*shp.NewPolyLine(rec.rings))
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

// statesFixtureZIP builds a state dataset with two square "states".
func statesFixtureZIP(t *testing.T) []byte {
	t.Helper()
	return writeShapefileZIP(t,
		[]string{"STUSPS", "NAME"},
		[]shpRecord{
			{rings: [][]shp.Point{squareRing(0, 0, 10, 10)}, attrs: []string{"CT", "Connecticut"}},
			{rings: [][]shp.Point{squareRing(20, 0, 30, 30)}, attrs: []string{"TX", "Texas"}},
		},
	)
}

// zipcodesFixtureZIP builds a national ZCTA dataset with one ZCTA inside
// each fixture state.
func zipcodesFixtureZIP(t *testing.T) []byte {
	t.Helper()
	return writeShapefileZIP(t,
		[]string{"GEOID10", "ZCTA5CE10"},
		[]shpRecord{
			{rings: [][]shp.Point{squareRing(2, 2, 8, 8)}, attrs: []string{"06510", "06510"}},
			{rings: [][]shp.Point{squareRing(22, 2, 28, 8)}, attrs: []string{"75001", "75001"}},
		},
	)
}
