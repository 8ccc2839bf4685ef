package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/openfido/census-cli/internal/boundary"
)

// squareFeature builds a single-polygon feature covering [minX,maxX] x
// [minY,maxY], optionally with a hole.
func squareFeature(t *testing.T, minX, minY, maxX, maxY float64, hole []float64, attrs map[string]string) boundary.Feature {
	t.Helper()

	shell := []float64{
		minX, minY,
		minX, maxY,
		maxX, maxY,
		maxX, minY,
		minX, minY,
	}
	poly := geom.NewPolygon(geom.XY)
	require.NoError(t, poly.Push(geom.NewLinearRingFlat(geom.XY, shell)))
	if hole != nil {
		require.NoError(t, poly.Push(geom.NewLinearRingFlat(geom.XY, hole)))
	}
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(poly))

	return boundary.Feature{Geom: mp, Attrs: attrs}
}

func TestContains_InsideAndOutside(t *testing.T) {
	f := squareFeature(t, 0, 0, 10, 10, nil, nil)

	assert.True(t, Contains(&f, boundary.Point{Lon: 5, Lat: 5}))
	assert.True(t, Contains(&f, boundary.Point{Lon: 0.1, Lat: 9.9}))
	assert.False(t, Contains(&f, boundary.Point{Lon: 15, Lat: 5}))
	assert.False(t, Contains(&f, boundary.Point{Lon: -1, Lat: -1}))
}

func TestContains_Hole(t *testing.T) {
	hole := []float64{
		4, 4,
		6, 4,
		6, 6,
		4, 6,
		4, 4,
	}
	f := squareFeature(t, 0, 0, 10, 10, hole, nil)

	assert.False(t, Contains(&f, boundary.Point{Lon: 5, Lat: 5}), "point in hole is outside")
	assert.True(t, Contains(&f, boundary.Point{Lon: 2, Lat: 2}))
}

func TestFind_FirstMatchInDatasetOrder(t *testing.T) {
	// Two overlapping squares; the earlier feature must win.
	ds := &boundary.Dataset{
		Kind: boundary.KindState,
		Features: []boundary.Feature{
			squareFeature(t, 0, 0, 10, 10, nil, map[string]string{"NAME": "first"}),
			squareFeature(t, 5, 5, 15, 15, nil, map[string]string{"NAME": "second"}),
		},
	}

	feat, err := Find(ds, boundary.Point{Lon: 7, Lat: 7})
	require.NoError(t, err)
	assert.Equal(t, "first", feat.Attrs["NAME"])

	feat, err = Find(ds, boundary.Point{Lon: 12, Lat: 12})
	require.NoError(t, err)
	assert.Equal(t, "second", feat.Attrs["NAME"])
}

func TestFind_NoMatch(t *testing.T) {
	ds := &boundary.Dataset{
		Kind: boundary.KindZipcode,
		Features: []boundary.Feature{
			squareFeature(t, 0, 0, 10, 10, nil, nil),
		},
	}

	_, err := Find(ds, boundary.Point{Lon: 100, Lat: 100})
	require.Error(t, err)

	var noMatch *boundary.NoMatchError
	require.ErrorAs(t, err, &noMatch)
	assert.Equal(t, boundary.KindZipcode, noMatch.Kind)
	assert.Equal(t, float64(100), noMatch.Lon)
}
