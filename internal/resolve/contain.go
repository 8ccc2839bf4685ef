package resolve

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/openfido/census-cli/internal/boundary"
)

// Find returns the first feature in dataset order whose polygon contains
// the point, or a NoMatchError when none does. When overlapping polygons
// both contain the point, the first match in dataset order wins;
// shapefile record order is stable, so results are deterministic.
func Find(ds *boundary.Dataset, pt boundary.Point) (*boundary.Feature, error) {
	for i := range ds.Features {
		if Contains(&ds.Features[i], pt) {
			return &ds.Features[i], nil
		}
	}
	return nil, &boundary.NoMatchError{Kind: ds.Kind, Lon: pt.Lon, Lat: pt.Lat}
}

// Contains reports whether the feature's multipolygon strictly contains
// the point: inside some polygon's exterior ring and outside all of that
// polygon's holes.
func Contains(f *boundary.Feature, pt boundary.Point) bool {
	coord := geom.Coord{pt.Lon, pt.Lat}
	mp := f.Geom
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		if poly.NumLinearRings() == 0 {
			continue
		}
		if !xy.IsPointInRing(geom.XY, coord, poly.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for r := 1; r < poly.NumLinearRings(); r++ {
			if xy.IsPointInRing(geom.XY, coord, poly.LinearRing(r).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}
