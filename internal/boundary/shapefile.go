package boundary

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// parseShapefile reads a TIGER shapefile into a Dataset with all DBF
// attributes captured. Non-polygon and nil shapes are skipped.
func parseShapefile(shpPath string, kind Kind) (*Dataset, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = strings.TrimRight(f.String(), "\x00")
	}

	ds := &Dataset{Kind: kind, columns: columns}
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		attrs := make(map[string]string, len(columns))
		for i, col := range columns {
			val := strings.TrimRight(reader.Attribute(i), "\x00")
			attrs[col] = strings.TrimSpace(val)
		}

		ds.Features = append(ds.Features, Feature{Geom: mp, Attrs: attrs})
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("kind", string(kind)),
			zap.Int("skipped", skipped),
		)
	}

	return ds, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Shapefile ring order encodes topology: clockwise rings are exterior
// shells, counterclockwise rings are holes in the preceding shell.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	var current *geom.Polygon

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat) < 8 { // a closed ring needs at least four vertices
			continue
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if xy.IsRingCounterClockwise(geom.XY, flat) && current != nil {
			// Hole in the current shell.
			if err := current.Push(ring); err != nil {
				zap.L().Debug("boundary: skipping malformed hole ring", zap.Int32("part", i), zap.Error(err))
			}
			continue
		}

		if current != nil {
			if err := mp.Push(current); err != nil {
				zap.L().Debug("boundary: skipping malformed polygon part", zap.Error(err))
			}
		}
		current = geom.NewPolygon(geom.XY)
		if err := current.Push(ring); err != nil {
			zap.L().Debug("boundary: skipping malformed shell ring", zap.Int32("part", i), zap.Error(err))
			current = nil
		}
	}

	if current != nil {
		if err := mp.Push(current); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon part", zap.Error(err))
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
