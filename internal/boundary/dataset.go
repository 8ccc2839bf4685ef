// Package boundary acquires, caches, and serves Census TIGER/Line boundary
// datasets for point-in-polygon enrichment.
package boundary

import (
	"github.com/twpayne/go-geom"
)

// Kind identifies a boundary dataset family.
type Kind string

const (
	// KindState is the national state boundary dataset (one archive, no
	// partitioning).
	KindState Kind = "state"

	// KindZipcode is the national ZCTA boundary dataset, partitioned by
	// the leading digit of GEOID10.
	KindZipcode Kind = "zipcode"

	// KindTract is reserved for census tracts. No dataset is served for
	// it yet; the constant keeps the cache layout forward-compatible.
	KindTract Kind = "tract"
)

// Point is a geographic coordinate in the same unprojected CRS as the
// boundary datasets (EPSG:4326, longitude first).
type Point struct {
	Lon float64
	Lat float64
}

// Feature is one polygon record of a boundary dataset: its geometry plus
// the full set of DBF attributes keyed by column name.
type Feature struct {
	Geom  *geom.MultiPolygon
	Attrs map[string]string
}

// Dataset is an ordered, immutable sequence of polygon features. Order is
// the shapefile record order and is the tie-break for multi-match
// containment, so it must be stable across loads.
type Dataset struct {
	Kind      Kind
	Partition string // leading GEOID10 digit for zipcode partitions, else ""
	Features  []Feature
	columns   []string
}

// Columns returns the attribute column names of the dataset in their
// shapefile field order.
func (d *Dataset) Columns() []string {
	return d.columns
}

// FindByAttr returns the first feature whose named attribute equals value,
// or a NoMatchError when none does.
func (d *Dataset) FindByAttr(name, value string) (*Feature, error) {
	for i := range d.Features {
		if d.Features[i].Attrs[name] == value {
			return &d.Features[i], nil
		}
	}
	return nil, &NoMatchError{Kind: d.Kind, Value: value}
}
