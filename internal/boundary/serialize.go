package boundary

import (
	"encoding/gob"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// storedDataset is the on-disk serialized form of a Dataset. Geometries
// are carried as EWKB so the round trip preserves SRID and coordinates
// exactly.
type storedDataset struct {
	Kind      Kind
	Partition string
	Columns   []string
	Features  []storedFeature
}

type storedFeature struct {
	EWKB  []byte
	Attrs map[string]string
}

// writeDataset persists a dataset to path atomically (temp file + rename)
// so a crash mid-write never leaves a truncated cache form behind.
func writeDataset(ds *Dataset, path string) error {
	stored := storedDataset{
		Kind:      ds.Kind,
		Partition: ds.Partition,
		Columns:   ds.columns,
		Features:  make([]storedFeature, 0, len(ds.Features)),
	}
	for i := range ds.Features {
		data, err := ewkb.Marshal(ds.Features[i].Geom, ewkb.NDR)
		if err != nil {
			return eris.Wrap(err, "boundary: encode feature geometry")
		}
		stored.Features = append(stored.Features, storedFeature{
			EWKB:  data,
			Attrs: ds.Features[i].Attrs,
		})
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return eris.Wrap(err, "boundary: create cache file")
	}
	if err := gob.NewEncoder(f).Encode(&stored); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return eris.Wrap(err, "boundary: encode cache file")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrap(err, "boundary: close cache file")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrap(err, "boundary: finalize cache file")
	}
	return nil
}

// readDataset loads a serialized dataset from path. Any decode failure is
// reported as a CacheCorruptError so the caller can re-derive from the
// archive.
func readDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open cache file %s", path)
	}
	defer func() { _ = f.Close() }()

	var stored storedDataset
	if err := gob.NewDecoder(f).Decode(&stored); err != nil {
		return nil, &CacheCorruptError{Path: path, Err: err}
	}

	ds := &Dataset{
		Kind:      stored.Kind,
		Partition: stored.Partition,
		columns:   stored.Columns,
		Features:  make([]Feature, 0, len(stored.Features)),
	}
	for _, sf := range stored.Features {
		g, err := ewkb.Unmarshal(sf.EWKB)
		if err != nil {
			return nil, &CacheCorruptError{Path: path, Err: err}
		}
		mp, ok := g.(*geom.MultiPolygon)
		if !ok {
			return nil, &CacheCorruptError{Path: path, Err: eris.Errorf("unexpected geometry type %T", g)}
		}
		ds.Features = append(ds.Features, Feature{Geom: mp, Attrs: sf.Attrs})
	}
	return ds, nil
}
