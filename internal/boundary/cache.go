package boundary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/openfido/census-cli/internal/fetcher"
)

// zipcodeIDField identifies ZCTA features; its leading digit keys the
// partitioned cache files.
const zipcodeIDField = "GEOID10"

// Downloader is the transport the cache needs to acquire archives.
type Downloader interface {
	DownloadToFile(ctx context.Context, url, path string) (int64, error)
}

// CacheConfig locates the remote boundary source and the local cache
// directory.
type CacheConfig struct {
	Dir             string // local cache directory, created on demand
	BaseURL         string // e.g. https://www2.census.gov/geo/tiger/TIGER2020
	StatesFilename  string // e.g. tl_2020_us_state.zip
	ZipcodeFilename string // e.g. tl_2020_us_zcta510.zip
}

// Cache owns the download and on-disk persistence of boundary datasets.
// Datasets are memoized per process: each (kind, partition) key is
// fetched, parsed, and persisted at most once per run, and concurrent
// callers for the same key collapse onto a single flight. Once written,
// a serialized form is authoritative and is never re-derived unless it
// is absent or unreadable.
type Cache struct {
	cfg CacheConfig
	dl  Downloader

	flight singleflight.Group

	mu   sync.Mutex
	memo map[string]*Dataset
}

// NewCache creates a boundary cache over the given config and transport.
func NewCache(cfg CacheConfig, dl Downloader) *Cache {
	return &Cache{
		cfg:  cfg,
		dl:   dl,
		memo: make(map[string]*Dataset),
	}
}

// Get returns the dataset for an unpartitioned kind. For KindZipcode use
// GetPartition; the national ZCTA file is too large to probe whole.
func (c *Cache) Get(ctx context.Context, kind Kind) (*Dataset, error) {
	return c.get(ctx, kind, "")
}

// GetPartition returns the zipcode sub-dataset whose features' GEOID10
// starts with the given decimal digit.
func (c *Cache) GetPartition(ctx context.Context, digit string) (*Dataset, error) {
	if len(digit) != 1 || digit[0] < '0' || digit[0] > '9' {
		return nil, eris.Errorf("boundary: invalid partition digit %q", digit)
	}
	return c.get(ctx, KindZipcode, digit)
}

func (c *Cache) get(ctx context.Context, kind Kind, partition string) (*Dataset, error) {
	if kind == KindTract {
		return nil, eris.New("boundary: tract datasets are not available")
	}

	key := cacheKey(kind, partition)

	c.mu.Lock()
	if ds, ok := c.memo[key]; ok {
		c.mu.Unlock()
		return ds, nil
	}
	c.mu.Unlock()

	// Collapse concurrent loads of the same key onto one flight; every
	// caller receives the one loaded dataset.
	v, err, _ := c.flight.Do(key, func() (any, error) {
		c.mu.Lock()
		ds, ok := c.memo[key]
		c.mu.Unlock()
		if ok {
			return ds, nil
		}

		ds, err := c.load(ctx, kind, partition)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.memo[key] = ds
		c.mu.Unlock()
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dataset), nil
}

// load materializes one dataset: serialized form if present, otherwise
// archive (downloading it first if needed) → parse → filter → persist.
func (c *Cache) load(ctx context.Context, kind Kind, partition string) (*Dataset, error) {
	log := zap.L().With(
		zap.String("component", "boundary.cache"),
		zap.String("kind", string(kind)),
		zap.String("partition", partition),
	)

	if err := os.MkdirAll(c.cfg.Dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "boundary: create cache dir")
	}

	serPath := c.serializedPath(kind, partition)
	if _, err := os.Stat(serPath); err == nil {
		ds, err := readDataset(serPath)
		if err == nil {
			log.Debug("cache hit", zap.String("path", serPath), zap.Int("features", len(ds.Features)))
			return ds, nil
		}
		var corrupt *CacheCorruptError
		if !eris.As(err, &corrupt) {
			return nil, err
		}
		// Unreadable serialized form: drop it and re-derive from the
		// archive instead of failing the run.
		log.Warn("serialized cache unreadable, re-deriving from archive",
			zap.String("path", serPath), zap.Error(err))
		_ = os.Remove(serPath)
	}

	archive, err := c.ensureArchive(ctx, kind)
	if err != nil {
		return nil, err
	}

	ds, err := c.parseArchive(archive, kind, partition)
	if err != nil {
		return nil, err
	}

	if err := writeDataset(ds, serPath); err != nil {
		return nil, err
	}
	log.Info("boundary dataset cached",
		zap.String("path", serPath),
		zap.Int("features", len(ds.Features)),
	)
	return ds, nil
}

// ensureArchive returns the local archive path for kind, downloading it
// first when absent. Downloads land in a temp file and are renamed into
// place so a partial fetch never poisons the cache.
func (c *Cache) ensureArchive(ctx context.Context, kind Kind) (string, error) {
	path := c.archivePath(kind)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, nil
	}

	url := c.archiveURL(kind)
	zap.L().Info("downloading boundary archive",
		zap.String("component", "boundary.cache"),
		zap.String("kind", string(kind)),
		zap.String("url", url),
	)

	if _, err := c.dl.DownloadToFile(ctx, url, path); err != nil {
		return "", &DownloadError{Kind: kind, URL: url, Err: err}
	}
	return path, nil
}

// parseArchive extracts the shapefile from a downloaded archive and
// parses it, filtering to the requested partition when one is given.
func (c *Cache) parseArchive(archive string, kind Kind, partition string) (*Dataset, error) {
	extractDir := strings.TrimSuffix(archive, ".zip")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "boundary: create extract dir")
	}
	if _, err := fetcher.ExtractZIP(archive, extractDir); err != nil {
		return nil, eris.Wrapf(err, "boundary: extract %s archive", kind)
	}
	shpPath, err := fetcher.FindByExt(extractDir, ".shp")
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: locate shapefile in %s archive", kind)
	}

	ds, err := parseShapefile(shpPath, kind)
	if err != nil {
		return nil, err
	}

	if partition != "" {
		filtered := &Dataset{Kind: kind, Partition: partition, columns: ds.columns}
		for _, f := range ds.Features {
			if strings.HasPrefix(f.Attrs[zipcodeIDField], partition) {
				filtered.Features = append(filtered.Features, f)
			}
		}
		return filtered, nil
	}
	return ds, nil
}

func (c *Cache) archivePath(kind Kind) string {
	switch kind {
	case KindZipcode:
		return filepath.Join(c.cfg.Dir, "zipcodes.zip")
	default:
		return filepath.Join(c.cfg.Dir, "states.zip")
	}
}

func (c *Cache) archiveURL(kind Kind) string {
	switch kind {
	case KindZipcode:
		return fmt.Sprintf("%s/ZCTA5/%s", c.cfg.BaseURL, c.cfg.ZipcodeFilename)
	default:
		return fmt.Sprintf("%s/STATE/%s", c.cfg.BaseURL, c.cfg.StatesFilename)
	}
}

func (c *Cache) serializedPath(kind Kind, partition string) string {
	switch kind {
	case KindZipcode:
		return filepath.Join(c.cfg.Dir, "zipcodes"+partition+".gob")
	default:
		return filepath.Join(c.cfg.Dir, "states.gob")
	}
}

// Status describes one cache entry on disk, for the cache status command.
type Status struct {
	Path  string
	Bytes int64
}

// DiskStatus lists the archives and serialized forms currently present
// under the cache directory.
func (c *Cache) DiskStatus() ([]Status, error) {
	entries, err := os.ReadDir(c.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "boundary: read cache dir")
	}
	var out []Status
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".zip") && !strings.HasSuffix(name, ".gob") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Status{Path: filepath.Join(c.cfg.Dir, name), Bytes: info.Size()})
	}
	return out, nil
}

func cacheKey(kind Kind, partition string) string {
	if partition == "" {
		return string(kind)
	}
	return string(kind) + ":" + partition
}
