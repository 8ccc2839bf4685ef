// Package pipeline drives boundary enrichment over a record frame: per
// attribute group it resolves each row's enclosing polygon and merges the
// requested attribute columns back into the frame.
package pipeline

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openfido/census-cli/internal/boundary"
	"github.com/openfido/census-cli/internal/frame"
	"github.com/openfido/census-cli/internal/resolve"
)

// NoMatchPolicy decides what happens when a record's point falls outside
// every candidate polygon.
type NoMatchPolicy string

const (
	// NoMatchSkip leaves the record's enrichment cells empty, logs a
	// warning, and continues. This is the default.
	NoMatchSkip NoMatchPolicy = "skip"

	// NoMatchFail aborts the whole run on the first unresolved record.
	NoMatchFail NoMatchPolicy = "fail"
)

// Options selects the attribute groups to enrich. A field spec is "*"
// (all columns of the resolved feature), "" (group disabled), or a
// comma-separated list of column names.
type Options struct {
	StateFields   string
	ZipcodeFields string
	TractFields   string
	OnNoMatch     NoMatchPolicy
}

// Enricher merges administrative-region attributes into location records.
type Enricher struct {
	cache *boundary.Cache
	opts  Options
	log   *zap.Logger
}

// New creates an Enricher over the given boundary cache.
func New(cache *boundary.Cache, opts Options) *Enricher {
	if opts.OnNoMatch == "" {
		opts.OnNoMatch = NoMatchSkip
	}
	return &Enricher{
		cache: cache,
		opts:  opts,
		log:   zap.L().With(zap.String("component", "pipeline")),
	}
}

// Run enriches the frame in place, group by group. Cache and dataset
// failures abort the run; per-record no-matches follow the configured
// policy.
func (e *Enricher) Run(ctx context.Context, f *frame.Frame) error {
	log := e.log.With(zap.String("run_id", uuid.NewString()))

	if e.opts.StateFields != "" {
		if err := e.enrichStates(ctx, f, log); err != nil {
			return err
		}
	}
	if e.opts.ZipcodeFields != "" {
		if err := e.enrichZipcodes(ctx, f, log); err != nil {
			return err
		}
	}
	if e.opts.TractFields != "" {
		// Tract boundary data is not wired up; report the no-op rather
		// than silently dropping the request.
		log.Warn("census tract resolution is not implemented; tract fields left unchanged")
	}
	return nil
}

func (e *Enricher) enrichStates(ctx context.Context, f *frame.Frame, log *zap.Logger) error {
	if !f.HasColumn("state") {
		if missing := f.MissingColumns("latitude", "longitude"); len(missing) > 0 {
			return &boundary.MissingColumnsError{Group: "state", Missing: missing}
		}
	}

	states, err := e.cache.Get(ctx, boundary.KindState)
	if err != nil {
		return err
	}

	fields, err := fieldList(e.opts.StateFields, states.Columns(), "state")
	if err != nil {
		return err
	}

	resolved := make([]*boundary.Feature, len(f.Rows))
	for i, row := range f.Rows {
		id := f.RowIdentity(row)
		switch id.Mode {
		case frame.IdentityByState:
			// Exact abbreviation lookup; an unknown value is bad input
			// and fails the run rather than emitting empty cells.
			feat, err := states.FindByAttr("STUSPS", id.State)
			if err != nil {
				return eris.Wrapf(err, "state lookup for row %d", i)
			}
			resolved[i] = feat
		case frame.IdentityByCoordinate:
			feat, err := resolve.Find(states, boundary.Point{Lon: id.Lon, Lat: id.Lat})
			if err != nil {
				if handled := e.handleNoMatch(err, "state", i, log); handled != nil {
					return handled
				}
				continue
			}
			resolved[i] = feat
		default:
			if handled := e.handleNoMatch(
				eris.Errorf("row %d has no usable state or coordinates", i), "state", i, log,
			); handled != nil {
				return handled
			}
		}
	}

	mergeFields(f, resolved, fields)
	log.Info("state enrichment complete",
		zap.Int("rows", len(f.Rows)),
		zap.Strings("fields", fields),
	)
	return nil
}

func (e *Enricher) enrichZipcodes(ctx context.Context, f *frame.Frame, log *zap.Logger) error {
	if missing := f.MissingColumns("latitude", "longitude"); len(missing) > 0 {
		return &boundary.MissingColumnsError{Group: "zipcode", Missing: missing}
	}

	resolved := make([]*boundary.Feature, len(f.Rows))
	var columns []string

	for i, row := range f.Rows {
		lat, latErr := row.Float("latitude")
		lon, lonErr := row.Float("longitude")
		if latErr != nil || lonErr != nil {
			if handled := e.handleNoMatch(
				eris.Errorf("row %d has unparseable coordinates", i), "zipcode", i, log,
			); handled != nil {
				return handled
			}
			continue
		}
		pt := boundary.Point{Lon: lon, Lat: lat}

		feat, cols, err := e.resolveZipcode(ctx, pt)
		if err != nil {
			var noMatch *boundary.NoMatchError
			if !eris.As(err, &noMatch) {
				return err // cache/download failures are fatal
			}
			if handled := e.handleNoMatch(err, "zipcode", i, log); handled != nil {
				return handled
			}
			continue
		}
		resolved[i] = feat
		columns = cols
	}

	fields, err := fieldList(e.opts.ZipcodeFields, columns, "zipcode")
	if err != nil {
		return err
	}

	mergeFields(f, resolved, fields)
	log.Info("zipcode enrichment complete",
		zap.Int("rows", len(f.Rows)),
		zap.Strings("fields", fields),
	)
	return nil
}

// resolveZipcode finds the ZCTA feature containing a point by resolving
// its state, then probing that state's candidate partitions in order.
// Also returns the partition dataset's column list for field expansion.
func (e *Enricher) resolveZipcode(ctx context.Context, pt boundary.Point) (*boundary.Feature, []string, error) {
	abbr, err := resolve.StateAbbr(ctx, e.cache, pt)
	if err != nil {
		return nil, nil, err
	}
	digits, err := resolve.ZIPDigits(abbr)
	if err != nil {
		return nil, nil, err
	}

	var columns []string
	for _, digit := range digits {
		ds, err := e.cache.GetPartition(ctx, digit)
		if err != nil {
			return nil, nil, err
		}
		columns = ds.Columns()
		feat, err := resolve.Find(ds, pt)
		if err == nil {
			return feat, columns, nil
		}
		var noMatch *boundary.NoMatchError
		if !eris.As(err, &noMatch) {
			return nil, nil, err
		}
	}
	return nil, columns, &boundary.NoMatchError{Kind: boundary.KindZipcode, Lon: pt.Lon, Lat: pt.Lat}
}

// handleNoMatch applies the configured policy: nil return means the
// record was skipped and processing continues, non-nil aborts the run.
func (e *Enricher) handleNoMatch(err error, group string, row int, log *zap.Logger) error {
	if e.opts.OnNoMatch == NoMatchFail {
		return eris.Wrapf(err, "%s enrichment failed at row %d", group, row)
	}
	log.Warn("record unresolved, leaving cells empty",
		zap.String("group", group),
		zap.Int("row", row),
		zap.Error(err),
	)
	return nil
}

// fieldList expands a field spec against a dataset's columns. An explicit
// field missing from the dataset is fatal for the run.
func fieldList(spec string, columns []string, group string) ([]string, error) {
	if spec == "*" {
		return columns, nil
	}
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	var fields []string
	for _, field := range strings.Split(spec, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if len(columns) > 0 && !known[field] {
			return nil, &boundary.UnknownFieldError{Group: group, Field: field}
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// mergeFields writes resolved attributes into the frame, overwriting any
// pre-existing column of the same name. Unresolved rows get empty cells
// so every row carries the full column set.
func mergeFields(f *frame.Frame, resolved []*boundary.Feature, fields []string) {
	for i := range f.Rows {
		for _, field := range fields {
			val := ""
			if resolved[i] != nil {
				val = resolved[i].Attrs[field]
			}
			f.Set(i, field, val)
		}
	}
}
