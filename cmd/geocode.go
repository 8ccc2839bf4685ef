package main

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openfido/census-cli/internal/frame"
	"github.com/openfido/census-cli/internal/store"
	"github.com/openfido/census-cli/pkg/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Resolve addresses to coordinates or back",
	Long:  "Forward mode reads an address column and adds latitude/longitude; --reverse reads coordinate columns and adds an address column.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		reverse, _ := cmd.Flags().GetBool("reverse")
		providerName, _ := cmd.Flags().GetString("provider")
		if !cmd.Flags().Changed("provider") {
			providerName = cfg.Geocode.Provider
		}

		f, err := readFrame(input)
		if err != nil {
			return err
		}

		client, closer, err := newGeocodeClient(ctx, providerName)
		if err != nil {
			return err
		}
		defer closer()

		if reverse {
			err = reverseGeocodeFrame(ctx, client, f)
		} else {
			err = forwardGeocodeFrame(ctx, client, f)
		}
		if err != nil {
			return err
		}

		if err := writeFrame(f, output); err != nil {
			return err
		}

		zap.L().Info("geocoding written",
			zap.String("output", output),
			zap.Int("rows", len(f.Rows)),
			zap.Bool("reverse", reverse),
		)
		return nil
	},
}

func init() {
	geocodeCmd.Flags().String("input", "", "input CSV path (required)")
	geocodeCmd.Flags().String("output", "", "output CSV path (required)")
	geocodeCmd.Flags().Bool("reverse", false, "resolve coordinates to addresses instead")
	geocodeCmd.Flags().String("provider", "", "preferred provider: nominatim or census")
	_ = geocodeCmd.MarkFlagRequired("input")
	_ = geocodeCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(geocodeCmd)
}

// newGeocodeClient builds the cascade client with the preferred provider
// first and the SQLite result cache attached.
func newGeocodeClient(ctx context.Context, preferred string) (geocode.Client, func(), error) {
	timeout := time.Duration(cfg.Geocode.TimeoutSecs) * time.Second

	nominatim := geocode.NewNominatimProvider(cfg.Geocode.UserAgent, timeout, cfg.Geocode.RatePerSec,
		geocode.WithNominatimBaseURL(cfg.Geocode.NominatimURL))
	census := geocode.NewCensusProvider(cfg.Geocode.UserAgent, timeout, cfg.Geocode.RatePerSec)

	providers := []geocode.Provider{nominatim, census}
	if preferred == "census" {
		providers = []geocode.Provider{census, nominatim}
	}

	opts := []geocode.CascadeOption{geocode.WithRetries(cfg.Geocode.Retries)}
	closer := func() {}

	db, err := store.NewSQLite(cfg.Geocode.CachePath)
	if err != nil {
		// The cache is an optimization; geocoding still works without it.
		zap.L().Warn("geocode cache unavailable, continuing uncached", zap.Error(err))
	} else if err := db.Migrate(ctx); err != nil {
		zap.L().Warn("geocode cache migration failed, continuing uncached", zap.Error(err))
		_ = db.Close()
	} else {
		opts = append(opts, geocode.WithCache(db, cfg.Geocode.CacheTTLDays))
		closer = func() { _ = db.Close() }
	}

	return geocode.NewCascadeClient(providers, opts...), closer, nil
}

func forwardGeocodeFrame(ctx context.Context, client geocode.Client, f *frame.Frame) error {
	if !f.HasColumn("address") {
		return eris.New("geocode: input has no address column")
	}

	addresses := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		addresses[i] = row["address"]
	}

	results, err := client.BatchGeocode(ctx, addresses)
	if err != nil {
		return err
	}

	for i, r := range results {
		if !r.Matched {
			f.Set(i, "latitude", "")
			f.Set(i, "longitude", "")
			continue
		}
		f.Set(i, "latitude", strconv.FormatFloat(r.Latitude, 'f', -1, 64))
		f.Set(i, "longitude", strconv.FormatFloat(r.Longitude, 'f', -1, 64))
	}
	return nil
}

func reverseGeocodeFrame(ctx context.Context, client geocode.Client, f *frame.Frame) error {
	if missing := f.MissingColumns("latitude", "longitude"); len(missing) > 0 {
		return eris.Errorf("geocode: input missing columns: %v", missing)
	}

	for i, row := range f.Rows {
		lat, latErr := row.Float("latitude")
		lon, lonErr := row.Float("longitude")
		if latErr != nil || lonErr != nil {
			f.Set(i, "address", "")
			continue
		}
		r, err := client.ReverseGeocode(ctx, lat, lon)
		if err != nil {
			return err
		}
		val := ""
		if r.Matched {
			val = r.Address
		}
		f.Set(i, "address", val)
	}
	return nil
}
