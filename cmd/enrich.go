package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openfido/census-cli/internal/boundary"
	"github.com/openfido/census-cli/internal/fetcher"
	"github.com/openfido/census-cli/internal/frame"
	"github.com/openfido/census-cli/internal/pipeline"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Add boundary attributes to location records",
	Long:  "Reads a CSV of records with state or latitude/longitude columns and merges in the requested state and ZCTA attribute columns.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		stateFields, _ := cmd.Flags().GetString("state-fields")
		zipFields, _ := cmd.Flags().GetString("zipcode-fields")
		tractFields, _ := cmd.Flags().GetString("tract-fields")
		onNoMatch, _ := cmd.Flags().GetString("on-no-match")

		if !cmd.Flags().Changed("state-fields") {
			stateFields = cfg.Fields.State
		}
		if !cmd.Flags().Changed("zipcode-fields") {
			zipFields = cfg.Fields.Zipcode
		}
		if !cmd.Flags().Changed("tract-fields") {
			tractFields = cfg.Fields.Tract
		}
		if !cmd.Flags().Changed("on-no-match") {
			onNoMatch = cfg.Fields.OnNoMatch
		}

		f, err := readFrame(input)
		if err != nil {
			return err
		}

		cache := newBoundaryCache()
		enricher := pipeline.New(cache, pipeline.Options{
			StateFields:   stateFields,
			ZipcodeFields: zipFields,
			TractFields:   tractFields,
			OnNoMatch:     pipeline.NoMatchPolicy(onNoMatch),
		})

		if err := enricher.Run(ctx, f); err != nil {
			return err
		}

		if err := writeFrame(f, output); err != nil {
			return err
		}

		zap.L().Info("enrichment written",
			zap.String("output", output),
			zap.Int("rows", len(f.Rows)),
		)
		return nil
	},
}

func init() {
	enrichCmd.Flags().String("input", "", "input CSV path (required)")
	enrichCmd.Flags().String("output", "", "output CSV path (required)")
	enrichCmd.Flags().String("state-fields", "", `state columns to merge ("*", comma list, or empty to disable)`)
	enrichCmd.Flags().String("zipcode-fields", "", `ZCTA columns to merge ("*", comma list, or empty to disable)`)
	enrichCmd.Flags().String("tract-fields", "", "tract columns to merge (not implemented)")
	enrichCmd.Flags().String("on-no-match", "", `per-record no-match policy: "skip" or "fail"`)
	_ = enrichCmd.MarkFlagRequired("input")
	_ = enrichCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(enrichCmd)
}

// newBoundaryCache builds the boundary cache from config.
func newBoundaryCache() *boundary.Cache {
	dl := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: cfg.Geocode.UserAgent,
		Timeout:   time.Duration(cfg.Boundary.TimeoutSecs) * time.Second,
	})
	return boundary.NewCache(boundary.CacheConfig{
		Dir:             cfg.Boundary.CacheDir,
		BaseURL:         cfg.Boundary.BaseURL,
		StatesFilename:  cfg.Boundary.StatesFilename,
		ZipcodeFilename: cfg.Boundary.ZipcodeFilename,
	}, dl)
}

func readFrame(path string) (*frame.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open input %s", path)
	}
	defer file.Close() //nolint:errcheck
	return frame.ReadCSV(file)
}

func writeFrame(f *frame.Frame, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create output %s", path)
	}
	defer file.Close() //nolint:errcheck
	return f.WriteCSV(file)
}
