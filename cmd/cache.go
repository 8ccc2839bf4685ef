package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openfido/census-cli/internal/boundary"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the boundary data cache",
}

var cacheWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Prefetch and partition all boundary datasets",
	Long:  "Downloads the state and national ZCTA archives and materializes every ZIP-digit partition, so later enrich runs stay off the network.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cache := newBoundaryCache()
		log := zap.L().With(zap.String("command", "cache.warm"))

		states, err := cache.Get(ctx, boundary.KindState)
		if err != nil {
			return err
		}
		log.Info("state dataset ready", zap.Int("features", len(states.Features)))

		for d := '0'; d <= '9'; d++ {
			digit := string(d)
			ds, err := cache.GetPartition(ctx, digit)
			if err != nil {
				return err
			}
			log.Info("zipcode partition ready",
				zap.String("digit", digit),
				zap.Int("features", len(ds.Features)),
			)
		}
		return nil
	},
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List cached boundary files",
	RunE: func(_ *cobra.Command, _ []string) error {
		entries, err := newBoundaryCache().DiskStatus()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Cache is empty")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s\t%d bytes\n", e.Path, e.Bytes)
		}
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheWarmCmd, cacheStatusCmd)
	rootCmd.AddCommand(cacheCmd)
}
