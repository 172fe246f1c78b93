package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"caravela.dev/busmetrics"
	"caravela.dev/busmetrics/config"
	"caravela.dev/busmetrics/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the daily aggregation once and prints the summary",
	RunE:  run,
}

var runDate string

func init() {
	runCmd.Flags().StringVarP(&runDate, "date", "D", "", "Service day to aggregate (YYYY-MM-DD, default yesterday UTC)")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	date := runDate
	if date == "" {
		date = model.Date(time.Now().UTC().AddDate(0, 0, -1))
	}

	pipeline := busmetrics.NewPipeline(store)
	pipeline.ChunkSize = cfg.ChunkSize

	summary, err := pipeline.Run(date)
	if err != nil {
		return err
	}

	fmt.Printf("date:              %s\n", summary.Date)
	fmt.Printf("positions:         %d\n", summary.Positions)
	fmt.Printf("trips:             %d\n", summary.Trips)
	fmt.Printf("segment speeds:    %d\n", summary.SegmentSpeeds)
	fmt.Printf("route performance: %d\n", summary.RoutePerformance)
	fmt.Printf("stop headways:     %d\n", summary.StopHeadways)
	fmt.Printf("elapsed:           %s\n", summary.Elapsed)

	return nil
}
