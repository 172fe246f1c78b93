package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"caravela.dev/busmetrics/config"
	"caravela.dev/busmetrics/parse"
	"caravela.dev/busmetrics/storage"
)

var loadRefsCmd = &cobra.Command{
	Use:   "load-refs",
	Short: "Loads reference geometry exported by the weekly refresh job",
	RunE:  loadRefs,
}

var (
	segmentsPath  string
	stopsPath     string
	schedulesPath string
)

func init() {
	loadRefsCmd.Flags().StringVarP(&segmentsPath, "segments", "", "", "Segment definitions CSV")
	loadRefsCmd.Flags().StringVarP(&stopsPath, "stops", "", "", "Route stops CSV")
	loadRefsCmd.Flags().StringVarP(&schedulesPath, "schedules", "", "", "Scheduled headways CSV")
}

func loadRefs(cmd *cobra.Command, args []string) error {
	if segmentsPath == "" && stopsPath == "" && schedulesPath == "" {
		return fmt.Errorf("at least one of --segments, --stops, --schedules is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	load := func(path, kind string, parseFn func(storage.ReferenceWriter, *os.File) (int, error)) error {
		if path == "" {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := parseFn(store, f)
		if err != nil {
			return fmt.Errorf("loading %s: %w", kind, err)
		}
		fmt.Printf("loaded %d %s\n", n, kind)
		return nil
	}

	if err := load(segmentsPath, "segments", func(w storage.ReferenceWriter, f *os.File) (int, error) {
		return parse.ParseSegments(w, f)
	}); err != nil {
		return err
	}
	if err := load(stopsPath, "route stops", func(w storage.ReferenceWriter, f *os.File) (int, error) {
		return parse.ParseRouteStops(w, f)
	}); err != nil {
		return err
	}
	if err := load(schedulesPath, "route schedules", func(w storage.ReferenceWriter, f *os.File) (int, error) {
		return parse.ParseRouteSchedules(w, f)
	}); err != nil {
		return err
	}

	return nil
}
