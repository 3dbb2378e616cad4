// Package main writes a synthetic BIOPERIANT12 data set for development:
// model output, reference grids and climatologies, shapefiles and optional
// observation series derived from the model.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/bioperiant/bp12-tools/internal/adapter/store/csv"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/model"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/reference"
	"github.com/bioperiant/bp12-tools/internal/synth"
	"github.com/bioperiant/bp12-tools/internal/usecase"
)

func main() {
	// Command line flags
	fs := pflag.NewFlagSet("bp12-synth", pflag.ExitOnError)
	outDir := fs.String("out", "./data", "Output data directory (reference files)")
	modelDir := fs.String("model-dir", "", "Model output directory (default <out>/model)")
	dates := fs.StringSlice("dates", []string{"y2003", "y2004"}, "Date specifications to write")
	latMin := fs.Float64("lat-min", synth.SouthernOcean.LatMin, "Southern grid edge")
	latMax := fs.Float64("lat-max", synth.SouthernOcean.LatMax, "Northern grid edge")
	resolution := fs.Float64("resolution", synth.SouthernOcean.Resolution, "Grid resolution in degrees")
	obsVar := fs.String("obs", "votemper", "Variable to derive observation series from; empty skips them")
	verbose := fs.BoolP("verbose", "v", false, "Log every pentad written")
	_ = fs.Parse(os.Args[1:])

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *latMax <= *latMin || *resolution <= 0 {
		log.Fatalf("Invalid grid: lat-min %g, lat-max %g, resolution %g", *latMin, *latMax, *resolution)
	}
	if *modelDir == "" {
		*modelDir = filepath.Join(*outDir, "model")
	}
	grid := synth.SouthernOcean
	grid.LatMin, grid.LatMax, grid.Resolution = *latMin, *latMax, *resolution

	log.WithFields(logrus.Fields{
		"lat":        fmt.Sprintf("%.1f to %.1f", grid.LatMin, grid.LatMax),
		"resolution": grid.Resolution,
		"rows":       grid.NLat(),
		"cols":       grid.NX(),
	}).Info("Generating synthetic BIOPERIANT12 data")

	start := time.Now()
	gen := synth.New(grid, log)
	if err := gen.WriteReference(*outDir); err != nil {
		log.Fatalf("Failed to write reference data: %v", err)
	}
	log.Infof("Reference data written to %s", *outDir)

	sum, err := gen.WriteModel(*modelDir, *dates...)
	if err != nil {
		log.Fatalf("Failed to write model output: %v", err)
	}
	log.WithFields(logrus.Fields{"files": sum.Files, "points_per_level": sum.Points}).Infof("Model output written to %s", *modelDir)

	if *obsVar != "" {
		if err := writeObservations(*obsVar, *dates, *modelDir, *outDir, log); err != nil {
			log.Fatalf("Failed to write observation series: %v", err)
		}
	}
	log.Infof("Done in %s", time.Since(start).Round(time.Millisecond))
}

// writeObservations stores the biome means of variable as observation
// series OBS/<variable>_biome<N>.csv, so model-versus-observation figures
// have something to compare against.
func writeObservations(variable string, dates []string, modelDir, dataDir string, log logrus.FieldLogger) error {
	ref := reference.NewLocalStore(dataDir, log)
	defer func() { _ = ref.Close() }()
	obs := csv.NewSeriesStore(dataDir)
	uc := usecase.NewSeriesUseCase(model.NewLoader(modelDir, model.WithLogger(log)), ref, obs, log)

	for _, biome := range reference.BoundaryBiomes {
		b := biome
		s, err := uc.Series(usecase.SeriesRequest{Variable: variable, Dates: dates, Biome: &b})
		if err != nil {
			return fmt.Errorf("biome %d: %w", biome, err)
		}
		name := fmt.Sprintf("%s_biome%d", variable, biome)
		if err := obs.Write(name, s); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"series": name, "points": s.Size()}).Info("Observation series written")
	}
	return nil
}
