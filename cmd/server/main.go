// Package main provides the BIOPERIANT12 analysis HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/bioperiant/bp12-tools/internal/adapter/store/csv"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/model"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/reference"
	"github.com/bioperiant/bp12-tools/internal/analysis"
	"github.com/bioperiant/bp12-tools/internal/config"
	httpHandler "github.com/bioperiant/bp12-tools/internal/http"
	"github.com/bioperiant/bp12-tools/internal/metrics"
	"github.com/bioperiant/bp12-tools/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	fs := pflag.NewFlagSet("bp12-server", pflag.ExitOnError)
	showHelp := fs.BoolP("help", "h", false, "Show usage information")
	showVersion := fs.Bool("version", false, "Show version information")
	v := config.New()
	if err := config.BindFlags(v, fs); err != nil {
		logrus.Fatalf("Failed to register flags: %v", err)
	}
	_ = fs.Parse(os.Args[1:])

	if *showHelp {
		printUsage(fs)
		return
	}

	if *showVersion {
		fmt.Printf("bp12-server version %s\n", version)
		return
	}

	cfg, err := config.Load(v)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := cfg.NewLogger()
	analysis.Log = log

	log.Info("Starting BIOPERIANT12 API server...")
	log.WithFields(logrus.Fields{
		"port":      cfg.Port,
		"model_dir": cfg.ModelDir,
		"data_dir":  cfg.DataDir,
	}).Info("Configuration loaded")

	// Initialize stores.
	collector := metrics.NewCollector("bp12")
	loader := model.NewLoader(cfg.ModelDir, model.WithLogger(log), model.WithObserver(collector))
	ref := reference.NewLocalStore(cfg.DataDir, log)
	defer func() { _ = ref.Close() }()
	obs := csv.NewSeriesStore(cfg.DataDir)

	if _, err := ref.Nav(); err != nil {
		log.WithError(err).Warn("Reference grid unavailable; area means and maps will fail until it is installed")
	}

	// Initialize use case.
	seriesUC := usecase.NewSeriesUseCase(loader, ref, obs, log)

	// Setup router.
	handler := httpHandler.NewHandler(seriesUC, loader, collector, log)
	router := httpHandler.SetupRouter(handler, httpHandler.RouterConfig{AllowedOrigins: cfg.CORSAllowedOrigins})

	// Start server.
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Infof("Server listening on %s", addr)
	log.Infof("Health check: http://localhost:%s/health", cfg.Port)
	log.Info("API endpoints:")
	for _, ep := range endpoints {
		log.Infof("  - %s", ep)
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

var endpoints = []string{
	"GET  /v1/variables/:name",
	"GET  /v1/dates",
	"GET  /v1/files",
	"GET  /v1/series",
	"GET  /v1/depth",
	"GET  /v1/observations",
	"POST /v1/trend",
	"POST /v1/pdf",
	"GET  /v1/figures/map",
	"GET  /v1/figures/timeseries",
	"GET  /metrics",
}

// printUsage prints usage information.
func printUsage(fs *pflag.FlagSet) {
	fmt.Printf("BIOPERIANT12 API Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  bp12-server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Print(fs.FlagUsages())
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  Every flag can be set as BP12_<FLAG>, upper case with underscores,")
	fmt.Println("  e.g. BP12_MODEL_DIR or BP12_CORS_ALLOWED_ORIGINS. Flags take precedence,")
	fmt.Println("  then the environment, then the --config file.")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server with default settings")
	fmt.Println("  bp12-server")
	fmt.Println()
	fmt.Println("  # Serve synthetic data on a custom port")
	fmt.Println("  bp12-synth --out ./data && BP12_PORT=3000 bp12-server")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health                    Health check")
	for _, ep := range endpoints {
		fmt.Printf("  %s\n", ep)
	}
	fmt.Println()
}
