package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Themis/internal/api"
	"github.com/MikeSquared-Agency/Themis/internal/config"
	"github.com/MikeSquared-Agency/Themis/internal/dataset"
	"github.com/MikeSquared-Agency/Themis/internal/engine"
	"github.com/MikeSquared-Agency/Themis/internal/hermes"
	"github.com/MikeSquared-Agency/Themis/internal/store"
)

func main() {
	root := &cobra.Command{
		Use:   "themis",
		Short: "Equalized-odds resource allocation service",
		Long: `Themis computes efficient resource allocations that equalize true and
false positive rates across demographic groups, and monotonic allocation
chains across every budget from zero to the population size.`,
	}

	root.AddCommand(serveCmd(), chainCmd())

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and metrics servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	return cmd
}

func serve(configPath string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info("connected to database")

	// Hermes (optional)
	var hermesClient hermes.Client = noopHermes{}
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	// API server
	router := api.NewRouter(db, hermesClient, api.Options{
		MaxPopulationSize: cfg.Engine.MaxPopulationSize,
		ChainTimeout:      cfg.ChainTimeout(),
		AdminToken:        cfg.Server.AdminToken,
	}, logger)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: api.NewMetricsRouter(),
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
	return nil
}

func chainCmd() *cobra.Command {
	var (
		inPath  string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Build a monotonic allocation chain from a dataset file",
		Long: `Reads a population from a JSON or CSV file, builds the full allocation
chain and writes the budget curves to stdout or a file. The output format
follows the output extension (.json or .csv, JSON by default).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return buildChain(inPath, outPath)
		},
	}
	cmd.Flags().StringVarP(&inPath, "input", "f", "", "dataset file (.json or .csv)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (stdout when empty)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func buildChain(inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	var groups []engine.GroupSample
	switch strings.ToLower(filepath.Ext(inPath)) {
	case ".csv":
		groups, err = dataset.FromCSV(in)
	default:
		groups, err = dataset.FromJSON(in)
	}
	if err != nil {
		return err
	}

	p, err := engine.NewPopulation(groups)
	if err != nil {
		return err
	}

	start := time.Now()
	chain, err := p.BuildChain(context.Background())
	if err != nil {
		return err
	}
	slog.Info("chain built",
		"size", p.Size(),
		"groups", p.NumGroups(),
		"repairs", chain.Repairs,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if strings.ToLower(filepath.Ext(outPath)) == ".csv" {
		w := csv.NewWriter(out)
		if err := w.Write([]string{"budget", "cost", "utility", "fpr", "tpr", "unfair_utility"}); err != nil {
			return err
		}
		for _, pt := range chain.Series() {
			rec := []string{
				strconv.Itoa(pt.Budget),
				formatFloat(pt.Cost),
				formatFloat(pt.Utility),
				formatFloat(pt.FPR),
				formatFloat(pt.TPR),
				formatFloat(pt.UnfairUtility),
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(chain.Series())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// noopHermes keeps the API handlers unconditional when no broker is
// configured or reachable.
type noopHermes struct{}

func (noopHermes) Publish(string, interface{}) error            { return nil }
func (noopHermes) Subscribe(string, func(string, []byte)) error { return nil }
func (noopHermes) Close()                                       {}
