package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"tradepulse/internal/analytics"
	"tradepulse/internal/config"
	"tradepulse/internal/dataset"
	"tradepulse/internal/exporter"
	"tradepulse/internal/services"
)

// analyze runs one derivation over a local CSV file and writes the result,
// the batch equivalent of one dashboard interaction.
func main() {
	var (
		input         = flag.String("in", "", "input CSV file (required)")
		output        = flag.String("out", "", "output file (defaults to stdout)")
		kind          = flag.String("kind", "kpi", "derivation kind (rolling_forecast, threshold_alerts, outliers, comparison, clusters, decomposition, extrapolation, kpi, correlation, scenario, calendar)")
		filtersJSON   = flag.String("filters", "", "JSON object of column to selected values")
		category      = flag.String("category", "", "category column for alert/outlier/cluster derivations")
		window        = flag.Int("window", 0, "rolling window size")
		threshold     = flag.Float64("threshold", 0, "alert threshold in percent")
		contamination = flag.Float64("contamination", 0, "outlier contamination fraction")
		clusters      = flag.Int("clusters", 0, "cluster count")
		cycle         = flag.Int("cycle", 0, "seasonal cycle length")
		seed          = flag.Int64("seed", 0, "random seed for the outlier detector")
		horizon       = flag.Int("horizon", 0, "extrapolation horizon in periods")
		method        = flag.String("method", "", "trend method (linear or ar)")
		model         = flag.String("model", "", "decomposition model (additive or multiplicative)")
		growth        = flag.Float64("growth", 0, "scenario growth factor")
		asJSON        = flag.Bool("json", false, "write JSON instead of CSV")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -in trades.csv -kind rolling_forecast [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	svc, err := services.NewPipelineService(config.Default(), logger, nil)
	if err != nil {
		logger.Error("failed to create pipeline", "error", err)
		os.Exit(1)
	}

	file, err := os.Open(*input)
	if err != nil {
		logger.Error("failed to open input", "path", *input, "error", err)
		os.Exit(1)
	}
	defer file.Close()

	ctx := context.Background()
	if _, err := svc.LoadUpload(ctx, file, *input); err != nil {
		logger.Error("failed to load dataset", "error", err)
		os.Exit(1)
	}

	var filters dataset.Selection
	if *filtersJSON != "" {
		if err := json.Unmarshal([]byte(*filtersJSON), &filters); err != nil {
			logger.Error("invalid -filters JSON", "error", err)
			os.Exit(1)
		}
	}

	result, err := svc.Derive(ctx, services.DeriveRequest{
		Kind:          analytics.Kind(*kind),
		Filters:       filters,
		Category:      *category,
		Window:        *window,
		Threshold:     *threshold,
		Contamination: *contamination,
		Clusters:      *clusters,
		Cycle:         *cycle,
		Seed:          *seed,
		Horizon:       *horizon,
		Method:        analytics.TrendMethod(*method),
		Model:         analytics.DecompositionModel(*model),
		GrowthFactor:  *growth,
	})
	if err != nil {
		logger.Error("derivation failed", "kind", *kind, "error", err)
		os.Exit(1)
	}

	out := io.Writer(os.Stdout)
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			logger.Error("failed to create output", "path", *output, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if err := write(out, result, *asJSON, logger); err != nil {
		logger.Error("failed to write result", "error", err)
		os.Exit(1)
	}
}

// write renders the result as CSV where a flat rendering exists, JSON
// otherwise or when -json is set.
func write(out io.Writer, result *services.DeriveResult, asJSON bool, logger *slog.Logger) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	csvw := exporter.NewCSVWriter(logger)
	switch v := result.Result.(type) {
	case analytics.ForecastResult:
		return csvw.WriteForecast(out, &v)
	case analytics.AlertsResult:
		return csvw.WriteAlerts(out, &v)
	case analytics.OutlierResult:
		return csvw.WriteOutliers(out, &v)
	case analytics.ExtrapolationResult:
		return csvw.WriteExtrapolation(out, &v)
	case analytics.DecompositionResult:
		return csvw.WriteDecomposition(out, &v)
	case analytics.ClusterResult:
		order := make([]string, 0, len(v.Assignments))
		for category := range v.Assignments {
			order = append(order, category)
		}
		sort.Strings(order)
		return csvw.WriteClusters(out, &v, order)
	case *dataset.Pivot:
		return csvw.WritePivot(out, v)
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}
