package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adsales/config"
	"adsales/db"
	qhttp "adsales/http"
	"adsales/logging"
	"adsales/ml"
	"adsales/monitoring"
	"adsales/pipeline"
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "adsales",
		Short:         "Advertising sales prediction service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the prediction page and API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	})

	var input, output, charset string
	predictCmd := &cobra.Command{
		Use:   "predict",
		Short: "Score a CSV file and write it with a Predicted_Sales column",
		Example: `  adsales predict -i advertising.csv -o predictions.csv
  adsales predict -i legacy.csv --charset windows-1252 > predictions.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(configPath, input, output, charset, cmd.OutOrStdout())
		},
	}
	predictCmd.Flags().StringVarP(&input, "input", "i", "", "Input CSV file (required)")
	predictCmd.Flags().StringVarP(&output, "output", "o", "", "Output CSV file (default stdout)")
	predictCmd.Flags().StringVar(&charset, "charset", "", "Input charset, e.g. windows-1252 (default UTF-8)")
	_ = predictCmd.MarkFlagRequired("input")
	root.AddCommand(predictCmd)

	root.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the feature columns the model expects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(configPath, cmd.OutOrStdout())
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		os.Exit(1)
	}
}

func runServe(configPath string) error {
	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// 2. Load artifacts; the service never starts without them
	loader := ml.NewLoader(cfg.Artifacts.ModelPath, cfg.Artifacts.SchemaPath)
	artifacts, err := loader.Load()
	if err != nil {
		logger.Error("failed to load artifacts", zap.Error(err))
		return err
	}
	logger.Info("artifacts loaded",
		zap.String("model", loader.ModelPath()),
		zap.String("schema", loader.SchemaPath()),
		zap.String("kind", artifacts.Predictor.Kind()),
		zap.Strings("features", artifacts.Schema.Names()))

	// 3. Metrics and services
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(reg)
	service := pipeline.NewService(artifacts, logger, metrics)

	var history *db.History
	if cfg.History.Path != "" {
		history, err = db.OpenHistory(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer history.Close()
		logger.Info("prediction history enabled", zap.String("path", cfg.History.Path))
	}

	if cfg.Artifacts.Watch {
		watcher, err := monitoring.NewArtifactWatcher(logger, func(string) { metrics.MarkArtifactStale() },
			loader.ModelPath(), loader.SchemaPath())
		if err != nil {
			logger.Warn("artifact watcher disabled", zap.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	api, err := qhttp.NewAPI(qhttp.APIConfig{
		Service:           service,
		History:           history,
		Metrics:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:            logger,
		DownloadCacheSize: cfg.Downloads.CacheSize,
		MaxUploadBytes:    cfg.Server.MaxUploadBytes,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	// 4. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, api, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return err
	}
	logger.Info("exiting")
	return nil
}

func runPredict(configPath, input, output, charset string, stdout io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Log.Output = "stderr"
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	artifacts, err := ml.NewLoader(cfg.Artifacts.ModelPath, cfg.Artifacts.SchemaPath).Load()
	if err != nil {
		return err
	}

	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	table, err := pipeline.ReadCSV(in, pipeline.ReadOptions{Charset: charset})
	if err != nil {
		return err
	}

	out, err := pipeline.NewService(artifacts, logger, nil).PredictBatch(table)
	if err != nil {
		var missing *pipeline.MissingColumnsError
		if errors.As(err, &missing) {
			return &exitError{code: 2, err: err}
		}
		return err
	}

	if output == "" {
		return pipeline.WriteCSV(stdout, out.Table)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := pipeline.WriteCSV(f, out.Table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runSchema(configPath string, stdout io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	artifacts, err := ml.NewLoader(cfg.Artifacts.ModelPath, cfg.Artifacts.SchemaPath).Load()
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "model: %s\n", artifacts.Predictor.Kind())
	for i, name := range artifacts.Schema.Names() {
		fmt.Fprintf(stdout, "%d\t%s\n", i, name)
	}
	return nil
}
