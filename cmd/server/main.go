package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dashboard/internal/api"
	"dashboard/internal/config"
	"dashboard/internal/engine"
	"dashboard/internal/models"
	"dashboard/internal/report"
)

type options struct {
	config string
	data   string
	addr   string

	start  string
	end    string
	format string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve the e-commerce order dashboard API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, opts)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.config, "config", "c", "config.toml", "path to config")
	rootCmd.PersistentFlags().StringVar(&opts.data, "data", "", "order dataset CSV (overrides data.path)")
	rootCmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides server.addr)")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard tables for a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, opts)
		},
	}
	reportCmd.Flags().StringVar(&opts.start, "start", "", "first day, YYYY-MM-DD (default: first day in the data)")
	reportCmd.Flags().StringVar(&opts.end, "end", "", "last day, YYYY-MM-DD (default: last day in the data)")
	reportCmd.Flags().StringVarP(&opts.format, "format", "f", "text", "text or json")
	rootCmd.AddCommand(reportCmd)

	return rootCmd
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.config)
	if err != nil {
		return nil, err
	}
	if opts.data != "" {
		cfg.Data.Path = opts.data
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	cfg.ConfigureLogging()
	return cfg, nil
}

func runServer(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	// The API is live immediately and answers 503 until the data is loaded.
	h, err := api.NewHandler(nil, cfg.Cache.Size)
	if err != nil {
		return err
	}
	e := api.NewServer(h, cfg.Server.RateLimit)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loadErr := make(chan error, 1)
	go func() {
		log.WithField("path", cfg.Data.Path).Info("Loading order dataset in background")
		t0 := time.Now()

		ds, err := engine.LoadOrders(cfg.Data.Path)
		if err != nil {
			loadErr <- err
			return
		}
		h.SetData(ds)

		log.WithField("took", time.Since(t0)).Info("Dataset ready, API is fully available")
	}()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("Server listening")
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case err := <-errCh:
		return errors.Wrap(err, "start server")
	case err := <-loadErr:
		runErr = errors.Wrap(err, "load order dataset")
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown server")
	}
	return runErr
}

func runReport(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ds, err := engine.LoadOrders(cfg.Data.Path)
	if err != nil {
		return err
	}

	start, end := ds.MinDate, ds.MaxDate
	if opts.start != "" {
		if start, err = models.ParseDay(opts.start); err != nil {
			return errors.Wrap(err, "--start")
		}
	}
	if opts.end != "" {
		if end, err = models.ParseDay(opts.end); err != nil {
			return errors.Wrap(err, "--end")
		}
	}

	data, err := ds.Dashboard(cmd.Context(), start, end)
	if err != nil {
		return err
	}
	return report.Write(cmd.OutOrStdout(), data, opts.format)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
