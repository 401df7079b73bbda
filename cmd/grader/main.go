// Command grader generates rubrics, per-student feedback and class summaries
// for assignments using LLM providers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-grader/internal/configuration"
	"github.com/ahrav/go-grader/internal/cost"
	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/internal/server"
	"github.com/ahrav/go-grader/internal/worker"
)

var configFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "grader",
		Short: "LLM-assisted assignment grading",
		Long: `grader builds a rubric for an assignment, writes feedback for every
submitted piece of student work and summarizes the class, tracking token
usage and cost for each LLM call.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "path to YAML config file")

	root.AddCommand(processCmd())
	root.AddCommand(workerCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(modelsCmd())
	return root
}

// loadConfig reads the config and installs the default logger from it.
func loadConfig() (*configuration.Config, error) {
	cfg, err := configuration.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.SetDefault(newLogger(cfg.Observability, os.Stderr))
	return cfg, nil
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal worker that grades assignments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := worker.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			c, err := worker.Dial(cfg.Temporal)
			if err != nil {
				return err
			}
			defer c.Close()

			if cfg.Observability.MetricsAddr != "" {
				h := server.NewHandler(app.Store, app.Breakers, app.Models, app.Metrics.Handler())
				srv := &http.Server{Addr: cfg.Observability.MetricsAddr, Handler: h.Router(), ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						slog.Error("HTTP server failed", "error", err)
					}
				}()
				defer shutdown(srv)
			}

			return worker.Run(ctx, c, app)
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics and assignment progress over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Observability.MetricsAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := worker.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			h := server.NewHandler(app.Store, app.Breakers, app.Models, app.Metrics.Handler())
			srv := &http.Server{Addr: addr, Handler: h.Router(), ReadHeaderTimeout: 5 * time.Second}

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			slog.Info("HTTP server listening", "addr", addr)

			select {
			case err := <-errc:
				return fmt.Errorf("http server: %w", err)
			case <-ctx.Done():
				shutdown(srv)
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to observability.metrics_addr)")
	return cmd
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("HTTP server shutdown failed", "error", err)
	}
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List known models and their token prices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := cost.NewDefaultRegistry(cfg.Models)
			if err != nil {
				return err
			}
			return printModels(cmd.OutOrStdout(), reg.Entries())
		},
	}
}

func printModels(out io.Writer, entries []cost.ModelCostEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODEL\tINPUT/1M\tOUTPUT/1M\tCONTEXT\tDEFAULT")
	for _, e := range entries {
		def := ""
		if e.DefaultForProvider {
			def = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.Provider, e.Model,
			domain.MicroUSD(e.InputMicrosPerMillion), domain.MicroUSD(e.OutputMicrosPerMillion),
			e.ContextWindow, def)
	}
	return w.Flush()
}

func newLogger(cfg configuration.ObservabilityConfig, out io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}
