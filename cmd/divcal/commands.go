package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"divcal/config"
	"divcal/export"
	"divcal/internal/api"
	"divcal/internal/app"
	"divcal/models"
	"divcal/observability"
	"divcal/repository"
)

// runtime is a wired application ready to serve a command
type runtime struct {
	cfg     *config.Config
	app     *app.App
	repo    *repository.Repository
	cleanup func()
}

// loadRuntime is replaced in tests
var loadRuntime = func(ctx context.Context, v *viper.Viper) (*runtime, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	application, repo, cleanup, err := bootstrap(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, app: application, repo: repo, cleanup: cleanup}, nil
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	var warm bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar and the JSON API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := loadRuntime(ctx, v)
			if err != nil {
				return err
			}
			defer rt.cleanup()

			handler := api.NewHandler(rt.app, rt.cfg)
			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", rt.cfg.HTTP.Port),
				Handler:      api.NewRouter(handler, rt.cfg),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: time.Duration(rt.cfg.Provider.TimeoutSeconds+30) * time.Second,
			}

			if rt.repo != nil {
				go cleanExpiredCache(ctx, rt.repo, time.Hour)
			}
			if warm {
				go rt.app.Catalog(ctx, false)
			}

			errCh := make(chan error, 1)
			go func() {
				observability.Info("starting HTTP server", "port", rt.cfg.HTTP.Port, "url", fmt.Sprintf("http://localhost:%d", rt.cfg.HTTP.Port))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
			}

			observability.Info("shutting down HTTP server")

			// Graceful shutdown with timeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			observability.Info("HTTP server stopped")
			return nil
		},
	}

	cmd.Flags().Int("port", 0, "HTTP port (default from HTTP_PORT)")
	cmd.Flags().BoolVar(&warm, "warm", true, "build the catalog at startup")
	v.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}

func newCatalogCmd(v *viper.Viper) *cobra.Command {
	var (
		query     string
		minExDate string
		refresh   bool
		asJSON    bool
		color     bool
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the dividend calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseFilter(query, minExDate)
			if err != nil {
				return err
			}

			rt, err := loadRuntime(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer rt.cleanup()

			catalog, report := rt.app.Catalog(cmd.Context(), refresh)
			profiles := catalog.Filter(filter)

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string]interface{}{
					"built_at": catalog.BuiltAt,
					"profiles": profiles,
					"summary":  models.Summarize(profiles),
				})
			}

			export.RenderCatalogTable(out, profiles, export.TableOptions{Color: color})
			printReport(cmd.ErrOrStderr(), report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by company name or symbol")
	cmd.Flags().StringVar(&minExDate, "min-ex-date", "", "only ex-dividend dates on or after YYYY-MM-DD")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "rebuild instead of using the cached catalog")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&color, "color", false, "colored table")
	return cmd
}

func newSimulateCmd(v *viper.Viper) *cobra.Command {
	var (
		amount   string
		currency string
		asJSON   bool
		color    bool
	)

	cmd := &cobra.Command{
		Use:   "simulate SYMBOL",
		Short: "Project dividend earnings for a what-if investment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invest, err := decimal.NewFromString(strings.TrimSpace(amount))
			if err != nil {
				return fmt.Errorf("invalid --amount %q: %w", amount, err)
			}

			rt, err := loadRuntime(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer rt.cleanup()

			projection, err := rt.app.Simulate(cmd.Context(), app.SimulateRequest{
				Symbol:   strings.ToUpper(strings.TrimSpace(args[0])),
				Amount:   invest,
				Currency: currency,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string]interface{}{
					"projection": projection,
					"disclaimer": app.Disclaimer,
				})
			}

			export.RenderProjectionTable(out, projection, export.TableOptions{Color: color})
			fmt.Fprintln(out)
			fmt.Fprintln(out, app.Disclaimer)
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "10000", "amount to invest")
	cmd.Flags().StringVar(&currency, "currency", "", "investment currency (default from TARGET_CURRENCY)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&color, "color", false, "colored table")
	return cmd
}

func newExportCmd(v *viper.Viper) *cobra.Command {
	var (
		outPath   string
		query     string
		minExDate string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dividend calendar as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseFilter(query, minExDate)
			if err != nil {
				return err
			}

			rt, err := loadRuntime(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer rt.cleanup()

			var buf bytes.Buffer
			name, err := rt.app.ExportCSV(cmd.Context(), &buf, filter)
			if err != nil {
				return err
			}

			if outPath == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if outPath == "" {
				outPath = name
			}
			if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file, - for stdout (default dividend_calendar_YYYYMMDD.csv)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by company name or symbol")
	cmd.Flags().StringVar(&minExDate, "min-ex-date", "", "only ex-dividend dates on or after YYYY-MM-DD")
	return cmd
}

func parseFilter(query, minExDate string) (models.CatalogFilter, error) {
	filter := models.CatalogFilter{Query: strings.TrimSpace(query)}
	if minExDate != "" {
		t, err := time.Parse(models.DateLayout, minExDate)
		if err != nil {
			return filter, fmt.Errorf("invalid --min-ex-date %q (expected YYYY-MM-DD)", minExDate)
		}
		filter.MinExDate = t
	}
	return filter, nil
}

func printReport(w io.Writer, report *models.BatchReport) {
	if report == nil {
		return
	}
	source := "fresh"
	if report.FromCache {
		source = "cached"
	}
	fmt.Fprintf(w, "%s build: %d profiled, %d skipped, %d failed\n", source,
		report.Count(models.OutcomeSuccess),
		report.Count(models.OutcomeSkipped),
		report.Count(models.OutcomeFailed))
	for _, f := range report.Failures() {
		fmt.Fprintf(w, "  %s: %s\n", f.Symbol, f.Reason)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// cacheCleaner removes expired market data cache entries
type cacheCleaner interface {
	CleanExpiredCache(ctx context.Context) (int64, error)
}

// cleanExpiredCache runs every interval until ctx is done
func cleanExpiredCache(ctx context.Context, c cacheCleaner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.CleanExpiredCache(ctx)
			if err != nil {
				observability.Warn("failed to clean expired cache", "error", err)
				continue
			}
			if n > 0 {
				observability.Debug("cleaned expired cache entries", "count", n)
			}
		}
	}
}
