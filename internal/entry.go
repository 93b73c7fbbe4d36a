// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/componentkit/internal/api"
	"github.com/starford/componentkit/internal/build"
	"github.com/starford/componentkit/internal/catalog"
	"github.com/starford/componentkit/internal/examples"
	"github.com/starford/componentkit/internal/generator"
	"github.com/starford/componentkit/internal/mcpserver"
	"github.com/starford/componentkit/internal/models"
	"github.com/starford/componentkit/internal/sse"
	"github.com/starford/componentkit/internal/verify"
	"github.com/starford/componentkit/internal/watch"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		// Initialize structured JSON logger.
		app.logger = slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
		slog.SetDefault(app.logger)
	}
	return app, nil
}

func (a *application) projectDir() (string, error) {
	dir, err := filepath.Abs(a.config.Project.Directory)
	if err != nil {
		return "", fmt.Errorf("project dir: %w", err)
	}
	return dir, nil
}

// outputDir returns the absolute downloads directory inside the build destination.
func (a *application) outputDir() (string, error) {
	dir, err := a.projectDir()
	if err != nil {
		return "", err
	}
	b := a.newBuild(dir)
	return filepath.Join(b.DestinationPath(), filepath.FromSlash(a.config.Packages.OutputPath)), nil
}

func (a *application) newBuild(dir string) *build.Build {
	cfg := a.config.Project
	b := build.New(dir)
	b.Source = cfg.Source
	b.Destination = cfg.Destination
	b.Clean = cfg.Clean
	b.Logger = a.logger
	return b
}

// generate runs the build pipeline with the packaging stage and returns the
// packaging result.
func (a *application) generate(ctx context.Context) (*generator.Result, error) {
	dir, err := a.projectDir()
	if err != nil {
		return nil, err
	}
	pc := a.config.Packages

	var res *generator.Result
	g := generator.New(generator.Options{
		ComponentsPath:    pc.ComponentsPath,
		ExamplesPath:      pc.ExamplesPath,
		OutputPath:        pc.OutputPath,
		CreateBundle:      pc.Bundle,
		GenerateChecksums: pc.Checksums,
		DownloadBaseURL:   pc.DownloadBaseURL,
		Version:           a.config.Project.Version,
		Logger:            a.logger,
		OnComplete:        func(r *generator.Result) { res = r },
	})

	if _, err := a.newBuild(dir).Use(g.Plugin()).Run(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// refresh regenerates and syncs the catalog, returning the changed packages.
func (a *application) refresh(ctx context.Context, db catalog.Catalog) ([]models.Ref, error) {
	res, err := a.generate(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Sync(db, catalog.Entries(res.Manifest, res.Set), a.logger)
}

// Generate builds the site once, including every component package.
func Generate(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	res, err := app.generate(ctx)
	if err != nil {
		app.logger.Error("Generation failed", slog.String("error", err.Error()))
		return err
	}
	app.logger.Info("Generation complete",
		slog.String("output", res.OutputDir),
		slog.Int("packages", res.Set.Len()))
	return nil
}

// Check audits the scripts and checksums of an already built downloads tree.
func Check(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	dir, err := app.outputDir()
	if err != nil {
		return err
	}
	report, err := verify.Downloads(dir)
	if err != nil {
		return err
	}
	for _, issue := range report.Issues {
		app.logger.Warn("Check failed",
			slog.String("archive", issue.Archive),
			slog.String("entry", issue.Entry),
			slog.String("problem", issue.Problem))
	}
	app.logger.Info("Check complete",
		slog.String("output", dir),
		slog.Int("archives", report.Archives),
		slog.Int("scripts", report.Scripts),
		slog.Int("checksums", report.Checksums),
		slog.Int("issues", len(report.Issues)))
	if !report.OK() {
		return fmt.Errorf("check: %d issue(s) in %s", len(report.Issues), dir)
	}
	return nil
}

// MCP regenerates the catalog and serves it over stdio. Logs go to stderr.
func MCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}

	db, err := catalog.Open(app.config.Catalog.Path)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	defer db.Close()

	if _, err := app.refresh(ctx, db); err != nil {
		app.logger.Warn("initial generation failed; serving existing catalog", slog.String("error", err.Error()))
	}

	version := app.config.Project.Version
	if version == "" {
		if dir, dirErr := app.projectDir(); dirErr == nil {
			version, _ = generator.ProjectVersion(dir)
		}
	}
	return mcpserver.New(db, version, app.config.Packages.DownloadBaseURL).ServeStdio()
}

// Serve generates the site, serves the catalog API and downloads, and
// regenerates when component sources change.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("project_dir", cfg.Project.Directory),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	projectDir, err := app.projectDir()
	if err != nil {
		return err
	}
	outputDir, err := app.outputDir()
	if err != nil {
		return err
	}

	db, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	defer db.Close()

	var ready atomic.Bool
	if _, err := app.refresh(ctx, db); err != nil {
		logger.Warn("initial generation failed", slog.String("error", err.Error()))
	} else {
		ready.Store(true)
	}

	broker := sse.NewBroker(sse.Options{
		ReloadThrottle: cfg.Watch.ReloadThrottle,
		Heartbeat:      cfg.Watch.Heartbeat,
	})
	defer broker.Close()

	baseURL := fmt.Sprintf("http://localhost%s", cfg.App.HTTP.Address())
	apiRouter := api.NewRouter(db, broker, baseURL)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"generating"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	prefix := "/" + cfg.Packages.OutputPath
	r.Handle(prefix+"/*", api.Downloads(prefix, outputDir))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Regenerate on component changes and notify SSE clients.
	g.Go(func() error {
		roots := []string{
			filepath.Join(projectDir, cfg.Packages.ComponentsPath),
			filepath.Join(projectDir, examples.DefaultDocsPath),
		}
		if cfg.Packages.ExamplesPath != "" {
			roots = append(roots, filepath.Join(projectDir, cfg.Packages.ExamplesPath))
		}
		err := watch.Watch(gCtx, watch.Options{
			Roots:    roots,
			Debounce: cfg.Watch.Debounce,
			Logger:   logger,
		}, func(ctx context.Context, changed []string) error {
			refs, err := app.refresh(ctx, db)
			if err != nil {
				broker.PublishFailure(err)
				return err
			}
			ready.Store(true)
			logger.Info("Regenerated packages",
				slog.Int("files_changed", len(changed)),
				slog.Int("packages_changed", len(refs)))
			broker.PublishChanges(refs)
			return nil
		})
		if err != nil {
			logger.Warn("watcher disabled", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")
