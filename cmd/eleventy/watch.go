package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kobaj/eleventy/internal/config"
	"github.com/kobaj/eleventy/internal/depmap"
	"github.com/kobaj/eleventy/internal/spider"
	"github.com/kobaj/eleventy/internal/watch"
)

var (
	watchPort    int
	watchVerbose bool
)

func init() {
	watchCmd.Flags().IntVar(&watchPort, "port", 0, "Development server port (overrides configuration)")
	watchCmd.Flags().BoolVar(&watchVerbose, "verbose", false, "Show verbose output")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Start the development server with live reload",
	Long: `Watch the input directory, rebuild affected templates incrementally,
and serve the output with live browser reload.

File changes are debounced, run through the dependency graph to find the
minimal set of affected templates, and rebuilt in dependency order. Connected
browsers refresh automatically when a build lands.

Examples:
  # Start with the configured port
  eleventy watch

  # Use a custom port
  eleventy watch --port 3000
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if watchPort != 0 {
			cfg.Server.Port = watchPort
		}
		if _, err := os.Stat(cfg.Input); os.IsNotExist(err) {
			return fmt.Errorf("input directory %s not found - are you in a site directory?", cfg.Input)
		}

		logger, err := newLogger(watchVerbose)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer logger.Sync()
		log := logger.Sugar()

		scanner := spider.New(cfg.Input)
		deps := depmap.NewMap(&depmap.Config{
			Collections:   cfg,
			Discover:      scanner.Discover,
			SpiderImports: cfg.Imports.Spider,
			ModuleMode:    cfg.Imports.ModuleMode,
		})

		reloadServer := watch.NewReloadServer(log)
		renderer := &passthroughRenderer{cfg: cfg, deps: deps}
		planner := watch.NewPlanner(deps, renderer, reloadServer, cfg.Snapshot, log)

		if err := planner.LoadSnapshot(); err != nil {
			log.Warnw("could not load dependency snapshot", "error", err)
		}

		devServer, err := watch.NewDevServer(cfg, planner, reloadServer, log)
		if err != nil {
			return fmt.Errorf("create dev server: %w", err)
		}
		if err := devServer.Start(); err != nil {
			return fmt.Errorf("start dev server: %w", err)
		}

		fmt.Printf("\nServing %s at http://%s:%d\n", cfg.Output, cfg.Server.Host, cfg.Server.Port)
		fmt.Println("Press Ctrl+C to stop")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		fmt.Println("\nShutting down...")
		return devServer.Stop()
	},
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

// passthroughRenderer mirrors source templates into the output directory and
// registers them with the dependency map. It stands in for a full template
// engine: dependency facts beyond the file's own node come from layout
// discovery and collection reports during real rendering.
type passthroughRenderer struct {
	cfg  *config.Config
	deps *depmap.Map
}

func (r *passthroughRenderer) Render(ctx context.Context, templates []string) error {
	for _, tmpl := range templates {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := r.deps.AddDependency(tmpl, nil); err != nil {
			return fmt.Errorf("register %s: %w", tmpl, err)
		}

		src := filepath.Join(r.cfg.Input, filepath.FromSlash(tmpl))
		data, err := os.ReadFile(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("read %s: %w", tmpl, err)
		}

		out := outputPath(r.cfg.Output, tmpl)
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return fmt.Errorf("create output dir for %s: %w", tmpl, err)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", tmpl, err)
		}
	}
	return nil
}

// outputPath maps a source template path to its output location. Markdown
// sources publish as HTML next to their source-relative path.
func outputPath(outputDir, tmpl string) string {
	rel := tmpl
	if strings.HasSuffix(rel, ".md") {
		rel = strings.TrimSuffix(rel, ".md") + ".html"
	}
	return filepath.Join(outputDir, filepath.FromSlash(rel))
}
