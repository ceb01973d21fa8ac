package watch

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kobaj/eleventy/internal/config"
)

//go:embed assets/reload.js
var reloadScript string

const reloadScriptTag = `<script src="/__reload.js"></script>`

// DevServer serves the built site with live reload: a file watcher feeds
// changes to the planner, the planner rebuilds and the reload server tells
// connected browsers to refresh.
type DevServer struct {
	cfg          *config.Config
	watcher      *FileWatcher
	planner      *Planner
	reloadServer *ReloadServer
	assets       *AssetSync
	httpServer   *http.Server
	log          *zap.SugaredLogger

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewDevServer wires up a development server from the site configuration.
func NewDevServer(cfg *config.Config, planner *Planner, reloadServer *ReloadServer, log *zap.SugaredLogger) (*DevServer, error) {
	ds := &DevServer{
		cfg:          cfg,
		planner:      planner,
		reloadServer: reloadServer,
		assets:       NewAssetSync(cfg.Input, cfg.Output, log),
		log:          log,
		stopChan:     make(chan struct{}),
	}

	var err error
	ds.watcher, err = NewFileWatcher(cfg.Input, cfg.Watch.Patterns, cfg.Watch.Ignored, log, ds.handleFileChange)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return ds, nil
}

// Start begins watching and serving. It returns once the HTTP server is
// listening; Stop shuts everything down.
func (ds *DevServer) Start() error {
	if err := ds.watcher.Start(); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/__reload", ds.reloadServer.HandleWebSocket)
	r.Get("/__reload.js", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Write([]byte(reloadScript))
	})
	r.Get("/*", ds.serveSite)

	addr := fmt.Sprintf("%s:%d", ds.cfg.Server.Host, ds.cfg.Server.Port)
	ds.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}

	ds.wg.Add(1)
	go func() {
		defer ds.wg.Done()
		if err := ds.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ds.log.Errorw("dev server error", "error", err)
		}
	}()

	ds.log.Infow("dev server ready",
		"url", fmt.Sprintf("http://%s", addr),
		"serving", ds.cfg.Output,
	)
	return nil
}

// Stop shuts down the watcher, the reload server and the HTTP server.
func (ds *DevServer) Stop() error {
	close(ds.stopChan)

	if ds.watcher != nil {
		ds.watcher.Stop()
	}
	if ds.reloadServer != nil {
		ds.reloadServer.Close()
	}
	if ds.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ds.httpServer.Shutdown(ctx)
	}

	ds.wg.Wait()
	ds.log.Info("dev server stopped")
	return nil
}

// handleFileChange reacts to a debounced batch of change events. Watcher
// paths are rooted at the input directory; graph nodes are input-relative, so
// everything is rebased before planning.
func (ds *DevServer) handleFileChange(files []string) error {
	rel := make([]string, 0, len(files))
	for _, f := range files {
		r, err := filepath.Rel(ds.cfg.Input, f)
		if err != nil || strings.HasPrefix(r, "..") {
			ds.log.Debugw("change outside input directory", "path", f)
			continue
		}
		rel = append(rel, filepath.ToSlash(r))
	}
	impact := AnalyzeImpact(rel)

	if len(impact.Assets) > 0 {
		if err := ds.assets.CopyAll(impact.Assets); err == nil {
			ds.reloadServer.NotifyReload("assets")
		}
	}

	if impact.Scope == ScopeConfig {
		ds.log.Infow("configuration changed, rebuilding everything", "files", files)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		_, err := ds.planner.FullRebuild(ctx)
		return err
	}

	if len(impact.Templates) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	_, err := ds.planner.Rebuild(ctx, impact.Templates)
	return err
}

// serveSite serves files from the output directory, injecting the reload
// script into HTML so browsers pick up rebuild notifications.
func (ds *DevServer) serveSite(w http.ResponseWriter, r *http.Request) {
	cleanPath := path.Clean(r.URL.Path)
	if strings.Contains(cleanPath, "..") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	fsPath := filepath.Join(ds.cfg.Output, filepath.FromSlash(cleanPath))
	info, err := os.Stat(fsPath)
	if err == nil && info.IsDir() {
		fsPath = filepath.Join(fsPath, "index.html")
		info, err = os.Stat(fsPath)
	}
	if err != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	if strings.HasSuffix(fsPath, ".html") {
		data, err := os.ReadFile(fsPath)
		if err != nil {
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(injectReloadScript(data))
		return
	}

	http.ServeFile(w, r, fsPath)
}

// injectReloadScript inserts the reload script tag before </body>, or
// appends it when the page has no body close tag.
func injectReloadScript(html []byte) []byte {
	idx := bytes.LastIndex(html, []byte("</body>"))
	if idx < 0 {
		return append(html, []byte(reloadScriptTag)...)
	}
	out := make([]byte, 0, len(html)+len(reloadScriptTag))
	out = append(out, html[:idx]...)
	out = append(out, []byte(reloadScriptTag)...)
	out = append(out, html[idx:]...)
	return out
}
