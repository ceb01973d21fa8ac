package watch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ChangeImpact classifies a batch of file changes by how much work they
// trigger.
type ChangeImpact struct {
	Scope     ImpactScope
	Templates []string
	Assets    []string
}

// ImpactScope defines the scope of changes.
type ImpactScope int

const (
	ScopeAsset  ImpactScope = iota // copy through, browser refresh only
	ScopeRender                    // incremental rebuild via the dependency map
	ScopeConfig                    // configuration reload, full rebuild
)

var templateExtensions = map[string]bool{
	".md":     true,
	".html":   true,
	".njk":    true,
	".liquid": true,
}

// IsTemplateFile reports whether a path is rendered through the template
// pipeline rather than copied through.
func IsTemplateFile(path string) bool {
	return templateExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsConfigFile reports whether a path is part of the site configuration.
func IsConfigFile(path string) bool {
	base := filepath.Base(path)
	return base == "eleventy.yml" || base == "eleventy.yaml" ||
		strings.HasPrefix(filepath.ToSlash(path), "config/")
}

// AnalyzeImpact buckets changed files into templates and passthrough assets
// and picks the widest scope any of them demands.
func AnalyzeImpact(files []string) *ChangeImpact {
	impact := &ChangeImpact{}
	for _, file := range files {
		switch {
		case IsConfigFile(file):
			impact.Scope = ScopeConfig
		case IsTemplateFile(file):
			if impact.Scope < ScopeRender {
				impact.Scope = ScopeRender
			}
			impact.Templates = append(impact.Templates, file)
		default:
			impact.Assets = append(impact.Assets, file)
		}
	}
	return impact
}

// AssetSync copies passthrough assets from the input directory to the output
// directory, preserving relative paths.
type AssetSync struct {
	inputDir  string
	outputDir string
	log       *zap.SugaredLogger
}

// NewAssetSync creates an asset syncer.
func NewAssetSync(inputDir, outputDir string, log *zap.SugaredLogger) *AssetSync {
	return &AssetSync{
		inputDir:  inputDir,
		outputDir: outputDir,
		log:       log,
	}
}

// Copy mirrors one input-relative asset path into the output directory. A
// source that no longer exists removes the mirrored copy instead.
func (as *AssetSync) Copy(rel string) error {
	rel = filepath.FromSlash(rel)
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("asset %s is outside the input directory", rel)
	}
	dst := filepath.Join(as.outputDir, rel)

	src, err := os.Open(filepath.Join(as.inputDir, rel))
	if err != nil {
		if os.IsNotExist(err) {
			as.log.Debugw("asset removed", "path", rel)
			return os.RemoveAll(dst)
		}
		return fmt.Errorf("open asset: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create asset dir: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("copy asset: %w", err)
	}
	as.log.Debugw("asset copied", "path", rel)
	return nil
}

// CopyAll mirrors a batch of changed assets, reporting the first error but
// attempting every file.
func (as *AssetSync) CopyAll(paths []string) error {
	var firstErr error
	for _, path := range paths {
		if err := as.Copy(path); err != nil {
			as.log.Warnw("asset sync failed", "path", path, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
