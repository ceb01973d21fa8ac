// Package spider discovers the files a layout statically imports, so that
// editing a shared component invalidates every layout (and template) built
// on top of it.
//
// Discovery is a lightweight textual scan, not a full parse: ES module
// import/export clauses, CommonJS require calls, and CSS @import rules are
// matched with patterns and resolved recursively. Only project-relative
// specifiers become results; bare module specifiers (npm packages) are not
// files the build owns and are skipped.
package spider

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	esImportRe  = regexp.MustCompile(`(?m)^\s*(?:import|export)\b[^'"\n]*['"]([^'"]+)['"]`)
	requireRe   = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	cssImportRe = regexp.MustCompile(`@import\s+(?:url\(\s*)?['"]([^'"]+)['"]`)
)

// Scanner resolves static imports relative to a project root. The zero value
// is not usable; construct with New.
type Scanner struct {
	root string
}

// New creates a scanner that resolves specifiers against root.
func New(root string) *Scanner {
	return &Scanner{root: root}
}

// Discover returns every file reachable from the given layout paths through
// static imports, relative to the scanner root, in first-found order. The
// layouts themselves are not included. moduleMode enables ES-module syntax;
// script mode scans require calls only. Files that cannot be read are
// skipped: a dangling import is the build's problem to report, not the
// dependency scan's.
func (s *Scanner) Discover(ctx context.Context, layoutPaths []string, moduleMode bool) ([]string, error) {
	visited := make(map[string]bool)
	found := []string{}

	var scan func(rel string, isRoot bool) error
	scan = func(rel string, isRoot bool) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("discover imports: %w", err)
		}
		if visited[rel] {
			return nil
		}
		visited[rel] = true
		if !isRoot {
			found = append(found, rel)
		}

		content, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
		if err != nil {
			return nil
		}
		for _, spec := range specifiers(string(content), path.Ext(rel), moduleMode) {
			target, ok := s.resolve(rel, spec)
			if !ok {
				continue
			}
			if err := scan(target, false); err != nil {
				return err
			}
		}
		return nil
	}

	for _, layout := range layoutPaths {
		rel := strings.TrimPrefix(filepath.ToSlash(layout), "./")
		if err := scan(rel, true); err != nil {
			return nil, err
		}
	}
	return found, nil
}

// specifiers extracts raw import specifiers from source text.
func specifiers(content, ext string, moduleMode bool) []string {
	var specs []string
	if ext == ".css" {
		for _, match := range cssImportRe.FindAllStringSubmatch(content, -1) {
			specs = append(specs, match[1])
		}
		return specs
	}
	if moduleMode {
		for _, match := range esImportRe.FindAllStringSubmatch(content, -1) {
			specs = append(specs, match[1])
		}
	}
	for _, match := range requireRe.FindAllStringSubmatch(content, -1) {
		specs = append(specs, match[1])
	}
	return specs
}

// resolve turns a specifier found in the file at rel into a root-relative
// path. Bare specifiers resolve to false.
func (s *Scanner) resolve(rel, spec string) (string, bool) {
	if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") {
		return "", false
	}
	target := path.Join(path.Dir(rel), spec)
	if strings.HasPrefix(target, "../") {
		// Escapes the project root; not a file this build owns.
		return "", false
	}
	if path.Ext(target) == "" {
		// Extensionless ES specifiers conventionally mean .js.
		target += ".js"
	}
	return target, true
}
