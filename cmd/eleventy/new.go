package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/kobaj/eleventy/internal/cli/ui"
)

var newCmd = &cobra.Command{
	Use:   "new <project-name>",
	Short: "Create a new site project",
	Long:  "Create a new site project with a configuration file, directory skeleton, and a sample page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectName := args[0]

		if strings.TrimSpace(projectName) == "" {
			return fmt.Errorf("project name cannot be empty")
		}
		if strings.Contains(projectName, "..") {
			return fmt.Errorf("project name cannot contain '..'")
		}
		if strings.ContainsAny(projectName, "/\\") {
			return fmt.Errorf("project name cannot contain path separators")
		}
		if strings.HasPrefix(projectName, ".") {
			return fmt.Errorf("project name cannot start with '.'")
		}

		projectPath := filepath.Join(".", projectName)
		if _, err := os.Stat(projectPath); err == nil {
			return fmt.Errorf("directory %s already exists", projectName)
		}

		questions := []*survey.Question{
			{
				Name: "input",
				Prompt: &survey.Input{
					Message: "Input directory:",
					Default: "src",
				},
			},
			{
				Name: "output",
				Prompt: &survey.Input{
					Message: "Output directory:",
					Default: "_site",
				},
			},
			{
				Name: "collections",
				Prompt: &survey.Input{
					Message: "Collections (comma separated, empty for none):",
				},
			},
		}

		var raw struct {
			Input       string
			Output      string
			Collections string
		}
		if err := survey.Ask(questions, &raw); err != nil {
			return err
		}
		var collections []string
		for _, name := range strings.Split(raw.Collections, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				collections = append(collections, trimmed)
			}
		}

		dirs := []string{
			projectPath,
			filepath.Join(projectPath, raw.Input),
			filepath.Join(projectPath, raw.Input, "_includes"),
			filepath.Join(projectPath, raw.Output),
		}
		for _, dir := range dirs {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}

		if err := writeProjectConfig(projectPath, raw.Input, raw.Output, collections); err != nil {
			return err
		}
		if err := writeSamplePages(projectPath, raw.Input); err != nil {
			return err
		}

		ui.Success(os.Stdout, false, "Created %s", projectName)
		fmt.Println("\nNext steps:")
		fmt.Printf("  cd %s\n", projectName)
		fmt.Println("  eleventy watch")
		return nil
	},
}

func writeProjectConfig(projectPath, input, output string, collections []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "input: %s\n", input)
	fmt.Fprintf(&b, "output: %s\n", output)
	if len(collections) > 0 {
		b.WriteString("collections:\n")
		for _, name := range collections {
			fmt.Fprintf(&b, "  - %s\n", name)
		}
	}
	b.WriteString("server:\n  port: 8080\n  host: localhost\n")

	path := filepath.Join(projectPath, "eleventy.yml")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	return nil
}

func writeSamplePages(projectPath, input string) error {
	index := `# Welcome

This page rebuilds automatically when you save.
`
	layout := `<!doctype html>
<html>
  <body>
    <main>{{ content }}</main>
  </body>
</html>
`
	files := map[string]string{
		filepath.Join(projectPath, input, "index.md"):              index,
		filepath.Join(projectPath, input, "_includes", "base.njk"): layout,
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}
