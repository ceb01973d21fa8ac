package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kobaj/eleventy/internal/cli/ui"
	"github.com/kobaj/eleventy/internal/config"
	"github.com/kobaj/eleventy/internal/depmap"
	"github.com/kobaj/eleventy/internal/graph"
)

var (
	graphSnapshot        string
	graphNoColor         bool
	graphDepsLayouts     bool
	graphRelevantLayouts bool
)

func init() {
	graphCmd.PersistentFlags().StringVar(&graphSnapshot, "snapshot", "", "Path to the dependency snapshot (defaults to the configured path)")
	graphCmd.PersistentFlags().BoolVar(&graphNoColor, "no-color", false, "Disable colored output")
	graphDepsCmd.Flags().BoolVar(&graphDepsLayouts, "layouts", false, "Include layouts in the dependency set")
	graphRelevantCmd.Flags().BoolVar(&graphRelevantLayouts, "layouts", true, "Include layouts when deciding relevance")

	graphCmd.AddCommand(graphOrderCmd)
	graphCmd.AddCommand(graphDepsCmd)
	graphCmd.AddCommand(graphDependantsCmd)
	graphCmd.AddCommand(graphRelevantCmd)
	graphCmd.AddCommand(graphStatsCmd)
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect the persisted dependency graph",
	Long: `Inspect the dependency snapshot written by previous builds.

Examples:
  # Show the full build order
  eleventy graph order

  # What does index.md depend on?
  eleventy graph deps index.md

  # What uses posts/hello.md?
  eleventy graph dependants posts/hello.md

  # Which templates must rebuild when base.njk changes?
  eleventy graph relevant _includes/base.njk
`,
}

// loadSnapshotMap restores a dependency map from the persisted snapshot.
func loadSnapshotMap() (*depmap.Map, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	path := graphSnapshot
	if path == "" {
		path = cfg.Snapshot
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no dependency snapshot at %s - run a build first", path)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	g, err := graph.Restore(data)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}

	m := depmap.NewMap(&depmap.Config{Collections: cfg})
	m.RestoreGraph(g)
	return m, nil
}

var graphOrderCmd = &cobra.Command{
	Use:   "order",
	Short: "Show the full build order",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadSnapshotMap()
		if err != nil {
			return err
		}

		ui.Header(os.Stdout, "Build Order", graphNoColor)
		list := ui.NewOrderList(os.Stdout, graphNoColor)
		for _, node := range m.GetTemplateOrder() {
			list.AddItem(ui.NodeLabel(node), ui.KindOf(m, node))
		}
		list.Render()
		return nil
	},
}

var graphDepsCmd = &cobra.Command{
	Use:   "deps <path>",
	Short: "Show everything a file depends on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadSnapshotMap()
		if err != nil {
			return err
		}

		deps, ok := m.GetDependencies(args[0], graphDepsLayouts)
		if !ok {
			return fmt.Errorf("%s is not in the dependency graph", args[0])
		}

		if len(deps) == 0 {
			fmt.Printf("%s has no dependencies\n", args[0])
			return nil
		}
		table := ui.NewNodeTable(os.Stdout, graphNoColor)
		for _, dep := range deps {
			table.AddNode(ui.NodeLabel(dep), ui.KindOf(m, dep))
		}
		table.Render()
		return nil
	},
}

var graphDependantsCmd = &cobra.Command{
	Use:   "dependants <path>",
	Short: "Show what directly uses a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadSnapshotMap()
		if err != nil {
			return err
		}

		dependants := m.GetDependantsFor(args[0])
		if len(dependants) == 0 {
			fmt.Printf("nothing uses %s\n", args[0])
			return nil
		}
		table := ui.NewNodeTable(os.Stdout, graphNoColor)
		for _, d := range dependants {
			table.AddNode(ui.NodeLabel(d), ui.KindOf(m, d))
		}
		table.Render()
		return nil
	},
}

var graphRelevantCmd = &cobra.Command{
	Use:   "relevant <changed>...",
	Short: "Show which templates a change affects",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadSnapshotMap()
		if err != nil {
			return err
		}

		list := ui.NewOrderList(os.Stdout, graphNoColor)
		count := 0
		for _, node := range m.GetTemplateOrder() {
			if depmap.IsCollectionKey(node) || m.IsLayout(node) {
				continue
			}
			for _, changed := range args {
				if m.IsFileRelevantTo(node, changed, graphRelevantLayouts) {
					list.AddItem(ui.NodeLabel(node), ui.KindOf(m, node))
					count++
					break
				}
			}
		}
		if count == 0 {
			fmt.Println("no templates affected")
			return nil
		}
		list.Render()
		return nil
	},
}

var graphStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show graph statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadSnapshotMap()
		if err != nil {
			return err
		}

		var templates, layouts, collections int
		for _, node := range m.Graph().Nodes() {
			switch ui.KindOf(m, node) {
			case ui.KindCollection:
				collections++
			case ui.KindLayout:
				layouts++
			default:
				templates++
			}
		}

		table := ui.NewKeyValueTable(os.Stdout, graphNoColor)
		table.AddRow("Nodes", fmt.Sprintf("%d", m.Graph().Size()))
		table.AddRow("Templates", fmt.Sprintf("%d", templates))
		table.AddRow("Layouts", fmt.Sprintf("%d", layouts))
		table.AddRow("Collections", fmt.Sprintf("%d", collections))
		table.Render()
		return nil
	},
}
