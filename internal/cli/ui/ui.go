// Package ui renders dependency-graph query results for the terminal.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/kobaj/eleventy/internal/depmap"
)

// NodeKind classifies a graph node for display.
type NodeKind int

const (
	KindTemplate NodeKind = iota
	KindLayout
	KindCollection
)

// KindLabel returns the display name for a node kind.
func KindLabel(kind NodeKind) string {
	switch kind {
	case KindLayout:
		return "layout"
	case KindCollection:
		return "collection"
	default:
		return "template"
	}
}

// KindOf classifies a node by its name and the map's metadata.
func KindOf(m *depmap.Map, node string) NodeKind {
	if depmap.IsCollectionKey(node) {
		return KindCollection
	}
	if m.IsLayout(node) {
		return KindLayout
	}
	return KindTemplate
}

// NodeLabel formats a node for display: collection nodes show their bare
// name, everything else shows the path.
func NodeLabel(node string) string {
	if name, ok := depmap.CollectionNameFromKey(node); ok {
		return name
	}
	return node
}

func kindColor(kind NodeKind) *color.Color {
	switch kind {
	case KindLayout:
		return color.New(color.FgYellow)
	case KindCollection:
		return color.New(color.FgMagenta)
	default:
		return color.New(color.FgWhite)
	}
}

// NodeTable renders nodes with their kinds in aligned columns.
type NodeTable struct {
	writer  io.Writer
	rows    []nodeRow
	noColor bool
}

type nodeRow struct {
	label string
	kind  NodeKind
}

// NewNodeTable creates a node table.
func NewNodeTable(w io.Writer, noColor bool) *NodeTable {
	return &NodeTable{writer: w, noColor: noColor}
}

// AddNode adds one node row.
func (t *NodeTable) AddNode(label string, kind NodeKind) {
	t.rows = append(t.rows, nodeRow{label: label, kind: kind})
}

// Render writes the table.
func (t *NodeTable) Render() {
	if len(t.rows) == 0 {
		return
	}

	width := 0
	for _, row := range t.rows {
		if len(row.label) > width {
			width = len(row.label)
		}
	}

	for _, row := range t.rows {
		c := kindColor(row.kind)
		if t.noColor {
			c.DisableColor()
		}
		c.Fprint(t.writer, padRight(row.label, width))
		fmt.Fprintf(t.writer, "  %s\n", KindLabel(row.kind))
	}
}

// OrderList renders a build order as a numbered list.
type OrderList struct {
	writer  io.Writer
	items   []nodeRow
	noColor bool
}

// NewOrderList creates an order list.
func NewOrderList(w io.Writer, noColor bool) *OrderList {
	return &OrderList{writer: w, noColor: noColor}
}

// AddItem adds one node in order.
func (l *OrderList) AddItem(label string, kind NodeKind) {
	l.items = append(l.items, nodeRow{label: label, kind: kind})
}

// Render writes the list.
func (l *OrderList) Render() {
	if len(l.items) == 0 {
		return
	}

	cyan := color.New(color.FgCyan)
	if l.noColor {
		cyan.DisableColor()
	}
	for i, item := range l.items {
		cyan.Fprintf(l.writer, "%3d. ", i+1)
		c := kindColor(item.kind)
		if l.noColor {
			c.DisableColor()
		}
		c.Fprintln(l.writer, item.label)
	}
}

// KeyValueTable renders aligned key-value pairs, used for graph stats.
type KeyValueTable struct {
	writer  io.Writer
	rows    []kvRow
	noColor bool
}

type kvRow struct {
	key   string
	value string
}

// NewKeyValueTable creates a key-value table.
func NewKeyValueTable(w io.Writer, noColor bool) *KeyValueTable {
	return &KeyValueTable{writer: w, noColor: noColor}
}

// AddRow adds a key-value pair.
func (t *KeyValueTable) AddRow(key, value string) {
	t.rows = append(t.rows, kvRow{key: key, value: value})
}

// Render writes the table.
func (t *KeyValueTable) Render() {
	if len(t.rows) == 0 {
		return
	}

	width := 0
	for _, row := range t.rows {
		if len(row.key) > width {
			width = len(row.key)
		}
	}

	cyan := color.New(color.FgCyan)
	if t.noColor {
		cyan.DisableColor()
	}
	for _, row := range t.rows {
		cyan.Fprint(t.writer, padRight(row.key+":", width+1))
		fmt.Fprintf(t.writer, " %s\n", row.value)
	}
}

// Header renders a styled section header with an underline.
func Header(w io.Writer, title string, noColor bool) {
	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if noColor {
		bold.DisableColor()
		gray.DisableColor()
	}
	bold.Fprintln(w, title)
	gray.Fprintln(w, strings.Repeat("─", len(title)))
}

// Success renders a success message.
func Success(w io.Writer, noColor bool, format string, args ...interface{}) {
	green := color.New(color.FgGreen)
	if noColor {
		green.DisableColor()
	}
	green.Fprint(w, "✓ ")
	fmt.Fprintf(w, format+"\n", args...)
}

// Warning renders a warning message.
func Warning(w io.Writer, noColor bool, format string, args ...interface{}) {
	yellow := color.New(color.FgYellow)
	if noColor {
		yellow.DisableColor()
	}
	yellow.Fprint(w, "⚠ ")
	fmt.Fprintf(w, format+"\n", args...)
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
