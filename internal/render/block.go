// Package render walks a template graph against a data context and produces
// the ordered styled content blocks handed to document assembly.
package render

import (
	"strings"

	"epistola/internal/template"
)

// BlockKind tags the variant carried by a Block.
type BlockKind string

const (
	BlockText      BlockKind = "text"
	BlockColumns   BlockKind = "columns"
	BlockTable     BlockKind = "table"
	BlockPageBreak BlockKind = "pageBreak"
)

// Block is one styled content unit in document order. Kind selects which
// fields are populated; unknown kinds are ignored by assembly.
type Block struct {
	Kind  BlockKind
	Style template.Style

	// text
	Spans []Span

	// columns
	Columns []Column

	// table
	Table *Table
}

// Span is a run of text with its own resolved style (bold, italic, ...).
type Span struct {
	Text  string
	Style template.Style
}

// Column is one vertical strip of a columns block. Ratio is its declared
// width share relative to its siblings.
type Column struct {
	Ratio  float64
	Blocks []Block
}

// Table is a grid of cells addressed by row/column with optional merge spans.
type Table struct {
	Rows  int
	Cols  int
	Cells []Cell
}

// Cell is one table cell. RowSpan/ColSpan default to 1.
type Cell struct {
	Row     int
	Col     int
	RowSpan int
	ColSpan int
	Blocks  []Block
}

// Text flattens a block's visible text content. Used by tests and by
// assembly fallbacks for nested structures.
func (b Block) Text() string {
	var sb strings.Builder
	switch b.Kind {
	case BlockText:
		for _, span := range b.Spans {
			sb.WriteString(span.Text)
		}
	case BlockColumns:
		for _, col := range b.Columns {
			for _, child := range col.Blocks {
				sb.WriteString(child.Text())
			}
		}
	case BlockTable:
		if b.Table != nil {
			for _, cell := range b.Table.Cells {
				for _, child := range cell.Blocks {
					sb.WriteString(child.Text())
				}
			}
		}
	}
	return sb.String()
}

// Text collects the visible text of a block sequence.
func Text(blocks []Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(b.Text())
	}
	return sb.String()
}
