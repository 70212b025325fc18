package render

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"epistola/internal/expr"
	"epistola/internal/style"
	"epistola/internal/template"
)

// Renderer turns a template graph, a theme and a data context into an
// ordered block sequence. It is stateless and safe for concurrent use.
type Renderer struct {
	eval *expr.Dispatcher
}

// New creates a renderer using the given expression dispatcher.
func New(eval *expr.Dispatcher) *Renderer {
	return &Renderer{eval: eval}
}

// walkState carries the per-branch rendering context down the tree.
type walkState struct {
	graph     *template.Graph
	theme     *template.Theme
	data      map[string]interface{}
	inherited template.Style
}

// Render walks the graph depth-first from its root. Any expression or
// structural error aborts the whole render; a document is produced fully
// or not at all.
func (r *Renderer) Render(ctx context.Context, g *template.Graph, th *template.Theme, data map[string]interface{}) ([]Block, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	st := walkState{
		graph:     g,
		theme:     th,
		data:      data,
		inherited: template.Style{},
	}
	return r.renderNode(ctx, g.RootID, st)
}

func (r *Renderer) renderNode(ctx context.Context, nodeID string, st walkState) ([]Block, error) {
	node, ok := st.graph.Nodes[nodeID]
	if !ok {
		return nil, nil
	}

	// Cascade: theme defaults, document override, inherited typography from
	// the parent, then the node's preset and inline styles.
	base := style.Merge(style.Merge(st.theme.DocumentStyles, st.graph.DocumentStyles), st.inherited)
	effective := style.Effective(
		base,
		nil,
		st.theme.Preset(node.StylePreset, node.Type),
		node.Styles,
	)

	switch node.Type {
	case template.NodeText:
		return r.renderText(ctx, node, st, effective)
	case template.NodeContainer:
		return r.renderSlots(ctx, node, st, effective)
	case template.NodeColumns:
		return r.renderColumns(ctx, node, st, effective)
	case template.NodeTable:
		return r.renderTable(ctx, node, st, effective)
	case template.NodeConditional:
		return r.renderConditional(ctx, node, st, effective)
	case template.NodeLoop:
		return r.renderLoop(ctx, node, st, effective)
	case template.NodePageBreak:
		return []Block{{Kind: BlockPageBreak}}, nil
	default:
		// Unknown node types render as empty for forward compatibility.
		return nil, nil
	}
}

// renderChildren renders the ordered children of one slot, propagating only
// inheritable properties of the parent's effective style.
func (r *Renderer) renderChildren(ctx context.Context, slotID string, st walkState, parent template.Style) ([]Block, error) {
	slot, ok := st.graph.Slots[slotID]
	if !ok {
		return nil, nil // a missing slot renders as empty
	}

	child := st
	child.inherited = style.Inherited(parent)

	var blocks []Block
	for _, childID := range slot.ChildNodeIDs {
		rendered, err := r.renderNode(ctx, childID, child)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, rendered...)
	}
	return blocks, nil
}

// renderSlots stacks all slots of a structural node in order.
func (r *Renderer) renderSlots(ctx context.Context, node template.Node, st walkState, effective template.Style) ([]Block, error) {
	var blocks []Block
	for _, slotID := range node.SlotIDs {
		rendered, err := r.renderChildren(ctx, slotID, st, effective)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, rendered...)
	}
	return blocks, nil
}

// textProps is the type-specific payload of a text node. Content is a list
// of literal runs and embedded expressions with optional formatting marks.
type textProps struct {
	Spans []textSpan `json:"spans"`
}

type textSpan struct {
	Text  string           `json:"text,omitempty"`
	Expr  *expr.Expression `json:"expr,omitempty"`
	Marks map[string]bool  `json:"marks,omitempty"`
}

func (r *Renderer) renderText(ctx context.Context, node template.Node, st walkState, effective template.Style) ([]Block, error) {
	var props textProps
	if len(node.Props) > 0 {
		if err := json.Unmarshal(node.Props, &props); err != nil {
			return nil, fmt.Errorf("invalid text node props: %w", err)
		}
	}

	var spans []Span
	for _, ts := range props.Spans {
		text := ts.Text
		if ts.Expr != nil {
			value, err := r.eval.Evaluate(ctx, *ts.Expr, st.data)
			if err != nil {
				return nil, err
			}
			text = Stringify(value)
		}
		spans = append(spans, Span{
			Text:  text,
			Style: applyMarks(effective, ts.Marks),
		})
	}

	return []Block{{Kind: BlockText, Style: effective, Spans: spans}}, nil
}

// applyMarks translates rich-text formatting marks into style directives
// layered over the span's base style.
func applyMarks(base template.Style, marks map[string]bool) template.Style {
	if len(marks) == 0 {
		return base
	}
	out := base.Clone()
	if marks["bold"] {
		out["fontWeight"] = "bold"
	}
	if marks["italic"] {
		out["fontStyle"] = "italic"
	}
	if marks["underline"] {
		out["textDecoration"] = "underline"
	}
	if marks["strike"] {
		out["textDecoration"] = "line-through"
	}
	return out
}

type columnsProps struct {
	Ratios []float64 `json:"ratios,omitempty"`
}

func (r *Renderer) renderColumns(ctx context.Context, node template.Node, st walkState, effective template.Style) ([]Block, error) {
	var props columnsProps
	if len(node.Props) > 0 {
		if err := json.Unmarshal(node.Props, &props); err != nil {
			return nil, fmt.Errorf("invalid columns node props: %w", err)
		}
	}

	columns := make([]Column, 0, len(node.SlotIDs))
	for i, slotID := range node.SlotIDs {
		blocks, err := r.renderChildren(ctx, slotID, st, effective)
		if err != nil {
			return nil, err
		}
		ratio := 1.0
		if i < len(props.Ratios) && props.Ratios[i] > 0 {
			ratio = props.Ratios[i]
		}
		columns = append(columns, Column{Ratio: ratio, Blocks: blocks})
	}

	return []Block{{Kind: BlockColumns, Style: effective, Columns: columns}}, nil
}

// tableProps addresses slots to grid cells. Cells may span rows and columns.
type tableProps struct {
	Rows  int             `json:"rows"`
	Cols  int             `json:"cols"`
	Cells []tableCellProp `json:"cells"`
}

type tableCellProp struct {
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	RowSpan int    `json:"rowSpan,omitempty"`
	ColSpan int    `json:"colSpan,omitempty"`
	SlotID  string `json:"slotId"`
}

func (r *Renderer) renderTable(ctx context.Context, node template.Node, st walkState, effective template.Style) ([]Block, error) {
	var props tableProps
	if len(node.Props) > 0 {
		if err := json.Unmarshal(node.Props, &props); err != nil {
			return nil, fmt.Errorf("invalid table node props: %w", err)
		}
	}
	if props.Rows <= 0 || props.Cols <= 0 {
		return nil, fmt.Errorf("table node requires positive row and column counts")
	}

	tbl := &Table{Rows: props.Rows, Cols: props.Cols}
	for _, cell := range props.Cells {
		if cell.Row < 0 || cell.Row >= props.Rows || cell.Col < 0 || cell.Col >= props.Cols {
			return nil, fmt.Errorf("table cell (%d,%d) outside %dx%d grid", cell.Row, cell.Col, props.Rows, props.Cols)
		}
		blocks, err := r.renderChildren(ctx, cell.SlotID, st, effective)
		if err != nil {
			return nil, err
		}
		rowSpan, colSpan := cell.RowSpan, cell.ColSpan
		if rowSpan < 1 {
			rowSpan = 1
		}
		if colSpan < 1 {
			colSpan = 1
		}
		tbl.Cells = append(tbl.Cells, Cell{
			Row: cell.Row, Col: cell.Col,
			RowSpan: rowSpan, ColSpan: colSpan,
			Blocks: blocks,
		})
	}

	return []Block{{Kind: BlockTable, Style: effective, Table: tbl}}, nil
}

type conditionalProps struct {
	Expr    expr.Expression `json:"expr"`
	Inverse bool            `json:"inverse,omitempty"`
}

func (r *Renderer) renderConditional(ctx context.Context, node template.Node, st walkState, effective template.Style) ([]Block, error) {
	var props conditionalProps
	if err := json.Unmarshal(node.Props, &props); err != nil {
		return nil, fmt.Errorf("invalid conditional node props: %w", err)
	}

	// The condition is evaluated once, not per child.
	value, err := r.eval.Evaluate(ctx, props.Expr, st.data)
	if err != nil {
		return nil, err
	}

	show := expr.Truthy(value)
	if props.Inverse {
		show = !show
	}
	if !show {
		return nil, nil
	}
	return r.renderSlots(ctx, node, st, effective)
}

type loopProps struct {
	Expr       expr.Expression `json:"expr"`
	Alias      string          `json:"alias"`
	IndexAlias string          `json:"indexAlias,omitempty"`
}

func (r *Renderer) renderLoop(ctx context.Context, node template.Node, st walkState, effective template.Style) ([]Block, error) {
	var props loopProps
	if err := json.Unmarshal(node.Props, &props); err != nil {
		return nil, fmt.Errorf("invalid loop node props: %w", err)
	}
	if props.Alias == "" {
		return nil, fmt.Errorf("loop node requires an item alias")
	}

	// The array expression is evaluated once against the outer context.
	value, err := r.eval.Evaluate(ctx, props.Expr, st.data)
	if err != nil {
		return nil, err
	}

	items, ok := value.([]interface{})
	if !ok {
		// Empty or non-array results render zero iterations.
		return nil, nil
	}

	var blocks []Block
	for i, item := range items {
		iter := st
		iter.data = bindAliases(st.data, props.Alias, item, props.IndexAlias, i)
		rendered, err := r.renderSlots(ctx, node, iter, effective)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, rendered...)
	}
	return blocks, nil
}

// bindAliases derives a new data context with the loop variables layered
// over the parent context. The parent map is never mutated, so sibling
// branches and outer iterations are unaffected.
func bindAliases(parent map[string]interface{}, alias string, item interface{}, indexAlias string, index int) map[string]interface{} {
	derived := make(map[string]interface{}, len(parent)+2)
	for k, v := range parent {
		derived[k] = v
	}
	derived[alias] = item
	if indexAlias != "" {
		derived[indexAlias] = index
	}
	return derived
}

// Stringify renders an expression result for inline substitution.
// Strings pass through; null becomes empty; composites are JSON-encoded.
func Stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		encoded, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(encoded)
	}
}
