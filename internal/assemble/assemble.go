// Package assemble turns a rendered block sequence and page settings into
// PDF bytes. Layout and serialization are owned by the fpdf library; this
// package only maps block styles onto its drawing calls.
package assemble

import (
	"fmt"
	"io"
	"strings"

	"epistola/internal/render"
	"epistola/internal/template"

	"github.com/go-pdf/fpdf"
)

const defaultFontSize = 11

// Assemble writes the paginated PDF for blocks to w.
func Assemble(w io.Writer, blocks []render.Block, page *template.PageSettings) error {
	settings := withDefaults(page)

	pdf := fpdf.New(settings.Orientation, "mm", settings.Size, "")
	pdf.SetMargins(settings.MarginLeft, settings.MarginTop, settings.MarginRight)
	pdf.SetAutoPageBreak(true, settings.MarginBot)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", defaultFontSize)

	for _, block := range blocks {
		writeBlock(pdf, block)
	}

	if pdf.Err() {
		return fmt.Errorf("document assembly failed: %w", pdf.Error())
	}
	return pdf.Output(w)
}

func withDefaults(page *template.PageSettings) template.PageSettings {
	settings := template.PageSettings{
		Size:        "A4",
		Orientation: "P",
		MarginTop:   20,
		MarginRight: 15,
		MarginBot:   20,
		MarginLeft:  15,
	}
	if page == nil {
		return settings
	}
	if page.Size != "" {
		settings.Size = page.Size
	}
	if page.Orientation != "" {
		settings.Orientation = page.Orientation
	}
	if page.MarginTop > 0 {
		settings.MarginTop = page.MarginTop
	}
	if page.MarginRight > 0 {
		settings.MarginRight = page.MarginRight
	}
	if page.MarginBot > 0 {
		settings.MarginBot = page.MarginBot
	}
	if page.MarginLeft > 0 {
		settings.MarginLeft = page.MarginLeft
	}
	return settings
}

func writeBlock(pdf *fpdf.Fpdf, block render.Block) {
	switch block.Kind {
	case render.BlockText:
		writeText(pdf, block)
	case render.BlockColumns:
		writeColumns(pdf, block)
	case render.BlockTable:
		writeTable(pdf, block)
	case render.BlockPageBreak:
		pdf.AddPage()
	}
}

func writeText(pdf *fpdf.Fpdf, block render.Block) {
	lineHt := lineHeight(block.Style)
	for _, span := range block.Spans {
		applyFont(pdf, span.Style)
		pdf.Write(lineHt, span.Text)
	}
	pdf.Ln(lineHt)
}

func writeColumns(pdf *fpdf.Fpdf, block render.Block) {
	pageW, _ := pdf.GetPageSize()
	lm, _, rm, _ := pdf.GetMargins()
	contentW := pageW - lm - rm

	var totalRatio float64
	for _, col := range block.Columns {
		totalRatio += col.Ratio
	}
	if totalRatio <= 0 {
		return
	}

	top := pdf.GetY()
	bottom := top
	x := lm
	lineHt := lineHeight(block.Style)

	for _, col := range block.Columns {
		colW := contentW * col.Ratio / totalRatio
		pdf.SetXY(x, top)
		for _, child := range col.Blocks {
			applyFont(pdf, child.Style)
			pdf.SetX(x)
			pdf.MultiCell(colW, lineHt, child.Text(), "", alignOf(child.Style), false)
		}
		if y := pdf.GetY(); y > bottom {
			bottom = y
		}
		x += colW
	}

	pdf.SetXY(lm, bottom)
	pdf.Ln(lineHt * 0.5)
}

func writeTable(pdf *fpdf.Fpdf, block render.Block) {
	tbl := block.Table
	if tbl == nil || tbl.Cols <= 0 {
		return
	}

	pageW, _ := pdf.GetPageSize()
	lm, _, rm, _ := pdf.GetMargins()
	colW := (pageW - lm - rm) / float64(tbl.Cols)
	lineHt := lineHeight(block.Style)
	rowHt := lineHt * 1.6

	// Cells are drawn in grid order; span continuations stay empty.
	byPosition := make(map[[2]int]render.Cell, len(tbl.Cells))
	for _, cell := range tbl.Cells {
		byPosition[[2]int{cell.Row, cell.Col}] = cell
	}

	applyFont(pdf, block.Style)
	for row := 0; row < tbl.Rows; row++ {
		pdf.SetX(lm)
		for col := 0; col < tbl.Cols; col++ {
			cell, ok := byPosition[[2]int{row, col}]
			if !ok {
				pdf.CellFormat(colW, rowHt, "", "1", 0, "L", false, 0, "")
				continue
			}
			w := colW * float64(cell.ColSpan)
			var texts []string
			for _, child := range cell.Blocks {
				texts = append(texts, child.Text())
			}
			pdf.CellFormat(w, rowHt, strings.Join(texts, " "), "1", 0, alignOf(block.Style), false, 0, "")
			col += cell.ColSpan - 1
		}
		pdf.Ln(rowHt)
	}
	pdf.Ln(lineHt * 0.5)
}

// applyFont maps style properties onto fpdf font state.
func applyFont(pdf *fpdf.Fpdf, s template.Style) {
	family := coreFont(stringProp(s, "fontFamily"))

	var variant string
	if stringProp(s, "fontWeight") == "bold" {
		variant += "B"
	}
	if stringProp(s, "fontStyle") == "italic" {
		variant += "I"
	}
	if stringProp(s, "textDecoration") == "underline" {
		variant += "U"
	}

	size := floatProp(s, "fontSize")
	if size <= 0 {
		size = defaultFontSize
	}

	pdf.SetFont(family, variant, size)

	r, g, b := colorProp(s, "textColor")
	pdf.SetTextColor(r, g, b)
}

// coreFont maps arbitrary font families onto the built-in PDF core fonts.
func coreFont(family string) string {
	switch strings.ToLower(family) {
	case "times", "times new roman", "georgia", "garamond", "serif":
		return "Times"
	case "courier", "courier new", "monospace":
		return "Courier"
	case "":
		return "Helvetica"
	default:
		return "Helvetica"
	}
}

func alignOf(s template.Style) string {
	switch stringProp(s, "textAlign") {
	case "center":
		return "C"
	case "right":
		return "R"
	case "justify":
		return "J"
	default:
		return "L"
	}
}

func lineHeight(s template.Style) float64 {
	size := floatProp(s, "fontSize")
	if size <= 0 {
		size = defaultFontSize
	}
	factor := floatProp(s, "lineHeight")
	if factor <= 0 {
		factor = 1.4
	}
	// Font sizes are points; line positions are millimeters.
	return size * 0.3528 * factor
}

func stringProp(s template.Style, key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

func floatProp(s template.Style, key string) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// colorProp parses #rgb / #rrggbb hex colors; anything else is black.
func colorProp(s template.Style, key string) (int, int, int) {
	hex := stringProp(s, key)
	if !strings.HasPrefix(hex, "#") {
		return 0, 0, 0
	}
	hex = hex[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, 0, 0
	}
	return r, g, b
}
