package pptx

import (
	"strings"

	"github.com/beevik/etree"
)

// Table wraps an a:tbl inside a graphic frame.
type Table struct {
	frame *etree.Element
	tbl   *etree.Element
}

func (t *Table) rows() []*etree.Element {
	return t.tbl.SelectElements("a:tr")
}

// Rows returns the number of table rows.
func (t *Table) Rows() int {
	return len(t.rows())
}

// Cols returns the grid column count.
func (t *Table) Cols() int {
	if grid := t.tbl.SelectElement("a:tblGrid"); grid != nil {
		if n := len(grid.SelectElements("a:gridCol")); n > 0 {
			return n
		}
	}
	widest := 0
	for _, tr := range t.rows() {
		if n := len(tr.SelectElements("a:tc")); n > widest {
			widest = n
		}
	}
	return widest
}

// Cell returns the cell at row r, column c, or nil when out of range.
func (t *Table) Cell(r, c int) *Cell {
	rows := t.rows()
	if r < 0 || r >= len(rows) {
		return nil
	}
	cells := rows[r].SelectElements("a:tc")
	if c < 0 || c >= len(cells) {
		return nil
	}
	return &Cell{el: cells[c]}
}

// Text renders the table row by row, cells separated by tabs.
func (t *Table) Text() string {
	var lines []string
	for r := 0; r < t.Rows(); r++ {
		var cells []string
		for c := 0; ; c++ {
			cell := t.Cell(r, c)
			if cell == nil {
				break
			}
			cells = append(cells, cell.Text())
		}
		lines = append(lines, strings.Join(cells, "\t"))
	}
	return strings.Join(lines, "\n")
}

// Cell wraps an a:tc element.
type Cell struct {
	el *etree.Element
}

// TextFrame returns the cell's a:txBody, creating it when absent.
func (c *Cell) TextFrame() *TextFrame {
	body := c.el.SelectElement("a:txBody")
	if body == nil {
		body = etree.NewElement("a:txBody")
		body.CreateElement("a:bodyPr")
		body.CreateElement("a:lstStyle")
		body.CreateElement("a:p")
		c.el.InsertChildAt(0, body)
	}
	return &TextFrame{body: body}
}

// Text returns the cell's text.
func (c *Cell) Text() string {
	if c.el.SelectElement("a:txBody") == nil {
		return ""
	}
	return c.TextFrame().Text()
}
