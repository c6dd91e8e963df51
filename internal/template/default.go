package template

import (
	"fmt"
	"os"
	"path/filepath"

	"succession/internal/config"
	"succession/internal/pptx"
)

// Row headers of the successor table. Rows 1-3 start with a header
// paragraph followed by marker paragraphs.
var RowHeaders = []string{"Strengths", "Development Focus", "Talent Actions"}

// Marker counts of the generated template.
const (
	DetailMarkers    = 5
	MarkersPerCell   = 3
	DataTableName    = "Successors"
	emuPerInch       = 914400
	defaultPhotoSize = emuPerInch * 9 / 10
)

// Default generates a template with the fixed slide schema: name, position,
// summary and responsibilities markers, detail markers, a 4-row successor
// table with one column per successor, and photo slots "{prefix} 1" for the
// incumbent followed by one per successor column.
func Default(cfg config.PowerPointConfig) ([]byte, error) {
	cols := cfg.SuccessorsPerSlide
	if cols < 1 {
		return nil, fmt.Errorf("successors_per_slide must be >= 1, got %d", cols)
	}
	rows := cfg.TableRows
	if rows < len(RowHeaders)+1 {
		rows = len(RowHeaders) + 1
	}
	m := cfg.Markers

	p := pptx.New()
	layout, ok := p.BlankLayout()
	if !ok {
		return nil, fmt.Errorf("blank presentation has no layout")
	}
	s, err := p.AddSlide(layout.Part)
	if err != nil {
		return nil, err
	}
	slideW, _ := p.SlideSize()
	margin := int64(emuPerInch / 2)
	photo := int64(defaultPhotoSize)

	boxes := []struct {
		name string
		g    pptx.Geometry
		text string
	}{
		{"Incumbent Name", pptx.Geometry{X: margin + photo + margin/2, Y: margin / 2, CX: 4 * emuPerInch, CY: emuPerInch / 3}, m.Name},
		{"Incumbent Position", pptx.Geometry{X: margin + photo + margin/2, Y: margin/2 + emuPerInch/3, CX: 4 * emuPerInch, CY: emuPerInch / 3}, m.Position},
		{"Role Summary", pptx.Geometry{X: margin, Y: margin + photo, CX: 4 * emuPerInch, CY: emuPerInch}, m.Summary},
		{"Responsibilities", pptx.Geometry{X: margin + 4*emuPerInch + margin/2, Y: margin / 2, CX: 6 * emuPerInch, CY: emuPerInch}, m.Responsibilities},
	}
	for _, b := range boxes {
		if _, err := s.AddTextBox(b.name, b.g, []pptx.TextSpec{{Text: b.text}}); err != nil {
			return nil, err
		}
	}

	details := make([]pptx.TextSpec, DetailMarkers)
	for i := range details {
		details[i] = pptx.TextSpec{Text: m.Detail}
	}
	detailG := pptx.Geometry{X: margin + 4*emuPerInch + margin/2, Y: margin/2 + emuPerInch, CX: 6 * emuPerInch, CY: emuPerInch}
	if _, err := s.AddTextBox("Role Details", detailG, details); err != nil {
		return nil, err
	}

	tableY := int64(5 * emuPerInch / 2)
	tableG := pptx.Geometry{X: margin, Y: tableY + photo, CX: slideW - 2*margin, CY: 3 * emuPerInch}
	tblShape, err := s.AddTable(DataTableName, tableG, rows, cols)
	if err != nil {
		return nil, err
	}
	tbl, _ := tblShape.Table()
	for c := 0; c < cols; c++ {
		tbl.Cell(0, c).TextFrame().SetText(fmt.Sprintf("Successor %d", c+1))
		for r, header := range RowHeaders {
			text := header
			for i := 0; i < MarkersPerCell; i++ {
				text += "\n" + m.Detail
			}
			tbl.Cell(r+1, c).TextFrame().SetText(text)
		}
	}

	prefix := cfg.PhotoShapePrefix
	if _, err := s.AddTextBox(fmt.Sprintf("%s 1", prefix), pptx.Geometry{X: margin, Y: margin / 2, CX: photo, CY: photo}, nil); err != nil {
		return nil, err
	}
	colW := tableG.CX / int64(cols)
	for c := 0; c < cols; c++ {
		g := pptx.Geometry{X: tableG.X + int64(c)*colW + (colW-photo)/2, Y: tableY, CX: photo, CY: photo}
		if _, err := s.AddTextBox(fmt.Sprintf("%s %d", prefix, c+2), g, nil); err != nil {
			return nil, err
		}
	}

	return p.Save()
}

// WriteDefault generates the default template and writes it to path.
func WriteDefault(path string, cfg config.PowerPointConfig) error {
	data, err := Default(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create template directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	return nil
}
