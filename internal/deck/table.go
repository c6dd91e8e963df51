package deck

import (
	"errors"
	"fmt"
	"strings"

	"succession/internal/logging"
	"succession/internal/plan"
	"succession/internal/pptx"
)

// ErrTableOverflow is returned when more successors are passed than the
// table has columns.
var ErrTableOverflow = errors.New("more successors than table columns")

// Table rows. Row 0 is the identity header; rows 1-3 hold marker lines.
const (
	RowIdentity = iota
	RowStrengths
	RowDevelopment
	RowActions
	tableRows
)

// FillReport summarizes one table fill.
type FillReport struct {
	Filled  int // columns with a successor
	Cleared int // unused columns
	Dropped int // wrapped lines with no marker left to hold them
}

// FillTable writes one successor per column. Row 0 is replaced wholesale
// with the identity text; rows 1-3 only have their marker runs rewritten so
// header paragraphs survive. Columns without a successor are cleared.
func FillTable(tbl *pptx.Table, successors []plan.Successor, marker string) (FillReport, error) {
	var rep FillReport
	if tbl.Rows() < tableRows {
		return rep, fmt.Errorf("%w: data table has %d rows, need %d", ErrLayout, tbl.Rows(), tableRows)
	}
	cols := tbl.Cols()
	if len(successors) > cols {
		return rep, fmt.Errorf("%w: %d successors, %d columns", ErrTableOverflow, len(successors), cols)
	}

	for c := 0; c < cols; c++ {
		if c < len(successors) {
			s := successors[c]
			setIdentity(tbl.Cell(RowIdentity, c), s.IdentityText())
			bodies := []string{s.StrengthsText(), s.DevelopmentText(), s.ActionsText()}
			for i, body := range bodies {
				rep.Dropped += fillMarkers(tbl.Cell(RowStrengths+i, c), marker, plan.WrapLines(body, plan.WrapWidth))
			}
			rep.Filled++
			continue
		}
		setIdentity(tbl.Cell(RowIdentity, c), "")
		for r := RowStrengths; r <= RowActions; r++ {
			fillMarkers(tbl.Cell(r, c), marker, nil)
		}
		rep.Cleared++
	}
	if rep.Dropped > 0 {
		logging.TableDebug("%d wrapped lines did not fit the marker slots", rep.Dropped)
	}
	return rep, nil
}

func setIdentity(cell *pptx.Cell, text string) {
	if cell == nil {
		return
	}
	tf := cell.TextFrame()
	tf.SetText(text)
	for _, p := range tf.Paragraphs() {
		p.SetAlignment(pptx.AlignLeft)
	}
}

// fillMarkers rewrites marker runs with lines in order and clears the rest.
// Only paragraphs that held a marker are forced left. Returns the number of
// lines left over.
func fillMarkers(cell *pptx.Cell, marker string, lines []string) int {
	if cell == nil {
		return len(lines)
	}
	next := 0
	for _, p := range cell.TextFrame().Paragraphs() {
		held := false
		for _, run := range p.Runs() {
			if strings.TrimSpace(run.Text()) != marker {
				continue
			}
			held = true
			if next < len(lines) {
				run.SetText(lines[next])
				next++
			} else {
				run.SetText("")
			}
		}
		if held {
			p.SetAlignment(pptx.AlignLeft)
		}
	}
	return len(lines) - next
}
