package repair

import (
	"fmt"

	"succession/internal/logging"
	"succession/internal/pptx"
)

// deepClean rebuilds the deck on a fresh presentation. Text boxes keep
// geometry, text and paragraph alignment; tables keep geometry, shape and
// cell text. Pictures, groups and formatting are dropped.
func deepClean(data []byte) (Result, error) {
	src, err := pptx.Open(data)
	if err != nil {
		return Result{}, err
	}
	slides, err := src.Slides()
	if err != nil {
		return Result{}, err
	}

	dst := pptx.New()
	dst.SetSlideSize(src.SlideSize())
	blank, ok := dst.BlankLayout()
	if !ok {
		return Result{}, fmt.Errorf("blank presentation has no layout")
	}

	dropped := 0
	for i, s := range slides {
		out, err := dst.AddSlide(blank.Part)
		if err != nil {
			return Result{}, fmt.Errorf("slide %d: %w", i+1, err)
		}
		for _, sh := range s.Shapes() {
			switch sh.Kind() {
			case pptx.KindText:
				tf, _ := sh.TextFrame()
				if _, err := out.AddTextBox(sh.Name(), sh.Geometry(), tf.Specs()); err != nil {
					return Result{}, fmt.Errorf("slide %d: %w", i+1, err)
				}
			case pptx.KindTable:
				if err := copyTable(out, sh); err != nil {
					return Result{}, fmt.Errorf("slide %d: %w", i+1, err)
				}
			default:
				dropped++
			}
		}
	}
	if dropped > 0 {
		logging.Repair("deep clean dropped %d non-text shapes", dropped)
	}

	fixes, count, err := normalize(dst)
	if err != nil {
		return Result{}, err
	}
	out, err := dst.Save()
	if err != nil {
		return Result{}, err
	}
	return Result{Data: out, Slides: count, Fixes: fixes}, nil
}

func copyTable(dst *pptx.Slide, sh *pptx.Shape) error {
	tbl, _ := sh.Table()
	rows, cols := tbl.Rows(), tbl.Cols()
	if rows == 0 || cols == 0 {
		return nil
	}
	cp, err := dst.AddTable(sh.Name(), sh.Geometry(), rows, cols)
	if err != nil {
		return err
	}
	out, _ := cp.Table()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cell := tbl.Cell(r, c)
			if cell == nil {
				continue
			}
			out.Cell(r, c).TextFrame().SetText(cell.Text())
		}
	}
	return nil
}
