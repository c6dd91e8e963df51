package deck

import (
	"fmt"

	"succession/internal/logging"
	"succession/internal/pptx"

	"github.com/beevik/etree"
)

// relationship attributes that point into the slide's .rels part.
var relAttrs = map[string]bool{"embed": true, "link": true, "id": true, "pict": true}

// CloneReport describes how a slide was cloned.
type CloneReport struct {
	Degraded bool     // text-only fallback was used
	Skipped  []string // shapes the fallback could not reproduce
	Cause    error    // why the structural copy failed
}

// CloneSlide appends a copy of src to dst. src must come from a pristine
// template load. The copy uses src's layout and duplicates every shape tree
// element; relationships referenced by the copied elements are re-created
// on the new slide. If the structural copy fails, a text-only copy is made
// instead and the report says which shapes were lost.
func CloneSlide(src *pptx.Slide, dst *pptx.Presentation) (*pptx.Slide, CloneReport, error) {
	var rep CloneReport
	out, err := dst.AddSlide(src.LayoutPart())
	if err != nil {
		return nil, rep, fmt.Errorf("failed to add slide: %w", err)
	}

	if err := copyShapeTree(src, out); err != nil {
		logging.Get(logging.CategoryClone).Warnf("structural clone of %s failed, falling back to text boxes: %v", src.PartName(), err)
		clearShapeTree(out)
		rep.Degraded = true
		rep.Cause = err
		rep.Skipped = copyTextOnly(src, out)
		return out, rep, nil
	}
	logging.Clone("cloned %s into %s", src.PartName(), out.PartName())
	return out, rep, nil
}

func copyShapeTree(src, dst *pptx.Slide) error {
	from, to := src.ShapeTree(), dst.ShapeTree()
	if from == nil || to == nil {
		return fmt.Errorf("slide without shape tree")
	}
	remap := make(map[string]string)
	for _, el := range from.ChildElements() {
		if el.Tag == "nvGrpSpPr" || el.Tag == "grpSpPr" {
			continue
		}
		cp := el.Copy()
		if err := remapRelationships(cp, src, dst, remap); err != nil {
			return err
		}
		to.AddChild(cp)
	}
	return nil
}

// remapRelationships rewrites r:* attributes in el to ids valid on dst.
func remapRelationships(el *etree.Element, src, dst *pptx.Slide, remap map[string]string) error {
	for i := range el.Attr {
		a := &el.Attr[i]
		if a.Space != "r" || !relAttrs[a.Key] || a.Value == "" {
			continue
		}
		if id, ok := remap[a.Value]; ok {
			a.Value = id
			continue
		}
		rel, ok := src.Rels().Get(a.Value)
		if !ok {
			return fmt.Errorf("%s references unknown relationship %s", el.FullTag(), a.Value)
		}
		var id string
		if rel.External {
			id = dst.Rels().AddExternal(rel.Type, rel.Target)
		} else {
			id = dst.Rels().Add(rel.Type, src.Rels().TargetPart(rel))
		}
		remap[a.Value] = id
		a.Value = id
	}
	for _, child := range el.ChildElements() {
		if err := remapRelationships(child, src, dst, remap); err != nil {
			return err
		}
	}
	return nil
}

func clearShapeTree(s *pptx.Slide) {
	tree := s.ShapeTree()
	for _, el := range tree.ChildElements() {
		if el.Tag != "nvGrpSpPr" && el.Tag != "grpSpPr" {
			tree.RemoveChild(el)
		}
	}
}

// copyTextOnly reproduces text shapes (geometry, text, paragraph alignment)
// and returns the names of everything else.
func copyTextOnly(src, dst *pptx.Slide) []string {
	var skipped []string
	for _, sh := range src.Shapes() {
		tf, ok := sh.TextFrame()
		if !ok {
			skipped = append(skipped, fmt.Sprintf("%s (%s)", sh.Name(), sh.Kind()))
			continue
		}
		if _, err := dst.AddTextBox(sh.Name(), sh.Geometry(), tf.Specs()); err != nil {
			skipped = append(skipped, fmt.Sprintf("%s (%v)", sh.Name(), err))
		}
	}
	return skipped
}
