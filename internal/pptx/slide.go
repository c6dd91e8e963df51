package pptx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Slide is one slide part with its relationships.
type Slide struct {
	pres *Presentation
	part string
	doc  *etree.Document
	rels *Rels
}

// PartName returns the slide's part name, e.g. ppt/slides/slide1.xml.
func (s *Slide) PartName() string { return s.part }

// Presentation returns the owning presentation.
func (s *Slide) Presentation() *Presentation { return s.pres }

// Rels returns the slide's relationships.
func (s *Slide) Rels() *Rels { return s.rels }

// ShapeTree returns p:cSld/p:spTree, or nil for a malformed slide.
func (s *Slide) ShapeTree() *etree.Element {
	cSld := s.doc.Root().SelectElement("p:cSld")
	if cSld == nil {
		return nil
	}
	return cSld.SelectElement("p:spTree")
}

// Shapes returns the top-level shapes in z-order.
func (s *Slide) Shapes() []*Shape {
	tree := s.ShapeTree()
	if tree == nil {
		return nil
	}
	return s.wrapShapes(tree)
}

func (s *Slide) wrapShapes(parent *etree.Element) []*Shape {
	var out []*Shape
	for _, el := range parent.ChildElements() {
		if isShapeElement(el) {
			out = append(out, &Shape{slide: s, el: el})
		}
	}
	return out
}

// AllShapes returns every shape, descending into groups.
func (s *Slide) AllShapes() []*Shape {
	var out []*Shape
	var walk func([]*Shape)
	walk = func(shapes []*Shape) {
		for _, sh := range shapes {
			out = append(out, sh)
			if sh.Kind() == KindGroup {
				walk(sh.Children())
			}
		}
	}
	walk(s.Shapes())
	return out
}

// ShapeByName returns the first shape with the given name.
func (s *Slide) ShapeByName(name string) *Shape {
	for _, sh := range s.AllShapes() {
		if sh.Name() == name {
			return sh
		}
	}
	return nil
}

// LayoutPart returns the part name of the slide's layout.
func (s *Slide) LayoutPart() string {
	rel, ok := s.rels.FirstOfType(RelSlideLayout)
	if !ok {
		return ""
	}
	return s.rels.TargetPart(rel)
}

// Text extracts all text in z-order, one shape per block.
func (s *Slide) Text() string {
	var blocks []string
	for _, sh := range s.AllShapes() {
		if tf, ok := sh.TextFrame(); ok {
			blocks = append(blocks, tf.Text())
		} else if tbl, ok := sh.Table(); ok {
			blocks = append(blocks, tbl.Text())
		}
	}
	return strings.Join(blocks, "\n")
}

func (s *Slide) nextShapeID() int {
	next := 2
	if tree := s.ShapeTree(); tree != nil {
		for _, c := range descendants(tree, "p:cNvPr") {
			if id, _ := strconv.Atoi(c.SelectAttrValue("id", "0")); id >= next {
				next = id + 1
			}
		}
	}
	return next
}

func (s *Slide) appendShape(el *etree.Element) (*Shape, error) {
	tree := s.ShapeTree()
	if tree == nil {
		return nil, fmt.Errorf("slide %s has no shape tree", s.part)
	}
	tree.AddChild(el)
	return &Shape{slide: s, el: el}, nil
}

func nonVisual(parent *etree.Element, tag string, id int, name string) *etree.Element {
	nv := parent.CreateElement(tag)
	c := nv.CreateElement("p:cNvPr")
	c.CreateAttr("id", strconv.Itoa(id))
	c.CreateAttr("name", name)
	return nv
}

// AddTextBox appends a text box with one paragraph per spec.
func (s *Slide) AddTextBox(name string, g Geometry, paras []TextSpec) (*Shape, error) {
	sp := etree.NewElement("p:sp")
	nv := nonVisual(sp, "p:nvSpPr", s.nextShapeID(), name)
	nv.CreateElement("p:cNvSpPr").CreateAttr("txBox", "1")
	nv.CreateElement("p:nvPr")

	spPr := sp.CreateElement("p:spPr")
	setXfrm(spPr.CreateElement("a:xfrm"), g)
	spPr.CreateElement("a:prstGeom").CreateAttr("prst", "rect")
	spPr.SelectElement("a:prstGeom").CreateElement("a:avLst")
	spPr.CreateElement("a:noFill")

	body := sp.CreateElement("p:txBody")
	bodyPr := body.CreateElement("a:bodyPr")
	bodyPr.CreateAttr("wrap", "square")
	body.CreateElement("a:lstStyle")
	tf := &TextFrame{body: body}
	if len(paras) == 0 {
		paras = []TextSpec{{}}
	}
	for _, spec := range paras {
		tf.appendParagraph(spec)
	}
	return s.appendShape(sp)
}

// AddTable appends a rows x cols table with empty cells of equal size.
func (s *Slide) AddTable(name string, g Geometry, rows, cols int) (*Shape, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("table needs at least one row and column, got %dx%d", rows, cols)
	}
	gf := etree.NewElement("p:graphicFrame")
	nv := nonVisual(gf, "p:nvGraphicFramePr", s.nextShapeID(), name)
	nv.CreateElement("p:cNvGraphicFramePr").CreateElement("a:graphicFrameLocks").CreateAttr("noGrp", "1")
	nv.CreateElement("p:nvPr")
	setXfrm(gf.CreateElement("p:xfrm"), g)

	data := gf.CreateElement("a:graphic").CreateElement("a:graphicData")
	data.CreateAttr("uri", "http://schemas.openxmlformats.org/drawingml/2006/table")
	tbl := data.CreateElement("a:tbl")
	tblPr := tbl.CreateElement("a:tblPr")
	tblPr.CreateAttr("firstRow", "1")
	tblPr.CreateAttr("bandRow", "1")
	grid := tbl.CreateElement("a:tblGrid")
	colW := g.CX / int64(cols)
	rowH := g.CY / int64(rows)
	for c := 0; c < cols; c++ {
		grid.CreateElement("a:gridCol").CreateAttr("w", strconv.FormatInt(colW, 10))
	}
	for r := 0; r < rows; r++ {
		tr := tbl.CreateElement("a:tr")
		tr.CreateAttr("h", strconv.FormatInt(rowH, 10))
		for c := 0; c < cols; c++ {
			tc := tr.CreateElement("a:tc")
			body := tc.CreateElement("a:txBody")
			body.CreateElement("a:bodyPr")
			body.CreateElement("a:lstStyle")
			body.CreateElement("a:p")
			tc.CreateElement("a:tcPr")
		}
	}
	return s.appendShape(gf)
}

// AddPicture stores png as a media part and appends a picture shape.
func (s *Slide) AddPicture(png []byte, g Geometry, name string) (*Shape, error) {
	pic, err := s.newPicture(png, g, s.nextShapeID(), name)
	if err != nil {
		return nil, err
	}
	return s.appendShape(pic)
}

// ReplaceWithPicture swaps sh for a picture with the same id, name,
// geometry and z-order position.
func (s *Slide) ReplaceWithPicture(sh *Shape, png []byte) (*Shape, error) {
	parent := sh.el.Parent()
	if parent == nil {
		return nil, fmt.Errorf("shape %q is detached", sh.Name())
	}
	pic, err := s.newPicture(png, sh.Geometry(), sh.ID(), sh.Name())
	if err != nil {
		return nil, err
	}
	parent.InsertChildAt(sh.el.Index(), pic)
	parent.RemoveChild(sh.el)
	return &Shape{slide: s, el: pic}, nil
}

func (s *Slide) newPicture(png []byte, g Geometry, id int, name string) (*etree.Element, error) {
	if len(png) == 0 {
		return nil, fmt.Errorf("empty image data for %q", name)
	}
	pkg := s.pres.pkg
	media := s.pres.nextMediaPart("png")
	pkg.put(media, png)
	if err := pkg.ensureDefault("png", CTPNG); err != nil {
		return nil, err
	}
	rid := s.rels.Add(RelImage, media)

	pic := etree.NewElement("p:pic")
	nv := nonVisual(pic, "p:nvPicPr", id, name)
	nv.CreateElement("p:cNvPicPr").CreateElement("a:picLocks").CreateAttr("noChangeAspect", "1")
	nv.CreateElement("p:nvPr")

	fill := pic.CreateElement("p:blipFill")
	fill.CreateElement("a:blip").CreateAttr("r:embed", rid)
	fill.CreateElement("a:stretch").CreateElement("a:fillRect")

	spPr := pic.CreateElement("p:spPr")
	setXfrm(spPr.CreateElement("a:xfrm"), g)
	geom := spPr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")
	return pic, nil
}
