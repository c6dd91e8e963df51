package pptx

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ShapeKind classifies a shape tree child.
type ShapeKind int

const (
	KindOther ShapeKind = iota
	KindText
	KindAutoShape
	KindTable
	KindPicture
	KindGroup
	KindConnector
	KindGraphic
)

func (k ShapeKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindAutoShape:
		return "shape"
	case KindTable:
		return "table"
	case KindPicture:
		return "picture"
	case KindGroup:
		return "group"
	case KindConnector:
		return "connector"
	case KindGraphic:
		return "graphic"
	default:
		return "other"
	}
}

// Geometry is a shape's offset and extent in EMU.
type Geometry struct {
	X, Y, CX, CY int64
}

// Shape is one element of a slide's shape tree.
type Shape struct {
	slide *Slide
	el    *etree.Element
}

// Element exposes the underlying XML element.
func (s *Shape) Element() *etree.Element { return s.el }

// Slide returns the owning slide.
func (s *Shape) Slide() *Slide { return s.slide }

// Kind classifies the shape by element and content.
func (s *Shape) Kind() ShapeKind {
	switch s.el.Tag {
	case "sp":
		if s.el.SelectElement("p:txBody") != nil {
			return KindText
		}
		return KindAutoShape
	case "graphicFrame":
		if tableElement(s.el) != nil {
			return KindTable
		}
		return KindGraphic
	case "pic":
		return KindPicture
	case "grpSp":
		return KindGroup
	case "cxnSp":
		return KindConnector
	default:
		return KindOther
	}
}

func (s *Shape) cNvPr() *etree.Element {
	for _, child := range s.el.ChildElements() {
		if strings.HasPrefix(child.Tag, "nv") {
			return child.SelectElement("p:cNvPr")
		}
	}
	return nil
}

// ID returns the cNvPr id, or 0.
func (s *Shape) ID() int {
	if c := s.cNvPr(); c != nil {
		n, _ := strconv.Atoi(c.SelectAttrValue("id", "0"))
		return n
	}
	return 0
}

// Name returns the cNvPr name.
func (s *Shape) Name() string {
	if c := s.cNvPr(); c != nil {
		return c.SelectAttrValue("name", "")
	}
	return ""
}

func (s *Shape) xfrm() *etree.Element {
	switch s.el.Tag {
	case "graphicFrame":
		return s.el.SelectElement("p:xfrm")
	case "grpSp":
		if pr := s.el.SelectElement("p:grpSpPr"); pr != nil {
			return pr.SelectElement("a:xfrm")
		}
	default:
		if pr := s.el.SelectElement("p:spPr"); pr != nil {
			return pr.SelectElement("a:xfrm")
		}
	}
	return nil
}

// Geometry returns the shape's offset and extent. Shapes that inherit
// geometry from the layout report zero values.
func (s *Shape) Geometry() Geometry {
	var g Geometry
	x := s.xfrm()
	if x == nil {
		return g
	}
	if off := x.SelectElement("a:off"); off != nil {
		g.X, g.Y = attrInt(off, "x"), attrInt(off, "y")
	}
	if ext := x.SelectElement("a:ext"); ext != nil {
		g.CX, g.CY = attrInt(ext, "cx"), attrInt(ext, "cy")
	}
	return g
}

// TextFrame returns the shape's text body when it has one.
func (s *Shape) TextFrame() (*TextFrame, bool) {
	if s.el.Tag != "sp" {
		return nil, false
	}
	body := s.el.SelectElement("p:txBody")
	if body == nil {
		return nil, false
	}
	return &TextFrame{body: body}, true
}

// Table returns the shape's table when it is a table graphic frame.
func (s *Shape) Table() (*Table, bool) {
	tbl := tableElement(s.el)
	if tbl == nil {
		return nil, false
	}
	return &Table{frame: s.el, tbl: tbl}, true
}

// Children returns the members of a group shape.
func (s *Shape) Children() []*Shape {
	if s.el.Tag != "grpSp" {
		return nil
	}
	return s.slide.wrapShapes(s.el)
}

// Remove detaches the shape from its parent.
func (s *Shape) Remove() {
	if parent := s.el.Parent(); parent != nil {
		parent.RemoveChild(s.el)
	}
}

func tableElement(frame *etree.Element) *etree.Element {
	if frame.Tag != "graphicFrame" {
		return nil
	}
	g := frame.SelectElement("a:graphic")
	if g == nil {
		return nil
	}
	data := g.SelectElement("a:graphicData")
	if data == nil {
		return nil
	}
	return data.SelectElement("a:tbl")
}

// isShapeElement reports whether a shape tree child is a drawable shape
// rather than the tree's own group properties or extension lists.
func isShapeElement(el *etree.Element) bool {
	switch el.Tag {
	case "sp", "pic", "graphicFrame", "grpSp", "cxnSp", "contentPart":
		return true
	}
	return false
}

func setXfrm(x *etree.Element, g Geometry) {
	off := x.CreateElement("a:off")
	off.CreateAttr("x", strconv.FormatInt(g.X, 10))
	off.CreateAttr("y", strconv.FormatInt(g.Y, 10))
	ext := x.CreateElement("a:ext")
	ext.CreateAttr("cx", strconv.FormatInt(g.CX, 10))
	ext.CreateAttr("cy", strconv.FormatInt(g.CY, 10))
}

// descendants returns every element below el with the given prefixed tag.
func descendants(el *etree.Element, tag string) []*etree.Element {
	space, local := "", tag
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		space, local = tag[:i], tag[i+1:]
	}
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			if c.Tag == local && (space == "" || c.Space == space) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(el)
	return out
}
