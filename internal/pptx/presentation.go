package pptx

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

const (
	nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsP = "http://schemas.openxmlformats.org/presentationml/2006/main"

	// Slide ids start at 256 in PresentationML.
	minSlideID = 256
)

// Presentation is an opened PresentationML package.
type Presentation struct {
	pkg      *container
	presPart string
}

func newPresentation(c *container) (*Presentation, error) {
	rootRels, err := c.rels("")
	if err != nil {
		return nil, err
	}
	rel, ok := rootRels.FirstOfType(RelOfficeDocument)
	if !ok {
		return nil, fmt.Errorf("%w: no officeDocument relationship", ErrNotPresentation)
	}
	presPart := rootRels.TargetPart(rel)
	doc, err := c.xml(presPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPresentation, err)
	}
	if doc.Root() == nil || doc.Root().Tag != "presentation" {
		return nil, fmt.Errorf("%w: %s is not a presentation part", ErrNotPresentation, presPart)
	}
	return &Presentation{pkg: c, presPart: presPart}, nil
}

func (p *Presentation) root() *etree.Element {
	doc, _ := p.pkg.xml(p.presPart)
	return doc.Root()
}

func (p *Presentation) rels() (*Rels, error) {
	return p.pkg.rels(p.presPart)
}

// Slides returns the slides in presentation order. Slide ids whose
// relationship does not resolve are skipped.
func (p *Presentation) Slides() ([]*Slide, error) {
	rels, err := p.rels()
	if err != nil {
		return nil, err
	}
	lst := p.root().SelectElement("p:sldIdLst")
	if lst == nil {
		return nil, nil
	}
	var slides []*Slide
	for _, sid := range lst.SelectElements("p:sldId") {
		rel, ok := rels.Get(sid.SelectAttrValue("r:id", ""))
		if !ok {
			continue
		}
		name := rels.TargetPart(rel)
		if !p.pkg.has(name) {
			continue
		}
		s, err := p.openSlide(name)
		if err != nil {
			return nil, err
		}
		slides = append(slides, s)
	}
	return slides, nil
}

// SlideCount returns len(Slides()) without surfacing parse errors.
func (p *Presentation) SlideCount() int {
	slides, err := p.Slides()
	if err != nil {
		return 0
	}
	return len(slides)
}

func (p *Presentation) openSlide(name string) (*Slide, error) {
	doc, err := p.pkg.xml(name)
	if err != nil {
		return nil, err
	}
	rels, err := p.pkg.rels(name)
	if err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("slide %s is empty", name)
	}
	return &Slide{pres: p, part: name, doc: doc, rels: rels}, nil
}

// Layout is a slide layout part.
type Layout struct {
	Part string
	Name string
	Type string
}

// Layouts lists the slide layouts in part order.
func (p *Presentation) Layouts() []Layout {
	var out []Layout
	for _, name := range p.pkg.partsWithPrefix("ppt/slideLayouts/slideLayout", ".xml") {
		doc, err := p.pkg.xml(name)
		if err != nil || doc.Root() == nil {
			continue
		}
		l := Layout{Part: name, Type: doc.Root().SelectAttrValue("type", "")}
		if cSld := doc.Root().SelectElement("p:cSld"); cSld != nil {
			l.Name = cSld.SelectAttrValue("name", "")
		}
		out = append(out, l)
	}
	return out
}

// BlankLayout returns the layout of type blank, falling back to the first.
func (p *Presentation) BlankLayout() (Layout, bool) {
	layouts := p.Layouts()
	if len(layouts) == 0 {
		return Layout{}, false
	}
	for _, l := range layouts {
		if l.Type == "blank" || l.Name == "Blank" {
			return l, true
		}
	}
	return layouts[0], true
}

// SlideSize returns the slide width and height in EMU.
func (p *Presentation) SlideSize() (cx, cy int64) {
	sz := p.root().SelectElement("p:sldSz")
	if sz == nil {
		return 12192000, 6858000
	}
	return attrInt(sz, "cx"), attrInt(sz, "cy")
}

// SetSlideSize overwrites the slide size.
func (p *Presentation) SetSlideSize(cx, cy int64) {
	sz := p.root().SelectElement("p:sldSz")
	if sz == nil {
		sz = p.root().CreateElement("p:sldSz")
	}
	sz.CreateAttr("cx", strconv.FormatInt(cx, 10))
	sz.CreateAttr("cy", strconv.FormatInt(cy, 10))
}

// AddSlide appends a new empty slide bound to layoutPart.
func (p *Presentation) AddSlide(layoutPart string) (*Slide, error) {
	if !p.pkg.has(layoutPart) {
		return nil, fmt.Errorf("layout %s not in package", layoutPart)
	}
	name := p.nextSlidePart()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	sld := doc.CreateElement("p:sld")
	sld.CreateAttr("xmlns:a", nsA)
	sld.CreateAttr("xmlns:r", nsR)
	sld.CreateAttr("xmlns:p", nsP)
	tree := sld.CreateElement("p:cSld").CreateElement("p:spTree")
	nv := tree.CreateElement("p:nvGrpSpPr")
	cNvPr := nv.CreateElement("p:cNvPr")
	cNvPr.CreateAttr("id", "1")
	cNvPr.CreateAttr("name", "")
	nv.CreateElement("p:cNvGrpSpPr")
	nv.CreateElement("p:nvPr")
	xfrm := tree.CreateElement("p:grpSpPr").CreateElement("a:xfrm")
	for _, tag := range []string{"a:off", "a:ext", "a:chOff", "a:chExt"} {
		el := xfrm.CreateElement(tag)
		if tag == "a:off" || tag == "a:chOff" {
			el.CreateAttr("x", "0")
			el.CreateAttr("y", "0")
		} else {
			el.CreateAttr("cx", "0")
			el.CreateAttr("cy", "0")
		}
	}
	sld.CreateElement("p:clrMapOvr").CreateElement("a:masterClrMapping")
	p.pkg.putXML(name, doc)

	slideRels, err := p.pkg.rels(name)
	if err != nil {
		return nil, err
	}
	slideRels.Add(RelSlideLayout, layoutPart)

	presRels, err := p.rels()
	if err != nil {
		return nil, err
	}
	rid := presRels.Add(RelSlide, name)

	lst := p.slideIDList()
	sid := lst.CreateElement("p:sldId")
	sid.CreateAttr("id", strconv.Itoa(p.nextSlideID()))
	sid.CreateAttr("r:id", rid)

	if err := p.pkg.setOverride(name, CTSlide); err != nil {
		return nil, err
	}
	return &Slide{pres: p, part: name, doc: doc, rels: slideRels}, nil
}

// RemoveSlide drops the slide at index, its relationship and its parts,
// including its notes slide.
func (p *Presentation) RemoveSlide(index int) error {
	slides, err := p.Slides()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(slides) {
		return fmt.Errorf("slide index %d out of range (0..%d)", index, len(slides)-1)
	}
	target := slides[index].part
	rels, err := p.rels()
	if err != nil {
		return err
	}
	lst := p.root().SelectElement("p:sldIdLst")
	for _, sid := range lst.SelectElements("p:sldId") {
		rid := sid.SelectAttrValue("r:id", "")
		rel, ok := rels.Get(rid)
		if ok && rels.TargetPart(rel) == target {
			lst.RemoveChild(sid)
			rels.Remove(rid)
		}
	}
	for _, rel := range slides[index].rels.All() {
		if rel.Type != RelNotesSlide || rel.External {
			continue
		}
		notes := slides[index].rels.TargetPart(rel)
		p.pkg.remove(notes)
		p.pkg.remove(relsPartName(notes))
		if err := p.pkg.removeOverride(notes); err != nil {
			return err
		}
	}
	p.pkg.remove(target)
	p.pkg.remove(relsPartName(target))
	return p.pkg.removeOverride(target)
}

// slideIDList returns p:sldIdLst, creating it in schema position.
func (p *Presentation) slideIDList() *etree.Element {
	root := p.root()
	if lst := root.SelectElement("p:sldIdLst"); lst != nil {
		return lst
	}
	lst := etree.NewElement("p:sldIdLst")
	for _, tag := range []string{"p:sldSz", "p:notesSz", "p:defaultTextStyle"} {
		if anchor := root.SelectElement(tag); anchor != nil {
			root.InsertChildAt(anchor.Index(), lst)
			return lst
		}
	}
	root.AddChild(lst)
	return lst
}

func (p *Presentation) nextSlideID() int {
	next := minSlideID
	if lst := p.root().SelectElement("p:sldIdLst"); lst != nil {
		for _, sid := range lst.SelectElements("p:sldId") {
			if id := int(attrInt(sid, "id")); id >= next {
				next = id + 1
			}
		}
	}
	return next
}

func (p *Presentation) nextSlidePart() string {
	for n := 1; ; n++ {
		name := fmt.Sprintf("ppt/slides/slide%d.xml", n)
		if !p.pkg.has(name) {
			return name
		}
	}
}

func (p *Presentation) nextMediaPart(ext string) string {
	for n := 1; ; n++ {
		name := fmt.Sprintf("ppt/media/image%d.%s", n, ext)
		if !p.pkg.has(name) {
			return name
		}
	}
}

func attrInt(el *etree.Element, key string) int64 {
	n, _ := strconv.ParseInt(el.SelectAttrValue(key, "0"), 10, 64)
	return n
}
