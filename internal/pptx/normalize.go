package pptx

import (
	"path"
	"strconv"
	"strings"
)

// NormalizeReport counts the structural fixes Normalize applied.
type NormalizeReport struct {
	DroppedRelationships int
	DroppedSlideIDs      int
	DroppedPictures      int
	RenumberedShapes     int
	RenumberedSlides     int
	ContentTypeFixes     int
}

// Changed reports whether anything was fixed.
func (r NormalizeReport) Changed() bool {
	return r != NormalizeReport{}
}

// Normalize repairs the structural defects a build can leave behind:
// relationships to missing parts, slide ids without a slide, pictures whose
// image relationship no longer resolves, duplicate shape ids within a slide,
// duplicate slide ids, and content types out of sync with the parts present.
func (p *Presentation) Normalize() (NormalizeReport, error) {
	var rep NormalizeReport
	if err := p.normalizeRelationships(&rep); err != nil {
		return rep, err
	}
	if err := p.normalizeSlideIDs(&rep); err != nil {
		return rep, err
	}
	slides, err := p.Slides()
	if err != nil {
		return rep, err
	}
	for _, s := range slides {
		s.normalize(&rep)
	}
	if err := p.normalizeContentTypes(&rep); err != nil {
		return rep, err
	}
	return rep, nil
}

func (p *Presentation) normalizeRelationships(rep *NormalizeReport) error {
	names := append([]string(nil), p.pkg.names...)
	for _, name := range names {
		if !strings.HasSuffix(name, ".rels") {
			continue
		}
		source := sourceOfRels(name)
		if source != "" && !p.pkg.has(source) {
			p.pkg.remove(name)
			continue
		}
		rels, err := p.pkg.rels(source)
		if err != nil {
			return err
		}
		for _, rel := range rels.All() {
			if rel.External {
				continue
			}
			if !p.pkg.has(rels.TargetPart(rel)) {
				rels.Remove(rel.ID)
				rep.DroppedRelationships++
			}
		}
	}
	return nil
}

func (p *Presentation) normalizeSlideIDs(rep *NormalizeReport) error {
	lst := p.root().SelectElement("p:sldIdLst")
	if lst == nil {
		return nil
	}
	rels, err := p.rels()
	if err != nil {
		return err
	}
	seen := make(map[int64]bool)
	var pending []func(int64)
	for _, sid := range lst.SelectElements("p:sldId") {
		if _, ok := rels.Get(sid.SelectAttrValue("r:id", "")); !ok {
			lst.RemoveChild(sid)
			rep.DroppedSlideIDs++
			continue
		}
		id := attrInt(sid, "id")
		if id < minSlideID || seen[id] {
			el := sid
			pending = append(pending, func(n int64) { el.CreateAttr("id", strconv.FormatInt(n, 10)) })
			continue
		}
		seen[id] = true
	}
	next := int64(minSlideID)
	for id := range seen {
		if id >= next {
			next = id + 1
		}
	}
	for _, assign := range pending {
		assign(next)
		next++
		rep.RenumberedSlides++
	}
	return nil
}

func (s *Slide) normalize(rep *NormalizeReport) {
	tree := s.ShapeTree()
	if tree == nil {
		return
	}
	for _, pic := range descendants(tree, "p:pic") {
		blip := descendants(pic, "a:blip")
		if len(blip) == 0 {
			continue
		}
		rid := blip[0].SelectAttrValue("r:embed", "")
		if rid == "" {
			continue
		}
		if _, ok := s.rels.Get(rid); !ok {
			if parent := pic.Parent(); parent != nil {
				parent.RemoveChild(pic)
				rep.DroppedPictures++
			}
		}
	}

	seen := make(map[int]bool)
	cNvPrs := descendants(tree, "p:cNvPr")
	next := 1
	for _, c := range cNvPrs {
		if id, _ := strconv.Atoi(c.SelectAttrValue("id", "0")); id >= next {
			next = id + 1
		}
	}
	for _, c := range cNvPrs {
		id, _ := strconv.Atoi(c.SelectAttrValue("id", "0"))
		if id > 0 && !seen[id] {
			seen[id] = true
			continue
		}
		c.CreateAttr("id", strconv.Itoa(next))
		seen[next] = true
		next++
		rep.RenumberedShapes++
	}
}

func (p *Presentation) normalizeContentTypes(rep *NormalizeReport) error {
	root, err := p.pkg.contentTypes()
	if err != nil {
		return err
	}
	overrides := make(map[string]bool)
	for _, el := range root.SelectElements("Override") {
		name := strings.TrimPrefix(el.SelectAttrValue("PartName", ""), "/")
		if !p.pkg.has(name) {
			root.RemoveChild(el)
			rep.ContentTypeFixes++
			continue
		}
		overrides[name] = true
	}
	defaults := make(map[string]bool)
	for _, el := range root.SelectElements("Default") {
		defaults[strings.ToLower(el.SelectAttrValue("Extension", ""))] = true
	}

	for _, name := range p.pkg.names {
		if name == contentTypesPart || overrides[name] {
			continue
		}
		if ct, ok := overrideType(name); ok {
			if err := p.pkg.setOverride(name, ct); err != nil {
				return err
			}
			rep.ContentTypeFixes++
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
		if ext == "" || defaults[ext] {
			continue
		}
		if err := p.pkg.ensureDefault(ext, defaultType(ext)); err != nil {
			return err
		}
		defaults[ext] = true
		rep.ContentTypeFixes++
	}
	return nil
}

// overrideType returns the override content type for parts whose type is
// not implied by their extension.
func overrideType(name string) (string, bool) {
	switch {
	case strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml"):
		return CTSlide, true
	case strings.HasPrefix(name, "ppt/slideLayouts/slideLayout") && strings.HasSuffix(name, ".xml"):
		return CTSlideLayout, true
	case strings.HasPrefix(name, "ppt/slideMasters/slideMaster") && strings.HasSuffix(name, ".xml"):
		return CTSlideMaster, true
	case strings.HasPrefix(name, "ppt/theme/theme") && strings.HasSuffix(name, ".xml"):
		return CTTheme, true
	case name == "ppt/presentation.xml":
		return CTPresentation, true
	}
	return "", false
}

func defaultType(ext string) string {
	switch ext {
	case "rels":
		return CTRels
	case "png":
		return CTPNG
	case "jpg", "jpeg":
		return CTJPEG
	case "gif":
		return "image/gif"
	case "xml":
		return CTXML
	default:
		return "application/octet-stream"
	}
}
