// Package pptx is a small in-memory model of a PowerPoint (PresentationML)
// package: the zip container, its relationship graph, and the slide, shape,
// text and table trees the deck builder edits. XML parts are parsed lazily
// with etree and written back on Save.
package pptx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// ErrNotPresentation is returned when a zip is not a PresentationML package.
var ErrNotPresentation = errors.New("not a presentation package")

const (
	contentTypesPart = "[Content_Types].xml"
	rootRelsPart     = "_rels/.rels"
)

// part is one entry of the zip container. XML parts are parsed on first
// access and re-serialized on save.
type part struct {
	name string
	data []byte
	doc  *etree.Document
}

func (p *part) xml() (*etree.Document, error) {
	if p.doc != nil {
		return p.doc, nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(p.data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.name, err)
	}
	p.doc = doc
	return doc, nil
}

func (p *part) bytes() ([]byte, error) {
	if p.doc == nil {
		return p.data, nil
	}
	out, err := p.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", p.name, err)
	}
	return out, nil
}

// container holds the parts in their original order.
type container struct {
	names []string
	parts map[string]*part
}

func newContainer() *container {
	return &container{parts: make(map[string]*part)}
}

func readContainer(data []byte) (*container, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPresentation, err)
	}
	c := newContainer()
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		c.put(strings.TrimPrefix(f.Name, "/"), b)
	}
	if !c.has(contentTypesPart) {
		return nil, fmt.Errorf("%w: missing %s", ErrNotPresentation, contentTypesPart)
	}
	return c, nil
}

func (c *container) has(name string) bool {
	_, ok := c.parts[name]
	return ok
}

func (c *container) get(name string) *part {
	return c.parts[name]
}

func (c *container) put(name string, data []byte) *part {
	if p, ok := c.parts[name]; ok {
		p.data, p.doc = data, nil
		return p
	}
	p := &part{name: name, data: data}
	c.parts[name] = p
	c.names = append(c.names, name)
	return p
}

func (c *container) putXML(name string, doc *etree.Document) *part {
	p := c.put(name, nil)
	p.doc = doc
	return p
}

func (c *container) remove(name string) {
	if _, ok := c.parts[name]; !ok {
		return
	}
	delete(c.parts, name)
	for i, n := range c.names {
		if n == name {
			c.names = append(c.names[:i], c.names[i+1:]...)
			break
		}
	}
}

func (c *container) xml(name string) (*etree.Document, error) {
	p := c.get(name)
	if p == nil {
		return nil, fmt.Errorf("missing part %s", name)
	}
	return p.xml()
}

// write serializes the container. [Content_Types].xml always comes first.
func (c *container) write(w io.Writer) error {
	zw := zip.NewWriter(w)
	names := make([]string, 0, len(c.names))
	names = append(names, contentTypesPart)
	for _, n := range c.names {
		if n != contentTypesPart {
			names = append(names, n)
		}
	}
	for _, name := range names {
		p := c.parts[name]
		data, err := p.bytes()
		if err != nil {
			return err
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("zip %s: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("zip %s: %w", name, err)
		}
	}
	return zw.Close()
}

// partsWithPrefix returns matching part names in natural order.
func (c *container) partsWithPrefix(prefix, suffix string) []string {
	var out []string
	for _, n := range c.names {
		if strings.HasPrefix(n, prefix) && strings.HasSuffix(n, suffix) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return naturalLess(out[i], out[j]) })
	return out
}

// naturalLess orders "slide2.xml" before "slide10.xml".
func naturalLess(a, b string) bool {
	na, pa := trailingNumber(a)
	nb, pb := trailingNumber(b)
	if pa == pb && na >= 0 && nb >= 0 {
		return na < nb
	}
	return a < b
}

func trailingNumber(name string) (int, string) {
	base := strings.TrimSuffix(name, path.Ext(name))
	i := len(base)
	for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
		i--
	}
	if i == len(base) {
		return -1, base
	}
	n := 0
	for _, ch := range base[i:] {
		n = n*10 + int(ch-'0')
	}
	return n, base[:i]
}

// =============================================================================
// RELATIONSHIPS
// =============================================================================

// Relationship types used by the builder.
const (
	RelOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelSlide          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	RelSlideLayout    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	RelSlideMaster    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster"
	RelTheme          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme"
	RelImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	RelNotesSlide     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"

	relsNamespace = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// Relationship is one entry of a .rels part.
type Relationship struct {
	ID       string
	Type     string
	Target   string
	External bool
}

// Rels is the relationship set of one source part.
type Rels struct {
	source string
	doc    *etree.Document
}

// relsPartName returns the .rels part name for a source part.
func relsPartName(source string) string {
	if source == "" {
		return rootRelsPart
	}
	dir, file := path.Split(source)
	return dir + "_rels/" + file + ".rels"
}

// sourceOfRels inverts relsPartName.
func sourceOfRels(rels string) string {
	if rels == rootRelsPart {
		return ""
	}
	dir, file := path.Split(rels)
	dir = strings.TrimSuffix(dir, "_rels/")
	return dir + strings.TrimSuffix(file, ".rels")
}

func (c *container) rels(source string) (*Rels, error) {
	name := relsPartName(source)
	if !c.has(name) {
		doc := etree.NewDocument()
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
		root := doc.CreateElement("Relationships")
		root.CreateAttr("xmlns", relsNamespace)
		c.putXML(name, doc)
		return &Rels{source: source, doc: doc}, nil
	}
	doc, err := c.xml(name)
	if err != nil {
		return nil, err
	}
	if root := doc.Root(); root == nil || root.Tag != "Relationships" {
		return nil, fmt.Errorf("%s has no Relationships root", name)
	}
	return &Rels{source: source, doc: doc}, nil
}

// All returns every relationship in document order.
func (r *Rels) All() []Relationship {
	var out []Relationship
	for _, el := range r.doc.Root().SelectElements("Relationship") {
		out = append(out, relFromElement(el))
	}
	return out
}

func relFromElement(el *etree.Element) Relationship {
	return Relationship{
		ID:       el.SelectAttrValue("Id", ""),
		Type:     el.SelectAttrValue("Type", ""),
		Target:   el.SelectAttrValue("Target", ""),
		External: el.SelectAttrValue("TargetMode", "") == "External",
	}
}

// Get looks a relationship up by id.
func (r *Rels) Get(id string) (Relationship, bool) {
	for _, el := range r.doc.Root().SelectElements("Relationship") {
		if el.SelectAttrValue("Id", "") == id {
			return relFromElement(el), true
		}
	}
	return Relationship{}, false
}

// FirstOfType returns the first relationship of the given type.
func (r *Rels) FirstOfType(typ string) (Relationship, bool) {
	for _, rel := range r.All() {
		if rel.Type == typ {
			return rel, true
		}
	}
	return Relationship{}, false
}

// TargetPart resolves an internal relationship to a part name.
func (r *Rels) TargetPart(rel Relationship) string {
	return resolveTarget(r.source, rel.Target)
}

func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return strings.TrimPrefix(path.Clean(path.Join(path.Dir(source), target)), "/")
}

// relativeTarget computes the Target attribute from source to part.
func relativeTarget(source, partName string) string {
	from := strings.Split(path.Dir(source), "/")
	if path.Dir(source) == "." {
		from = nil
	}
	to := strings.Split(partName, "/")
	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	var b strings.Builder
	for j := i; j < len(from); j++ {
		b.WriteString("../")
	}
	b.WriteString(strings.Join(to[i:], "/"))
	return b.String()
}

func (r *Rels) nextID() string {
	used := make(map[string]bool)
	for _, rel := range r.All() {
		used[rel.ID] = true
	}
	for n := 1; ; n++ {
		id := fmt.Sprintf("rId%d", n)
		if !used[id] {
			return id
		}
	}
}

// Add appends an internal relationship to partName and returns its id.
func (r *Rels) Add(typ, partName string) string {
	id := r.nextID()
	el := r.doc.Root().CreateElement("Relationship")
	el.CreateAttr("Id", id)
	el.CreateAttr("Type", typ)
	el.CreateAttr("Target", relativeTarget(r.source, partName))
	return id
}

// AddExternal appends an external relationship and returns its id.
func (r *Rels) AddExternal(typ, target string) string {
	id := r.nextID()
	el := r.doc.Root().CreateElement("Relationship")
	el.CreateAttr("Id", id)
	el.CreateAttr("Type", typ)
	el.CreateAttr("Target", target)
	el.CreateAttr("TargetMode", "External")
	return id
}

// Remove deletes a relationship by id.
func (r *Rels) Remove(id string) bool {
	root := r.doc.Root()
	for _, el := range root.SelectElements("Relationship") {
		if el.SelectAttrValue("Id", "") == id {
			root.RemoveChild(el)
			return true
		}
	}
	return false
}

// =============================================================================
// CONTENT TYPES
// =============================================================================

// Content types of the parts the builder creates.
const (
	CTPresentation = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	CTSlide        = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	CTSlideLayout  = "application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"
	CTSlideMaster  = "application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"
	CTTheme        = "application/vnd.openxmlformats-officedocument.theme+xml"
	CTNotesSlide   = "application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml"
	CTRels         = "application/vnd.openxmlformats-package.relationships+xml"
	CTPNG          = "image/png"
	CTJPEG         = "image/jpeg"
	CTXML          = "application/xml"
)

func (c *container) contentTypes() (*etree.Element, error) {
	doc, err := c.xml(contentTypesPart)
	if err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("%w: empty %s", ErrNotPresentation, contentTypesPart)
	}
	return doc.Root(), nil
}

func (c *container) setOverride(partName, ct string) error {
	root, err := c.contentTypes()
	if err != nil {
		return err
	}
	key := "/" + partName
	for _, el := range root.SelectElements("Override") {
		if el.SelectAttrValue("PartName", "") == key {
			el.CreateAttr("ContentType", ct)
			return nil
		}
	}
	el := root.CreateElement("Override")
	el.CreateAttr("PartName", key)
	el.CreateAttr("ContentType", ct)
	return nil
}

func (c *container) removeOverride(partName string) error {
	root, err := c.contentTypes()
	if err != nil {
		return err
	}
	key := "/" + partName
	for _, el := range root.SelectElements("Override") {
		if el.SelectAttrValue("PartName", "") == key {
			root.RemoveChild(el)
		}
	}
	return nil
}

func (c *container) ensureDefault(ext, ct string) error {
	root, err := c.contentTypes()
	if err != nil {
		return err
	}
	for _, el := range root.SelectElements("Default") {
		if strings.EqualFold(el.SelectAttrValue("Extension", ""), ext) {
			return nil
		}
	}
	el := etree.NewElement("Default")
	el.CreateAttr("Extension", ext)
	el.CreateAttr("ContentType", ct)
	root.InsertChildAt(0, el)
	return nil
}

// =============================================================================
// OPEN / SAVE
// =============================================================================

// Open parses a presentation from bytes. The input slice is not retained.
func Open(data []byte) (*Presentation, error) {
	c, err := readContainer(data)
	if err != nil {
		return nil, err
	}
	return newPresentation(c)
}

// OpenFile parses a presentation from disk.
func OpenFile(filename string) (*Presentation, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read presentation: %w", err)
	}
	return Open(data)
}

// Save serializes the presentation.
func (p *Presentation) Save() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.pkg.write(&buf); err != nil {
		return nil, fmt.Errorf("failed to save presentation: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveFile serializes the presentation to disk.
func (p *Presentation) SaveFile(filename string) error {
	data, err := p.Save()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write presentation: %w", err)
	}
	return nil
}
