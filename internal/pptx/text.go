package pptx

import (
	"strings"

	"github.com/beevik/etree"
)

// Alignment is a paragraph's a:pPr algn value. Empty means inherited.
type Alignment string

const (
	AlignInherit Alignment = ""
	AlignLeft    Alignment = "l"
	AlignCenter  Alignment = "ctr"
	AlignRight   Alignment = "r"
	AlignJustify Alignment = "just"
)

// TextSpec describes one paragraph to create.
type TextSpec struct {
	Text  string
	Align Alignment
}

// Lines turns text into one left-aligned TextSpec per line.
func Lines(text string, align Alignment) []TextSpec {
	parts := strings.Split(text, "\n")
	specs := make([]TextSpec, len(parts))
	for i, p := range parts {
		specs[i] = TextSpec{Text: p, Align: align}
	}
	return specs
}

// TextFrame wraps a p:txBody or a:txBody element.
type TextFrame struct {
	body *etree.Element
}

// Paragraphs returns the a:p children.
func (tf *TextFrame) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, p := range tf.body.SelectElements("a:p") {
		out = append(out, &Paragraph{el: p})
	}
	return out
}

// Text joins the paragraph texts with newlines.
func (tf *TextFrame) Text() string {
	paras := tf.Paragraphs()
	lines := make([]string, len(paras))
	for i, p := range paras {
		lines[i] = p.Text()
	}
	return strings.Join(lines, "\n")
}

// Specs captures paragraph text and alignment.
func (tf *TextFrame) Specs() []TextSpec {
	paras := tf.Paragraphs()
	specs := make([]TextSpec, len(paras))
	for i, p := range paras {
		specs[i] = TextSpec{Text: p.Text(), Align: p.Alignment()}
	}
	return specs
}

// SetText replaces every paragraph with one paragraph per line. The first
// paragraph's properties and first run's character properties are reused.
func (tf *TextFrame) SetText(text string) {
	var pPr, rPr *etree.Element
	if paras := tf.Paragraphs(); len(paras) > 0 {
		if el := paras[0].el.SelectElement("a:pPr"); el != nil {
			pPr = el.Copy()
		}
		if runs := paras[0].Runs(); len(runs) > 0 {
			if el := runs[0].el.SelectElement("a:rPr"); el != nil {
				rPr = el.Copy()
			}
		}
	}
	for _, p := range tf.body.SelectElements("a:p") {
		tf.body.RemoveChild(p)
	}
	for _, line := range strings.Split(text, "\n") {
		p := tf.body.CreateElement("a:p")
		if pPr != nil {
			p.AddChild(pPr.Copy())
		}
		if line == "" {
			continue
		}
		r := p.CreateElement("a:r")
		if rPr != nil {
			r.AddChild(rPr.Copy())
		}
		r.CreateElement("a:t").SetText(line)
	}
}

// appendParagraph adds a paragraph built from spec.
func (tf *TextFrame) appendParagraph(spec TextSpec) *Paragraph {
	p := &Paragraph{el: tf.body.CreateElement("a:p")}
	if spec.Align != AlignInherit {
		p.SetAlignment(spec.Align)
	}
	if spec.Text != "" {
		r := p.el.CreateElement("a:r")
		rPr := r.CreateElement("a:rPr")
		rPr.CreateAttr("lang", "en-US")
		rPr.CreateAttr("dirty", "0")
		r.CreateElement("a:t")
		(&Run{el: r}).SetText(spec.Text)
	}
	return p
}

// Paragraph wraps an a:p element.
type Paragraph struct {
	el *etree.Element
}

// Runs returns the a:r children.
func (p *Paragraph) Runs() []*Run {
	var out []*Run
	for _, r := range p.el.SelectElements("a:r") {
		out = append(out, &Run{el: r})
	}
	return out
}

// Text concatenates runs and fields; line breaks become "\n".
func (p *Paragraph) Text() string {
	var b strings.Builder
	for _, c := range p.el.ChildElements() {
		switch c.Tag {
		case "r", "fld":
			if t := c.SelectElement("a:t"); t != nil {
				b.WriteString(t.Text())
			}
		case "br":
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Alignment returns the explicit alignment, if any.
func (p *Paragraph) Alignment() Alignment {
	if pPr := p.el.SelectElement("a:pPr"); pPr != nil {
		return Alignment(pPr.SelectAttrValue("algn", ""))
	}
	return AlignInherit
}

// SetAlignment sets a:pPr/@algn, creating a:pPr as the first child.
func (p *Paragraph) SetAlignment(a Alignment) {
	pPr := p.el.SelectElement("a:pPr")
	if pPr == nil {
		if a == AlignInherit {
			return
		}
		pPr = etree.NewElement("a:pPr")
		p.el.InsertChildAt(0, pPr)
	}
	if a == AlignInherit {
		pPr.RemoveAttr("algn")
		return
	}
	pPr.CreateAttr("algn", string(a))
}

// Run wraps an a:r element.
type Run struct {
	el *etree.Element
}

// Text returns the run's a:t text.
func (r *Run) Text() string {
	if t := r.el.SelectElement("a:t"); t != nil {
		return t.Text()
	}
	return ""
}

// SetText replaces the run's text. Newlines become a:br siblings followed
// by new runs carrying the same character properties.
func (r *Run) SetText(text string) {
	lines := strings.Split(text, "\n")
	t := r.el.SelectElement("a:t")
	if t == nil {
		t = r.el.CreateElement("a:t")
	}
	t.SetText(lines[0])
	if len(lines) == 1 {
		return
	}

	parent := r.el.Parent()
	if parent == nil {
		return
	}
	rPr := r.el.SelectElement("a:rPr")
	at := r.el.Index() + 1
	for _, line := range lines[1:] {
		br := etree.NewElement("a:br")
		if rPr != nil {
			br.AddChild(rPr.Copy())
		}
		parent.InsertChildAt(at, br)
		at++

		nr := etree.NewElement("a:r")
		if rPr != nil {
			nr.AddChild(rPr.Copy())
		}
		nr.CreateElement("a:t").SetText(line)
		parent.InsertChildAt(at, nr)
		at++
	}
}
