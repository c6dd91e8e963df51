package deck

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"

	"succession/internal/config"
	"succession/internal/photo"
	"succession/internal/plan"
	"succession/internal/pptx"
	"succession/internal/repair"
	"succession/internal/template"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// FIXTURES
// =============================================================================

func defaultTemplate(t *testing.T) []byte {
	t.Helper()
	data, err := template.Default(config.DefaultConfig().PowerPoint)
	require.NoError(t, err)
	return data
}

func testOptions() Options {
	return OptionsFromConfig(config.DefaultConfig())
}

func incumbent() plan.Incumbent {
	return plan.Incumbent{
		Person: plan.Person{EmployeeID: "100", FirstName: "Ada", LastName: "Lovelace", PositionTitle: "VP Engineering"},
		Plan: plan.IncumbentPlan{
			CriticalRole:     true,
			Responsibilities: "Owns the engine roadmap",
			TopSkills:        []string{"Courage", "Collaborates"},
			TopPLE:           "Demonstrate Care and Compassion",
			SourcingStrategy: plan.SourcingStrategy{"External"},
			ScenarioPlan:     "Direct Backfill",
		},
	}
}

func successor(n int) plan.Successor {
	return plan.Successor{
		Person: plan.Person{
			EmployeeID:    fmt.Sprintf("%d", 200+n),
			FirstName:     fmt.Sprintf("First%d", n),
			LastName:      fmt.Sprintf("Last%d", n),
			PositionTitle: fmt.Sprintf("Title %d", n),
		},
		Assessment: plan.SuccessorAssessment{
			Readiness:        "Ready Now",
			Strengths:        fmt.Sprintf("Strength of %d", n),
			TopSkills:        []string{"Collaborates"},
			DevelopmentFocus: fmt.Sprintf("Develop %d", n),
			TalentActions:    fmt.Sprintf("Act %d", n),
		},
	}
}

func input(n int) plan.Input {
	in := plan.Input{Incumbent: incumbent()}
	for i := 1; i <= n; i++ {
		in.Successors = append(in.Successors, successor(i))
	}
	return in
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

// fakePortraits succeeds for everyone except the listed ids.
type fakePortraits struct {
	png    []byte
	failed map[string]bool
	asked  []string
}

func (f *fakePortraits) Prefetch(_ context.Context, ids []string) photo.Album {
	f.asked = append(f.asked, ids...)
	album := make(photo.Album)
	for _, id := range ids {
		if f.failed[id] {
			album[id] = photo.Portrait{Err: errors.New("HTTP 404")}
			continue
		}
		album[id] = photo.Portrait{PNG: f.png}
	}
	return album
}

func openDeck(t *testing.T, data []byte) []*pptx.Slide {
	t.Helper()
	p, err := pptx.Open(data)
	require.NoError(t, err)
	slides, err := p.Slides()
	require.NoError(t, err)
	return slides
}

func dataTable(t *testing.T, s *pptx.Slide) *pptx.Table {
	t.Helper()
	sh := s.ShapeByName(template.DataTableName)
	require.NotNil(t, sh, "data table on %s", s.PartName())
	tbl, ok := sh.Table()
	require.True(t, ok)
	return tbl
}

func firstParagraph(c *pptx.Cell) string {
	return c.TextFrame().Paragraphs()[0].Text()
}

// =============================================================================
// PARTITION
// =============================================================================

func TestPartition(t *testing.T) {
	assert.Equal(t, [][]int{{0, 1, 2}, {3}}, Partition(4, 3))
	assert.Nil(t, Partition(0, 3))
	assert.Nil(t, Partition(3, 0))

	for n := 1; n <= 20; n++ {
		for c := 1; c <= 5; c++ {
			groups := Partition(n, c)
			require.Len(t, groups, (n+c-1)/c, "n=%d c=%d", n, c)
			for i, g := range groups {
				end := (i + 1) * c
				if end > n {
					end = n
				}
				want := make([]int, 0, c)
				for j := i * c; j < end; j++ {
					want = append(want, j)
				}
				if diff := cmp.Diff(want, g); diff != "" {
					t.Fatalf("n=%d c=%d group %d mismatch (-want +got):\n%s", n, c, i, diff)
				}
			}
		}
	}
}

// =============================================================================
// BUILD
// =============================================================================

func TestBuild_FourSuccessorsCapacityThree(t *testing.T) {
	b := NewBuilder(testOptions(), template.Static(defaultTemplate(t)), nil)
	res, err := b.Build(context.Background(), input(4))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Slides)
	assert.Equal(t, [][]int{{0, 1, 2}, {3}}, res.Groups)
	assert.Equal(t, repair.StatusRepaired, res.Repair.Status)
	assert.NotEmpty(t, res.BuildID)
	assert.Empty(t, res.Warnings)

	slides := openDeck(t, res.Deck)
	require.Len(t, slides, 2)

	first := dataTable(t, slides[0])
	for c := 0; c < 3; c++ {
		assert.Equal(t, successor(c+1).IdentityText(), first.Cell(RowIdentity, c).Text())
	}

	second := dataTable(t, slides[1])
	assert.Equal(t, successor(4).IdentityText(), second.Cell(RowIdentity, 0).Text())
	assert.Equal(t, "Strengths\nStrength of 4\nSkills: Collaborates\n", second.Cell(RowStrengths, 0).Text())
	for c := 1; c < 3; c++ {
		assert.Equal(t, "", second.Cell(RowIdentity, c).Text(), "column %d identity cleared", c)
		for r, header := range template.RowHeaders {
			assert.Equal(t, header+"\n\n\n", second.Cell(r+1, c).Text(), "column %d row %d cleared", c, r+1)
		}
	}

	for i, s := range slides {
		text := s.Text()
		assert.Contains(t, text, "Ada Lovelace", "slide %d", i+1)
		assert.NotContains(t, text, config.DefaultMarkers().Detail, "slide %d", i+1)
		assert.NotContains(t, text, config.DefaultMarkers().Name, "slide %d", i+1)
	}
}

func TestBuild_SlideCountAndHeadersForAnyN(t *testing.T) {
	tpl := template.Static(defaultTemplate(t))
	for n := 1; n <= 7; n++ {
		t.Run(fmt.Sprintf("%d successors", n), func(t *testing.T) {
			res, err := NewBuilder(testOptions(), tpl, nil).Build(context.Background(), input(n))
			require.NoError(t, err)
			slides := openDeck(t, res.Deck)
			require.Len(t, slides, (n+2)/3)
			assert.Equal(t, len(slides), res.Slides)

			for i, s := range slides {
				tbl := dataTable(t, s)
				require.Equal(t, 3, tbl.Cols())
				for c := 0; c < 3; c++ {
					idx := i*3 + c
					want := ""
					if idx < n {
						want = successor(idx + 1).IdentityText()
					}
					assert.Equal(t, want, tbl.Cell(RowIdentity, c).Text(), "slide %d col %d", i+1, c)
					for r, header := range template.RowHeaders {
						assert.Equal(t, header, firstParagraph(tbl.Cell(r+1, c)), "header slide %d row %d col %d", i+1, r+1, c)
					}
				}
			}
		})
	}
}

func TestBuild_PhotoFailureDegradesGracefully(t *testing.T) {
	portraits := &fakePortraits{png: tinyPNG(t), failed: map[string]bool{"202": true}}
	b := NewBuilder(testOptions(), template.Static(defaultTemplate(t)), portraits)
	res, err := b.Build(context.Background(), input(4))
	require.NoError(t, err)

	assert.Equal(t, []string{"100", "201", "202", "203", "204"}, portraits.asked)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "photo", res.Warnings[0].Stage)
	assert.Contains(t, res.Warnings[0].Message, "First2 Last2 (202)")

	slides := openDeck(t, res.Deck)
	require.Len(t, slides, 2)
	assert.Equal(t, 3, dataTable(t, slides[0]).Cols())

	kind := func(s *pptx.Slide, name string) pptx.ShapeKind {
		sh := s.ShapeByName(name)
		require.NotNil(t, sh, name)
		return sh.Kind()
	}
	assert.Equal(t, pptx.KindPicture, kind(slides[0], "Photo 1"))
	assert.Equal(t, pptx.KindPicture, kind(slides[0], "Photo 2"))
	assert.Equal(t, pptx.KindText, kind(slides[0], "Photo 3"), "failed photo keeps its placeholder")
	assert.Equal(t, pptx.KindPicture, kind(slides[0], "Photo 4"))

	assert.Equal(t, pptx.KindPicture, kind(slides[1], "Photo 1"))
	assert.Equal(t, pptx.KindPicture, kind(slides[1], "Photo 2"))
	assert.Equal(t, pptx.KindText, kind(slides[1], "Photo 3"), "unused slot untouched")
}

// brokenPictureTemplate is the default template with an extra picture on
// its slide whose r:embed points at a relationship that no longer exists.
func brokenPictureTemplate(t *testing.T) []byte {
	t.Helper()
	p, err := pptx.Open(defaultTemplate(t))
	require.NoError(t, err)
	slides, err := p.Slides()
	require.NoError(t, err)

	pic, err := slides[0].AddPicture(tinyPNG(t), pptx.Geometry{CX: 10, CY: 10}, "Broken")
	require.NoError(t, err)
	blip := pic.Element().FindElement(".//a:blip")
	require.NotNil(t, blip)
	require.True(t, slides[0].Rels().Remove(blip.SelectAttrValue("r:embed", "")))

	data, err := p.Save()
	require.NoError(t, err)
	return data
}

func TestBuild_DegradedSlideContinues(t *testing.T) {
	opts := testOptions()
	opts.AutoRepair = false
	res, err := NewBuilder(opts, template.Static(brokenPictureTemplate(t)), nil).Build(context.Background(), input(4))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Slides)

	stages := make(map[string]Warning)
	for _, w := range res.Warnings {
		stages[w.Stage] = w
	}
	require.Contains(t, stages, "clone")
	assert.Equal(t, 2, stages["clone"].Slide)
	assert.Contains(t, stages["clone"].Message, "Broken (picture)")
	require.Contains(t, stages, "fill")
	assert.Equal(t, 2, stages["fill"].Slide)
	assert.Contains(t, stages["fill"].Message, "data table")

	slides := openDeck(t, res.Deck)
	require.Len(t, slides, 2)
	first := dataTable(t, slides[0])
	for c := 0; c < 3; c++ {
		assert.Equal(t, successor(c+1).IdentityText(), first.Cell(RowIdentity, c).Text())
	}
	assert.Nil(t, slides[1].ShapeByName(template.DataTableName), "text-only copy has no table")
	assert.Contains(t, slides[1].Text(), "Ada Lovelace", "markers still resolved on the degraded slide")
}

func TestBuild_NoRepair(t *testing.T) {
	opts := testOptions()
	opts.AutoRepair = false
	res, err := NewBuilder(opts, template.Static(defaultTemplate(t)), nil).Build(context.Background(), input(2))
	require.NoError(t, err)
	assert.Equal(t, repair.StatusSkipped, res.Repair.Status)
	assert.Len(t, openDeck(t, res.Deck), 1)
}

func TestBuild_RepairMethodsAgreeOnText(t *testing.T) {
	tpl := template.Static(defaultTemplate(t))
	var texts []string
	for _, method := range config.ValidRepairMethods {
		opts := testOptions()
		opts.RepairMethod = method
		res, err := NewBuilder(opts, tpl, nil).Build(context.Background(), input(5))
		require.NoError(t, err, method)
		assert.Equal(t, method, res.Repair.Method)
		var all []string
		for _, s := range openDeck(t, res.Deck) {
			all = append(all, s.Text())
		}
		texts = append(texts, strings.Join(all, "\n---\n"))
	}
	assert.Equal(t, texts[0], texts[1], "temp_file")
	assert.Equal(t, texts[0], texts[2], "deep_clean")
}

func TestBuild_FatalErrors(t *testing.T) {
	tpl := template.Static(defaultTemplate(t))
	blank := func() template.Static {
		p := pptx.New()
		layout, _ := p.BlankLayout()
		s, err := p.AddSlide(layout.Part)
		require.NoError(t, err)
		_, err = s.AddTextBox("Title", pptx.Geometry{}, []pptx.TextSpec{{Text: "NAME"}})
		require.NoError(t, err)
		data, err := p.Save()
		require.NoError(t, err)
		return template.Static(data)
	}()

	tests := []struct {
		name   string
		opts   func(*Options)
		source template.Source
		in     plan.Input
		want   error
	}{
		{"invalid input", nil, tpl, plan.Input{Incumbent: incumbent()}, plan.ErrInvalidInput},
		{"template unreadable", nil, template.Static("not a pptx"), input(1), ErrTemplate},
		{"template empty", nil, template.Static(nil), input(1), ErrTemplate},
		{"layout missing table and photos", nil, blank, input(1), ErrLayout},
		{"capacity above columns", func(o *Options) { o.SuccessorsPerSlide = 4 }, tpl, input(1), ErrCapacity},
		{"max slides exceeded", func(o *Options) { o.MaxSlides = 1 }, tpl, input(4), ErrCapacity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			res, err := NewBuilder(opts, tt.source, nil).Build(context.Background(), tt.in)
			require.Error(t, err)
			assert.Nil(t, res, "no partial output on fatal errors")
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestLocate_DiagnosticListsMissingParts(t *testing.T) {
	p := pptx.New()
	layout, _ := p.BlankLayout()
	s, err := p.AddSlide(layout.Part)
	require.NoError(t, err)

	_, err = Locate(s, "Photo", config.DefaultMarkers())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data table")
	assert.Contains(t, err.Error(), `"Photo <n>"`)
	assert.Contains(t, err.Error(), `name marker "NAME"`)
}

func TestLocate_PhotoSlotsOrderedByNumber(t *testing.T) {
	slides := openDeck(t, defaultTemplate(t))
	l, err := Locate(slides[0], "Photo", config.DefaultMarkers())
	require.NoError(t, err)
	require.Len(t, l.Photos, 4)
	for i, sh := range l.Photos {
		assert.Equal(t, fmt.Sprintf("Photo %d", i+1), sh.Name())
	}
	assert.Nil(t, l.PhotoSlot(4))
	assert.Equal(t, template.DetailMarkers, l.Markers[config.DefaultMarkers().Detail])
	assert.Equal(t, 1, l.Markers["NAME"])
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "succession_plan_Lovelace.pptx", Filename(input(1)))
	in := input(1)
	in.Incumbent.Person.LastName = "de la Cruz/../x"
	assert.Equal(t, "succession_plan_de_la_Cruz_.._x.pptx", Filename(in))
}

// =============================================================================
// PLACEHOLDERS
// =============================================================================

func templateSlide(t *testing.T) *pptx.Slide {
	t.Helper()
	return openDeck(t, defaultTemplate(t))[0]
}

func shapeText(t *testing.T, s *pptx.Slide, name string) string {
	t.Helper()
	sh := s.ShapeByName(name)
	require.NotNil(t, sh, name)
	tf, ok := sh.TextFrame()
	require.True(t, ok, name)
	return tf.Text()
}

func TestResolvePlaceholders(t *testing.T) {
	s := templateSlide(t)
	inc := incumbent()
	n := ResolvePlaceholders(s, inc, config.DefaultMarkers())
	assert.Equal(t, 4+template.DetailMarkers, n)

	assert.Equal(t, "Ada Lovelace", shapeText(t, s, "Incumbent Name"))
	assert.Equal(t, "VP Engineering", shapeText(t, s, "Incumbent Position"))
	assert.Equal(t, inc.Summary(), shapeText(t, s, "Role Summary"))
	assert.Equal(t, "Owns the engine roadmap", shapeText(t, s, "Responsibilities"))
	assert.Equal(t, strings.Join(inc.DetailQueue(), "\n"), shapeText(t, s, "Role Details"))

	for _, sh := range s.AllShapes() {
		if tf, ok := sh.TextFrame(); ok {
			for _, p := range tf.Paragraphs() {
				assert.Equal(t, pptx.AlignLeft, p.Alignment(), sh.Name())
			}
		}
	}
	assert.Contains(t, dataTable(t, s).Text(), config.DefaultMarkers().Detail, "tables are not touched")
}

func TestResolvePlaceholders_FallbacksAndExtraDetailsCleared(t *testing.T) {
	s := templateSlide(t)
	inc := incumbent()
	inc.Person.PositionTitle = ""
	inc.Plan = plan.IncumbentPlan{}

	ResolvePlaceholders(s, inc, config.DefaultMarkers())
	assert.Equal(t, "POSITION", shapeText(t, s, "Incumbent Position"))
	assert.Equal(t, plan.ResponsibilitiesUnspecified, shapeText(t, s, "Responsibilities"))
	assert.Equal(t, "Critical Role: No\nSourcing Strategy: N/A\nScenario: N/A\n\n", shapeText(t, s, "Role Details"))
}

// =============================================================================
// TABLE
// =============================================================================

func TestFillTable_WrapsLongTextIntoMarkers(t *testing.T) {
	s := templateSlide(t)
	tbl := dataTable(t, s)
	marker := config.DefaultMarkers().Detail

	long := successor(1)
	long.Assessment.Strengths = strings.TrimSpace(strings.Repeat("resilient ", 16))
	long.Assessment.TopSkills = nil

	rep, err := FillTable(tbl, []plan.Successor{long}, marker)
	require.NoError(t, err)
	assert.Equal(t, FillReport{Filled: 1, Cleared: 2}, rep)

	lines := plan.WrapLines(long.Assessment.Strengths, plan.WrapWidth)
	require.Len(t, lines, 2)
	paras := tbl.Cell(RowStrengths, 0).TextFrame().Paragraphs()
	assert.Equal(t, "Strengths", paras[0].Text())
	assert.Equal(t, pptx.AlignInherit, paras[0].Alignment(), "header paragraph untouched")
	assert.Equal(t, lines[0], paras[1].Text())
	assert.Equal(t, lines[1], paras[2].Text())
	assert.Equal(t, "", paras[3].Text())
	for _, p := range paras[1:] {
		assert.Equal(t, pptx.AlignLeft, p.Alignment())
	}
}

func TestFillTable_ReportsDroppedLines(t *testing.T) {
	tbl := dataTable(t, templateSlide(t))
	s := successor(1)
	s.Assessment.TalentActions = "one\ntwo\nthree\nfour\nfive"
	rep, err := FillTable(tbl, []plan.Successor{s}, config.DefaultMarkers().Detail)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Dropped)
	assert.Equal(t, "Talent Actions\none\ntwo\nthree", tbl.Cell(RowActions, 0).Text())
}

func TestFillTable_Overflow(t *testing.T) {
	tbl := dataTable(t, templateSlide(t))
	_, err := FillTable(tbl, []plan.Successor{successor(1), successor(2), successor(3), successor(4)}, config.DefaultMarkers().Detail)
	assert.True(t, errors.Is(err, ErrTableOverflow))
}

// =============================================================================
// CLONE
// =============================================================================

func TestCloneSlide_StructuralCopyRemapsRelationships(t *testing.T) {
	base := pptx.New()
	layout, _ := base.BlankLayout()
	src, err := base.AddSlide(layout.Part)
	require.NoError(t, err)
	_, err = src.AddTextBox("Title", pptx.Geometry{CX: 100, CY: 10}, []pptx.TextSpec{{Text: "NAME", Align: pptx.AlignCenter}})
	require.NoError(t, err)
	_, err = src.AddPicture(tinyPNG(t), pptx.Geometry{CX: 10, CY: 10}, "Logo")
	require.NoError(t, err)
	data, err := base.Save()
	require.NoError(t, err)

	pristine, err := pptx.Open(data)
	require.NoError(t, err)
	srcSlides, _ := pristine.Slides()
	dst, err := pptx.Open(data)
	require.NoError(t, err)

	cloned, rep, err := CloneSlide(srcSlides[0], dst)
	require.NoError(t, err)
	assert.False(t, rep.Degraded)
	assert.Equal(t, srcSlides[0].Text(), cloned.Text())
	assert.Equal(t, srcSlides[0].LayoutPart(), cloned.LayoutPart())

	logo := cloned.ShapeByName("Logo")
	require.NotNil(t, logo)
	var rid string
	for _, el := range logo.Element().FindElements(".//a:blip") {
		rid = el.SelectAttrValue("r:embed", "")
	}
	rel, ok := cloned.Rels().Get(rid)
	require.True(t, ok, "r:embed %q resolves on the clone", rid)
	assert.Equal(t, "ppt/media/image1.png", cloned.Rels().TargetPart(rel))

	fixes, err := dst.Normalize()
	require.NoError(t, err)
	assert.False(t, fixes.Changed(), "%+v", fixes)
}

func TestCloneSlide_FallsBackToTextBoxes(t *testing.T) {
	slides := openDeck(t, defaultTemplate(t))
	src := slides[0]
	// A picture pointing at a relationship that does not exist breaks the
	// structural copy.
	_, err := src.AddPicture(tinyPNG(t), pptx.Geometry{}, "Broken")
	require.NoError(t, err)
	broken := src.ShapeByName("Broken")
	for _, el := range broken.Element().FindElements(".//a:blip") {
		el.CreateAttr("r:embed", "rId999")
	}

	dst, err := pptx.Open(defaultTemplate(t))
	require.NoError(t, err)
	cloned, rep, err := CloneSlide(src, dst)
	require.NoError(t, err)

	assert.True(t, rep.Degraded)
	assert.Error(t, rep.Cause)
	assert.Contains(t, rep.Skipped, template.DataTableName+" (table)")
	assert.Contains(t, rep.Skipped, "Broken (picture)")
	assert.Nil(t, cloned.ShapeByName(template.DataTableName))

	tf, ok := cloned.ShapeByName("Incumbent Name").TextFrame()
	require.True(t, ok)
	assert.Equal(t, "NAME", tf.Text())
}
