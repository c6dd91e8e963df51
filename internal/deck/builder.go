package deck

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"succession/internal/config"
	"succession/internal/logging"
	"succession/internal/photo"
	"succession/internal/plan"
	"succession/internal/pptx"
	"succession/internal/repair"
	"succession/internal/template"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContentType is the MIME type of a generated deck.
const ContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// Options configures deck assembly.
type Options struct {
	SuccessorsPerSlide int
	MaxSlides          int // 0 = unlimited
	PhotoShapePrefix   string
	Markers            config.MarkerConfig
	AutoRepair         bool
	RepairMethod       string
}

// OptionsFromConfig maps the powerpoint config section.
func OptionsFromConfig(cfg *config.Config) Options {
	pp := cfg.PowerPoint
	return Options{
		SuccessorsPerSlide: pp.SuccessorsPerSlide,
		MaxSlides:          pp.MaxSlides,
		PhotoShapePrefix:   pp.PhotoShapePrefix,
		Markers:            pp.Markers,
		AutoRepair:         pp.AutoRepair,
		RepairMethod:       pp.RepairMethod,
	}
}

// Portraits prefetches circular photos for a set of people.
type Portraits interface {
	Prefetch(ctx context.Context, ids []string) photo.Album
}

// Warning is a non-fatal problem recorded during a build.
type Warning struct {
	Slide   int // 1-based; 0 for deck-wide problems
	Stage   string
	Message string
}

func (w Warning) String() string {
	if w.Slide == 0 {
		return fmt.Sprintf("[%s] %s", w.Stage, w.Message)
	}
	return fmt.Sprintf("[%s] slide %d: %s", w.Stage, w.Slide, w.Message)
}

// Result is a finished deck with its build report.
type Result struct {
	Deck     []byte
	Slides   int
	Groups   [][]int
	Warnings []Warning
	Repair   repair.Result
	BuildID  string
}

// Builder turns plan input into decks. A Builder holds no per-build state
// and may be shared.
type Builder struct {
	opts      Options
	templates template.Source
	photos    Portraits
}

// NewBuilder creates a builder. photos may be nil to leave photo slots as
// they are.
func NewBuilder(opts Options, templates template.Source, photos Portraits) *Builder {
	if opts.SuccessorsPerSlide < 1 {
		opts.SuccessorsPerSlide = 3
	}
	if opts.PhotoShapePrefix == "" {
		opts.PhotoShapePrefix = "Photo"
	}
	if opts.Markers == (config.MarkerConfig{}) {
		opts.Markers = config.DefaultMarkers()
	}
	return &Builder{opts: opts, templates: templates, photos: photos}
}

// build carries the state of one Build call.
type build struct {
	*Builder
	id  string
	log *zap.SugaredLogger
	res *Result
}

func (b *build) warn(slide int, stage, format string, args ...interface{}) {
	w := Warning{Slide: slide, Stage: stage, Message: fmt.Sprintf(format, args...)}
	b.res.Warnings = append(b.res.Warnings, w)
	b.log.Warnw(w.Message, "slide", slide, "stage", stage)
}

// Build assembles one deck. Invalid input, an unusable template and
// capacity violations are fatal; everything else degrades the output and
// is reported in Result.Warnings.
func (b *Builder) Build(ctx context.Context, in plan.Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	run := &build{
		Builder: b,
		id:      id,
		log:     logging.Get(logging.CategoryDeck).With("build_id", id),
		res:     &Result{BuildID: id},
	}
	start := time.Now()
	res, err := run.do(ctx, in)
	audit := logging.AuditWithBuild(id)
	if err != nil {
		audit.BuildFailed(in.Incumbent.Person.EmployeeID, err, time.Since(start))
		return nil, err
	}
	audit.BuildComplete(in.Incumbent.Person.EmployeeID, res.Slides, len(in.Successors), len(res.Warnings), time.Since(start))
	return res, nil
}

func (b *build) do(ctx context.Context, in plan.Input) (*Result, error) {
	data, err := b.templates.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	out, err := pptx.Open(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	slides, err := out.Slides()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("%w: template has no slides", ErrLayout)
	}
	layout, err := Locate(slides[0], b.opts.PhotoShapePrefix, b.opts.Markers)
	if err != nil {
		return nil, err
	}

	capacity := b.opts.SuccessorsPerSlide
	if cols := layout.Table.Cols(); capacity > cols {
		return nil, fmt.Errorf("%w: successors_per_slide is %d but the data table has %d columns", ErrCapacity, capacity, cols)
	}
	if b.opts.MaxSlides > 0 && len(in.Successors) > capacity*b.opts.MaxSlides {
		return nil, fmt.Errorf("%w: %d successors do not fit %d slides of %d", ErrCapacity, len(in.Successors), b.opts.MaxSlides, capacity)
	}

	groups := Partition(len(in.Successors), capacity)
	b.res.Groups = groups
	b.log.Infof("building deck for %s: %d successors in %d groups", in.Incumbent.Person.FullName(), len(in.Successors), len(groups))

	for i := len(slides) - 1; i >= 1; i-- {
		if err := out.RemoveSlide(i); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
		}
	}

	targets := []*pptx.Slide{slides[0]}
	for g := 1; g < len(groups); g++ {
		s, err := b.cloneFromPristine(data, out, g+1)
		if err != nil {
			return nil, err
		}
		targets = append(targets, s)
	}

	album := b.prefetch(ctx, in)

	for i, s := range targets {
		group := pick(in.Successors, groups[i])
		if err := b.fillSlide(i+1, s, in.Incumbent, group, album); err != nil {
			b.warn(i+1, "fill", "%v", err)
		}
	}

	deck, err := out.Save()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize deck: %w", err)
	}
	b.res.Slides = len(targets)

	if b.opts.AutoRepair {
		r := repair.Repair(deck, b.opts.RepairMethod)
		if r.Err != nil {
			b.warn(0, "repair", "%s repair failed, deck left as generated: %v", r.Method, r.Err)
		} else {
			b.res.Slides = r.Slides
		}
		deck = r.Data
		r.Data = nil
		b.res.Repair = r
	} else {
		b.res.Repair = repair.Skipped(nil)
	}

	b.res.Deck = deck
	b.log.Infof("deck ready: %d slides, %d bytes, %d warnings, repair %s", b.res.Slides, len(deck), len(b.res.Warnings), b.res.Repair.Status)
	return b.res, nil
}

// cloneFromPristine opens a fresh copy of the template and clones its first
// slide into out, so later slides never inherit edits made to slide 1.
func (b *build) cloneFromPristine(data []byte, out *pptx.Presentation, slide int) (*pptx.Slide, error) {
	pristine, err := pptx.Open(data)
	if err != nil {
		return nil, fmt.Errorf("%w: reopen for slide %d: %v", ErrTemplate, slide, err)
	}
	src, err := pristine.Slides()
	if err != nil || len(src) == 0 {
		return nil, fmt.Errorf("%w: reopen for slide %d: no slides", ErrTemplate, slide)
	}
	s, rep, err := CloneSlide(src[0], out)
	if err != nil {
		return nil, fmt.Errorf("failed to clone slide %d: %w", slide, err)
	}
	if rep.Degraded {
		b.warn(slide, "clone", "text-only copy (%v); lost %s", rep.Cause, strings.Join(rep.Skipped, ", "))
	}
	return s, nil
}

func (b *build) prefetch(ctx context.Context, in plan.Input) photo.Album {
	if b.photos == nil {
		return nil
	}
	album := b.photos.Prefetch(ctx, in.PersonIDs())
	names := map[string]string{in.Incumbent.Person.EmployeeID: in.Incumbent.Person.FullName()}
	for _, s := range in.Successors {
		names[s.Person.EmployeeID] = s.Person.FullName()
	}
	for _, id := range album.Failed() {
		b.warn(0, "photo", "photo unavailable for %s (%s): %v", names[id], id, album[id].Err)
	}
	return album
}

// fillSlide runs the resolver, table filler and photo placement on one
// slide. Panics are turned into errors so one bad slide cannot sink the
// deck.
func (b *build) fillSlide(n int, s *pptx.Slide, inc plan.Incumbent, group []plan.Successor, album photo.Album) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while filling slide: %v", r)
		}
	}()

	layout, lerr := Locate(s, b.opts.PhotoShapePrefix, b.opts.Markers)
	replaced := ResolvePlaceholders(s, inc, b.opts.Markers)
	b.log.Debugf("slide %d: %d markers resolved", n, replaced)
	if lerr != nil {
		return lerr
	}

	rep, err := FillTable(layout.Table, group, b.opts.Markers.Detail)
	if err != nil {
		return err
	}
	if rep.Dropped > 0 {
		b.warn(n, "table", "%d wrapped lines did not fit the table and were dropped", rep.Dropped)
	}

	if album == nil {
		return nil
	}
	people := make([]string, 0, len(group)+1)
	people = append(people, inc.Person.EmployeeID)
	for _, succ := range group {
		people = append(people, succ.Person.EmployeeID)
	}
	for slot, id := range people {
		shape := layout.PhotoSlot(slot)
		if shape == nil {
			b.log.Debugf("slide %d: no photo slot %d for %s", n, slot+1, id)
			continue
		}
		p, ok := album[id]
		if !ok || p.Err != nil {
			continue
		}
		if _, err := s.ReplaceWithPicture(shape, p.PNG); err != nil {
			b.warn(n, "photo", "could not place photo for %s: %v", id, err)
		}
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename returns succession_plan_{last name}.pptx.
func Filename(in plan.Input) string {
	last := unsafeFilename.ReplaceAllString(strings.TrimSpace(in.Incumbent.Person.LastName), "_")
	if last == "" {
		last = "deck"
	}
	return "succession_plan_" + last + ".pptx"
}
