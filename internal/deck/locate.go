// Package deck assembles succession decks: it clones the template slide
// once per successor group, resolves the incumbent markers, fills the
// successor table, places circular photos and hands the result to the
// repair pass.
package deck

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"succession/internal/config"
	"succession/internal/pptx"
)

// Fatal build errors. Wrapped errors carry the detail.
var (
	ErrTemplate = errors.New("template unavailable")
	ErrLayout   = errors.New("template layout invalid")
	ErrCapacity = errors.New("successor capacity exceeded")
)

// Layout is the named-shape lookup of one slide: the data table, the photo
// slots in slot order, and how often each marker occurs.
type Layout struct {
	Table   *pptx.Table
	Photos  []*pptx.Shape
	Markers map[string]int
}

// PhotoSlot returns slot n (0 = incumbent) or nil.
func (l *Layout) PhotoSlot(n int) *pptx.Shape {
	if n < 0 || n >= len(l.Photos) {
		return nil
	}
	return l.Photos[n]
}

// Locate builds the lookup for a slide. A missing or ambiguous data table
// and the absence of photo slots are layout errors.
func Locate(s *pptx.Slide, prefix string, markers config.MarkerConfig) (*Layout, error) {
	l := &Layout{Markers: make(map[string]int)}
	var (
		tables   []*pptx.Table
		missing  []string
		numbered = make(map[int]*pptx.Shape)
	)

	known := []string{markers.Name, markers.Position, markers.Summary, markers.Responsibilities, markers.Detail}
	for _, sh := range s.AllShapes() {
		if tbl, ok := sh.Table(); ok {
			tables = append(tables, tbl)
			continue
		}
		if n, ok := photoSlotNumber(sh.Name(), prefix); ok {
			if _, dup := numbered[n]; !dup {
				numbered[n] = sh
			}
		}
		tf, ok := sh.TextFrame()
		if !ok {
			continue
		}
		for _, para := range tf.Paragraphs() {
			for _, run := range para.Runs() {
				text := strings.TrimSpace(run.Text())
				for _, m := range known {
					if text == m {
						l.Markers[m]++
					}
				}
			}
		}
	}

	switch len(tables) {
	case 0:
		missing = append(missing, "data table")
	case 1:
		l.Table = tables[0]
	default:
		return nil, fmt.Errorf("%w: expected one data table, found %d", ErrLayout, len(tables))
	}

	slots := make([]int, 0, len(numbered))
	for n := range numbered {
		slots = append(slots, n)
	}
	sort.Ints(slots)
	for _, n := range slots {
		l.Photos = append(l.Photos, numbered[n])
	}
	if len(l.Photos) == 0 {
		missing = append(missing, fmt.Sprintf("photo slots named %q", prefix+" <n>"))
	}
	if l.Markers[markers.Name] == 0 {
		missing = append(missing, fmt.Sprintf("name marker %q", markers.Name))
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: slide %s is missing %s", ErrLayout, s.PartName(), strings.Join(missing, ", "))
	}
	return l, nil
}

// photoSlotNumber parses "{prefix} {n}".
func photoSlotNumber(name, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(name, prefix+" ")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
