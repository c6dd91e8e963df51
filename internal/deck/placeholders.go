package deck

import (
	"strings"

	"succession/internal/config"
	"succession/internal/logging"
	"succession/internal/plan"
	"succession/internal/pptx"
)

// ResolvePlaceholders rewrites the incumbent markers in every text shape of
// the slide and forces every paragraph of those shapes to left alignment.
// Detail markers take the next line of the incumbent's detail queue in
// document order and are cleared once the queue runs out. Tables are left
// to FillTable. Returns the number of runs rewritten.
func ResolvePlaceholders(s *pptx.Slide, inc plan.Incumbent, markers config.MarkerConfig) int {
	queue := inc.DetailQueue()
	next := 0
	replaced := 0

	position := inc.Person.PositionTitle
	if strings.TrimSpace(position) == "" {
		position = markers.Position
	}

	for _, sh := range s.AllShapes() {
		tf, ok := sh.TextFrame()
		if !ok {
			continue
		}
		for _, para := range tf.Paragraphs() {
			para.SetAlignment(pptx.AlignLeft)
			for _, run := range para.Runs() {
				switch strings.TrimSpace(run.Text()) {
				case markers.Name:
					run.SetText(inc.Person.FullName())
				case markers.Position:
					run.SetText(position)
				case markers.Summary:
					run.SetText(inc.Summary())
				case markers.Responsibilities:
					run.SetText(inc.Plan.ResponsibilitiesText())
				case markers.Detail:
					if next < len(queue) {
						run.SetText(queue[next])
						next++
					} else {
						run.SetText("")
					}
				default:
					continue
				}
				replaced++
			}
		}
	}
	if next < len(queue) {
		logging.DeckDebug("%s: %d detail lines had no marker left", s.PartName(), len(queue)-next)
	}
	return replaced
}
