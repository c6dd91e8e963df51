package main

import (
	"fmt"
	"strings"

	"succession/internal/deck"
	"succession/internal/plan"
	"succession/internal/pptx"
	"succession/internal/repair"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	primary     = lipgloss.Color("#101F38")
	accent      = lipgloss.Color("#8BC34A")
	muted       = lipgloss.Color("#6b7785")
	warning     = lipgloss.Color("#FFC107")
	destructive = lipgloss.Color("#e53935")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle   = lipgloss.NewStyle().Foreground(muted).Width(14)
	valueStyle   = lipgloss.NewStyle().Foreground(primary).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(accent)
	warnStyle    = lipgloss.NewStyle().Foreground(warning)
	errorStyle   = lipgloss.NewStyle().Foreground(destructive).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	sectionStyle = lipgloss.NewStyle().PaddingLeft(2)
)

func field(label string, value interface{}) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(fmt.Sprint(value)))
}

func renderBuildReport(res *deck.Result, out string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Deck built") + "\n")
	b.WriteString(field("file", out) + "\n")
	b.WriteString(field("slides", res.Slides) + "\n")
	groups := make([]string, len(res.Groups))
	for i, g := range res.Groups {
		groups[i] = fmt.Sprintf("%d", len(g))
	}
	b.WriteString(field("per slide", strings.Join(groups, " + ")) + "\n")
	b.WriteString(field("repair", renderRepairStatus(res.Repair)) + "\n")
	b.WriteString(field("build id", res.BuildID) + "\n")
	b.WriteString(renderWarnings(res.Warnings))
	return b.String()
}

func renderRepairStatus(r repair.Result) string {
	switch r.Status {
	case repair.StatusRepaired:
		return okStyle.Render(fmt.Sprintf("%s (%s)", r.Status, r.Method))
	case repair.StatusUnchanged:
		return warnStyle.Render(fmt.Sprintf("%s (%s failed: %v)", r.Status, r.Method, r.Err))
	default:
		return mutedStyle.Render(string(r.Status))
	}
}

func renderWarnings(warnings []deck.Warning) string {
	if len(warnings) == 0 {
		return okStyle.Render("no warnings") + "\n"
	}
	var b strings.Builder
	b.WriteString(warnStyle.Render(fmt.Sprintf("%d warnings", len(warnings))) + "\n")
	for _, w := range warnings {
		b.WriteString(sectionStyle.Render("• "+w.String()) + "\n")
	}
	return b.String()
}

func renderFixes(fixes pptx.NormalizeReport) string {
	if !fixes.Changed() {
		return mutedStyle.Render("no structural fixes needed") + "\n"
	}
	var b strings.Builder
	rows := []struct {
		label string
		n     int
	}{
		{"dangling rels", fixes.DroppedRelationships},
		{"orphan ids", fixes.DroppedSlideIDs},
		{"broken pics", fixes.DroppedPictures},
		{"shape ids", fixes.RenumberedShapes},
		{"slide ids", fixes.RenumberedSlides},
		{"content types", fixes.ContentTypeFixes},
	}
	for _, r := range rows {
		if r.n > 0 {
			b.WriteString(field(r.label, r.n) + "\n")
		}
	}
	return b.String()
}

func renderPeople(people []plan.Person) string {
	if len(people) == 0 {
		return mutedStyle.Render("no matches") + "\n"
	}
	idW, nameW := lipgloss.NewStyle().Width(12), lipgloss.NewStyle().Width(28)
	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		idW.Render(headerStyle.Render("ID")), nameW.Render(headerStyle.Render("Name")), headerStyle.Render("Position")) + "\n")
	for _, p := range people {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			idW.Render(p.EmployeeID), nameW.Render(p.FullName()), mutedStyle.Render(p.PositionTitle)) + "\n")
	}
	return b.String()
}
