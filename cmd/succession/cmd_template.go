package main

import (
	"fmt"
	"os"

	"succession/internal/deck"
	"succession/internal/pptx"
	"succession/internal/template"

	"github.com/spf13/cobra"
)

var templateForce bool

// templateCmd groups template maintenance
var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Create or check deck templates",
}

var templateInitCmd = &cobra.Command{
	Use:   "init [OUT]",
	Short: "Write the built-in template (default: powerpoint.template_file)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTemplateInit,
}

var templateCheckCmd = &cobra.Command{
	Use:   "check [FILE]",
	Short: "Check that a template has the table, photo slots and markers the builder needs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTemplateCheck,
}

func init() {
	templateInitCmd.Flags().BoolVarP(&templateForce, "force", "f", false, "Overwrite an existing file")
	templateCmd.AddCommand(templateInitCmd)
	templateCmd.AddCommand(templateCheckCmd)
}

func templateArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.PowerPoint.TemplateFile
}

func runTemplateInit(cmd *cobra.Command, args []string) error {
	path := templateArg(args)
	if _, err := os.Stat(path); err == nil && !templateForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := template.WriteDefault(path, cfg.PowerPoint); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("template written to ")+valueStyle.Render(path))
	return nil
}

func runTemplateCheck(cmd *cobra.Command, args []string) error {
	path := templateArg(args)
	p, err := pptx.OpenFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", deck.ErrTemplate, err)
	}
	slides, err := p.Slides()
	if err != nil {
		return err
	}
	if len(slides) == 0 {
		return fmt.Errorf("%w: %s has no slides", deck.ErrLayout, path)
	}

	pp := cfg.PowerPoint
	layout, err := deck.Locate(slides[0], pp.PhotoShapePrefix, pp.Markers)
	if err != nil {
		return err
	}
	if cols := layout.Table.Cols(); cols < pp.SuccessorsPerSlide {
		return fmt.Errorf("%w: table has %d columns, config wants %d successors per slide", deck.ErrCapacity, cols, pp.SuccessorsPerSlide)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, titleStyle.Render("Template OK"))
	fmt.Fprintln(w, field("file", path))
	fmt.Fprintln(w, field("table", fmt.Sprintf("%d rows x %d columns", layout.Table.Rows(), layout.Table.Cols())))
	fmt.Fprintln(w, field("photo slots", len(layout.Photos)))
	if len(layout.Photos) < pp.SuccessorsPerSlide+1 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("only %d photo slots for 1 incumbent + %d successors; extra photos are skipped",
			len(layout.Photos), pp.SuccessorsPerSlide)))
	}
	for _, m := range []string{pp.Markers.Name, pp.Markers.Position, pp.Markers.Summary, pp.Markers.Responsibilities, pp.Markers.Detail} {
		fmt.Fprintln(w, field("marker", fmt.Sprintf("%q x%d", m, layout.Markers[m])))
	}
	if len(slides) > 1 {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d extra slides are ignored", len(slides)-1)))
	}
	return nil
}
