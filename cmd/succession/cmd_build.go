package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"succession/internal/deck"
	"succession/internal/photo"
	"succession/internal/plan"
	"succession/internal/pptx"
	"succession/internal/repair"
	"succession/internal/template"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	buildPlanFile     string
	buildOutFile      string
	buildTemplateFile string
	buildNoRepair     bool
	buildRepairMethod string
	buildNoPhotos     bool

	repairMethod string
)

// buildCmd builds a deck from a plan file
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a succession deck from a plan file",
	Long: `Reads a plan (YAML or JSON), fills the template once per group of
successors, places circular photos and writes the .pptx.

Example:
  succession build --plan plans/lovelace.yaml --out decks/`,
	RunE: runBuild,
}

// repairCmd re-validates an existing deck
var repairCmd = &cobra.Command{
	Use:   "repair IN OUT",
	Short: "Run the repair pass over an existing deck",
	Args:  cobra.ExactArgs(2),
	RunE:  runRepair,
}

// inspectCmd prints the shape inventory of a deck
var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "List slides, shapes and structural problems of a deck",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	buildCmd.Flags().StringVarP(&buildPlanFile, "plan", "p", "", "Plan file (required)")
	buildCmd.Flags().StringVarP(&buildOutFile, "out", "o", "", "Output file or directory (default: succession_plan_{last name}.pptx)")
	buildCmd.Flags().StringVar(&buildTemplateFile, "template", "", "Template file (default: from config)")
	buildCmd.Flags().BoolVar(&buildNoRepair, "no-repair", false, "Skip the repair pass")
	buildCmd.Flags().StringVar(&buildRepairMethod, "repair-method", "", "standard, temp_file or deep_clean (default: from config)")
	buildCmd.Flags().BoolVar(&buildNoPhotos, "no-photos", false, "Leave photo placeholders untouched")
	buildCmd.MarkFlagRequired("plan")

	repairCmd.Flags().StringVar(&repairMethod, "method", "", "standard, temp_file or deep_clean (default: from config)")
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newPortraits returns the photo gallery, or nil when photos are disabled.
func newPortraits(disabled bool) deck.Portraits {
	if disabled {
		return nil
	}
	fetcher := photo.NewFetcherFromConfig(cfg)
	return photo.NewGallery(fetcher, cfg.Avatar.Parallelism, photo.Limits{
		MaxPixels:       cfg.Avatar.MaxPixels,
		MaxSourcePixels: cfg.Avatar.MaxSourcePixels,
	})
}

func newBuilder(templatePath string, noPhotos bool) *deck.Builder {
	if templatePath == "" {
		templatePath = cfg.PowerPoint.TemplateFile
	}
	opts := deck.OptionsFromConfig(cfg)
	if buildNoRepair {
		opts.AutoRepair = false
	}
	if buildRepairMethod != "" {
		opts.RepairMethod = buildRepairMethod
	}
	return deck.NewBuilder(opts, template.NewStore(templatePath), newPortraits(noPhotos))
}

// outputPath resolves --out: empty means the default name in the working
// directory, an existing directory gets the default name inside it.
func outputPath(out string, in plan.Input) string {
	name := deck.Filename(in)
	if out == "" {
		return name
	}
	if info, err := os.Stat(out); (err == nil && info.IsDir()) || strings.HasSuffix(out, string(os.PathSeparator)) {
		return filepath.Join(out, name)
	}
	return out
}

func runBuild(cmd *cobra.Command, args []string) error {
	in, err := plan.LoadFile(buildPlanFile)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, cfg.GetBuildTimeout())
	defer cancelTimeout()

	logger.Info("building deck",
		zap.String("plan", buildPlanFile),
		zap.String("incumbent", in.Incumbent.Person.FullName()),
		zap.Int("successors", len(in.Successors)))

	res, err := newBuilder(buildTemplateFile, buildNoPhotos).Build(ctx, *in)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	out := outputPath(buildOutFile, *in)
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(out, res.Deck, 0644); err != nil {
		return fmt.Errorf("failed to write deck: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), renderBuildReport(res, out))
	return nil
}

func runRepair(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read deck: %w", err)
	}
	method := repairMethod
	if method == "" {
		method = cfg.PowerPoint.RepairMethod
	}

	res := repair.Repair(data, method)
	if res.Err != nil {
		return fmt.Errorf("%s repair failed: %w", res.Method, res.Err)
	}
	if err := os.WriteFile(args[1], res.Data, 0644); err != nil {
		return fmt.Errorf("failed to write deck: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, titleStyle.Render("Deck repaired"))
	fmt.Fprintln(w, field("file", args[1]))
	fmt.Fprintln(w, field("method", res.Method))
	fmt.Fprintln(w, field("slides", res.Slides))
	fmt.Fprint(w, renderFixes(res.Fixes))
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	p, err := pptx.OpenFile(args[0])
	if err != nil {
		return err
	}
	slides, err := p.Slides()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	cx, cy := p.SlideSize()
	fmt.Fprintln(w, titleStyle.Render(filepath.Base(args[0])))
	fmt.Fprintln(w, field("slides", len(slides)))
	fmt.Fprintln(w, field("size", fmt.Sprintf("%d x %d EMU", cx, cy)))
	for i, s := range slides {
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Slide %d", i+1))+" "+mutedStyle.Render(s.PartName()))
		for _, sh := range s.AllShapes() {
			line := fmt.Sprintf("#%d %-10s %s", sh.ID(), sh.Kind(), sh.Name())
			if tbl, ok := sh.Table(); ok {
				line += mutedStyle.Render(fmt.Sprintf(" (%dx%d)", tbl.Rows(), tbl.Cols()))
			}
			fmt.Fprintln(w, sectionStyle.Render(line))
		}
		if _, err := deck.Locate(s, cfg.PowerPoint.PhotoShapePrefix, cfg.PowerPoint.Markers); err != nil {
			fmt.Fprintln(w, sectionStyle.Render(mutedStyle.Render("not a template layout: "+err.Error())))
		}
	}

	// Dry run: normalize a private copy to report what repair would fix.
	data, err := p.Save()
	if err != nil {
		return err
	}
	probe, err := pptx.Open(data)
	if err != nil {
		return err
	}
	fixes, err := probe.Normalize()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, headerStyle.Render("Structure"))
	fmt.Fprint(w, renderFixes(fixes))
	return nil
}
