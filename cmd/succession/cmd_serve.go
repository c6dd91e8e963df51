package main

import (
	"fmt"

	"succession/internal/deck"
	"succession/internal/logging"
	"succession/internal/server"
	"succession/internal/store"
	"succession/internal/template"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveAddr     string
	serveNoStore  bool
	serveNoPhotos bool
)

// serveCmd runs the HTTP surface
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve deck generation and the employee directory over HTTP",
	Long: `Starts the HTTP server. The template file is watched and reloaded
on change, so template edits take effect without a restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr)")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "Run without the sqlite directory")
	serveCmd.Flags().BoolVar(&serveNoPhotos, "no-photos", false, "Leave photo placeholders untouched")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	templates := template.NewStore(cfg.PowerPoint.TemplateFile)
	templates.OnReload(func() {
		logging.Template("template %s changed, next build uses the new file", templates.Path())
	})
	if err := templates.Start(ctx); err != nil {
		return fmt.Errorf("failed to watch template: %w", err)
	}
	defer templates.Stop()
	if _, err := templates.Snapshot(); err != nil {
		logger.Warn("template not readable yet; builds fail until it is", zap.Error(err))
	}

	var dir server.Directory
	if !serveNoStore {
		st, err := store.NewLocalStore(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		dir = st
	}

	builder := deck.NewBuilder(deck.OptionsFromConfig(cfg), templates, newPortraits(serveNoPhotos))
	opts := server.OptionsFromConfig(cfg)
	if serveAddr != "" {
		opts.Addr = serveAddr
	}

	logger.Info("starting server",
		zap.String("addr", opts.Addr),
		zap.Int("max_conns", opts.MaxConns),
		zap.String("template", templates.Path()),
		zap.Bool("store", dir != nil))
	return server.New(opts, builder, dir).ListenAndServe(ctx)
}
