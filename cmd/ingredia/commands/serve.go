package commands

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/vbonduro/ingredia/internal/web"
	"github.com/vbonduro/ingredia/internal/web/templates"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web UI",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("addr", "", "listen address (overrides LISTEN_ADDR)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.ListenAddr, _ = cmd.Flags().GetString("addr")
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	server := web.NewServer(a.svc, templates.FS, cfg.MaxImageBytes, a.logger)
	if err := server.ListenAndServe(cmd.Context(), cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("server error", "error", err)
		return err
	}
	return nil
}
