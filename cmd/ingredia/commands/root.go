// Package commands implements the ingredia CLI.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vbonduro/ingredia/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "ingredia",
	Short: "Ingredient analysis assistant",
	Long: `Ingredia describes a photo of a cosmetic, food or medicine product with a
hosted vision model and answers questions about it using a local
spreadsheet of ingredient data.

Running without a subcommand starts the web server.

Examples:
  # Serve the web UI on :8080
  ingredia

  # Describe a product image
  ingredia describe --image cream.jpg

  # Ask about a product with Claude, printing YAML
  ingredia ask --image cream.jpg --question "Is this safe for sensitive skin?" \
      --backend claude --output yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML config file (default ./ingredia.yaml when present)")
	flags.String("dir", ".", "directory holding .env and ingredia.yaml")
	flags.String("backend", "", "model backend: gemini, claude, openai, ollama (overrides MODEL_BACKEND)")
	flags.String("spreadsheet", "", "ingredient spreadsheet (overrides SPREADSHEET_PATH)")
	flags.String("log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")

	addServeFlags(rootCmd)
}

// userError carries a message meant for the terminal as is.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

// Execute runs the root command, cancelling its context on SIGINT or SIGTERM.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		var ue *userError
		if errors.As(err, &ue) {
			fmt.Fprintln(os.Stderr, ue.msg)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return err
}

// loadConfig reads configuration and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	dir, _ := flags.GetString("dir")
	file, _ := flags.GetString("config")

	cfg, err := config.Load(dir, file)
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"backend", &cfg.ModelBackend},
		{"spreadsheet", &cfg.SpreadsheetPath},
		{"log-level", &cfg.LogLevel},
	}
	for _, o := range overrides {
		if flags.Changed(o.flag) {
			*o.dst, _ = flags.GetString(o.flag)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
