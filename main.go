package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/xcono/webexdocs/internal/config"
	"github.com/xcono/webexdocs/internal/models"
	"github.com/xcono/webexdocs/internal/schema"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globals holds the persistent flags shared by all commands
type globals struct {
	cfgPath  string
	logLevel string
}

// config loads the config file, applies the --log-level override and installs the logger
func (g *globals) config() (*config.Config, error) {
	cfg, err := config.Load(g.cfgPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := setupLogging(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("could not init logging: %w", err)
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "webexdocs",
		Short:         "Scrape the Webex API reference into a schema and generate models from it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.cfgPath, "config", "", "config file path (default ~/.webexdocs/config.yaml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newInitCmd(g))
	root.AddCommand(newScrapeCmd(g))
	root.AddCommand(newParseCmd(g))
	root.AddCommand(newParseGroupCmd(g))
	root.AddCommand(newClassesCmd(g))
	root.AddCommand(newOpenAPICmd(g))
	root.AddCommand(newDiffCmd(g))
	root.AddCommand(newValidateCmd(g))
	root.AddCommand(newAttrsCmd(g))
	root.AddCommand(newRunsCmd(g))
	root.AddCommand(newServeCmd(g))

	return root
}

func setupLogging(level string) error {
	var logLevel slog.Level
	err := logLevel.UnmarshalText([]byte(level))
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(h))
	return err
}

// loadSchema reads a schema file, printing each validation error of an invalid document
func loadSchema(cmd *cobra.Command, path string) (*models.Schema, error) {
	doc, err := schema.Load(path)
	var invalid *schema.InvalidDocumentError
	if errors.As(err, &invalid) {
		for _, e := range invalid.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", e.Field, e.Description)
		}
	}
	return doc, err
}

// loadBaseline returns nil when the schema file does not exist yet
func loadBaseline(cmd *cobra.Command, path string) (*models.Schema, error) {
	doc, err := loadSchema(cmd, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return doc, err
}
