package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xcono/webexdocs/internal/batch"
	"github.com/xcono/webexdocs/internal/classgen"
	"github.com/xcono/webexdocs/internal/config"
	"github.com/xcono/webexdocs/internal/fetch"
	"github.com/xcono/webexdocs/internal/generate"
	"github.com/xcono/webexdocs/internal/metrics"
	"github.com/xcono/webexdocs/internal/models"
	"github.com/xcono/webexdocs/internal/naming"
	"github.com/xcono/webexdocs/internal/parse"
	"github.com/xcono/webexdocs/internal/schema"
	"github.com/xcono/webexdocs/internal/scrape"
	"github.com/xcono/webexdocs/internal/server"
	"github.com/xcono/webexdocs/internal/store"
	"github.com/xcono/webexdocs/internal/validate"
)

func newInitCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config and create the page cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := g.cfgPath
			if cfgFile == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				cfgFile = p
			}

			if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
				cfg := &config.Config{}
				cfg.SetDefaults()
				if err := cfg.Save(cfgFile); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", cfgFile)
			} else if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exists", cfgFile)
			} else {
				return err
			}

			cfg, err := g.config()
			if err != nil {
				return err
			}
			s, err := store.NewSQLiteStore(cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "database ready", cfg.Cache.Path)
			return nil
		},
	}
}

func newScrapeCmd(g *globals) *cobra.Command {
	var snapshotDir, output string
	var only []string
	var newOnly, fresh bool

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the API reference into the schema file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			if snapshotDir != "" {
				cfg.Scrape.SnapshotDir = snapshotDir
			}
			if len(only) > 0 {
				cfg.Scrape.OnlySections = only
			}
			if newOnly {
				cfg.Scrape.NewOnly = true
			}
			if output == "" {
				output = cfg.Output.Schema
			}

			log := slog.Default()
			m := metrics.New()

			var baseline *models.Schema
			if !fresh {
				if baseline, err = loadBaseline(cmd, output); err != nil {
					return err
				}
			}

			var src fetch.Source
			origin := cfg.Scrape.ReferenceURL
			if cfg.Scrape.SnapshotDir != "" {
				src = fetch.NewDirSource(cfg.Scrape.SnapshotDir)
				origin = "dir:" + cfg.Scrape.SnapshotDir
			} else {
				src = fetch.NewHTTPSource(&http.Client{Timeout: cfg.Scrape.Timeout}, cfg.Scrape.UserAgent)
			}

			var st store.Store
			if cfg.Cache.Enabled {
				s, err := store.NewSQLiteStore(cfg.Cache.Path)
				if err != nil {
					return err
				}
				defer s.Close()
				st = s
				src = fetch.NewCachedSource(src, st, cfg.Cache.TTL, log)
			}

			browser := fetch.NewBrowser(src,
				fetch.WithPollInterval(cfg.Scrape.PollInterval),
				fetch.WithLogger(log),
				fetch.WithRecorder(m),
			)
			parser := parse.NewParser(parse.WithLogger(log), parse.WithObserver(m))
			scraper := scrape.New(browser, parser, scrape.Options{
				ReferenceURL: cfg.Scrape.ReferenceURL,
				BaseURL:      cfg.Scrape.BaseURL,
				Timeout:      cfg.Scrape.Timeout,
				StaleRetries: cfg.Scrape.StaleRetries,
				Ignore:       cfg.Scrape.IgnoreSections,
				Only:         cfg.Scrape.OnlySections,
				Baseline:     baseline,
				NewOnly:      cfg.Scrape.NewOnly,
				Logger:       log,
				Recorder:     m,
			})

			var run *store.Run
			if st != nil {
				if run, err = st.CreateRun(cmd.Context(), origin); err != nil {
					return err
				}
			}

			started := time.Now()
			doc, err := scraper.Run(cmd.Context())
			if err != nil {
				if run != nil {
					_ = st.FinishRun(cmd.Context(), run.ID, "failed", 0, 0)
				}
				return err
			}
			doc.Info = fmt.Sprintf("Scraped from %s\nat %s", origin, started.UTC().Format(time.RFC3339))

			if baseline != nil {
				fmt.Fprint(cmd.OutOrStdout(), schema.Diff(baseline, doc).Format())
				doc = schema.Merge(baseline, doc)
			}
			if err := schema.Save(doc, output); err != nil {
				return err
			}

			methods := len(doc.Methods())
			if run != nil {
				if err := st.FinishRun(cmd.Context(), run.ID, "done", len(doc.Docs), methods); err != nil {
					return err
				}
			}
			if cfg.Metrics.Textfile != "" {
				if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
					log.Warn("failed to write metrics", "path", cfg.Metrics.Textfile, "error", err)
				}
			}

			log.Info("scrape finished", "sections", len(doc.Docs), "methods", methods, "output", output, "took", time.Since(started))
			return nil
		},
	}

	cmd.Flags().StringVar(&snapshotDir, "snapshot-dir", "", "read pages from saved snapshots instead of the live site")
	cmd.Flags().StringVarP(&output, "output", "o", "", "schema file (default output.schema)")
	cmd.Flags().StringSliceVar(&only, "only", nil, "scrape only these sections")
	cmd.Flags().BoolVar(&newOnly, "new-only", false, "scrape only sections missing from the existing schema")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "ignore the existing schema file")
	return cmd
}

func newParseCmd(g *globals) *cobra.Command {
	var output, reportDir string
	var workers int

	cmd := &cobra.Command{
		Use:   "parse <snapshot-dir>",
		Short: "Parse saved method pages laid out as <section>/<method>.html",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			if output == "" {
				output = cfg.Output.Schema
			}

			m := metrics.New()
			processor := batch.NewBatchProcessor(&batch.BatchOptions{
				MaxWorkers:     workers,
				OutputDir:      reportDir,
				GenerateReport: reportDir != "",
				BaseURL:        cfg.Scrape.BaseURL,
				Scanner:        &batch.ScannerOptions{SkipAssets: true},
				Observer:       m,
			})

			doc, report, err := processor.ProcessDirectory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			doc.Info = "Parsed from " + args[0]
			if err := schema.Save(doc, output); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Summary: %d files processed, %d errors, %d parameters\n",
				report.SuccessCount, report.ErrorCount, report.Summary.TotalParams)
			if report.SuccessCount == 0 && report.TotalFiles > 0 {
				return errors.New("no files were successfully processed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "schema file (default output.schema)")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "write batch_report.json to this directory")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent parsers")
	return cmd
}

func newParseGroupCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "parse-group <fragment.html>",
		Short: "Parse one saved parameter group container and print its parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := g.config(); err != nil {
				return err
			}
			markup, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			params, err := parse.NewParser().ParseParameterGroup(string(markup))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(params); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func newClassesCmd(g *globals) *cobra.Command {
	var input, output, pkg string
	var noOptimize bool

	cmd := &cobra.Command{
		Use:   "classes",
		Short: "Generate Go models from the schema file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			if input == "" {
				input = cfg.Output.Schema
			}
			if output == "" {
				output = cfg.Output.Classes
			}
			if pkg == "" {
				pkg = cfg.Output.Package
			}

			doc, err := loadSchema(cmd, input)
			if err != nil {
				return err
			}

			var registry *classgen.Registry
			inferred := 0
			if noOptimize {
				b := classgen.NewBuilder(nil, slog.Default())
				if err := b.Build(doc); err != nil {
					return err
				}
				registry = b.Registry()
			} else if registry, inferred, err = classgen.Generate(doc, slog.Default()); err != nil {
				return err
			}

			src, err := generate.NewSourceEmitter(registry).File(pkg)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(output, src, 0o644); err != nil {
				return err
			}

			slog.Info("generated models", "classes", registry.Len(), "inferred", inferred, "output", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "schema file (default output.schema)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Go file (default output.classes)")
	cmd.Flags().StringVar(&pkg, "package", "", "package name (default output.package)")
	cmd.Flags().BoolVar(&noOptimize, "no-optimize", false, "skip base class inference")
	return cmd
}

func newOpenAPICmd(g *globals) *cobra.Command {
	var input, outputDir string

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Export one OpenAPI 3.0 document per section",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			if input == "" {
				input = cfg.Output.Schema
			}
			if outputDir == "" {
				outputDir = cfg.Output.OpenAPIDir
			}

			doc, err := loadSchema(cmd, input)
			if err != nil {
				return err
			}
			specs, err := generate.NewOpenAPIGenerator().GenerateAll(doc)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return err
			}

			for _, section := range doc.Sections() {
				spec, ok := specs[section]
				if !ok {
					continue
				}
				if err := spec.Validate(cmd.Context()); err != nil {
					slog.Warn("generated spec does not validate", "section", section, "error", err)
				}
				data, err := spec.ToYAML()
				if err != nil {
					return fmt.Errorf("section %s: %w", section, err)
				}
				outputFile := filepath.Join(outputDir, naming.Snake(section)+".yaml")
				if err := os.WriteFile(outputFile, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Generated: %s\n", outputFile)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "schema file (default output.schema)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for the documents (default output.openapi_dir)")
	return cmd
}

func newDiffCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <baseline> <current>",
		Short: "Compare two schema files by section and method",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := g.config(); err != nil {
				return err
			}
			baseline, err := loadSchema(cmd, args[0])
			if err != nil {
				return err
			}
			current, err := loadSchema(cmd, args[1])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), schema.Diff(baseline, current).Format())
			return nil
		},
	}
}

func newValidateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [schema-file]",
		Short: "Check a schema file against the document format and its parameter groups against their JSON schemas",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			path := cfg.Output.Schema
			if len(args) == 1 {
				path = args[0]
			}
			doc, err := loadSchema(cmd, path)
			if err != nil {
				return err
			}

			v := validate.NewSchemaValidator()
			var groups, invalid int
			for _, section := range doc.Sections() {
				for _, md := range doc.Docs[section] {
					for _, label := range md.Labels() {
						name := section + "/" + md.Header + "/" + label
						result, err := v.ValidateParameters(name, md.ParametersAndResponse[label])
						if err != nil {
							return fmt.Errorf("%s: %w", name, err)
						}
						groups++
						if !result.Valid {
							invalid++
							for _, e := range result.Errors {
								fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s: %s\n", name, e.Field, e.Description)
							}
						}
					}
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d sections, %d methods, %d parameter groups\n",
				path, len(doc.Docs), len(doc.Methods()), groups)
			if invalid > 0 {
				return fmt.Errorf("%d parameter groups do not accept their example", invalid)
			}
			return nil
		},
	}
}

func newAttrsCmd(g *globals) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "attrs",
		Short: "List every parameter of the schema with its path, marking labels kept as serialization aliases",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			if input == "" {
				input = cfg.Output.Schema
			}
			doc, err := loadSchema(cmd, input)
			if err != nil {
				return err
			}
			for _, a := range doc.Attributes() {
				line := a.Path + "\t" + a.Parameter.Type
				if naming.NeedsAlias(a.Parameter.Name) {
					line += "\talias of " + naming.Identifier(a.Parameter.Name)
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "schema file (default output.schema)")
	return cmd
}

func newRunsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List recorded scrape runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			s, err := store.NewSQLiteStore(cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range runs {
				finished := "-"
				if r.FinishedAt != nil {
					finished = r.FinishedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d sections\t%d methods\t%s\t%s\n",
					r.ID, r.Status, r.Source, r.Sections, r.Methods, r.StartedAt.Format(time.RFC3339), finished)
			}
			return nil
		},
	}
}

func newServeCmd(g *globals) *cobra.Command {
	var input, host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the schema, classes and exports over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			if input == "" {
				input = cfg.Output.Schema
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			doc, err := loadSchema(cmd, input)
			if err != nil {
				return err
			}

			opts := server.Options{Package: cfg.Output.Package, Logger: slog.Default()}
			if cfg.Cache.Enabled {
				s, err := store.NewSQLiteStore(cfg.Cache.Path)
				if err != nil {
					return err
				}
				defer s.Close()
				opts.Store = s
			}

			srv, err := server.New(doc, opts)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(cfg.Addr())
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "schema file (default output.schema)")
	cmd.Flags().StringVar(&host, "host", "", "server host (default server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "server port (default server.port)")
	return cmd
}
