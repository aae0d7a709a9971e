package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/definition"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/render"
	"github.com/goliatone/go-formstate/pkg/session"
	"github.com/goliatone/go-formstate/pkg/visibility"
	"github.com/goliatone/go-formstate/pkg/visibility/expr"
)

// App holds the process wiring shared by every command.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	// Driver overrides the terminal prompt driver of the run command.
	Driver session.PromptDriver

	cfg    Config
	logger *slog.Logger
	schema string
}

func newRootCmd(app *App) *cobra.Command {
	var logLevel, output string

	root := &cobra.Command{
		Use:           "formstate",
		Short:         "Run, render and check form definitions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("output") {
				cfg.Output = output
			}
			if cmd.Flags().Changed("debounce") {
				cfg.Debounce, _ = cmd.Flags().GetDuration("debounce")
			}
			level, err := parseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			app.cfg = cfg
			app.logger = newLogger(app.Stderr, level)
			return nil
		},
	}
	root.SetOut(app.Stdout)
	root.SetErr(app.Stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVarP(&output, "output", "o", "", "write results to this file instead of stdout")
	flags.Duration("debounce", form.DefaultDebounce, "delay before validating after fields mount or unmount")
	flags.StringVar(&app.schema, "schema", "", "treat the definition as an OpenAPI document and use this component schema")

	root.AddCommand(newRunCmd(app), newRenderCmd(app), newCheckCmd(app))
	return root
}

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run <definition>",
		Short: "Fill the form interactively and print the submitted values as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			doc, err := app.loadDocument(ctx, args[0])
			if err != nil {
				return err
			}
			submit := func(_ context.Context, values form.Values) error {
				data, err := json.MarshalIndent(values, "", "  ")
				if err != nil {
					return fmt.Errorf("encode values: %w", err)
				}
				return app.write(append(data, '\n'))
			}
			ctrl, err := doc.Controller(nil, app.controllerOptions(form.WithSubmit(submit))...)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			opts := []session.Option{session.WithLogger(app.logger)}
			if app.Driver != nil {
				opts = append(opts, session.WithDriver(app.Driver))
			} else {
				opts = append(opts, session.WithDriver(session.NewSurveyDriver(app.Stderr)))
			}
			s, err := session.New(doc, ctrl, opts...)
			if err != nil {
				return err
			}
			return s.Run(ctx)
		},
	}
}

func newRenderCmd(app *App) *cobra.Command {
	var valuesPath string
	cmd := &cobra.Command{
		Use:   "render <definition>",
		Short: "Render the form as HTML after a validation pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.loadDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ctrl, err := doc.Controller(nil, app.controllerOptions()...)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if valuesPath != "" {
				if err := applyValues(doc, ctrl, valuesPath); err != nil {
					return err
				}
			}
			if _, err := visibility.Sync(ctrl, doc.Rules(), expr.New(), nil); err != nil {
				return err
			}
			ctrl.Validate()

			html, err := render.New().RenderString(render.BuildView(doc, ctrl.Snapshot()))
			if err != nil {
				return err
			}
			return app.write([]byte(html))
		},
	}
	cmd.Flags().StringVar(&valuesPath, "values", "", "YAML or JSON file with committed values to render")
	return cmd
}

func newCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check <definition>",
		Short: "Report problems in a form definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.loadDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := doc.Validate(); err != nil {
				return err
			}
			conditional := 0
			for _, field := range doc.Fields {
				if strings.TrimSpace(field.When) != "" {
					conditional++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s has %d fields (%d conditional)\n", args[0], len(doc.Fields), conditional)
			return nil
		},
	}
}

func (app *App) controllerOptions(extra ...form.Option) []form.Option {
	opts := []form.Option{
		form.WithLogger(app.logger),
		form.WithDebounce(app.cfg.Debounce),
	}
	return append(opts, extra...)
}

func (app *App) loadDocument(ctx context.Context, path string) (*definition.Document, error) {
	if app.schema == "" {
		return definition.Load(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return definition.FromOpenAPI(ctx, data, app.schema)
}

func (app *App) write(data []byte) error {
	if app.cfg.Output == "" {
		_, err := app.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(app.cfg.Output, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	app.logger.Info("output written", "path", app.cfg.Output)
	return nil
}

// applyValues commits the values in path without running effects, so the
// file describes the final committed state.
func applyValues(doc *definition.Document, ctrl *form.Controller[definition.Extras], path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read values: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse values %s: %w", path, err)
	}
	for _, field := range doc.Fields {
		value, ok := raw[field.Name]
		if !ok {
			continue
		}
		coerced, err := field.CoerceValue(value)
		if err != nil {
			return err
		}
		if err := ctrl.SetFieldValue(field.Name, coerced, form.SkipEffects()); err != nil {
			return err
		}
	}
	return nil
}
