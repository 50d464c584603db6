package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Skufu/GlucoRisk/internal/artifact"
	"github.com/Skufu/GlucoRisk/internal/features"
	"github.com/Skufu/GlucoRisk/internal/logging"
	"github.com/Skufu/GlucoRisk/internal/predict"
	"github.com/Skufu/GlucoRisk/internal/risk"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"

	sourceFile     = "file"
	sourcePostgres = "postgres"
)

type appState struct {
	logger *zap.Logger
	format string
}

func newApp() *cli.Command {
	state := &appState{logger: zap.NewNop(), format: formatText}

	return &cli.Command{
		Name:    "riskctl",
		Usage:   "Score patients against the diabetes risk model and inspect its artifacts",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Usage:   "Output format [text, json, yaml]",
				Value:   formatText,
				Sources: cli.EnvVars("RISKCTL_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level [debug, info, warn, error]",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			switch f := cmd.String("format"); f {
			case formatText, formatJSON, formatYAML:
				state.format = f
			default:
				return ctx, fmt.Errorf("unsupported output format %q", f)
			}
			logger, err := logging.New(logging.Config{Level: cmd.String("log-level"), Format: "console"})
			if err != nil {
				return ctx, err
			}
			state.logger = logger
			return ctx, nil
		},
		Commands: []*cli.Command{
			scoreCommand(state),
			explainCommand(state),
			columnsCommand(state),
			publishCommand(state),
		},
	}
}

func artifactFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "source",
			Usage:   "Where artifacts live [file, postgres]",
			Value:   sourceFile,
			Sources: cli.EnvVars("ARTIFACT_SOURCE"),
		},
		&cli.StringFlag{
			Name:    "model",
			Usage:   "Path to the model artifact",
			Value:   artifact.DefaultModelPath,
			Sources: cli.EnvVars("MODEL_PATH"),
		},
		&cli.StringFlag{
			Name:    "schema",
			Usage:   "Path to the feature column artifact",
			Value:   artifact.DefaultSchemaPath,
			Sources: cli.EnvVars("SCHEMA_PATH"),
		},
		&cli.StringFlag{
			Name:    "model-format",
			Usage:   "Model artifact format [xgboost, logistic]",
			Value:   risk.FormatXGBoost,
			Sources: cli.EnvVars("MODEL_FORMAT"),
		},
		&cli.StringFlag{
			Name:    "db",
			Usage:   "Postgres connection URL",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "name",
			Usage:   "Artifact name in Postgres",
			Value:   "v1",
			Sources: cli.EnvVars("ARTIFACT_NAME"),
		},
	}
}

// recordFlags exposes every form field as a flag, plus --set for hidden fields.
func recordFlags() []cli.Flag {
	var flags []cli.Flag
	for _, f := range features.DefaultCatalog().Exposed() {
		switch f.Kind {
		case features.KindNumeric:
			flags = append(flags, &cli.FloatFlag{
				Name:  flagName(f.Name),
				Usage: f.Label,
				Value: f.DefaultNumber,
			})
		case features.KindCategorical:
			flags = append(flags, &cli.StringFlag{
				Name:  flagName(f.Name),
				Usage: fmt.Sprintf("%s [%s]", f.Label, strings.Join(f.Options, ", ")),
				Value: f.DefaultLabel,
			})
		}
	}
	return append(flags, &cli.StringSliceFlag{
		Name:  "set",
		Usage: "Override any raw field as name=value, e.g. --set ethnicity=Asian",
	})
}

func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

func recordFromFlags(cmd *cli.Command) (features.RawRecord, error) {
	catalog := features.DefaultCatalog()
	raw := catalog.NewRecord()
	for _, f := range catalog.Exposed() {
		switch f.Kind {
		case features.KindNumeric:
			raw.Numbers[f.Name] = cmd.Float(flagName(f.Name))
		case features.KindCategorical:
			raw.Labels[f.Name] = cmd.String(flagName(f.Name))
		}
	}
	if err := catalog.Validate(raw); err != nil {
		return raw, err
	}

	for _, kv := range cmd.StringSlice("set") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return raw, fmt.Errorf("--set %q: expected name=value", kv)
		}
		f, known := catalog.Field(name)
		if !known {
			return raw, fmt.Errorf("--set %q: unknown field %q", kv, name)
		}
		if f.Kind == features.KindNumeric {
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return raw, fmt.Errorf("--set %q: %w", kv, err)
			}
			raw.Numbers[name] = v
			continue
		}
		raw.Labels[name] = value
	}
	return raw, nil
}

// loadBundle loads artifacts from the source the flags select.
func loadBundle(ctx context.Context, cmd *cli.Command) (*artifact.Bundle, error) {
	switch cmd.String("source") {
	case sourceFile:
		return artifact.Load(ctx, artifact.FileSource{
			ModelPath:   cmd.String("model"),
			SchemaPath:  cmd.String("schema"),
			ModelFormat: cmd.String("model-format"),
		})
	case sourcePostgres:
		if cmd.String("db") == "" {
			return nil, errors.New("--db is required when --source=postgres")
		}
		pool, err := artifact.Connect(ctx, cmd.String("db"))
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		return artifact.Load(ctx, artifact.NewStore(pool, cmd.String("name")))
	default:
		return nil, fmt.Errorf("unsupported source %q", cmd.String("source"))
	}
}

func scoreCommand(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "Estimate diabetes probability for one patient",
		Flags: append(artifactFlags(), recordFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			raw, err := recordFromFlags(cmd)
			if err != nil {
				return err
			}
			bundle, err := loadBundle(ctx, cmd)
			if err != nil {
				return err
			}

			pred, err := predict.New(bundle, predict.WithLogger(state.logger)).Predict(ctx, raw)
			if err != nil {
				return err
			}

			out := struct {
				Probability float64 `json:"probability" yaml:"probability"`
				Display     string  `json:"display" yaml:"display"`
				Tier        string  `json:"tier" yaml:"tier"`
			}{pred.Probability, pred.Display(), pred.Tier.String()}

			return write(cmd.Root().Writer, state.format, out, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s\nRisk level: %s\n", pred.Message(), pred.Tier)
				return err
			})
		},
	}
}

func explainCommand(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "explain",
		Usage: "Show which encoded columns reach the model and which are dropped",
		Flags: append(artifactFlags(), recordFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			raw, err := recordFromFlags(cmd)
			if err != nil {
				return err
			}
			bundle, err := loadBundle(ctx, cmd)
			if err != nil {
				return err
			}

			a := features.Explain(raw, bundle.Schema)
			return write(cmd.Root().Writer, state.format, a, func(w io.Writer) error {
				fmt.Fprintf(w, "matched (%d): %s\n", len(a.Matched), strings.Join(a.Matched, ", "))
				fmt.Fprintf(w, "dropped (%d): %s\n", len(a.Dropped), strings.Join(a.Dropped, ", "))
				_, err := fmt.Fprintf(w, "zero-filled: %d of %d\n", a.ZeroFilled, bundle.Schema.Len())
				return err
			})
		},
	}
}

func columnsCommand(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "columns",
		Usage: "List the feature columns the model expects, in order",
		Flags: artifactFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			bundle, err := loadBundle(ctx, cmd)
			if err != nil {
				return err
			}

			cols := bundle.Schema.Columns()
			return write(cmd.Root().Writer, state.format, cols, func(w io.Writer) error {
				for i, c := range cols {
					if _, err := fmt.Fprintf(w, "%4d  %s\n", i, c); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func publishCommand(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Validate a model/schema pair and store it in Postgres",
		Flags: artifactFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.String("db") == "" {
				return errors.New("--db is required")
			}
			model, err := os.ReadFile(cmd.String("model"))
			if err != nil {
				return err
			}
			schema, err := os.ReadFile(cmd.String("schema"))
			if err != nil {
				return err
			}

			pool, err := artifact.Connect(ctx, cmd.String("db"))
			if err != nil {
				return err
			}
			defer pool.Close()

			name := cmd.String("name")
			if err := artifact.NewStore(pool, name).Publish(ctx, cmd.String("model-format"), model, schema); err != nil {
				return err
			}
			state.logger.Info("artifacts published", zap.String("name", name))
			_, err = fmt.Fprintf(cmd.Root().Writer, "published %s\n", name)
			return err
		},
	}
}

func write(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return text(w)
	}
}
