// Package artifact loads the trained model and its feature schema once at
// startup and hands them out as an immutable Bundle.
package artifact

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/Skufu/GlucoRisk/internal/features"
	"github.com/Skufu/GlucoRisk/internal/risk"
)

const (
	DefaultModelPath  = "xgb_v1_model.json"
	DefaultSchemaPath = "v1_feature_columns.json"
)

// Source yields the raw bytes of the two artifacts.
type Source interface {
	FetchModel(ctx context.Context) (format string, payload []byte, err error)
	FetchSchema(ctx context.Context) ([]byte, error)
	String() string
}

// Bundle is everything a prediction needs besides the request itself.
type Bundle struct {
	Adapter     *risk.Adapter
	Schema      features.Schema
	ModelFormat string
	Source      string
}

// Load fetches and decodes both artifacts concurrently, then checks that the
// model and schema agree. Any failure means the process cannot serve.
func Load(ctx context.Context, src Source) (*Bundle, error) {
	var (
		model  risk.Classifier
		format string
		schema features.Schema
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, payload, err := src.FetchModel(gctx)
		if err != nil {
			return fmt.Errorf("fetch model: %w", err)
		}
		m, err := risk.DecodeModel(f, payload)
		if err != nil {
			return fmt.Errorf("load model: %w", err)
		}
		model, format = m, f
		return nil
	})
	g.Go(func() error {
		payload, err := src.FetchSchema(gctx)
		if err != nil {
			return fmt.Errorf("fetch schema: %w", err)
		}
		s, err := features.DecodeSchema(payload)
		if err != nil {
			return fmt.Errorf("load schema: %w", err)
		}
		schema = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	adapter, err := risk.NewAdapter(model, schema)
	if err != nil {
		return nil, fmt.Errorf("model and schema disagree: %w", err)
	}

	return &Bundle{
		Adapter:     adapter,
		Schema:      schema,
		ModelFormat: format,
		Source:      src.String(),
	}, nil
}

// FileSource reads artifacts from local files.
type FileSource struct {
	ModelPath   string
	SchemaPath  string
	ModelFormat string
}

func (f FileSource) FetchModel(ctx context.Context) (string, []byte, error) {
	payload, err := os.ReadFile(f.ModelPath)
	if err != nil {
		return "", nil, err
	}
	format := f.ModelFormat
	if format == "" {
		format = risk.FormatXGBoost
	}
	return format, payload, nil
}

func (f FileSource) FetchSchema(ctx context.Context) ([]byte, error) {
	return os.ReadFile(f.SchemaPath)
}

func (f FileSource) String() string {
	return fmt.Sprintf("file:%s,%s", f.ModelPath, f.SchemaPath)
}
