// Package predict turns a raw patient record into a diabetes risk prediction.
package predict

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Skufu/GlucoRisk/internal/artifact"
	"github.com/Skufu/GlucoRisk/internal/features"
	"github.com/Skufu/GlucoRisk/internal/metrics"
	"github.com/Skufu/GlucoRisk/internal/risk"
)

// Prediction is the probability of the positive class and its tier.
type Prediction struct {
	Probability float64   `json:"probability" yaml:"probability"`
	Tier        risk.Tier `json:"tier" yaml:"tier"`
}

// Display renders the probability to three decimals.
func (p Prediction) Display() string {
	return strconv.FormatFloat(p.Probability, 'f', 3, 64)
}

func (p Prediction) Message() string {
	return "Estimated probability of diabetes: " + p.Display()
}

type Option func(*Predictor)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Predictor) { p.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Predictor) { p.metrics = m }
}

// Predictor is safe for concurrent use; it only reads the bundle.
type Predictor struct {
	bundle  *artifact.Bundle
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(bundle *artifact.Bundle, opts ...Option) *Predictor {
	p := &Predictor{bundle: bundle, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Predictor) Schema() features.Schema {
	return p.bundle.Schema
}

func (p *Predictor) Predict(ctx context.Context, raw features.RawRecord) (Prediction, error) {
	start := time.Now()

	vector := features.Encode(raw, p.bundle.Schema)
	probability, err := p.bundle.Adapter.Score(vector)
	if err != nil {
		if p.metrics != nil {
			p.metrics.ObserveInferenceError()
		}
		var ie *risk.InferenceError
		if errors.As(err, &ie) {
			p.logger.Error("inference failed",
				zap.Int("expected", ie.Expected),
				zap.Int("got", ie.Got),
				zap.Error(err))
		}
		return Prediction{}, err
	}

	pred := Prediction{Probability: probability, Tier: risk.Classify(probability)}
	elapsed := time.Since(start)
	if p.metrics != nil {
		p.metrics.ObservePrediction(pred.Tier.String(), elapsed)
	}
	if ce := p.logger.Check(zap.DebugLevel, "prediction"); ce != nil {
		ce.Write(
			zap.Float64("probability", probability),
			zap.Stringer("tier", pred.Tier),
			zap.Duration("elapsed", elapsed),
		)
	}
	return pred, nil
}
