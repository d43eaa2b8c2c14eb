package pipeline

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"adsales/ml"
	"adsales/monitoring"
)

const (
	ModeBatch  = "batch"
	ModeSingle = "single"
)

// Output is a batch result: the input table with PredictionColumn set, and
// the unformatted predictions.
type Output struct {
	Table       *Table
	Predictions []float64
}

// Service composes validation and inference over the loaded artifacts. It
// holds no per-request state and is safe for concurrent use.
type Service struct {
	predictor ml.Predictor
	schema    *ml.FeatureSchema
	logger    *zap.Logger
	metrics   *monitoring.Metrics
}

// NewService wires a service. metrics may be nil.
func NewService(artifacts *ml.Artifacts, logger *zap.Logger, metrics *monitoring.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		predictor: artifacts.Predictor,
		schema:    artifacts.Schema,
		logger:    logger.Named("pipeline"),
		metrics:   metrics,
	}
}

func (s *Service) Schema() *ml.FeatureSchema {
	return s.schema
}

func (s *Service) ModelKind() string {
	return s.predictor.Kind()
}

// PredictBatch validates table and appends PredictionColumn to a copy of it.
func (s *Service) PredictBatch(table *Table) (*Output, error) {
	start := time.Now()
	preds, err := s.run(table)
	s.observe(ModeBatch, table.Len(), start, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch prediction completed",
		zap.Int("rows", table.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return &Output{Table: table.withFloatColumn(PredictionColumn, preds), Predictions: preds}, nil
}

// PredictRecord predicts a single manual record through the batch path.
func (s *Service) PredictRecord(record *ManualRecord) (float64, error) {
	start := time.Now()
	preds, err := s.run(record.Table())
	s.observe(ModeSingle, 1, start, err)
	if err != nil {
		return 0, err
	}
	if len(record.defaulted) > 0 {
		s.logger.Info("manual prediction used default values", zap.Strings("defaulted", record.defaulted))
	}
	return preds[0], nil
}

// NewRecord builds a manual record against the loaded schema.
func (s *Service) NewRecord(values map[string]float64) (*ManualRecord, error) {
	return NewManualRecord(s.schema, values)
}

func (s *Service) run(table *Table) ([]float64, error) {
	validated, err := Validate(table, s.schema)
	if err != nil {
		return nil, err
	}
	return Predict(s.predictor, validated)
}

func (s *Service) observe(mode string, rows int, start time.Time, err error) {
	status := Status(err)
	s.metrics.ObservePrediction(mode, status, rows, time.Since(start))

	var missing *MissingColumnsError
	var predErr *PredictionError
	switch {
	case errors.As(err, &missing):
		s.metrics.ObserveMissingColumns(missing.Missing)
		s.logger.Warn("input is missing required columns", zap.String("mode", mode), zap.Strings("missing", missing.Missing))
	case errors.As(err, &predErr):
		s.logger.Error("prediction failed", zap.String("mode", mode), zap.Error(err))
	}
}
