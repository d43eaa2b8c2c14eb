package ml

// Predictor maps a feature matrix to one prediction per row. Columns of
// every row are in FeatureSchema order.
type Predictor interface {
	Predict(rows [][]float64) ([]float64, error)
	Kind() string
}

// widthChecker is implemented by predictors that can verify they are
// consistent with a schema of the given width.
type widthChecker interface {
	checkWidth(numFeatures int) error
}

// Artifacts is the loaded, immutable state shared by every request.
type Artifacts struct {
	Predictor Predictor
	Schema    *FeatureSchema
}
