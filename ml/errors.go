package ml

import "fmt"

// ArtifactLoadError reports a predictor or schema resource that is absent,
// corrupt or inconsistent. It is fatal at startup.
type ArtifactLoadError struct {
	Resource string
	Path     string
	Err      error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("load %s artifact %s: %v", e.Resource, e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error {
	return e.Err
}

const (
	ResourceModel  = "model"
	ResourceSchema = "schema"
)
