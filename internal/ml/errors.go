package ml

import "fmt"

// ShapeError reports a dimension mismatch between encoder output and
// regressor input. At load time it means the artifact is corrupt or mixes
// state from different training runs.
type ShapeError struct {
	Component string
	Want      int
	Got       int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch in %s: want width %d, got %d", e.Component, e.Want, e.Got)
}
