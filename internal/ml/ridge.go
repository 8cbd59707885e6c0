package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RidgeState is a fitted L2-regularized linear model: price = w·x + b.
type RidgeState struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Alpha        float64   `json:"alpha"`
}

// FitRidge minimises Σ(y − w·x − b)² + alpha‖w‖². The intercept is not
// penalised: X and y are centred, (XᵀX + alpha·I)w = Xᵀy is solved, and
// b = ȳ − w·x̄.
func FitRidge(X [][]float64, y []float64, alpha float64) (*RidgeState, error) {
	n := len(X)
	if n == 0 {
		return nil, errors.New("cannot fit ridge regression on empty data")
	}
	if len(y) != n {
		return nil, &ShapeError{Component: "targets", Want: n, Got: len(y)}
	}
	if alpha < 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return nil, fmt.Errorf("ridge alpha must be a non-negative finite number, got %v", alpha)
	}

	p := len(X[0])
	xMean := make([]float64, p)
	var yMean float64
	for i, row := range X {
		if len(row) != p {
			return nil, &ShapeError{Component: fmt.Sprintf("row %d", i), Want: p, Got: len(row)}
		}
		floats.Add(xMean, row)
		yMean += y[i]
	}
	floats.Scale(1/float64(n), xMean)
	yMean /= float64(n)

	if p == 0 {
		return &RidgeState{Coefficients: []float64{}, Intercept: yMean, Alpha: alpha}, nil
	}

	gram := mat.NewSymDense(p, nil)
	xty := mat.NewVecDense(p, nil)
	centred := make([]float64, p)
	for i, row := range X {
		floats.SubTo(centred, row, xMean)
		xc := mat.NewVecDense(p, centred)
		gram.SymRankOne(gram, 1, xc)
		xty.AddScaledVec(xty, y[i]-yMean, xc)
	}
	for j := 0; j < p; j++ {
		gram.SetSym(j, j, gram.At(j, j)+alpha)
	}

	var w mat.VecDense
	var chol mat.Cholesky
	if chol.Factorize(gram) {
		if err := chol.SolveVecTo(&w, xty); err != nil {
			return nil, fmt.Errorf("solve normal equations: %w", err)
		}
	} else if err := w.SolveVec(gram, xty); err != nil {
		return nil, fmt.Errorf("normal equations are singular (alpha=%v): %w", alpha, err)
	}

	coef := mat.Col(nil, 0, &w)
	for j, c := range coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("coefficient %d is not finite", j)
		}
	}

	return &RidgeState{
		Coefficients: coef,
		Intercept:    yMean - floats.Dot(coef, xMean),
		Alpha:        alpha,
	}, nil
}

// Width is the input dimension the model was fitted on.
func (r *RidgeState) Width() int {
	return len(r.Coefficients)
}

// Predict returns w·x + b.
func (r *RidgeState) Predict(x []float64) (float64, error) {
	if len(x) != len(r.Coefficients) {
		return 0, &ShapeError{Component: "regressor input", Want: len(r.Coefficients), Got: len(x)}
	}
	return floats.Dot(r.Coefficients, x) + r.Intercept, nil
}
