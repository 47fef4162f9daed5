package classifier

import (
	"fmt"
	"math"
)

// logisticParams are the hyperparameters of logistic regression.
type logisticParams struct {
	iterations int
	// c is the inverse regularization strength.
	c float64
}

// learningRate is the gradient descent step on standardized inputs.
const learningRate = 0.1

// logistic is a fitted logistic regression model.
// Inputs are standardized with Mean and Scale before the dot product.
type logistic struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Mean    []float64 `json:"mean"`
	Scale   []float64 `json:"scale"`
}

func (m *logistic) probability(x []float64) float64 {
	z := m.Bias
	for j, w := range m.Weights {
		z += w * (x[j] - m.Mean[j]) / m.Scale[j]
	}
	return sigmoid(z)
}

func (m *logistic) validate(features int) error {
	if len(m.Weights) != features || len(m.Mean) != features || len(m.Scale) != features {
		return fmt.Errorf("%w: logistic model has %d weights, want %d", ErrIncompatibleModel, len(m.Weights), features)
	}
	for j, s := range m.Scale {
		if s == 0 || math.IsNaN(s) {
			return fmt.Errorf("%w: feature %d has zero scale", ErrIncompatibleModel, j)
		}
	}
	return nil
}

// fitLogistic minimizes mean log loss plus an L2 penalty of ||w||^2 / (2*C*n)
// with full-batch gradient descent.
func fitLogistic(x [][]float64, y []int, params logisticParams) *logistic {
	n := len(x)
	d := len(x[0])

	m := &logistic{
		Weights: make([]float64, d),
		Mean:    make([]float64, d),
		Scale:   make([]float64, d),
	}

	for _, row := range x {
		for j, v := range row {
			m.Mean[j] += v
		}
	}
	for j := range m.Mean {
		m.Mean[j] /= float64(n)
	}
	for _, row := range x {
		for j, v := range row {
			diff := v - m.Mean[j]
			m.Scale[j] += diff * diff
		}
	}
	for j := range m.Scale {
		m.Scale[j] = math.Sqrt(m.Scale[j] / float64(n))
		// Constant features would divide by zero.
		if m.Scale[j] == 0 {
			m.Scale[j] = 1
		}
	}

	z := make([][]float64, n)
	for i, row := range x {
		z[i] = make([]float64, d)
		for j, v := range row {
			z[i][j] = (v - m.Mean[j]) / m.Scale[j]
		}
	}

	grad := make([]float64, d)
	for range params.iterations {
		clear(grad)
		gradBias := 0.0

		for i, row := range z {
			s := m.Bias
			for j, v := range row {
				s += m.Weights[j] * v
			}
			diff := sigmoid(s) - float64(y[i])
			for j, v := range row {
				grad[j] += diff * v
			}
			gradBias += diff
		}

		for j := range m.Weights {
			g := grad[j]/float64(n) + m.Weights[j]/(params.c*float64(n))
			m.Weights[j] -= learningRate * g
		}
		m.Bias -= learningRate * gradBias / float64(n)
	}
	return m
}

// sigmoid is the logistic function, computed without overflow for large |z|.
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
