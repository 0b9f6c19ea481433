package algorithms

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LinearModel is an ordinary least squares or ridge regressor
type LinearModel struct {
	FitIntercept bool      `json:"fit_intercept"`
	Alpha        float64   `json:"alpha"`
	Coef         []float64 `json:"coef"`
	Intercept    float64   `json:"intercept"`
}

// Fit solves min ||y - Xw - b||^2 + alpha*||w||^2. With alpha zero the
// system is solved by QR least squares, otherwise through the regularised
// normal equations.
func (l *LinearModel) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	n := len(X)

	xMean := make([]float64, p)
	var yMean float64
	if l.FitIntercept {
		for j := 0; j < p; j++ {
			for i := 0; i < n; i++ {
				xMean[j] += X[i][j]
			}
			xMean[j] /= float64(n)
		}
		for _, v := range y {
			yMean += v
		}
		yMean /= float64(n)
	}

	A := mat.NewDense(n, p, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			A.Set(i, j, X[i][j]-xMean[j])
		}
		b.SetVec(i, y[i]-yMean)
	}

	var w mat.VecDense
	if l.Alpha > 0 || n < p {
		alpha := l.Alpha
		if alpha == 0 {
			alpha = 1e-10
		}
		var ata mat.Dense
		ata.Mul(A.T(), A)
		for j := 0; j < p; j++ {
			ata.Set(j, j, ata.At(j, j)+alpha)
		}
		var atb mat.VecDense
		atb.MulVec(A.T(), b)
		if err := w.SolveVec(&ata, &atb); err != nil {
			return fmt.Errorf("linear solve failed: %w", err)
		}
	} else {
		if err := w.SolveVec(A, b); err != nil {
			// Rank deficient design: fall back to a tiny ridge
			l2 := *l
			l2.Alpha = 1e-10
			if err := l2.Fit(X, y); err != nil {
				return err
			}
			*l = LinearModel{FitIntercept: l.FitIntercept, Alpha: l.Alpha, Coef: l2.Coef, Intercept: l2.Intercept}
			return nil
		}
	}

	l.Coef = make([]float64, p)
	intercept := yMean
	for j := 0; j < p; j++ {
		l.Coef[j] = w.AtVec(j)
		intercept -= l.Coef[j] * xMean[j]
	}
	l.Intercept = intercept
	return nil
}

// Predict returns Xw + b
func (l *LinearModel) Predict(X [][]float64) ([]float64, error) {
	if l.Coef == nil {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, len(l.Coef)); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		v := l.Intercept
		for j, c := range l.Coef {
			v += c * x[j]
		}
		out[i] = v
	}
	return out, nil
}

// LogisticRegression is a multinomial softmax classifier with L2 penalty
// fitted by full batch gradient descent.
type LogisticRegression struct {
	C            float64     `json:"C"`
	MaxIter      int         `json:"max_iter"`
	Tol          float64     `json:"tol"`
	LearningRate float64     `json:"learning_rate"`
	FitIntercept bool        `json:"fit_intercept"`
	ClassLabels  []float64   `json:"classes"`
	Weights      [][]float64 `json:"weights"` // classes x features
	Bias         []float64   `json:"bias"`
}

// Fit trains the classifier
func (l *LogisticRegression) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	l.ClassLabels = sortedUnique(y)
	k := len(l.ClassLabels)
	n := float64(len(X))
	labels := encodeLabels(y, l.ClassLabels)

	l.Weights = make([][]float64, k)
	for c := range l.Weights {
		l.Weights[c] = make([]float64, p)
	}
	l.Bias = make([]float64, k)

	lambda := 1 / (l.C * n)
	gradW := make([][]float64, k)
	for c := range gradW {
		gradW[c] = make([]float64, p)
	}
	gradB := make([]float64, k)
	z := make([]float64, k)

	for iter := 0; iter < l.MaxIter; iter++ {
		for c := range gradW {
			for j := range gradW[c] {
				gradW[c][j] = 0
			}
			gradB[c] = 0
		}

		for i, x := range X {
			l.scores(x, z)
			softmaxInPlace(z)
			z[int(labels[i])] -= 1
			for c := 0; c < k; c++ {
				for j := 0; j < p; j++ {
					gradW[c][j] += z[c] * x[j]
				}
				gradB[c] += z[c]
			}
		}

		var maxStep float64
		for c := 0; c < k; c++ {
			for j := 0; j < p; j++ {
				g := gradW[c][j]/n + lambda*l.Weights[c][j]
				step := l.LearningRate * g
				l.Weights[c][j] -= step
				maxStep = math.Max(maxStep, math.Abs(step))
			}
			if l.FitIntercept {
				step := l.LearningRate * gradB[c] / n
				l.Bias[c] -= step
				maxStep = math.Max(maxStep, math.Abs(step))
			}
		}
		if maxStep < l.Tol {
			break
		}
	}
	return nil
}

func (l *LogisticRegression) scores(x []float64, z []float64) {
	for c := range l.Weights {
		v := l.Bias[c]
		for j, w := range l.Weights[c] {
			v += w * x[j]
		}
		z[c] = v
	}
}

// Classes returns the sorted training labels
func (l *LogisticRegression) Classes() []float64 { return l.ClassLabels }

// PredictProba returns softmax probabilities
func (l *LogisticRegression) PredictProba(X [][]float64) ([][]float64, error) {
	if l.Weights == nil {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, len(l.Weights[0])); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		z := make([]float64, len(l.ClassLabels))
		l.scores(x, z)
		softmaxInPlace(z)
		out[i] = z
	}
	return out, nil
}

// Predict returns the most probable class of each row
func (l *LogisticRegression) Predict(X [][]float64) ([]float64, error) {
	proba, err := l.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return predictFromProba(l.ClassLabels, proba), nil
}

func init() {
	register(&Spec{
		Name:   "LinearRegression",
		Kind:   KindEstimator,
		Task:   TaskRegression,
		Params: withCompat(boolParam("fit_intercept", true), boolParam("copy_X", true), boolParam("positive", false)),
		newEstimator: func(p Params) (Trainable, error) {
			if p.Bool("positive") {
				return nil, configErr("LinearRegression", fmt.Errorf("positive=true is not supported"))
			}
			return &LinearModel{FitIntercept: p.Bool("fit_intercept")}, nil
		},
	})
	register(&Spec{
		Name:   "Ridge",
		Kind:   KindEstimator,
		Task:   TaskRegression,
		Params: withCompat(floatParam("alpha", 1), boolParam("fit_intercept", true), boolParam("copy_X", true), intParam("random_state", 0)),
		newEstimator: func(p Params) (Trainable, error) {
			if p.Float("alpha") < 0 {
				return nil, configErr("Ridge", fmt.Errorf("alpha must not be negative"))
			}
			return &LinearModel{FitIntercept: p.Bool("fit_intercept"), Alpha: p.Float("alpha")}, nil
		},
	})
	register(&Spec{
		Name: "LogisticRegression",
		Kind: KindEstimator,
		Task: TaskClassification,
		Params: withCompat(
			floatParam("C", 1),
			intParam("max_iter", 100),
			floatParam("tol", 1e-4),
			floatParam("learning_rate", 0.5),
			boolParam("fit_intercept", true),
			strParam("penalty", "l2"),
			strParam("solver", "lbfgs"),
			intParam("random_state", 0),
		),
		newEstimator: func(p Params) (Trainable, error) {
			if p.Str("penalty") != "l2" {
				return nil, configErr("LogisticRegression", fmt.Errorf("only the l2 penalty is supported"))
			}
			if p.Float("C") <= 0 || p.Int("max_iter") < 1 || p.Float("learning_rate") <= 0 {
				return nil, configErr("LogisticRegression", fmt.Errorf("C, max_iter and learning_rate must be positive"))
			}
			return &LogisticRegression{
				C:            p.Float("C"),
				MaxIter:      p.Int("max_iter"),
				Tol:          p.Float("tol"),
				LearningRate: p.Float("learning_rate"),
				FitIntercept: p.Bool("fit_intercept"),
			}, nil
		},
	})
}
