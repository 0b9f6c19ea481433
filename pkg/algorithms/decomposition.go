package algorithms

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Projection is the fitted state shared by the decompositions: an optional
// mean to subtract and k component rows to project onto.
type Projection struct {
	NComponents       int         `json:"n_components"`
	Whiten            bool        `json:"whiten"`
	Mean              []float64   `json:"mean,omitempty"`
	Components        [][]float64 `json:"components"`
	ExplainedVariance []float64   `json:"explained_variance"`
}

func (p *Projection) transform(X [][]float64) ([][]float64, error) {
	if p.Components == nil {
		return nil, ErrNotFitted
	}
	width := len(p.Components[0])
	if err := checkWidth(X, width); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		row := make([]float64, len(p.Components))
		for c, comp := range p.Components {
			var v float64
			for j, w := range comp {
				xj := x[j]
				if p.Mean != nil {
					xj -= p.Mean[j]
				}
				v += xj * w
			}
			if p.Whiten && p.ExplainedVariance[c] > 0 {
				v /= math.Sqrt(p.ExplainedVariance[c])
			}
			row[c] = v
		}
		out[i] = row
	}
	return out, nil
}

func resolveComponents(requested, n, p int) (int, error) {
	limit := n
	if p < limit {
		limit = p
	}
	if requested <= 0 {
		return limit, nil
	}
	if requested > limit {
		return 0, fmt.Errorf("n_components=%d must be at most min(n_samples, n_features)=%d", requested, limit)
	}
	return requested, nil
}

// flipSigns makes the largest magnitude entry of every component positive
// so repeated fits produce identical output.
func flipSigns(components [][]float64) {
	for _, comp := range components {
		best := 0
		for j := range comp {
			if math.Abs(comp[j]) > math.Abs(comp[best]) {
				best = j
			}
		}
		if comp[best] < 0 {
			for j := range comp {
				comp[j] = -comp[j]
			}
		}
	}
}

// svdComponents returns the top k right singular vectors of A and the
// singular values.
func svdComponents(A *mat.Dense, k int) ([][]float64, []float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDThin); !ok {
		return nil, nil, fmt.Errorf("singular value decomposition failed")
	}
	values := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)
	_, cols := A.Dims()

	components := make([][]float64, k)
	for c := 0; c < k; c++ {
		comp := make([]float64, cols)
		for j := 0; j < cols; j++ {
			comp[j] = v.At(j, c)
		}
		components[c] = comp
	}
	flipSigns(components)
	return components, values[:k], nil
}

func columnMeans(X [][]float64, p int) []float64 {
	mean := make([]float64, p)
	for _, row := range X {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(X))
	}
	return mean
}

// PCA projects centred data onto its principal axes
type PCA struct {
	Projection
}

// Fit computes the principal axes by SVD of the centred data
func (p *PCA) Fit(X [][]float64) error {
	width, err := checkMatrix(X)
	if err != nil {
		return err
	}
	k, err := resolveComponents(p.NComponents, len(X), width)
	if err != nil {
		return err
	}
	mean := columnMeans(X, width)
	A := mat.NewDense(len(X), width, nil)
	for i, row := range X {
		for j, v := range row {
			A.Set(i, j, v-mean[j])
		}
	}
	components, values, err := svdComponents(A, k)
	if err != nil {
		return err
	}
	p.Mean = mean
	p.Components = components
	p.ExplainedVariance = make([]float64, k)
	denom := math.Max(1, float64(len(X)-1))
	for c, s := range values {
		p.ExplainedVariance[c] = s * s / denom
	}
	return nil
}

// Transform projects X onto the fitted components
func (p *PCA) Transform(X [][]float64) ([][]float64, error) {
	return p.transform(X)
}

// IncrementalPCA accumulates the mean and scatter matrix batch by batch
// and diagonalises the covariance once all batches are seen.
type IncrementalPCA struct {
	Projection
	BatchSize int `json:"batch_size"`
}

// Fit consumes X in batches of BatchSize rows
func (p *IncrementalPCA) Fit(X [][]float64) error {
	width, err := checkMatrix(X)
	if err != nil {
		return err
	}
	k, err := resolveComponents(p.NComponents, len(X), width)
	if err != nil {
		return err
	}
	batch := p.BatchSize
	if batch <= 0 {
		batch = 5 * width
	}

	var count float64
	mean := make([]float64, width)
	scatter := mat.NewSymDense(width, nil)

	for start := 0; start < len(X); start += batch {
		end := start + batch
		if end > len(X) {
			end = len(X)
		}
		rows := X[start:end]
		m := float64(len(rows))
		bMean := columnMeans(rows, width)

		bScatter := mat.NewSymDense(width, nil)
		for _, row := range rows {
			for a := 0; a < width; a++ {
				da := row[a] - bMean[a]
				for b := a; b < width; b++ {
					bScatter.SetSym(a, b, bScatter.At(a, b)+da*(row[b]-bMean[b]))
				}
			}
		}

		// Chan et al. pairwise update of the running scatter matrix
		total := count + m
		for a := 0; a < width; a++ {
			da := bMean[a] - mean[a]
			for b := a; b < width; b++ {
				db := bMean[b] - mean[b]
				v := scatter.At(a, b) + bScatter.At(a, b) + da*db*count*m/total
				scatter.SetSym(a, b, v)
			}
		}
		for j := range mean {
			mean[j] += (bMean[j] - mean[j]) * m / total
		}
		count = total
	}

	denom := math.Max(1, count-1)
	cov := mat.NewSymDense(width, nil)
	cov.ScaleSym(1/denom, scatter)

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return fmt.Errorf("eigendecomposition failed")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// EigenSym returns ascending eigenvalues
	components := make([][]float64, k)
	explained := make([]float64, k)
	for c := 0; c < k; c++ {
		src := width - 1 - c
		comp := make([]float64, width)
		for j := 0; j < width; j++ {
			comp[j] = vectors.At(j, src)
		}
		components[c] = comp
		explained[c] = math.Max(0, values[src])
	}
	flipSigns(components)

	p.Mean = mean
	p.Components = components
	p.ExplainedVariance = explained
	return nil
}

// Transform projects X onto the fitted components
func (p *IncrementalPCA) Transform(X [][]float64) ([][]float64, error) {
	return p.transform(X)
}

// TruncatedSVD projects uncentred data onto its top right singular vectors
type TruncatedSVD struct {
	Projection
}

// Fit computes the singular vectors of X
func (t *TruncatedSVD) Fit(X [][]float64) error {
	width, err := checkMatrix(X)
	if err != nil {
		return err
	}
	k := t.NComponents
	if k < 1 || k >= width {
		return fmt.Errorf("n_components=%d must be between 1 and n_features-1=%d", k, width-1)
	}
	if k > len(X) {
		return fmt.Errorf("n_components=%d exceeds n_samples=%d", k, len(X))
	}
	A := mat.NewDense(len(X), width, nil)
	for i, row := range X {
		A.SetRow(i, row)
	}
	components, values, err := svdComponents(A, k)
	if err != nil {
		return err
	}
	t.Mean = nil
	t.Components = components
	t.ExplainedVariance = make([]float64, k)
	for c, s := range values {
		t.ExplainedVariance[c] = s * s / float64(len(X))
	}
	return nil
}

// Transform projects X onto the fitted components
func (t *TruncatedSVD) Transform(X [][]float64) ([][]float64, error) {
	return t.transform(X)
}

func init() {
	register(&Spec{
		Name: "PCA",
		Kind: KindDecomposition,
		Params: withCompat(
			intParam("n_components", 0),
			boolParam("whiten", false),
			strParam("svd_solver", "auto"),
			intParam("random_state", 0),
			boolParam("copy", true),
		),
		newTransformer: func(p Params) (Transformable, error) {
			return &PCA{Projection{NComponents: p.Int("n_components"), Whiten: p.Bool("whiten")}}, nil
		},
	})
	register(&Spec{
		Name: "IncrementalPCA",
		Kind: KindDecomposition,
		Params: withCompat(
			intParam("n_components", 0),
			boolParam("whiten", false),
			intParam("batch_size", 0),
			boolParam("copy", true),
		),
		newTransformer: func(p Params) (Transformable, error) {
			if p.Int("batch_size") < 0 {
				return nil, configErr("IncrementalPCA", fmt.Errorf("batch_size must not be negative"))
			}
			return &IncrementalPCA{
				Projection: Projection{NComponents: p.Int("n_components"), Whiten: p.Bool("whiten")},
				BatchSize:  p.Int("batch_size"),
			}, nil
		},
	})
	register(&Spec{
		Name: "TruncatedSVD",
		Kind: KindDecomposition,
		Params: withCompat(
			intParam("n_components", 2),
			strParam("algorithm", "randomized"),
			intParam("n_iter", 5),
			intParam("random_state", 0),
		),
		newTransformer: func(p Params) (Transformable, error) {
			return &TruncatedSVD{Projection{NComponents: p.Int("n_components")}}, nil
		},
	})
}
