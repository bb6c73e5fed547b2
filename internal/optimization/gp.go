package optimization

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
	"github.com/copyleftdev/vqo/internal/optimization/kernels"
)

const gpComponent = "gaussian_process"

// maxJitterAttempts bounds the diagonal jitter escalation in Fit.
const maxJitterAttempts = 10

// GP implements a Gaussian Process model for Bayesian Optimization
//
// Targets are standardized before fitting, so predictions come back on the
// original scale regardless of the objective's magnitude.
type GP struct {
	kernel   kernels.Kernel
	noiseVar float64
	logger   *zap.Logger

	// Training data
	X *mat.Dense
	// Standardization of the targets
	yMean, yStd float64

	// Precomputed values
	alpha *mat.VecDense
	chol  *mat.Cholesky
}

// NewGP creates a new Gaussian Process model
func NewGP(kernel kernels.Kernel, noiseVar float64, logger *zap.Logger) *GP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GP{
		kernel:   kernel,
		noiseVar: noiseVar,
		logger:   logger.Named(gpComponent),
	}
}

// Fit fits the GP model to the training data
func (gp *GP) Fit(X *mat.Dense, y *mat.VecDense) error {
	const op = "GP.Fit"

	if X == nil || y == nil {
		return vqoerrors.New(vqoerrors.KindContract, "input matrices must not be nil").
			WithOperation(op).WithComponent(gpComponent)
	}
	if X.IsEmpty() || y.IsEmpty() {
		return vqoerrors.New(vqoerrors.KindContract, "input matrix X must not be empty").
			WithOperation(op).WithComponent(gpComponent)
	}

	nSamples, nFeatures := X.Dims()
	if nSamples != y.Len() {
		return vqoerrors.Errorf(vqoerrors.KindContract, "dimension mismatch: X has %d samples but y has length %d",
			nSamples, y.Len()).WithOperation(op).WithComponent(gpComponent)
	}

	gp.logger.Debug("Fitting GP model",
		zap.Int("samples", nSamples),
		zap.Int("features", nFeatures),
		zap.Float64("noise_var", gp.noiseVar),
	)

	ys := mat.Col(nil, 0, y)
	mean, std := stat.MeanStdDev(ys, nil)
	if !(std > 0) {
		std = 1
	}
	for i := range ys {
		ys[i] = (ys[i] - mean) / std
	}

	K := gp.kernelMatrix(X)
	chol, err := gp.factorize(K)
	if err != nil {
		return vqoerrors.Wrap(err, vqoerrors.KindEvaluation, "failed to fit gaussian process")
	}

	alpha := mat.NewVecDense(nSamples, nil)
	if err := chol.SolveVecTo(alpha, mat.NewVecDense(nSamples, ys)); err != nil {
		return vqoerrors.Wrap(err, vqoerrors.KindEvaluation, "failed to solve linear system")
	}

	gp.X = mat.DenseCopyOf(X)
	gp.yMean, gp.yStd = mean, std
	gp.alpha = alpha
	gp.chol = chol
	return nil
}

// kernelMatrix returns K(X, X) with the noise variance on the diagonal.
func (gp *GP) kernelMatrix(X *mat.Dense) *mat.SymDense {
	n, _ := X.Dims()
	K := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		x1 := X.RawRowView(i)
		K.SetSym(i, i, gp.kernel.Eval(x1, x1)+gp.noiseVar)
		for j := i + 1; j < n; j++ {
			K.SetSym(i, j, gp.kernel.Eval(x1, X.RawRowView(j)))
		}
	}
	return K
}

// factorize Cholesky-factorizes K, adding growing jitter to the diagonal
// until it is numerically positive definite.
func (gp *GP) factorize(K *mat.SymDense) (*mat.Cholesky, error) {
	n := K.SymmetricDim()
	jitter := 0.0
	for attempt := 0; attempt < maxJitterAttempts; attempt++ {
		Kj := K
		if jitter > 0 {
			Kj = mat.NewSymDense(n, nil)
			Kj.CopySym(K)
			for i := 0; i < n; i++ {
				Kj.SetSym(i, i, Kj.At(i, i)+jitter)
			}
		}

		var chol mat.Cholesky
		if chol.Factorize(Kj) {
			if jitter > 0 {
				gp.logger.Debug("Added jitter for numerical stability",
					zap.Int("attempt", attempt+1),
					zap.Float64("jitter", jitter),
				)
			}
			return &chol, nil
		}

		if jitter == 0 {
			jitter = 1e-10
		} else {
			jitter *= 10
		}
	}
	return nil, vqoerrors.New(vqoerrors.KindEvaluation, "Cholesky decomposition failed: matrix is not positive definite").
		WithOperation("GP.factorize").WithComponent(gpComponent)
}

// Predict returns the mean and variance of the posterior predictive
// distribution at the rows of X.
func (gp *GP) Predict(X *mat.Dense) (*mat.VecDense, *mat.VecDense, error) {
	const op = "GP.Predict"

	if X == nil {
		return nil, nil, vqoerrors.New(vqoerrors.KindContract, "input matrix X is nil").
			WithOperation(op).WithComponent(gpComponent)
	}
	if gp.X == nil || gp.alpha == nil {
		return nil, nil, vqoerrors.New(vqoerrors.KindOrdering, "model not trained or no training data").
			WithOperation(op).WithComponent(gpComponent)
	}

	nTest, _ := X.Dims()
	nTrain, _ := gp.X.Dims()

	mean := mat.NewVecDense(nTest, nil)
	variance := mat.NewVecDense(nTest, nil)
	kStar := mat.NewVecDense(nTrain, nil)
	v := mat.NewVecDense(nTrain, nil)

	for i := 0; i < nTest; i++ {
		xStar := X.RawRowView(i)
		for j := 0; j < nTrain; j++ {
			kStar.SetVec(j, gp.kernel.Eval(xStar, gp.X.RawRowView(j)))
		}

		mu := mat.Dot(kStar, gp.alpha)
		mean.SetVec(i, gp.yMean+gp.yStd*mu)

		// k** - k*ᵀ K⁻¹ k*
		if err := gp.chol.SolveVecTo(v, kStar); err != nil {
			return nil, nil, vqoerrors.Wrap(err, vqoerrors.KindEvaluation, "failed to solve linear system")
		}
		s2 := gp.kernel.Eval(xStar, xStar) + gp.noiseVar - mat.Dot(kStar, v)
		variance.SetVec(i, math.Max(0, s2)*gp.yStd*gp.yStd)
	}

	return mean, variance, nil
}
