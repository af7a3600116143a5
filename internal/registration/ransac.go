package registration

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"formalign/pkg/geometry"
)

// minSampleSize is the minimal correspondence count that determines a
// 2D affine transform.
const minSampleSize = 3

// fitOutcome tags the result of fitting a minimal sample, so the trial
// loop stays independent of how many rejection families exist.
type fitOutcome int

const (
	fitAccepted fitOutcome = iota
	fitDegenerate
	fitOutOfBounds
)

// EstimateAffine fits an affine template-to-scan transform to the
// correspondence set by randomized sampling with consensus. Candidate
// models from degenerate samples, or whose rotation, shear, or scale
// deviation exceed the configured bounds, contribute no inliers and
// never displace the current best. Ties on inlier count keep the
// first-found model.
//
// Returns nil when no candidate reached minInliers within the trial
// budget. On success the model is refined by least squares over its
// inliers, provided the refinement still satisfies the bounds.
func EstimateAffine(corrs []Correspondence, minInliers int, cfg Config) (*Model, []Correspondence) {
	n := len(corrs)
	if n < minSampleSize {
		return nil, nil
	}
	if minInliers < minSampleSize {
		minInliers = minSampleSize
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	var best *Model
	var bestInliers []Correspondence
	for trial := 0; trial < cfg.MaxTrials; trial++ {
		idx := rng.Perm(n)[:minSampleSize]
		model, outcome := fitMinimal(corrs[idx[0]], corrs[idx[1]], corrs[idx[2]], cfg)
		if outcome == fitAccepted {
			inliers := collectInliers(corrs, model.Transform, cfg.ResidualThreshold)
			if len(inliers) > len(bestInliers) {
				best = model
				bestInliers = inliers
			}
		}
		if cfg.Progress != nil {
			cfg.Progress(StageConsensus, trial+1, cfg.MaxTrials)
		}
	}

	if best == nil || len(bestInliers) < minInliers {
		return nil, nil
	}

	if refined, ok := refitInliers(bestInliers); ok {
		if m := newModel(refined); withinBounds(m.Components, cfg) {
			best = m
		}
	}
	return best, bestInliers
}

// fitMinimal solves the unique affine transform mapping the three
// template points to the three scan points.
func fitMinimal(c0, c1, c2 Correspondence, cfg Config) (*Model, fitOutcome) {
	src := [3]geometry.Point2D{c0.Template.xy(), c1.Template.xy(), c2.Template.xy()}
	dst := [3]geometry.Point2D{c0.Image.xy(), c1.Image.xy(), c2.Image.xy()}

	if collinear(src[0], src[1], src[2]) || collinear(dst[0], dst[1], dst[2]) {
		return nil, fitDegenerate
	}

	// [x', y'] = [a b tx; c d ty] * [x y 1]; six equations, six unknowns.
	A := mat.NewDense(6, 6, nil)
	B := mat.NewVecDense(6, nil)
	for i := 0; i < 3; i++ {
		x, y := src[i].X, src[i].Y
		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		B.SetVec(i*2, dst[i].X)

		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		B.SetVec(i*2+1, dst[i].Y)
	}

	var params mat.VecDense
	if err := params.SolveVec(A, B); err != nil {
		return nil, fitDegenerate
	}

	model := newModel(geometry.AffineTransform{
		A:  params.AtVec(0),
		B:  params.AtVec(1),
		TX: params.AtVec(2),
		C:  params.AtVec(3),
		D:  params.AtVec(4),
		TY: params.AtVec(5),
	})
	if !withinBounds(model.Components, cfg) {
		return nil, fitOutOfBounds
	}
	return model, fitAccepted
}

// refitInliers recomputes the transform over all inliers with a QR
// least-squares solve.
func refitInliers(inliers []Correspondence) (geometry.AffineTransform, bool) {
	n := len(inliers)
	if n < minSampleSize {
		return geometry.AffineTransform{}, false
	}

	A := mat.NewDense(n*2, 6, nil)
	B := mat.NewVecDense(n*2, nil)
	for i, corr := range inliers {
		src := corr.Template.xy()
		dst := corr.Image.xy()

		A.Set(i*2, 0, src.X)
		A.Set(i*2, 1, src.Y)
		A.Set(i*2, 2, 1)
		B.SetVec(i*2, dst.X)

		A.Set(i*2+1, 3, src.X)
		A.Set(i*2+1, 4, src.Y)
		A.Set(i*2+1, 5, 1)
		B.SetVec(i*2+1, dst.Y)
	}

	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return geometry.AffineTransform{}, false
	}

	return geometry.AffineTransform{
		A:  params.AtVec(0),
		B:  params.AtVec(1),
		TX: params.AtVec(2),
		C:  params.AtVec(3),
		D:  params.AtVec(4),
		TY: params.AtVec(5),
	}, true
}

// collectInliers returns the correspondences whose scan point lies
// within the residual threshold of the model's prediction.
func collectInliers(corrs []Correspondence, t geometry.AffineTransform, threshold float64) []Correspondence {
	var inliers []Correspondence
	for _, corr := range corrs {
		pred := t.Apply(corr.Template.xy())
		if pred.Distance(corr.Image.xy()) <= threshold {
			inliers = append(inliers, corr)
		}
	}
	return inliers
}

func newModel(t geometry.AffineTransform) *Model {
	return &Model{Transform: t, Components: t.Decompose()}
}

// withinBounds checks the geometric invariants every accepted model
// must satisfy.
func withinBounds(c geometry.Components, cfg Config) bool {
	return math.Abs(c.Rotation) <= cfg.MaxRotation &&
		math.Abs(c.Shear) <= cfg.MaxShear &&
		math.Abs(c.ScaleX-1) <= cfg.MaxScaleDelta &&
		math.Abs(c.ScaleY-1) <= cfg.MaxScaleDelta
}

// collinear reports whether the triangle spanned by three points has
// near-zero area.
func collinear(p0, p1, p2 geometry.Point2D) bool {
	cross := (p1.X-p0.X)*(p2.Y-p0.Y) - (p1.Y-p0.Y)*(p2.X-p0.X)
	return math.Abs(cross) < 1e-6
}
