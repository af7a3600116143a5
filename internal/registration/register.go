package registration

import (
	"fmt"
	"math"

	"formalign/internal/imaging"
)

// Result holds a successful registration: the scan resampled into the
// template frame, the accepted model, and the evidence behind it.
type Result struct {
	Aligned *imaging.Image
	Model   Model
	// Matches is the size of the correspondence set fed to the
	// estimator; Inliers is the consensus subset supporting the model.
	Matches int
	Inliers []Correspondence
}

// Analyze detects corners in the image and extracts the patch feature
// around each one.
func Analyze(m *imaging.Image, cfg Config) (*AnalyzedImage, error) {
	points := DetectCorners(m, cfg.DetectSigma, cfg.MinDistance)
	features := make([]*imaging.Image, 0, len(points))
	for _, p := range points {
		f, err := ExtractPatch(m, p, cfg.FeatureWindow)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return &AnalyzedImage{Image: m, Points: points, Features: features}, nil
}

// Register locates the template inside the scan and returns the scan
// warped back to the template's geometry.
//
// A failed search is not an error in the crash sense: insufficient
// features, insufficient correspondences, or no consensus all return a
// *NoMatchError identifying the stage, and no output image is
// produced. Configuration problems fail fast with ErrInvalidConfig
// before any image work.
func Register(template, scan *imaging.Image, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tmpl, err := Analyze(template, cfg)
	if err != nil {
		return nil, err
	}
	cand, err := Analyze(scan, cfg)
	if err != nil {
		return nil, err
	}

	// The quadratic matching work only starts once both images carry
	// enough features to possibly reach consensus.
	floor := requiredSamples(cfg, len(tmpl.Features))
	if len(tmpl.Features) < floor || len(cand.Features) < floor {
		return nil, &NoMatchError{
			Stage: StageFeatures,
			Detail: fmt.Sprintf("template has %d features, scan has %d, need %d",
				len(tmpl.Features), len(cand.Features), floor),
		}
	}

	corrs := MatchFeatures(tmpl, cand, cfg)
	if len(corrs) < floor {
		return nil, &NoMatchError{
			Stage:  StageMatch,
			Detail: fmt.Sprintf("%d correspondences, need %d", len(corrs), floor),
		}
	}

	model, inliers := EstimateAffine(corrs, floor, cfg)
	if model == nil {
		return nil, &NoMatchError{
			Stage:  StageConsensus,
			Detail: fmt.Sprintf("no model reached %d inliers in %d trials", floor, cfg.MaxTrials),
		}
	}

	aligned := WarpToTemplate(scan, model.Transform, template.Width, template.Height)
	return &Result{
		Aligned: aligned,
		Model:   *model,
		Matches: len(corrs),
		Inliers: inliers,
	}, nil
}

// requiredSamples computes the stage floor: the larger of the absolute
// minimum and the consensus fraction of the template's feature count.
func requiredSamples(cfg Config, templateFeatures int) int {
	frac := int(math.Ceil(cfg.ConsensusFraction * float64(templateFeatures)))
	if frac > cfg.MinSamples {
		return frac
	}
	return cfg.MinSamples
}
