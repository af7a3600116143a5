package registration

import (
	"fmt"
)

// Config holds every tunable of the registration pipeline. It is
// passed by value and never mutated, so concurrent registrations with
// different parameters do not interfere.
type Config struct {
	// Corner detector.
	DetectSigma float64 `toml:"detect_sigma"` // Gaussian scale of the structure tensor
	MinDistance int     `toml:"min_distance"` // minimum spacing between retained corners, pixels

	// Patch features.
	FeatureWindow int `toml:"feature_window"` // odd patch width

	// SSIM matcher.
	SimilarityWindow int     `toml:"similarity_window"` // odd sliding-window width, <= FeatureWindow
	Sensitivity      float64 `toml:"sensitivity"`       // stabilization constant k; C1=(k)^2, C2=(3k)^2
	MatchThreshold   float64 `toml:"match_threshold"`   // minimum SSIM score to keep a pair

	// Sample floors.
	MinSamples        int     `toml:"min_samples"`        // absolute floor on features/correspondences/inliers
	ConsensusFraction float64 `toml:"consensus_fraction"` // fractional floor relative to template feature count

	// RANSAC.
	MaxTrials         int     `toml:"max_trials"`
	ResidualThreshold float64 `toml:"residual_threshold"` // inlier distance, pixels
	Seed              int64   `toml:"seed"`               // sampling seed; fixed for reproducible runs

	// Geometric bounds checked on every candidate model.
	MaxRotation   float64 `toml:"max_rotation"`    // radians
	MaxShear      float64 `toml:"max_shear"`       // radians
	MaxScaleDelta float64 `toml:"max_scale_delta"` // |scale-1| per axis

	// Workers bounds the matcher's parallelism; 0 means one worker
	// per CPU.
	Workers int `toml:"workers"`

	// Progress, when set, is invoked as stages advance. During the
	// match stage it may be called from multiple goroutines.
	Progress func(stage Stage, done, total int) `toml:"-"`
}

// DefaultConfig returns the tuning used for 300 DPI form scans.
func DefaultConfig() Config {
	return Config{
		DetectSigma:       2.0,
		MinDistance:       8,
		FeatureWindow:     21,
		SimilarityWindow:  7,
		Sensitivity:       0.01,
		MatchThreshold:    0.75,
		MinSamples:        10,
		ConsensusFraction: 0.15,
		MaxTrials:         3000,
		ResidualThreshold: 2.0,
		Seed:              1,
		MaxRotation:       0.35,
		MaxShear:          0.25,
		MaxScaleDelta:     0.25,
	}
}

// Validate rejects malformed configurations before any image work.
func (c Config) Validate() error {
	switch {
	case c.DetectSigma <= 0:
		return fmt.Errorf("%w: detect_sigma must be positive, got %g", ErrInvalidConfig, c.DetectSigma)
	case c.MinDistance < 1:
		return fmt.Errorf("%w: min_distance must be at least 1, got %d", ErrInvalidConfig, c.MinDistance)
	case c.FeatureWindow < 3 || c.FeatureWindow%2 == 0:
		return fmt.Errorf("%w: feature_window must be odd and at least 3, got %d", ErrInvalidConfig, c.FeatureWindow)
	case c.SimilarityWindow < 3 || c.SimilarityWindow%2 == 0:
		return fmt.Errorf("%w: similarity_window must be odd and at least 3, got %d", ErrInvalidConfig, c.SimilarityWindow)
	case c.SimilarityWindow > c.FeatureWindow:
		return fmt.Errorf("%w: similarity_window %d exceeds feature_window %d", ErrInvalidConfig, c.SimilarityWindow, c.FeatureWindow)
	case c.Sensitivity <= 0:
		return fmt.Errorf("%w: sensitivity must be positive, got %g", ErrInvalidConfig, c.Sensitivity)
	case c.MatchThreshold <= 0 || c.MatchThreshold > 1:
		return fmt.Errorf("%w: match_threshold must be in (0,1], got %g", ErrInvalidConfig, c.MatchThreshold)
	case c.MinSamples < 3:
		return fmt.Errorf("%w: min_samples must be at least 3, got %d", ErrInvalidConfig, c.MinSamples)
	case c.ConsensusFraction < 0 || c.ConsensusFraction > 1:
		return fmt.Errorf("%w: consensus_fraction must be in [0,1], got %g", ErrInvalidConfig, c.ConsensusFraction)
	case c.MaxTrials < 1:
		return fmt.Errorf("%w: max_trials must be at least 1, got %d", ErrInvalidConfig, c.MaxTrials)
	case c.ResidualThreshold <= 0:
		return fmt.Errorf("%w: residual_threshold must be positive, got %g", ErrInvalidConfig, c.ResidualThreshold)
	case c.MaxRotation < 0 || c.MaxShear < 0 || c.MaxScaleDelta < 0:
		return fmt.Errorf("%w: geometric bounds must be non-negative", ErrInvalidConfig)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}
