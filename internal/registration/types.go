// Package registration locates a known rectangular template inside a
// larger, possibly rotated, scaled, or sheared grayscale scan and
// extracts the matching sub-region warped back to the template frame.
//
// The pipeline runs corner detection, per-corner patch features, SSIM
// cross matching, constrained RANSAC affine estimation, and a cubic
// inverse warp. Alignment lets downstream form-field extraction use
// fixed template coordinates.
package registration

import (
	"errors"
	"fmt"

	"formalign/internal/imaging"
	"formalign/pkg/geometry"
)

// Point is an integer pixel coordinate in (row, column) order, the
// convention used by the corner detector. The transform side of the
// pipeline works in (x, y) = (column, row); xy is the one place that
// conversion happens.
type Point struct {
	Row int
	Col int
}

func (p Point) xy() geometry.Point2D {
	return geometry.Point2D{X: float64(p.Col), Y: float64(p.Row)}
}

// AnalyzedImage pairs an image with its detected corner points and the
// patch feature extracted around each point. Points and Features are
// index-aligned: Features[i] is the patch centered on Points[i].
type AnalyzedImage struct {
	Image    *imaging.Image
	Points   []Point
	Features []*imaging.Image
}

// Correspondence is a claimed match between a template point and a
// scan point, with the SSIM score that produced it. A point may appear
// in any number of correspondences; ambiguity is resolved by the
// estimator, not here.
type Correspondence struct {
	Template Point
	Image    Point
	Score    float64
}

// Model is an accepted affine mapping from template (x, y) coordinates
// to scan (x, y) coordinates, together with its decomposed parameters.
// Accepted models always satisfy the configured geometric bounds.
type Model struct {
	Transform  geometry.AffineTransform
	Components geometry.Components
}

// Stage identifies a pipeline stage, used both by the progress hook
// and to report where a registration came up empty.
type Stage int

const (
	// StageFeatures covers corner detection and patch extraction.
	StageFeatures Stage = iota
	// StageMatch covers the pairwise SSIM comparison.
	StageMatch
	// StageConsensus covers the RANSAC trials.
	StageConsensus
)

func (s Stage) String() string {
	switch s {
	case StageFeatures:
		return "feature detection"
	case StageMatch:
		return "feature matching"
	case StageConsensus:
		return "consensus"
	default:
		return "unknown"
	}
}

// ErrInvalidConfig marks configuration errors; rejected eagerly,
// before any image work.
var ErrInvalidConfig = errors.New("invalid configuration")

// NoMatchError is the legitimate negative outcome: the template could
// not be located in the scan. It is distinct from configuration or IO
// failures and never accompanies partial output.
type NoMatchError struct {
	Stage  Stage
	Detail string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no match at %s: %s", e.Stage, e.Detail)
}

// IsNoMatch reports whether err represents the "no match" outcome.
func IsNoMatch(err error) bool {
	var nm *NoMatchError
	return errors.As(err, &nm)
}
