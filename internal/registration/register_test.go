package registration

import (
	"errors"
	"math"
	"testing"

	"formalign/internal/imaging"
	"formalign/pkg/geometry"
)

func TestRegisterIdentity(t *testing.T) {
	tpl := makeFormTemplate()
	cfg := DefaultConfig()

	result, err := Register(tpl, tpl.Clone(), cfg)
	if err != nil {
		t.Fatalf("identity registration failed: %v", err)
	}

	c := result.Model.Components
	if math.Abs(c.Rotation) > 1e-3 {
		t.Errorf("rotation = %g, want 0", c.Rotation)
	}
	if math.Abs(c.Shear) > 1e-3 {
		t.Errorf("shear = %g, want 0", c.Shear)
	}
	if math.Abs(c.ScaleX-1) > 1e-3 || math.Abs(c.ScaleY-1) > 1e-3 {
		t.Errorf("scale = (%g, %g), want (1, 1)", c.ScaleX, c.ScaleY)
	}
	if math.Abs(c.TX) > 0.1 || math.Abs(c.TY) > 0.1 {
		t.Errorf("translation = (%g, %g), want (0, 0)", c.TX, c.TY)
	}

	// Under the identity model every self correspondence is an inlier,
	// and detected points are at least MinDistance apart, so the
	// inlier count equals the detected point count.
	points := DetectCorners(tpl, cfg.DetectSigma, cfg.MinDistance)
	if len(result.Inliers) != len(points) {
		t.Errorf("inliers = %d, want %d (one per detected point)", len(result.Inliers), len(points))
	}

	if mae := meanAbsError(result.Aligned, tpl); mae > 1e-6 {
		t.Errorf("identity warp drifted, MAE = %g", mae)
	}
}

func TestRegisterAxisOrder(t *testing.T) {
	// Template embedded with its origin at scan row 40, column 60. In
	// transform coordinates that is a translation of x=+60, y=+40; a
	// row/column mix-up would swap the two.
	tpl := makeFormTemplate()
	motion := geometry.Translation(60, 40)
	scan := embedTemplate(t, tpl, motion, 300, 300)

	result, err := Register(tpl, scan, DefaultConfig())
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	c := result.Model.Components
	if math.Abs(c.TX-60) > 0.5 {
		t.Errorf("TX = %g, want 60 (columns)", c.TX)
	}
	if math.Abs(c.TY-40) > 0.5 {
		t.Errorf("TY = %g, want 40 (rows)", c.TY)
	}
}

func TestRegisterRotatedScan(t *testing.T) {
	tpl := makeFormTemplate()
	motion := geometry.Translation(60, 40).Compose(geometry.Rotation(0.02))
	scan := embedTemplate(t, tpl, motion, 300, 300)

	result, err := Register(tpl, scan, DefaultConfig())
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	c := result.Model.Components
	if math.Abs(c.Rotation-0.02) > 0.005 {
		t.Errorf("rotation = %g, want 0.02 within 0.005", c.Rotation)
	}
	if mae := meanAbsError(result.Aligned, tpl); mae > 0.02 {
		t.Errorf("aligned image MAE = %g, want below 0.02", mae)
	}
}

func TestRegisterFeatureFloorShortCircuits(t *testing.T) {
	// A featureless pair cannot reach the sample floor; registration
	// must report the negative outcome before any matching work, so no
	// match-stage progress events may fire.
	flat := imaging.New(50, 50)
	cfg := DefaultConfig()

	var stages []Stage
	cfg.Progress = func(stage Stage, done, total int) {
		stages = append(stages, stage)
	}

	_, err := Register(makeFormTemplate(), flat, cfg)
	var nm *NoMatchError
	if !errors.As(err, &nm) {
		t.Fatalf("got %v, want NoMatchError", err)
	}
	if nm.Stage != StageFeatures {
		t.Errorf("stage = %v, want %v", nm.Stage, StageFeatures)
	}
	for _, s := range stages {
		if s == StageMatch || s == StageConsensus {
			t.Fatalf("stage %v ran despite the feature floor", s)
		}
	}
}

func TestRegisterNoMatchOnUnrelatedScan(t *testing.T) {
	tpl := makeFormTemplate()

	// A scan with structure but nothing resembling the template: a
	// single large square produces corners, few credible matches, and
	// no consensus.
	scan := imaging.New(300, 300)
	fillRect(scan, 100, 100, 100, 100, 0.9)

	_, err := Register(tpl, gaussianSmooth(scan, 1.0), DefaultConfig())
	if err == nil {
		t.Fatal("expected no match against an unrelated scan")
	}
	if !IsNoMatch(err) {
		t.Fatalf("got %v, want a NoMatchError", err)
	}
}

func TestRegisterInvalidConfig(t *testing.T) {
	tpl := makeFormTemplate()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"even feature window", func(c *Config) { c.FeatureWindow = 20 }},
		{"even similarity window", func(c *Config) { c.SimilarityWindow = 6 }},
		{"similarity window too large", func(c *Config) { c.SimilarityWindow = 31 }},
		{"zero sigma", func(c *Config) { c.DetectSigma = 0 }},
		{"threshold above one", func(c *Config) { c.MatchThreshold = 1.5 }},
		{"min samples below three", func(c *Config) { c.MinSamples = 2 }},
		{"no trials", func(c *Config) { c.MaxTrials = 0 }},
		{"negative bound", func(c *Config) { c.MaxRotation = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			_, err := Register(tpl, tpl, cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("got %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestRequiredSamples(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSamples = 10
	cfg.ConsensusFraction = 0.15

	cases := []struct {
		features int
		want     int
	}{
		{0, 10},
		{20, 10},  // fraction gives 3, absolute floor wins
		{100, 15}, // fraction wins
		{201, 31}, // rounds up
	}
	for _, tc := range cases {
		if got := requiredSamples(cfg, tc.features); got != tc.want {
			t.Errorf("requiredSamples(%d) = %d, want %d", tc.features, got, tc.want)
		}
	}
}
