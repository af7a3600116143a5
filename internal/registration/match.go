package registration

import (
	"runtime"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/stat"

	"formalign/internal/imaging"
)

// MatchFeatures compares every template feature against every scan
// feature (full cross product, no spatial pruning) and keeps pairs
// whose SSIM score reaches the configured threshold.
//
// The comparisons are read-only over independent patches, so they are
// fanned out across a worker pool keyed by template index; per-index
// results are concatenated in index order, which keeps the output
// deterministic regardless of scheduling.
func MatchFeatures(tmpl, scan *AnalyzedImage, cfg Config) []Correspondence {
	total := len(tmpl.Features)
	if total == 0 || len(scan.Features) == 0 {
		return nil
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > total {
		workers = total
	}

	results := make([][]Correspondence, total)
	var next, completed int64
	next = -1

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&next, 1))
				if i >= total {
					return
				}
				var matches []Correspondence
				for j, feat := range scan.Features {
					score := ssim(tmpl.Features[i], feat, cfg.SimilarityWindow, cfg.Sensitivity)
					if score >= cfg.MatchThreshold {
						matches = append(matches, Correspondence{
							Template: tmpl.Points[i],
							Image:    scan.Points[j],
							Score:    score,
						})
					}
				}
				results[i] = matches
				done := atomic.AddInt64(&completed, 1)
				if cfg.Progress != nil {
					cfg.Progress(StageMatch, int(done), total)
				}
			}
		}()
	}
	wg.Wait()

	var corrs []Correspondence
	for _, matches := range results {
		corrs = append(corrs, matches...)
	}
	return corrs
}

// ssim computes the mean windowed structural similarity index between
// two patches of identical size: a window of width win slides over
// both patches, per-window mean, variance, and covariance feed the
// standard two-constant formula (C1=(k*L)^2, C2=(3k*L)^2 with L=1),
// and the per-window scores are averaged.
func ssim(a, b *imaging.Image, win int, k float64) float64 {
	c1 := k * k
	c2 := 9 * k * k

	bufA := make([]float64, win*win)
	bufB := make([]float64, win*win)

	var sum float64
	var n int
	for r := 0; r+win <= a.Height; r++ {
		for c := 0; c+win <= a.Width; c++ {
			idx := 0
			for wr := 0; wr < win; wr++ {
				for wc := 0; wc < win; wc++ {
					bufA[idx] = a.At(r+wr, c+wc)
					bufB[idx] = b.At(r+wr, c+wc)
					idx++
				}
			}

			meanA := stat.Mean(bufA, nil)
			meanB := stat.Mean(bufB, nil)
			varA := stat.Variance(bufA, nil)
			varB := stat.Variance(bufB, nil)
			cov := stat.Covariance(bufA, bufB, nil)

			num := (2*meanA*meanB + c1) * (2*cov + c2)
			den := (meanA*meanA + meanB*meanB + c1) * (varA + varB + c2)
			sum += num / den
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
