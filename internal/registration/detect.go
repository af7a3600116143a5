package registration

import (
	"math"
	"sort"

	"formalign/internal/imaging"
)

// Harris response weight for the squared-trace term.
const harrisK = 0.05

// Corners weaker than this fraction of the strongest response are
// ignored outright.
const responseFloor = 0.01

// DetectCorners finds salient points via a structure-tensor corner
// response smoothed at sigma, then keeps strict local maxima greedily
// in descending response order, suppressing anything closer than
// minDist to an already retained point.
//
// The result ordering is deterministic: by response, ties broken by
// row then column. An image without corners yields an empty slice.
func DetectCorners(m *imaging.Image, sigma float64, minDist int) []Point {
	if m.Width < 3 || m.Height < 3 {
		return nil
	}

	resp := cornerResponse(m, sigma)

	maxResp := 0.0
	for _, v := range resp.Pix {
		if v > maxResp {
			maxResp = v
		}
	}
	if maxResp <= 0 {
		return nil
	}

	type candidate struct {
		p Point
		r float64
	}
	var cands []candidate
	cutoff := responseFloor * maxResp
	for r := 1; r < m.Height-1; r++ {
		for c := 1; c < m.Width-1; c++ {
			v := resp.At(r, c)
			if v < cutoff {
				continue
			}
			if !isLocalMax(resp, r, c) {
				continue
			}
			cands = append(cands, candidate{Point{Row: r, Col: c}, v})
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].r != cands[j].r {
			return cands[i].r > cands[j].r
		}
		if cands[i].p.Row != cands[j].p.Row {
			return cands[i].p.Row < cands[j].p.Row
		}
		return cands[i].p.Col < cands[j].p.Col
	})

	minDistSq := minDist * minDist
	var points []Point
	for _, cand := range cands {
		ok := true
		for _, kept := range points {
			dr := cand.p.Row - kept.Row
			dc := cand.p.Col - kept.Col
			if dr*dr+dc*dc < minDistSq {
				ok = false
				break
			}
		}
		if ok {
			points = append(points, cand.p)
		}
	}
	return points
}

// isLocalMax reports whether (r, c) strictly dominates its 8 neighbors.
func isLocalMax(resp *imaging.Image, r, c int) bool {
	v := resp.At(r, c)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			if resp.At(r+dr, c+dc) >= v {
				return false
			}
		}
	}
	return true
}

// cornerResponse computes the Harris corner measure
// det(M) - k*trace(M)^2 from the Gaussian-smoothed second-moment
// matrix of the image gradients.
func cornerResponse(m *imaging.Image, sigma float64) *imaging.Image {
	ix, iy := gradients(m)

	ixx := imaging.New(m.Width, m.Height)
	iyy := imaging.New(m.Width, m.Height)
	ixy := imaging.New(m.Width, m.Height)
	for i := range ix.Pix {
		ixx.Pix[i] = ix.Pix[i] * ix.Pix[i]
		iyy.Pix[i] = iy.Pix[i] * iy.Pix[i]
		ixy.Pix[i] = ix.Pix[i] * iy.Pix[i]
	}

	sxx := gaussianSmooth(ixx, sigma)
	syy := gaussianSmooth(iyy, sigma)
	sxy := gaussianSmooth(ixy, sigma)

	resp := imaging.New(m.Width, m.Height)
	for i := range resp.Pix {
		det := sxx.Pix[i]*syy.Pix[i] - sxy.Pix[i]*sxy.Pix[i]
		tr := sxx.Pix[i] + syy.Pix[i]
		resp.Pix[i] = det - harrisK*tr*tr
	}
	return resp
}

// gradients returns central-difference derivatives along columns (ix)
// and rows (iy), with replicated edges.
func gradients(m *imaging.Image) (ix, iy *imaging.Image) {
	ix = imaging.New(m.Width, m.Height)
	iy = imaging.New(m.Width, m.Height)
	for r := 0; r < m.Height; r++ {
		for c := 0; c < m.Width; c++ {
			cl, cr := c-1, c+1
			if cl < 0 {
				cl = 0
			}
			if cr >= m.Width {
				cr = m.Width - 1
			}
			ru, rd := r-1, r+1
			if ru < 0 {
				ru = 0
			}
			if rd >= m.Height {
				rd = m.Height - 1
			}
			ix.Set(r, c, (m.At(r, cr)-m.At(r, cl))/2)
			iy.Set(r, c, (m.At(rd, c)-m.At(ru, c))/2)
		}
	}
	return ix, iy
}

// gaussianSmooth convolves the image with a separable Gaussian kernel,
// mirroring samples at the borders.
func gaussianSmooth(m *imaging.Image, sigma float64) *imaging.Image {
	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	tmp := imaging.New(m.Width, m.Height)
	for r := 0; r < m.Height; r++ {
		for c := 0; c < m.Width; c++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sum += kernel[k+radius] * m.At(r, reflectIndex(c+k, m.Width))
			}
			tmp.Set(r, c, sum)
		}
	}

	out := imaging.New(m.Width, m.Height)
	for r := 0; r < m.Height; r++ {
		for c := 0; c < m.Width; c++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sum += kernel[k+radius] * tmp.At(reflectIndex(r+k, m.Height), c)
			}
			out.Set(r, c, sum)
		}
	}
	return out
}

// gaussianKernel builds a normalized 1D Gaussian of radius 3*sigma.
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}
