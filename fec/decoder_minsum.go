package fec

import "math"

type minSumDecoder struct {
	messageDecoder
	alpha, beta float64
}

func newMinSumDecoder(g *TannerGraph, alpha, beta float64) *minSumDecoder {
	return &minSumDecoder{
		messageDecoder: newMessageDecoder(g),
		alpha:          alpha,
		beta:           beta,
	}
}

func (d *minSumDecoder) Algorithm() Algorithm { return MinSum{Alpha: d.alpha, Beta: d.beta} }

func (d *minSumDecoder) Decode(llr []float64, maxIters int) (Result, error) {
	if err := checkDecodeArgs(d.g, llr, maxIters); err != nil {
		return Result{}, err
	}
	return d.run(llr, maxIters, d.checkUpdate), nil
}

// checkUpdate keeps the two smallest magnitudes of the check so each
// extrinsic minimum is found without a second pass per edge.
func (d *minSumDecoder) checkUpdate(lo, hi int) {
	min1, min2 := math.Inf(1), math.Inf(1)
	argMin := -1
	negative := false
	for e := lo; e < hi; e++ {
		v := d.lq[e]
		if v < 0 {
			negative = !negative
		}
		a := math.Abs(v)
		if a < min1 {
			min2 = min1
			min1 = a
			argMin = e
		} else if a < min2 {
			min2 = a
		}
	}
	for e := lo; e < hi; e++ {
		mag := min1
		if e == argMin {
			mag = min2
		}
		if math.IsInf(mag, 1) {
			mag = 0
		}
		mag = math.Max(d.alpha*mag-d.beta, 0)
		neg := negative
		if d.lq[e] < 0 {
			neg = !neg
		}
		if neg {
			mag = -mag
		}
		d.lr[e] = mag
	}
}
