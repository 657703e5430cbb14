package fec

import "math"

// atanhLimit bounds 2*atanh so a check node with all-certain inputs yields a
// finite message (atanh(1-1e-16) ~ 19.07).
const atanhLimit = 19.07

func saturatedAtanh(v float64) float64 {
	if v >= 1 {
		return atanhLimit
	}
	if v <= -1 {
		return -atanhLimit
	}
	a := math.Atanh(v)
	if a > atanhLimit {
		return atanhLimit
	}
	if a < -atanhLimit {
		return -atanhLimit
	}
	return a
}

type bpDecoder struct {
	messageDecoder
	t []float64
}

func newBPDecoder(g *TannerGraph) *bpDecoder {
	return &bpDecoder{
		messageDecoder: newMessageDecoder(g),
		t:              make([]float64, g.NumEdges()),
	}
}

func (d *bpDecoder) Algorithm() Algorithm { return BeliefPropagation{} }

func (d *bpDecoder) Decode(llr []float64, maxIters int) (Result, error) {
	if err := checkDecodeArgs(d.g, llr, maxIters); err != nil {
		return Result{}, err
	}
	return d.run(llr, maxIters, d.checkUpdate), nil
}

// checkUpdate computes Lr = 2 atanh(prod tanh(Lq/2)) excluding the target
// edge. Exact zeros (punctured inputs) are counted instead of divided by: one
// zero leaves only its own edge with a non-zero message, two or more zero
// every message.
func (d *bpDecoder) checkUpdate(lo, hi int) {
	prod := 1.0
	zeros := 0
	for e := lo; e < hi; e++ {
		t := math.Tanh(d.lq[e] / 2)
		d.t[e] = t
		if t == 0 {
			zeros++
			continue
		}
		prod *= t
	}
	for e := lo; e < hi; e++ {
		var v float64
		switch {
		case zeros == 0:
			v = prod / d.t[e]
		case zeros == 1 && d.t[e] == 0:
			v = prod
		}
		d.lr[e] = 2 * saturatedAtanh(v)
	}
}
