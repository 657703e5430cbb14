package fec

type bitFlipDecoder struct {
	g      *TannerGraph
	hard   Bits
	syn    []uint8
	energy []int
	post   []float64
}

func newBitFlipDecoder(g *TannerGraph) *bitFlipDecoder {
	return &bitFlipDecoder{
		g:      g,
		hard:   make(Bits, g.NumVars),
		syn:    make([]uint8, g.NumChecks),
		energy: make([]int, g.NumVars),
		post:   make([]float64, g.NumVars),
	}
}

func (d *bitFlipDecoder) Algorithm() Algorithm { return BitFlipping{} }

// Posterior maps the last hard decisions to +-LLRMax.
func (d *bitFlipDecoder) Posterior() []float64 {
	for n, b := range d.hard {
		d.post[n] = LLRMax * (1 - 2*float64(b))
	}
	return d.post
}

// Decode flips, each iteration, every bit whose count of unsatisfied minus
// satisfied checks equals the maximum over all bits.
func (d *bitFlipDecoder) Decode(llr []float64, maxIters int) (Result, error) {
	g := d.g
	if err := checkDecodeArgs(g, llr, maxIters); err != nil {
		return Result{}, err
	}
	for n, v := range llr {
		d.hard[n] = HardDecision(v)
	}
	res := Result{SyndromeWeight: g.syndrome(d.hard, d.syn)}
	for res.SyndromeWeight != 0 && res.Iterations < maxIters {
		res.Iterations++
		best := 0
		for n := 0; n < g.NumVars; n++ {
			e := 0
			for _, edge := range g.varEdges[g.varPtr[n]:g.varPtr[n+1]] {
				e += 2*int(d.syn[g.edgeChk[edge]]) - 1
			}
			d.energy[n] = e
			if n == 0 || e > best {
				best = e
			}
		}
		for n, e := range d.energy {
			if e == best {
				d.hard[n].Flip()
			}
		}
		res.SyndromeWeight = g.syndrome(d.hard, d.syn)
	}
	res.Converged = res.SyndromeWeight == 0
	res.Bits = d.hard.Clone()
	return res, nil
}
