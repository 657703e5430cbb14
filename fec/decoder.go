package fec

import (
	"fmt"
	"strings"
)

// Algorithm selects a decoding strategy. The set of variants is closed:
// BeliefPropagation, MinSum and BitFlipping.
type Algorithm interface {
	fmt.Stringer
	newDecoder(g *TannerGraph) (Decoder, error)
}

// BeliefPropagation is the sum-product algorithm in the LLR domain.
type BeliefPropagation struct{}

func (BeliefPropagation) String() string { return "bp" }

func (BeliefPropagation) newDecoder(g *TannerGraph) (Decoder, error) {
	return newBPDecoder(g), nil
}

// MinSum approximates the check update by the smallest incoming magnitude,
// scaled by Alpha and reduced by Beta. A zero Alpha is treated as 1.
type MinSum struct {
	Alpha float64
	Beta  float64
}

func (m MinSum) String() string {
	if m.Alpha == 0 || m.Alpha == 1 {
		if m.Beta == 0 {
			return "min-sum"
		}
		return fmt.Sprintf("offset-min-sum(%g)", m.Beta)
	}
	if m.Beta == 0 {
		return fmt.Sprintf("normalized-min-sum(%g)", m.Alpha)
	}
	return fmt.Sprintf("min-sum(%g,%g)", m.Alpha, m.Beta)
}

func (m MinSum) newDecoder(g *TannerGraph) (Decoder, error) {
	if m.Alpha == 0 {
		m.Alpha = 1
	}
	if m.Alpha < 0 || m.Alpha > 1 || m.Beta < 0 {
		return nil, fmt.Errorf("%w: min-sum alpha=%g beta=%g", ErrInvalidParameter, m.Alpha, m.Beta)
	}
	return newMinSumDecoder(g, m.Alpha, m.Beta), nil
}

// BitFlipping is hard-decision Gallager-style decoding. Only the sign of the
// input LLRs is used.
type BitFlipping struct{}

func (BitFlipping) String() string { return "bit-flipping" }

func (BitFlipping) newDecoder(g *TannerGraph) (Decoder, error) {
	return newBitFlipDecoder(g), nil
}

// ParseAlgorithm maps a name ("bp", "min-sum", "bit-flipping" and short
// aliases) to an Algorithm. alpha and beta apply to min-sum only.
func ParseAlgorithm(name string, alpha, beta float64) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bp", "sum-product", "belief-propagation":
		return BeliefPropagation{}, nil
	case "ms", "minsum", "min-sum":
		return MinSum{Alpha: alpha, Beta: beta}, nil
	case "bf", "bitflip", "bit-flipping":
		return BitFlipping{}, nil
	}
	return nil, fmt.Errorf("%w: unknown decoder %q", ErrInvalidParameter, name)
}

// Result is the outcome of one decode.
type Result struct {
	// Bits is the hard decision over every variable node.
	Bits Bits
	// Converged is true when the final syndrome is all zero.
	Converged bool
	// Iterations is the number of iterations performed.
	Iterations int
	// SyndromeWeight is the number of unsatisfied checks at exit.
	SyndromeWeight int
}

// Decoder runs iterative decoding over one Tanner graph. A Decoder owns its
// message buffers and must not be shared between goroutines.
type Decoder interface {
	// Decode takes one LLR per variable node (positive favors 0; punctured
	// positions are 0) and iterates until the syndrome is zero or maxIters
	// iterations have run.
	Decode(llr []float64, maxIters int) (Result, error)
	// Posterior returns the a-posteriori LLRs of the last decode. The slice
	// is overwritten by the next call to Decode.
	Posterior() []float64
	Algorithm() Algorithm
}

// NewDecoder returns a decoder for g.
func NewDecoder(g *TannerGraph, alg Algorithm) (Decoder, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrInvalidParameter)
	}
	if alg == nil {
		alg = BeliefPropagation{}
	}
	return alg.newDecoder(g)
}

func checkDecodeArgs(g *TannerGraph, llr []float64, maxIters int) error {
	if len(llr) != g.NumVars {
		return fmt.Errorf("%w: %d LLRs for %d variables", ErrLengthMismatch, len(llr), g.NumVars)
	}
	if maxIters < 1 {
		return fmt.Errorf("%w: max iterations %d", ErrInvalidParameter, maxIters)
	}
	return nil
}

// messageDecoder is the state shared by the two soft message-passing
// decoders: per-edge messages in both directions plus posterior LLRs.
type messageDecoder struct {
	g    *TannerGraph
	lq   []float64 // variable-to-check, per edge
	lr   []float64 // check-to-variable, per edge
	post []float64
	hard Bits
	syn  []uint8
}

func newMessageDecoder(g *TannerGraph) messageDecoder {
	return messageDecoder{
		g:    g,
		lq:   make([]float64, g.NumEdges()),
		lr:   make([]float64, g.NumEdges()),
		post: make([]float64, g.NumVars),
		hard: make(Bits, g.NumVars),
		syn:  make([]uint8, g.NumChecks),
	}
}

// run drives the iteration loop; checkUpdate fills lr from lq for one check.
func (d *messageDecoder) run(llr []float64, maxIters int, checkUpdate func(lo, hi int)) Result {
	g := d.g
	for e, n := range g.edgeVar {
		d.lq[e] = llr[n]
	}
	res := Result{}
	for it := 1; it <= maxIters; it++ {
		for m := 0; m < g.NumChecks; m++ {
			checkUpdate(g.checkPtr[m], g.checkPtr[m+1])
		}
		for n := 0; n < g.NumVars; n++ {
			edges := g.varEdges[g.varPtr[n]:g.varPtr[n+1]]
			total := llr[n]
			for _, e := range edges {
				total += d.lr[e]
			}
			total = clampLLR(total)
			d.post[n] = total
			for _, e := range edges {
				d.lq[e] = total - d.lr[e]
			}
			d.hard[n] = HardDecision(total)
		}
		res.Iterations = it
		res.SyndromeWeight = g.syndrome(d.hard, d.syn)
		if res.SyndromeWeight == 0 {
			res.Converged = true
			break
		}
	}
	res.Bits = d.hard.Clone()
	return res
}

func (d *messageDecoder) Posterior() []float64 { return d.post }
