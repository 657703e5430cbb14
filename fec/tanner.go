package fec

import "fmt"

// TannerGraph is the bipartite graph of a parity-check matrix in compressed
// form. Edges are numbered in check-major order so per-edge message arrays
// can be indexed directly by edge id.
//
//	checkPtr[m]..checkPtr[m+1]  edges of check m, edgeVar[e] = variable
//	varPtr[n]..varPtr[n+1]      indices into varEdges listing edges of variable n
type TannerGraph struct {
	NumChecks int
	NumVars   int

	checkPtr []int
	edgeVar  []int
	edgeChk  []int
	varPtr   []int
	varEdges []int
}

// NewTannerGraph builds the graph from the column support of each check row.
func NewTannerGraph(numVars int, rows [][]int) (*TannerGraph, error) {
	g := &TannerGraph{
		NumChecks: len(rows),
		NumVars:   numVars,
		checkPtr:  make([]int, len(rows)+1),
		varPtr:    make([]int, numVars+1),
	}
	for m, row := range rows {
		for _, n := range row {
			if n < 0 || n >= numVars {
				return nil, fmt.Errorf("%w: check %d references variable %d of %d", ErrInvalidParameter, m, n, numVars)
			}
			g.edgeVar = append(g.edgeVar, n)
			g.edgeChk = append(g.edgeChk, m)
			g.varPtr[n+1]++
		}
		g.checkPtr[m+1] = len(g.edgeVar)
	}
	for n := 1; n <= numVars; n++ {
		g.varPtr[n] += g.varPtr[n-1]
	}
	g.varEdges = make([]int, len(g.edgeVar))
	fill := append([]int(nil), g.varPtr[:numVars]...)
	for e, n := range g.edgeVar {
		g.varEdges[fill[n]] = e
		fill[n]++
	}
	return g, nil
}

// NewTannerGraphFromDense builds the graph of a small 0/1 matrix.
func NewTannerGraphFromDense(h [][]uint8) (*TannerGraph, error) {
	if len(h) == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrInvalidParameter)
	}
	cols := len(h[0])
	rows := make([][]int, len(h))
	for m, row := range h {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrLengthMismatch, m, len(row), cols)
		}
		for n, v := range row {
			switch v {
			case 0:
			case 1:
				rows[m] = append(rows[m], n)
			default:
				return nil, ErrNonBinary
			}
		}
	}
	return NewTannerGraph(cols, rows)
}

// NumEdges returns the number of ones in H.
func (g *TannerGraph) NumEdges() int { return len(g.edgeVar) }

// CheckNeighbors returns A[m], the variables of check m.
func (g *TannerGraph) CheckNeighbors(m int) []int {
	return g.edgeVar[g.checkPtr[m]:g.checkPtr[m+1]]
}

// VarNeighbors returns B[n], the checks of variable n.
func (g *TannerGraph) VarNeighbors(n int) []int {
	edges := g.varEdges[g.varPtr[n]:g.varPtr[n+1]]
	out := make([]int, len(edges))
	for i, e := range edges {
		out[i] = g.edgeChk[e]
	}
	return out
}

// syndrome writes H*c into s and returns its weight.
func (g *TannerGraph) syndrome(c Bits, s []uint8) int {
	weight := 0
	for m := 0; m < g.NumChecks; m++ {
		var x uint8
		for _, n := range g.edgeVar[g.checkPtr[m]:g.checkPtr[m+1]] {
			if c[n] == One {
				x ^= 1
			}
		}
		s[m] = x
		weight += int(x)
	}
	return weight
}

// Syndrome returns H*c mod 2 and its weight.
func (g *TannerGraph) Syndrome(c Bits) ([]uint8, int, error) {
	if len(c) != g.NumVars {
		return nil, 0, fmt.Errorf("%w: word has %d bits, graph has %d variables", ErrLengthMismatch, len(c), g.NumVars)
	}
	s := make([]uint8, g.NumChecks)
	w := g.syndrome(c, s)
	return s, w, nil
}
