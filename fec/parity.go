package fec

import (
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Circulant is one Zc x Zc block of H: the identity cyclically shifted right
// by Shift, placed at block coordinates (Row, Col).
type Circulant struct {
	Row, Col int
	Shift    int
}

// ParityCheckMatrix is the lifted quasi-cyclic matrix H of a base graph. It is
// stored as its circulant blocks; H[r][c] = 1 iff block (r/Zc, c/Zc) exists
// with (r%Zc + shift) % Zc == c%Zc.
type ParityCheckMatrix struct {
	BG       BaseGraph
	Zc       int
	SetIndex int

	blocks   []Circulant
	rowStart []int
	cell     [][]int
}

// BuildH lifts tab by zc. zc must belong to the lifting set of tab.
func BuildH(tab *ShiftTable, zc int) (*ParityCheckMatrix, error) {
	if tab == nil {
		return nil, fmt.Errorf("%w: nil shift table", ErrInvalidParameter)
	}
	set, err := FindLiftingSetIndex(zc)
	if err != nil {
		return nil, err
	}
	if set != tab.SetIndex {
		return nil, fmt.Errorf("%w: Zc=%d belongs to set %d, table is set %d", ErrInvalidLiftingSize, zc, set, tab.SetIndex)
	}
	bg := tab.BG
	h := &ParityCheckMatrix{
		BG:       bg,
		Zc:       zc,
		SetIndex: set,
		blocks:   make([]Circulant, 0, len(tab.Entries())),
		rowStart: make([]int, bg.Rows()+1),
		cell:     make([][]int, bg.Rows()),
	}
	for i := range h.cell {
		h.cell[i] = make([]int, bg.Cols())
		for j := range h.cell[i] {
			h.cell[i][j] = -1
		}
	}
	for _, e := range tab.Entries() {
		s := e.Shift % zc
		h.blocks = append(h.blocks, Circulant{Row: e.Row, Col: e.Col, Shift: s})
		h.cell[e.Row][e.Col] = s
		h.rowStart[e.Row+1]++
	}
	for i := 1; i < len(h.rowStart); i++ {
		h.rowStart[i] += h.rowStart[i-1]
	}
	return h, nil
}

// Rows is the number of parity checks (46Zc or 42Zc).
func (h *ParityCheckMatrix) Rows() int { return h.BG.Rows() * h.Zc }

// Cols is the number of code bits including the punctured ones (68Zc or 52Zc).
func (h *ParityCheckMatrix) Cols() int { return h.BG.Cols() * h.Zc }

// K is the code block length (22Zc or 10Zc).
func (h *ParityCheckMatrix) K() int { return h.BG.InfoCols() * h.Zc }

// N is the encoded length after puncturing the first 2Zc bits (66Zc or 50Zc).
func (h *ParityCheckMatrix) N() int { return h.BG.CodewordBlocks() * h.Zc }

// Blocks returns every circulant in row-major order.
func (h *ParityCheckMatrix) Blocks() []Circulant { return h.blocks }

// RowBlocks returns the circulants of block row br.
func (h *ParityCheckMatrix) RowBlocks(br int) []Circulant {
	return h.blocks[h.rowStart[br]:h.rowStart[br+1]]
}

// BlockShift returns the shift of block (br, bc), or -1 if the block is empty.
func (h *ParityCheckMatrix) BlockShift(br, bc int) int {
	return h.cell[br][bc]
}

// At returns H[r][c] as 0 or 1.
func (h *ParityCheckMatrix) At(r, c int) uint8 {
	s := h.cell[r/h.Zc][c/h.Zc]
	if s < 0 {
		return 0
	}
	if (r%h.Zc+s)%h.Zc == c%h.Zc {
		return 1
	}
	return 0
}

// RowSupport appends the column indices of the ones in row r to dst.
func (h *ParityCheckMatrix) RowSupport(r int, dst []int) []int {
	br, off := r/h.Zc, r%h.Zc
	for _, b := range h.RowBlocks(br) {
		dst = append(dst, b.Col*h.Zc+(off+b.Shift)%h.Zc)
	}
	return dst
}

// Dense expands H into a row-major 0/1 matrix. Meant for small Zc.
func (h *ParityCheckMatrix) Dense() [][]uint8 {
	out := make([][]uint8, h.Rows())
	for r := range out {
		out[r] = make([]uint8, h.Cols())
		for _, c := range h.RowSupport(r, nil) {
			out[r][c] = 1
		}
	}
	return out
}

// Syndrome computes H*c mod 2 over a full-length binary word (filler counts
// as zero) and returns the number of unsatisfied checks.
func (h *ParityCheckMatrix) Syndrome(c Bits) (int, error) {
	if len(c) != h.Cols() {
		return 0, fmt.Errorf("%w: word has %d bits, H has %d columns", ErrLengthMismatch, len(c), h.Cols())
	}
	weight := 0
	var support []int
	for r := 0; r < h.Rows(); r++ {
		support = h.RowSupport(r, support[:0])
		var s Bit
		for _, col := range support {
			if c[col] == One {
				s ^= 1
			}
		}
		if s != 0 {
			weight++
		}
	}
	return weight, nil
}

// TannerGraph builds the bipartite graph of H.
func (h *ParityCheckMatrix) TannerGraph() *TannerGraph {
	rows := make([][]int, h.Rows())
	for r := range rows {
		rows[r] = h.RowSupport(r, make([]int, 0, len(h.RowBlocks(r/h.Zc))))
	}
	g, _ := NewTannerGraph(h.Cols(), rows)
	return g
}

// LiftedCode bundles everything derived from one (bg, Zc) pair. H, Graph and
// Encoder are immutable and shared by all workers.
type LiftedCode struct {
	H       *ParityCheckMatrix
	Graph   *TannerGraph
	Encoder *Encoder

	decoders sync.Map // Algorithm.String() -> *sync.Pool
}

// AcquireDecoder returns a decoder for alg over the code's graph, reusing a
// released one when available. A nil alg selects BeliefPropagation.
func (c *LiftedCode) AcquireDecoder(alg Algorithm) (Decoder, error) {
	if alg == nil {
		alg = BeliefPropagation{}
	}
	if p, ok := c.decoders.Load(alg.String()); ok {
		if d, ok := p.(*sync.Pool).Get().(Decoder); ok {
			return d, nil
		}
	}
	return NewDecoder(c.Graph, alg)
}

// ReleaseDecoder hands d back for reuse. d must come from AcquireDecoder on
// the same code and must not be used afterwards.
func (c *LiftedCode) ReleaseDecoder(d Decoder) {
	p, _ := c.decoders.LoadOrStore(d.Algorithm().String(), &sync.Pool{})
	p.(*sync.Pool).Put(d)
}

type matrixKey struct {
	bg BaseGraph
	zc int
}

// MatrixCache lazily builds and caches LiftedCode values keyed by (bg, Zc).
// Concurrent first requests for the same key share a single build.
type MatrixCache struct {
	provider TableProvider
	metrics  *Metrics

	mu    sync.RWMutex
	codes map[matrixKey]*LiftedCode
	group singleflight.Group
}

// NewMatrixCache returns an empty cache over provider. metrics may be nil.
func NewMatrixCache(provider TableProvider, metrics *Metrics) *MatrixCache {
	return &MatrixCache{
		provider: provider,
		metrics:  metrics,
		codes:    make(map[matrixKey]*LiftedCode),
	}
}

// Code returns the lifted code for (bg, zc), building it on first use.
func (c *MatrixCache) Code(bg BaseGraph, zc int) (*LiftedCode, error) {
	if err := bg.check(); err != nil {
		return nil, err
	}
	key := matrixKey{bg: bg, zc: zc}
	c.mu.RLock()
	code, ok := c.codes[key]
	c.mu.RUnlock()
	if ok {
		return code, nil
	}
	v, err, _ := c.group.Do(strconv.Itoa(int(bg))+"/"+strconv.Itoa(zc), func() (any, error) {
		c.mu.RLock()
		code, ok := c.codes[key]
		c.mu.RUnlock()
		if ok {
			return code, nil
		}
		code, err := c.build(bg, zc)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.codes[key] = code
		c.mu.Unlock()
		return code, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*LiftedCode), nil
}

func (c *MatrixCache) build(bg BaseGraph, zc int) (*LiftedCode, error) {
	set, err := FindLiftingSetIndex(zc)
	if err != nil {
		return nil, err
	}
	tab, err := c.provider.ShiftTable(bg, set)
	if err != nil {
		return nil, fmt.Errorf("shift table %v/%d: %w", bg, set, err)
	}
	h, err := BuildH(tab, zc)
	if err != nil {
		return nil, err
	}
	enc, err := NewEncoder(h)
	if err != nil {
		return nil, err
	}
	c.metrics.matrixBuilt(bg)
	return &LiftedCode{H: h, Graph: h.TannerGraph(), Encoder: enc}, nil
}

// Matrix returns the cached H for (bg, zc).
func (c *MatrixCache) Matrix(bg BaseGraph, zc int) (*ParityCheckMatrix, error) {
	code, err := c.Code(bg, zc)
	if err != nil {
		return nil, err
	}
	return code.H, nil
}

// Graph returns the cached Tanner graph for (bg, zc).
func (c *MatrixCache) Graph(bg BaseGraph, zc int) (*TannerGraph, error) {
	code, err := c.Code(bg, zc)
	if err != nil {
		return nil, err
	}
	return code.Graph, nil
}

// Len returns the number of cached codes.
func (c *MatrixCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.codes)
}
