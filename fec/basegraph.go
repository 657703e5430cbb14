package fec

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
)

// BaseGraph selects one of the two LDPC prototype matrices.
type BaseGraph int

const (
	BG1 BaseGraph = 1
	BG2 BaseGraph = 2
)

const numLiftingSets = 8

// Valid reports whether bg is BG1 or BG2.
func (bg BaseGraph) Valid() bool { return bg == BG1 || bg == BG2 }

func (bg BaseGraph) check() error {
	if !bg.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidBaseGraph, int(bg))
	}
	return nil
}

// Rows is the number of block rows (46 or 42).
func (bg BaseGraph) Rows() int {
	if bg == BG1 {
		return 46
	}
	return 42
}

// Cols is the number of block columns (68 or 52).
func (bg BaseGraph) Cols() int {
	if bg == BG1 {
		return 68
	}
	return 52
}

// InfoCols is the number of systematic block columns (22 or 10).
func (bg BaseGraph) InfoCols() int {
	if bg == BG1 {
		return 22
	}
	return 10
}

// MaxCodeBlockSize is Kcb.
func (bg BaseGraph) MaxCodeBlockSize() int {
	if bg == BG1 {
		return 8448
	}
	return 3840
}

// CodewordBlocks is N/Zc: 66 or 50.
func (bg BaseGraph) CodewordBlocks() int {
	return bg.Cols() - 2
}

func (bg BaseGraph) String() string {
	return "BG" + strconv.Itoa(int(bg))
}

// ShiftEntry is one non-empty cell of a base graph.
type ShiftEntry struct {
	Row, Col int
	Shift    int
}

// ShiftTable is the base graph of one (bg, iLS) pair. It is immutable after
// construction and safe to share.
type ShiftTable struct {
	BG       BaseGraph
	SetIndex int
	cells    [][]int
	entries  []ShiftEntry
}

// At returns the coefficient at (row, col), or -1 for an empty block.
func (t *ShiftTable) At(row, col int) int {
	return t.cells[row][col]
}

// Entries returns the non-empty cells in row-major order.
func (t *ShiftTable) Entries() []ShiftEntry {
	return t.entries
}

// RowEntries returns the non-empty cells of one block row.
func (t *ShiftTable) RowEntries(row int) []ShiftEntry {
	lo, hi := -1, len(t.entries)
	for i, e := range t.entries {
		if e.Row == row && lo < 0 {
			lo = i
		}
		if e.Row > row {
			hi = i
			break
		}
	}
	if lo < 0 {
		return nil
	}
	return t.entries[lo:hi]
}

func newShiftTable(bg BaseGraph, set int) *ShiftTable {
	cells := make([][]int, bg.Rows())
	for i := range cells {
		cells[i] = make([]int, bg.Cols())
		for j := range cells[i] {
			cells[i][j] = -1
		}
	}
	return &ShiftTable{BG: bg, SetIndex: set, cells: cells}
}

func (t *ShiftTable) finalize() {
	t.entries = t.entries[:0]
	for i, row := range t.cells {
		for j, v := range row {
			if v >= 0 {
				t.entries = append(t.entries, ShiftEntry{Row: i, Col: j, Shift: v})
			}
		}
	}
}

// validate checks the structure the encoder relies on: the first four rows
// touch only the information columns and the four core parity columns, and
// every extension row r owns parity column InfoCols+r with nothing to its right.
func (t *ShiftTable) validate() error {
	kb := t.BG.InfoCols()
	for r := 0; r < t.BG.Rows(); r++ {
		last := kb + 3
		if r >= 4 {
			last = kb + r
			if t.cells[r][last] < 0 {
				return fmt.Errorf("%w: %v row %d misses parity column %d", ErrInvalidTable, t.BG, r, last)
			}
		}
		for c := last + 1; c < t.BG.Cols(); c++ {
			if t.cells[r][c] >= 0 {
				return fmt.Errorf("%w: %v row %d has entry in column %d", ErrInvalidTable, t.BG, r, c)
			}
		}
	}
	return nil
}

// LoadShiftTables parses a base graph file holding the coefficients of all
// eight lifting sets. Each data line is "row col V0 .. V7"; blank lines and
// lines starting with '#' are ignored.
func LoadShiftTables(r io.Reader, bg BaseGraph) ([numLiftingSets]*ShiftTable, error) {
	var out [numLiftingSets]*ShiftTable
	if err := bg.check(); err != nil {
		return out, err
	}
	for i := range out {
		out[i] = newShiftTable(bg, i)
	}
	s := bufio.NewScanner(r)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2+numLiftingSets {
			return out, fmt.Errorf("%w: line %d: want %d fields, got %d", ErrInvalidTable, lineNo, 2+numLiftingSets, len(parts))
		}
		vals := make([]int, len(parts))
		for i, p := range parts {
			v, err := strconv.Atoi(p)
			if err != nil {
				return out, fmt.Errorf("%w: line %d: %v", ErrInvalidTable, lineNo, err)
			}
			vals[i] = v
		}
		row, col := vals[0], vals[1]
		if row < 0 || row >= bg.Rows() || col < 0 || col >= bg.Cols() {
			return out, fmt.Errorf("%w: line %d: cell (%d,%d) outside %v", ErrInvalidTable, lineNo, row, col, bg)
		}
		for set := 0; set < numLiftingSets; set++ {
			v := vals[2+set]
			if v < 0 {
				return out, fmt.Errorf("%w: line %d: negative shift %d", ErrInvalidTable, lineNo, v)
			}
			if out[set].cells[row][col] >= 0 {
				return out, fmt.Errorf("%w: line %d: duplicate cell (%d,%d)", ErrInvalidTable, lineNo, row, col)
			}
			out[set].cells[row][col] = v
		}
	}
	if err := s.Err(); err != nil {
		return out, err
	}
	for _, t := range out {
		t.finalize()
		if err := t.validate(); err != nil {
			return out, err
		}
	}
	return out, nil
}

// TableProvider supplies base graph shift tables.
type TableProvider interface {
	ShiftTable(bg BaseGraph, setIndex int) (*ShiftTable, error)
}

//go:embed tables/bg1.txt tables/bg2.txt
var embeddedTables embed.FS

// StaticTableProvider holds both base graphs for all lifting sets, parsed once.
type StaticTableProvider struct {
	bg1 [numLiftingSets]*ShiftTable
	bg2 [numLiftingSets]*ShiftTable
}

// NewEmbeddedTableProvider parses the base graph tables compiled into the binary.
func NewEmbeddedTableProvider() (*StaticTableProvider, error) {
	return NewTableProviderFS(embeddedTables, "tables/bg1.txt", "tables/bg2.txt")
}

// NewTableProviderFS parses base graph tables from fsys, e.g. an os.DirFS
// pointing at officially published coefficient files.
func NewTableProviderFS(fsys fs.FS, bg1Path, bg2Path string) (*StaticTableProvider, error) {
	p := &StaticTableProvider{}
	for _, src := range []struct {
		bg   BaseGraph
		path string
		dst  *[numLiftingSets]*ShiftTable
	}{
		{BG1, bg1Path, &p.bg1},
		{BG2, bg2Path, &p.bg2},
	} {
		f, err := fsys.Open(src.path)
		if err != nil {
			return nil, fmt.Errorf("open %v table: %w", src.bg, err)
		}
		tabs, err := LoadShiftTables(f, src.bg)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("load %v table %s: %w", src.bg, src.path, err)
		}
		*src.dst = tabs
	}
	return p, nil
}

// ShiftTable implements TableProvider.
func (p *StaticTableProvider) ShiftTable(bg BaseGraph, setIndex int) (*ShiftTable, error) {
	if err := bg.check(); err != nil {
		return nil, err
	}
	if setIndex < 0 || setIndex >= numLiftingSets {
		return nil, fmt.Errorf("%w: lifting set index %d", ErrInvalidParameter, setIndex)
	}
	if bg == BG1 {
		return p.bg1[setIndex], nil
	}
	return p.bg2[setIndex], nil
}
