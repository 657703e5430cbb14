package fec

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func embeddedProvider(t testing.TB) *StaticTableProvider {
	t.Helper()
	p, err := NewEmbeddedTableProvider()
	require.NoError(t, err)
	return p
}

func TestBaseGraphDimensions(t *testing.T) {
	require.Equal(t, 46, BG1.Rows())
	require.Equal(t, 68, BG1.Cols())
	require.Equal(t, 22, BG1.InfoCols())
	require.Equal(t, 66, BG1.CodewordBlocks())
	require.Equal(t, 8448, BG1.MaxCodeBlockSize())

	require.Equal(t, 42, BG2.Rows())
	require.Equal(t, 52, BG2.Cols())
	require.Equal(t, 10, BG2.InfoCols())
	require.Equal(t, 50, BG2.CodewordBlocks())
	require.Equal(t, 3840, BG2.MaxCodeBlockSize())

	require.False(t, BaseGraph(3).Valid())
	require.Equal(t, "BG2", BG2.String())
}

func TestEmbeddedTables(t *testing.T) {
	p := embeddedProvider(t)
	for _, tc := range []struct {
		bg      BaseGraph
		entries int
	}{
		{BG1, 316},
		{BG2, 197},
	} {
		for set := 0; set < 8; set++ {
			tab, err := p.ShiftTable(tc.bg, set)
			require.NoError(t, err)
			require.Equal(t, tc.bg, tab.BG)
			require.Equal(t, set, tab.SetIndex)
			require.Len(t, tab.Entries(), tc.entries)

			kb := tc.bg.InfoCols()
			// extension rows carry an identity on their own parity column
			for r := 4; r < tc.bg.Rows(); r++ {
				require.Equal(t, 0, tab.At(r, kb+r), "%v set %d row %d", tc.bg, set, r)
			}
			total := 0
			for r := 0; r < tc.bg.Rows(); r++ {
				row := tab.RowEntries(r)
				require.NotEmpty(t, row)
				for _, e := range row {
					require.Equal(t, r, e.Row)
					require.Equal(t, e.Shift, tab.At(e.Row, e.Col))
				}
				total += len(row)
			}
			require.Equal(t, tc.entries, total)
		}
	}

	_, err := p.ShiftTable(BG1, 8)
	require.ErrorIs(t, err, ErrInvalidParameter)
	_, err = p.ShiftTable(BaseGraph(0), 0)
	require.ErrorIs(t, err, ErrInvalidBaseGraph)
}

func TestEmbeddedTablesMatchPublishedCoefficients(t *testing.T) {
	p := embeddedProvider(t)
	// V(i,j) for iLS 0..7, as published in TS 38.212 Tables 5.3.2-2 and 5.3.2-3
	for _, tc := range []struct {
		bg       BaseGraph
		row, col int
		want     [8]int
	}{
		{BG1, 0, 0, [8]int{250, 307, 73, 223, 211, 294, 0, 135}},
		{BG1, 1, 0, [8]int{2, 76, 303, 141, 179, 77, 22, 96}},
		{BG1, 2, 0, [8]int{106, 205, 68, 207, 258, 226, 132, 189}},
		{BG1, 2, 1, [8]int{111, 250, 7, 203, 167, 35, 37, 4}},
		{BG1, 3, 0, [8]int{121, 276, 220, 201, 187, 97, 4, 128}},
		{BG1, 0, 22, [8]int{1, 1, 1, 1, 1, 1, 105, 1}},
		{BG1, 3, 22, [8]int{1, 1, 1, 1, 1, 1, 105, 1}},
		{BG1, 1, 23, [8]int{}},
		{BG1, 45, 1, [8]int{149, 135, 101, 184, 168, 82, 181, 177}},
		{BG1, 45, 6, [8]int{151, 149, 228, 121, 0, 67, 45, 114}},
		{BG1, 45, 10, [8]int{167, 15, 126, 29, 144, 235, 153, 93}},
		{BG2, 0, 0, [8]int{9, 174, 0, 72, 3, 156, 143, 145}},
		{BG2, 1, 4, [8]int{253, 48, 0, 115, 104, 63, 3, 183}},
		{BG2, 2, 10, [8]int{1, 1, 1, 0, 1, 1, 1, 0}},
		{BG2, 3, 10, [8]int{0, 0, 0, 1, 0, 0, 0, 1}},
		{BG2, 41, 1, [8]int{129, 147, 0, 120, 48, 132, 191, 53}},
		{BG2, 41, 11, [8]int{118, 60, 55, 81, 19, 8, 167, 230}},
	} {
		var got [8]int
		for set := range got {
			tab, err := p.ShiftTable(tc.bg, set)
			require.NoError(t, err)
			got[set] = tab.At(tc.row, tc.col)
		}
		require.Equal(t, tc.want, got, "%v (%d,%d)", tc.bg, tc.row, tc.col)
	}

	// every coefficient is below the largest lifting size of its set
	maxZc := [8]int{256, 384, 320, 224, 288, 352, 208, 240}
	for _, bg := range []BaseGraph{BG1, BG2} {
		for set, limit := range maxZc {
			tab, err := p.ShiftTable(bg, set)
			require.NoError(t, err)
			for _, e := range tab.Entries() {
				require.GreaterOrEqual(t, e.Shift, 0)
				require.Less(t, e.Shift, limit, "%v set %d (%d,%d)", bg, set, e.Row, e.Col)
			}
		}
	}
}

func TestLoadShiftTablesErrors(t *testing.T) {
	for name, body := range map[string]string{
		"field count":  "0 0 1 2 3\n",
		"not a number": "0 0 1 2 3 4 5 6 7 x\n",
		"out of range": "42 0 1 2 3 4 5 6 7 8\n",
		"negative":     "0 0 1 2 3 4 5 6 7 -8\n",
		"duplicate":    "0 0 1 2 3 4 5 6 7 8\n0 0 1 2 3 4 5 6 7 8\n",
		"structure":    "0 30 1 2 3 4 5 6 7 8\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadShiftTables(strings.NewReader(body), BG2)
			require.ErrorIs(t, err, ErrInvalidTable)
		})
	}

	_, err := LoadShiftTables(strings.NewReader(""), BaseGraph(7))
	require.ErrorIs(t, err, ErrInvalidBaseGraph)
}

func TestNewTableProviderFS(t *testing.T) {
	bg1, err := embeddedTables.ReadFile("tables/bg1.txt")
	require.NoError(t, err)
	bg2, err := embeddedTables.ReadFile("tables/bg2.txt")
	require.NoError(t, err)
	fsys := fstest.MapFS{
		"official/bg1.txt": {Data: bg1},
		"official/bg2.txt": {Data: bg2},
	}
	p, err := NewTableProviderFS(fsys, "official/bg1.txt", "official/bg2.txt")
	require.NoError(t, err)
	tab, err := p.ShiftTable(BG2, 3)
	require.NoError(t, err)
	require.Len(t, tab.Entries(), 197)

	_, err = NewTableProviderFS(fsys, "official/bg1.txt", "missing.txt")
	require.Error(t, err)
}
