package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/observe-l/nrfec/fec"
)

func main() {
	var (
		bgID   = flag.Int("bg", 1, "base graph (1 or 2)")
		zc     = flag.Int("zc", 384, "lifting size")
		tables = flag.String("tables", "", "directory holding bg1.txt and bg2.txt (embedded tables when empty)")
		rows   = flag.Bool("rows", false, "print the lifted shift of every non-empty block")
		dense  = flag.Bool("dense", false, "print H as 0/1 rows (only sensible for small Zc)")
	)
	flag.Parse()

	var (
		provider fec.TableProvider
		err      error
	)
	if *tables != "" {
		provider, err = fec.NewTableProviderFS(os.DirFS(*tables), "bg1.txt", "bg2.txt")
	} else {
		provider, err = fec.NewEmbeddedTableProvider()
	}
	if err != nil {
		fatalf("tables: %v", err)
	}
	bg := fec.BaseGraph(*bgID)
	h, err := fec.NewMatrixCache(provider, nil).Matrix(bg, *zc)
	if err != nil {
		fatalf("%v", err)
	}

	fmt.Printf("%v Zc=%d iLS=%d\n", h.BG, h.Zc, h.SetIndex)
	fmt.Printf("H: %d x %d, K=%d, N=%d, circulants=%d, ones=%d\n",
		h.Rows(), h.Cols(), h.K(), h.N(), len(h.Blocks()), len(h.Blocks())*h.Zc)

	rowDeg := make([]int, bg.Rows())
	colDeg := make([]int, bg.Cols())
	for _, b := range h.Blocks() {
		rowDeg[b.Row]++
		colDeg[b.Col]++
	}
	fmt.Printf("check degree profile:    %s\n", profile(rowDeg))
	fmt.Printf("variable degree profile: %s\n", profile(colDeg))

	if *rows {
		for r := 0; r < bg.Rows(); r++ {
			parts := make([]string, 0, len(h.RowBlocks(r)))
			for _, b := range h.RowBlocks(r) {
				parts = append(parts, fmt.Sprintf("%d:%d", b.Col, b.Shift))
			}
			fmt.Printf("row %2d: %s\n", r, strings.Join(parts, " "))
		}
	}
	if *dense {
		for _, row := range h.Dense() {
			var sb strings.Builder
			for _, v := range row {
				sb.WriteByte('0' + v)
			}
			fmt.Println(sb.String())
		}
	}
}

// profile renders a degree histogram as "deg:count" pairs.
func profile(deg []int) string {
	hist := map[int]int{}
	for _, d := range deg {
		hist[d]++
	}
	keys := make([]int, 0, len(hist))
	for d := range hist {
		keys = append(keys, d)
	}
	sort.Ints(keys)
	parts := make([]string, len(keys))
	for i, d := range keys {
		parts[i] = fmt.Sprintf("%d:%d", d, hist[d])
	}
	return strings.Join(parts, " ")
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}
