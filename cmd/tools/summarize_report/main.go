package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/francoispqt/gojay"
)

// row is one line of the ldpc_eval JSON lines report.
type row struct {
	TBS       int
	Decoder   string
	Channel   string
	Point     float64
	BG        string
	Zc        int
	Runs      int
	BLER      float64
	BER       float64
	MeanIters float64
}

func (r *row) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	switch key {
	case "tbs":
		return dec.Int(&r.TBS)
	case "decoder":
		return dec.String(&r.Decoder)
	case "channel":
		return dec.String(&r.Channel)
	case "point":
		return dec.Float64(&r.Point)
	case "bg":
		return dec.String(&r.BG)
	case "zc":
		return dec.Int(&r.Zc)
	case "runs":
		return dec.Int(&r.Runs)
	case "bler":
		return dec.Float64(&r.BLER)
	case "ber":
		return dec.Float64(&r.BER)
	case "mean_iterations":
		return dec.Float64(&r.MeanIters)
	}
	return nil
}

func (r *row) NKeys() int { return 0 }

type curveKey struct {
	Decoder string
	TBS     int
}

func main() {
	var inPath, outPath string
	var top int
	var target float64
	flag.StringVar(&inPath, "in", "docs/reports/ldpc_eval_report.jsonl", "ldpc_eval JSON lines report")
	flag.StringVar(&outPath, "out", "docs/reports/ldpc_summary.md", "output markdown path")
	flag.IntVar(&top, "top", 10, "worst operating points to list")
	flag.Float64Var(&target, "target-bler", 0.1, "BLER the operating point table is computed for")
	flag.Parse()

	f, err := os.Open(inPath)
	if err != nil {
		fatalf("open %s: %v", inPath, err)
	}
	rows, err := loadRows(f)
	_ = f.Close()
	if err != nil {
		fatalf("read %s: %v", inPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fatalf("mkdir %s: %v", filepath.Dir(outPath), err)
	}
	out, err := os.Create(outPath)
	if err != nil {
		fatalf("create %s: %v", outPath, err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	writeSummary(w, rows, target, top)
	if err := w.Flush(); err != nil {
		fatalf("write %s: %v", outPath, err)
	}
	fmt.Printf("wrote %s\n", outPath)
}

func loadRows(r io.Reader) ([]row, error) {
	var rows []row
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for s.Scan() {
		line++
		b := bytes.TrimSpace(s.Bytes())
		if len(b) == 0 {
			continue
		}
		var rw row
		if err := gojay.UnmarshalJSONObject(b, &rw); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, rw)
	}
	return rows, s.Err()
}

// thresholds returns, per (decoder, TBS), the easiest operating point whose
// BLER is at or below target: the lowest Eb/N0 for AWGN, the largest
// crossover probability for BSC. Curves that never reach target map to nil.
func thresholds(rows []row, target float64) map[curveKey]*row {
	out := map[curveKey]*row{}
	for i := range rows {
		r := &rows[i]
		k := curveKey{Decoder: r.Decoder, TBS: r.TBS}
		if _, ok := out[k]; !ok {
			out[k] = nil
		}
		if r.BLER > target {
			continue
		}
		best := out[k]
		switch {
		case best == nil:
			out[k] = r
		case r.Channel == "bsc" && r.Point > best.Point:
			out[k] = r
		case r.Channel != "bsc" && r.Point < best.Point:
			out[k] = r
		}
	}
	return out
}

func writeSummary(w io.Writer, rows []row, target float64, top int) {
	fmt.Fprintln(w, "# LDPC evaluation summary")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Operating point reaching BLER <= %g per decoder and transport block size.\n\n", target)
	fmt.Fprintln(w, "| Decoder | TBS | BG | Zc | Point | BLER | Mean iters |")
	fmt.Fprintln(w, "|---|---:|---|---:|---:|---:|---:|")
	th := thresholds(rows, target)
	keys := make([]curveKey, 0, len(th))
	for k := range th {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Decoder != keys[j].Decoder {
			return keys[i].Decoder < keys[j].Decoder
		}
		return keys[i].TBS < keys[j].TBS
	})
	for _, k := range keys {
		r := th[k]
		if r == nil {
			fmt.Fprintf(w, "| %s | %d | - | - | not reached | - | - |\n", k.Decoder, k.TBS)
			continue
		}
		fmt.Fprintf(w, "| %s | %d | %s | %d | %.3f | %.4f | %.2f |\n", k.Decoder, k.TBS, r.BG, r.Zc, r.Point, r.BLER, r.MeanIters)
	}
	fmt.Fprintln(w, "")

	worst := append([]row(nil), rows...)
	sort.SliceStable(worst, func(i, j int) bool {
		if worst[i].BLER != worst[j].BLER {
			return worst[i].BLER > worst[j].BLER
		}
		return worst[i].BER > worst[j].BER
	})
	if len(worst) > top {
		worst = worst[:top]
	}
	fmt.Fprintf(w, "## Worst %d operating points\n\n", len(worst))
	fmt.Fprintln(w, "| Decoder | TBS | Channel | Point | Runs | BLER | BER |")
	fmt.Fprintln(w, "|---|---:|---|---:|---:|---:|---:|")
	for _, r := range worst {
		fmt.Fprintf(w, "| %s | %d | %s | %.3f | %d | %.4f | %.2e |\n", r.Decoder, r.TBS, r.Channel, r.Point, r.Runs, r.BLER, r.BER)
	}
}

func fatalf(f string, a ...any) { fmt.Fprintf(os.Stderr, f+"\n", a...); os.Exit(1) }
