package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/francoispqt/gojay"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"gonum.org/v1/gonum/stat"

	"github.com/observe-l/nrfec/fec"
	"github.com/observe-l/nrfec/internal/channel"
	"github.com/observe-l/nrfec/internal/config"
	"github.com/observe-l/nrfec/internal/log"
)

type resultKey struct {
	TBS     int
	Decoder string
	Point   float64
}

type agg struct {
	Runs          int
	Successes     int
	BitErrors     int
	PayloadBits   int
	Iterations    []float64
	Transmissions []float64
	EncTotal      time.Duration
	DecTotal      time.Duration
	Seg           fec.SegmentationInfo
}

type allResults map[resultKey]*agg

// record is one JSON line of the report.
type record struct {
	key   resultKey
	a     *agg
	model string
}

func (r record) MarshalJSONObject(enc *gojay.Encoder) {
	enc.IntKey("tbs", r.key.TBS)
	enc.StringKey("decoder", r.key.Decoder)
	enc.StringKey("channel", r.model)
	enc.Float64Key("point", r.key.Point)
	enc.StringKey("bg", r.a.Seg.BG.String())
	enc.IntKey("zc", r.a.Seg.Zc)
	enc.IntKey("code_blocks", r.a.Seg.C)
	enc.IntKey("runs", r.a.Runs)
	enc.IntKey("successes", r.a.Successes)
	enc.Float64Key("bler", r.a.bler())
	enc.Float64Key("ber", r.a.ber())
	enc.Float64Key("mean_iterations", mean(r.a.Iterations))
	enc.Float64Key("mean_transmissions", mean(r.a.Transmissions))
	enc.Float64Key("enc_ms_total", float64(r.a.EncTotal.Microseconds())/1e3)
	enc.Float64Key("dec_ms_total", float64(r.a.DecTotal.Microseconds())/1e3)
}

func (r record) IsNil() bool { return r.a == nil }

func (a *agg) bler() float64 {
	if a.Runs == 0 {
		return 0
	}
	return 1 - float64(a.Successes)/float64(a.Runs)
}

func (a *agg) ber() float64 {
	if a.PayloadBits == 0 {
		return 0
	}
	return float64(a.BitErrors) / float64(a.PayloadBits)
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

func main() {
	var (
		cfgPath  = flag.String("config", "", "YAML config file (defaults are used when empty)")
		runs     = flag.Int("runs", 0, "transport blocks per (tbs, decoder, point); overrides config")
		workers  = flag.Int("workers", 0, "code blocks processed concurrently; overrides config")
		seed     = flag.Uint64("seed", 0, "random seed; overrides config")
		outPath  = flag.String("out", "", "markdown report path; overrides config")
		jsonPath = flag.String("jsonl", "", "JSON lines report path; overrides config")
		tables   = flag.String("tables", "", "directory holding bg1.txt and bg2.txt; overrides the embedded tables")
		level    = flag.String("log-level", "", "debug|info|warn|error; overrides config")
	)
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			fatalf("%v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "runs":
			cfg.Run.Runs = *runs
		case "workers":
			cfg.Run.Workers = *workers
		case "seed":
			cfg.Run.Seed = *seed
		case "out":
			cfg.Report.Markdown = *outPath
		case "jsonl":
			cfg.Report.JSONLines = *jsonPath
		case "tables":
			cfg.Code.TablesDir = *tables
		case "log-level":
			cfg.Logging.Level = *level
		}
	})
	if err := cfg.Validate(); err != nil {
		fatalf("config: %v", err)
	}

	lvl, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		fatalf("%v", err)
	}
	log.SetDefault(log.New(os.Stderr, lvl, cfg.Logging.JSON))
	logger := log.Default().Module("ldpc_eval")

	var provider fec.TableProvider
	if cfg.Code.TablesDir != "" {
		provider, err = fec.NewTableProviderFS(os.DirFS(cfg.Code.TablesDir), "bg1.txt", "bg2.txt")
	} else {
		provider, err = fec.NewEmbeddedTableProvider()
	}
	if err != nil {
		fatalf("tables: %v", err)
	}

	reg := prometheus.NewRegistry()
	metrics := fec.NewMetrics(reg)
	cache := fec.NewMatrixCache(provider, metrics)

	ctx := context.Background()
	rng := rand.New(rand.NewPCG(cfg.Run.Seed, cfg.Run.Seed+1))
	results := make(allResults)

	for _, tbs := range cfg.Code.TBSizes {
		for _, dc := range cfg.Decoders {
			alg, err := dc.Build()
			if err != nil {
				fatalf("%v", err)
			}
			opts := fec.Options{
				Workers:       cfg.Run.Workers,
				Algorithm:     alg,
				MaxIterations: dc.MaxIterations,
				Metrics:       metrics,
			}
			enc := fec.NewTransportEncoder(cache, opts)
			dec := fec.NewTransportDecoder(cache, opts)
			tc := fec.TransportConfig{
				BG:       fec.BaseGraph(cfg.Code.BaseGraph),
				CodeRate: cfg.Code.CodeRate,
				G:        codedBits(tbs, cfg.Code.CodeRate, cfg.Code.Qm*max(cfg.Code.Layers, 1)),
				Qm:       cfg.Code.Qm,
				Layers:   cfg.Code.Layers,
				TBSLBRM:  cfg.Code.TBSLBRM,
			}
			for _, point := range cfg.Channel.Points() {
				key := resultKey{TBS: tbs, Decoder: alg.String(), Point: point}
				a := &agg{Runs: cfg.Run.Runs}
				results[key] = a
				for run := 0; run < cfg.Run.Runs; run++ {
					if err := runOnce(ctx, cfg, enc, dec, tc, tbs, point, rng, a); err != nil {
						fatalf("tbs=%d decoder=%s point=%g: %v", tbs, key.Decoder, point, err)
					}
				}
				logger.Info("point done",
					"tbs", tbs, "decoder", key.Decoder, "point", point,
					"bler", a.bler(), "ber", a.ber(), "mean_iterations", mean(a.Iterations))
			}
		}
	}

	ts := time.Now().Format("20060102_150405")
	jsonl := withTimestamp(cfg.Report.JSONLines, ts)
	md := withTimestamp(cfg.Report.Markdown, ts)
	if err := writeJSONLines(jsonl, results, cfg.Channel.Model); err != nil {
		fatalf("write jsonl: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		fatalf("gather metrics: %v", err)
	}
	if err := writeMarkdown(md, cfg, results, families); err != nil {
		fatalf("write md: %v", err)
	}
	fmt.Printf("Report written: %s\nJSON lines: %s\n", md, jsonl)
}

// codedBits returns G for a transport block of a bits at rate r, rounded up
// to whole symbols.
func codedBits(a int, r float64, unit int) int {
	b := a + fec.TransportCRC(a).Length()
	g := int(math.Ceil(float64(b) / r))
	if rem := g % unit; rem != 0 {
		g += unit - rem
	}
	return g
}

// runOnce sends one random transport block of tbs bits through the channel,
// retransmitting with the next redundancy version while the CRC fails.
func runOnce(ctx context.Context, cfg *config.Config, enc *fec.TransportEncoder, dec *fec.TransportDecoder,
	tc fec.TransportConfig, tbs int, point float64, rng *rand.Rand, a *agg) error {
	tb := randomBits(rng, tbs)
	var harq []*fec.SoftBuffer
	for i, rv := range cfg.Code.RVs {
		tc.RV = rv
		t0 := time.Now()
		coded, err := enc.Encode(ctx, tb, tc)
		if err != nil {
			return err
		}
		a.EncTotal += time.Since(t0)
		a.Seg = coded.Seg

		llr, err := transmit(cfg, coded.Bits, point, rng)
		if err != nil {
			return err
		}
		t0 = time.Now()
		out, err := dec.Decode(ctx, llr, tbs, tc, harq)
		if err != nil {
			return err
		}
		a.DecTotal += time.Since(t0)
		for _, b := range out.Blocks {
			a.Iterations = append(a.Iterations, float64(b.Iterations))
		}
		harq = out.SoftBuffers
		if out.CRCFailed && i < len(cfg.Code.RVs)-1 {
			continue
		}
		a.Transmissions = append(a.Transmissions, float64(i+1))
		a.PayloadBits += tbs
		errs := 0
		for j := range tb {
			if out.Payload[j] != tb[j] {
				errs++
			}
		}
		a.BitErrors += errs
		if !out.CRCFailed && errs == 0 {
			a.Successes++
		}
		break
	}
	return nil
}

func randomBits(rng *rand.Rand, n int) fec.Bits {
	out := make(fec.Bits, n)
	for i := range out {
		out[i] = fec.Bit(rng.IntN(2))
	}
	return out
}

// transmit returns the channel LLRs of bits at the given operating point.
func transmit(cfg *config.Config, bits fec.Bits, point float64, rng *rand.Rand) ([]float64, error) {
	if cfg.Channel.Model == "bsc" {
		return channel.NewBSC(point, rng).LLRs(bits), nil
	}
	ch, err := channel.NewAWGN(point, cfg.Code.CodeRate, rng.Uint64())
	if err != nil {
		return nil, err
	}
	return ch.LLRs(bits), nil
}

func withTimestamp(path, ts string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + ts + ext
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func sortedKeys(res allResults) []resultKey {
	keys := make([]resultKey, 0, len(res))
	for k := range res {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].TBS != keys[j].TBS {
			return keys[i].TBS < keys[j].TBS
		}
		if keys[i].Decoder != keys[j].Decoder {
			return keys[i].Decoder < keys[j].Decoder
		}
		return keys[i].Point < keys[j].Point
	})
	return keys
}

func writeJSONLines(path string, res allResults, model string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, k := range sortedKeys(res) {
		b, err := gojay.MarshalJSONObject(record{key: k, a: res[k], model: model})
		if err != nil {
			return err
		}
		if _, err := f.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}

func writeMarkdown(path string, cfg *config.Config, res allResults, families []*dto.MetricFamily) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	tbsSet := map[int]struct{}{}
	decSet := map[string]struct{}{}
	for k := range res {
		tbsSet[k.TBS] = struct{}{}
		decSet[k.Decoder] = struct{}{}
	}
	sizes := make([]int, 0, len(tbsSet))
	for t := range tbsSet {
		sizes = append(sizes, t)
	}
	sort.Ints(sizes)
	decoders := make([]string, 0, len(decSet))
	for d := range decSet {
		decoders = append(decoders, d)
	}
	sort.Strings(decoders)
	points := append([]float64(nil), cfg.Channel.Points()...)
	sort.Float64s(points)

	unit := "Eb/N0=%.1f dB"
	if cfg.Channel.Model == "bsc" {
		unit = "p=%.3f"
	}
	headers := make([]string, len(points))
	for i, p := range points {
		headers[i] = fmt.Sprintf(unit, p)
	}
	div := "|---" + strings.Repeat("|---:", len(points)) + "|"

	fmt.Fprintf(f, "# LDPC Evaluation Report\n\n")
	fmt.Fprintf(f, "Generated: %s\n\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(f, "Channel: %s, code rate %.3f, Qm=%d, RVs %v, %d runs per point.\n\n",
		strings.ToUpper(cfg.Channel.Model), cfg.Code.CodeRate, cfg.Code.Qm, cfg.Code.RVs, cfg.Run.Runs)

	for _, tbs := range sizes {
		var seg fec.SegmentationInfo
		for _, d := range decoders {
			if a := res[resultKey{TBS: tbs, Decoder: d, Point: points[0]}]; a != nil {
				seg = a.Seg
				break
			}
		}
		fmt.Fprintf(f, "## TBS=%d (%v, Zc=%d, C=%d, K=%d)\n\n", tbs, seg.BG, seg.Zc, seg.C, seg.K)
		for _, table := range []struct {
			title string
			cell  func(a *agg) string
		}{
			{"Block Error Rate", func(a *agg) string { return fmt.Sprintf("%.4f", a.bler()) }},
			{"Bit Error Rate", func(a *agg) string { return fmt.Sprintf("%.2e", a.ber()) }},
			{"Mean Decoder Iterations", func(a *agg) string { return fmt.Sprintf("%.2f", mean(a.Iterations)) }},
			{"Decoding Time per TB (ms)", func(a *agg) string {
				return fmt.Sprintf("%.3f", float64(a.DecTotal.Microseconds())/1e3/float64(max(a.Runs, 1)))
			}},
		} {
			fmt.Fprintf(f, "### %s\n\n", table.title)
			fmt.Fprintf(f, "| Decoder | %s |\n%s\n", strings.Join(headers, " | "), div)
			for _, d := range decoders {
				fmt.Fprintf(f, "| %s ", d)
				for _, p := range points {
					a := res[resultKey{TBS: tbs, Decoder: d, Point: p}]
					if a == nil {
						fmt.Fprintf(f, "|  ")
						continue
					}
					fmt.Fprintf(f, "| %s ", table.cell(a))
				}
				fmt.Fprintf(f, "|\n")
			}
			fmt.Fprintf(f, "\n")
		}
	}

	fmt.Fprintf(f, "## Pipeline Counters\n\n| Metric | Labels | Value |\n|---|---|---:|\n")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			var v float64
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				v = m.GetCounter().GetValue()
			case dto.MetricType_HISTOGRAM:
				v = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			fmt.Fprintf(f, "| %s | %s | %.0f |\n", mf.GetName(), strings.Join(labels, ","), v)
		}
	}
	fmt.Fprintf(f, "\n---\n\nNotes:\n\n- Each coded bit is sent as one BPSK symbol regardless of Qm; Qm only shapes rate matching.\n- A run succeeds when the transport block CRC passes and the payload matches.\n")
	return nil
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}
