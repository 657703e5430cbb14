package fec

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/observe-l/nrfec/internal/log"
)

// tbCRC24Threshold is the transport block size above which CRC24A replaces CRC16.
const tbCRC24Threshold = 3824

// SelectBaseGraph picks the base graph for a transport block of a bits at
// code rate r.
func SelectBaseGraph(a int, r float64) BaseGraph {
	if a <= 292 || (a <= tbCRC24Threshold && r <= 0.67) || r <= 0.25 {
		return BG2
	}
	return BG1
}

// TransportCRC returns the CRC attached to a transport block of a bits.
func TransportCRC(a int) CRCPolynomial {
	if a > tbCRC24Threshold {
		return CRC24A
	}
	return CRC16
}

// RateMatchLengths splits g coded bits over c code blocks. Every E_r is a
// multiple of qm*layers and the first blocks get the shorter share.
func RateMatchLengths(g, c, qm, layers int) ([]int, error) {
	if layers <= 0 || c <= 0 {
		return nil, fmt.Errorf("%w: C=%d layers=%d", ErrInvalidParameter, c, layers)
	}
	if !ValidModulationOrder(qm) {
		return nil, fmt.Errorf("%w: Qm=%d", ErrInvalidModulationOrder, qm)
	}
	unit := qm * layers
	if g <= 0 || g%unit != 0 {
		return nil, fmt.Errorf("%w: G=%d is not a positive multiple of Qm*layers=%d", ErrInvalidParameter, g, unit)
	}
	symbols := g / unit
	if symbols < c {
		return nil, fmt.Errorf("%w: G=%d too small for %d code blocks", ErrInvalidParameter, g, c)
	}
	out := make([]int, c)
	short := symbols / c
	for r := range out {
		if r <= c-symbols%c-1 {
			out[r] = unit * short
		} else {
			out[r] = unit * (short + 1)
		}
	}
	return out, nil
}

// TransportConfig describes how one transport block is coded.
type TransportConfig struct {
	// BG forces a base graph; zero selects one from the block size and CodeRate.
	BG       BaseGraph
	CodeRate float64
	// G is the number of coded bits available for the transport block.
	G      int
	Qm     int
	Layers int
	RV     int
	// TBSLBRM enables limited-buffer rate matching when positive.
	TBSLBRM int
}

func (c TransportConfig) resolve(a int) (TransportConfig, error) {
	if c.Layers <= 0 {
		c.Layers = 1
	}
	if c.BG == 0 {
		if c.CodeRate <= 0 || c.CodeRate > 1 {
			return c, fmt.Errorf("%w: code rate %g", ErrInvalidParameter, c.CodeRate)
		}
		c.BG = SelectBaseGraph(a, c.CodeRate)
	}
	if err := c.BG.check(); err != nil {
		return c, err
	}
	if c.RV < 0 || c.RV > 3 {
		return c, fmt.Errorf("%w: %d", ErrInvalidRedundancyVersion, c.RV)
	}
	return c, nil
}

// Options configures the transport block pipeline.
type Options struct {
	Workers       int       // concurrent code blocks (default NumCPU)
	Algorithm     Algorithm // decoder (default BeliefPropagation)
	MaxIterations int       // decoder iteration cap (default 20)
	Logger        *log.Logger
	Metrics       *Metrics
}

func (o *Options) setDefaults() {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Algorithm == nil {
		o.Algorithm = BeliefPropagation{}
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 20
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// blockPlan is everything needed to process code block r.
type blockPlan struct {
	code *LiftedCode
	rm   RateMatchParams
	off  int
}

// plan resolves the per-block rate-matching parameters of a segmented block.
func plan(cache *MatrixCache, info SegmentationInfo, cfg TransportConfig) ([]blockPlan, error) {
	code, err := cache.Code(info.BG, info.Zc)
	if err != nil {
		return nil, err
	}
	lens, err := RateMatchLengths(cfg.G, info.C, cfg.Qm, cfg.Layers)
	if err != nil {
		return nil, err
	}
	nref := LimitedBufferSize(cfg.TBSLBRM, info.C)
	plans := make([]blockPlan, info.C)
	off := 0
	for r := range plans {
		rm, err := NewRateMatchParams(info.BG, info.Zc, info.BlockKd(r), lens[r], cfg.RV, cfg.Qm, nref)
		if err != nil {
			return nil, fmt.Errorf("code block %d: %w", r, err)
		}
		plans[r] = blockPlan{code: code, rm: rm, off: off}
		off += lens[r]
	}
	return plans, nil
}

// EncodedTransportBlock is the rate-matched output of one transport block.
type EncodedTransportBlock struct {
	Bits   Bits
	CRC    CRCPolynomial
	Seg    SegmentationInfo
	E      []int
	Config TransportConfig
}

// TransportEncoder runs CRC attachment, segmentation, LDPC encoding and rate
// matching, one worker per code block.
type TransportEncoder struct {
	cache *MatrixCache
	opts  Options
	log   *log.Logger
}

// NewTransportEncoder returns an encoder over cache.
func NewTransportEncoder(cache *MatrixCache, opts Options) *TransportEncoder {
	opts.setDefaults()
	return &TransportEncoder{cache: cache, opts: opts, log: opts.Logger.Module("fec/encoder")}
}

// Encode codes the transport block tb into cfg.G bits.
func (e *TransportEncoder) Encode(ctx context.Context, tb Bits, cfg TransportConfig) (*EncodedTransportBlock, error) {
	a := len(tb)
	cfg, err := cfg.resolve(a)
	if err != nil {
		return nil, err
	}
	poly := TransportCRC(a)
	withCRC, err := CRCEncode(tb, poly, 0)
	if err != nil {
		return nil, err
	}
	blocks, info, err := Segment(withCRC, cfg.BG)
	if err != nil {
		return nil, err
	}
	plans, err := plan(e.cache, info, cfg)
	if err != nil {
		return nil, err
	}

	out := make(Bits, cfg.G)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for r := range blocks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := plans[r]
			cw, err := p.code.Encoder.Encode(blocks[r])
			if err != nil {
				return fmt.Errorf("code block %d: %w", r, err)
			}
			e.opts.Metrics.blockEncoded()
			f, err := RateMatch(cw, p.rm)
			if err != nil {
				return fmt.Errorf("code block %d: %w", r, err)
			}
			copy(out[p.off:], f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lens := make([]int, len(plans))
	for r, p := range plans {
		lens[r] = p.rm.E
	}
	e.log.Debug("transport block encoded",
		"tbs", a, "crc", poly, "bg", info.BG, "zc", info.Zc, "blocks", info.C, "g", cfg.G, "rv", cfg.RV)
	return &EncodedTransportBlock{Bits: out, CRC: poly, Seg: info, E: lens, Config: cfg}, nil
}

// BlockResult reports the decoding of one code block.
type BlockResult struct {
	Converged      bool
	Iterations     int
	SyndromeWeight int
	// CRCFailed is the code block CRC outcome; always false when C == 1.
	CRCFailed bool
}

// DecodedTransportBlock is the receive-side result of one transport block.
// Payload is only trustworthy when CRCFailed is false.
type DecodedTransportBlock struct {
	Payload   Bits
	CRCFailed bool
	Blocks    []BlockResult
	Seg       SegmentationInfo
	// SoftBuffers holds each block's combined circular buffer, to be passed
	// back in on a retransmission.
	SoftBuffers []*SoftBuffer
}

// TransportDecoder mirrors TransportEncoder: rate recovery, optional HARQ
// combining, LDPC decoding, block CRC check, desegmentation and transport
// block CRC check.
type TransportDecoder struct {
	cache *MatrixCache
	opts  Options
	log   *log.Logger
}

// NewTransportDecoder returns a decoder over cache.
func NewTransportDecoder(cache *MatrixCache, opts Options) *TransportDecoder {
	opts.setDefaults()
	return &TransportDecoder{cache: cache, opts: opts, log: opts.Logger.Module("fec/decoder")}
}

// Decode recovers a transport block of tbs bits from cfg.G LLRs. harq, when
// non-nil, holds the soft buffers of earlier transmissions of the same block.
// A block that does not converge or fails its CRC is reported in the result;
// only malformed input or configuration returns an error.
func (d *TransportDecoder) Decode(ctx context.Context, llr []float64, tbs int, cfg TransportConfig, harq []*SoftBuffer) (*DecodedTransportBlock, error) {
	cfg, err := cfg.resolve(tbs)
	if err != nil {
		return nil, err
	}
	if len(llr) != cfg.G {
		return nil, fmt.Errorf("%w: %d LLRs, want G=%d", ErrLengthMismatch, len(llr), cfg.G)
	}
	poly := TransportCRC(tbs)
	info, err := GetSegmentationInfo(tbs+poly.Length(), cfg.BG)
	if err != nil {
		return nil, err
	}
	if harq != nil && len(harq) != info.C {
		return nil, fmt.Errorf("%w: %d HARQ buffers for %d code blocks", ErrLengthMismatch, len(harq), info.C)
	}
	plans, err := plan(d.cache, info, cfg)
	if err != nil {
		return nil, err
	}

	res := &DecodedTransportBlock{
		Blocks:      make([]BlockResult, info.C),
		Seg:         info,
		SoftBuffers: make([]*SoftBuffer, info.C),
	}
	blocks := make([]Bits, info.C)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)
	for r := range plans {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := plans[r]
			sb, err := RateRecover(llr[p.off:p.off+p.rm.E], p.rm)
			if err != nil {
				return fmt.Errorf("code block %d: %w", r, err)
			}
			if harq != nil {
				if err := sb.Combine(harq[r]); err != nil {
					return fmt.Errorf("code block %d: %w", r, err)
				}
			}
			res.SoftBuffers[r] = sb
			in, err := sb.DecoderLLRs(p.rm)
			if err != nil {
				return fmt.Errorf("code block %d: %w", r, err)
			}
			dec, err := p.code.AcquireDecoder(d.opts.Algorithm)
			if err != nil {
				return err
			}
			defer p.code.ReleaseDecoder(dec)
			out, err := dec.Decode(in, d.opts.MaxIterations)
			if err != nil {
				return fmt.Errorf("code block %d: %w", r, err)
			}
			d.opts.Metrics.blockDecoded(d.opts.Algorithm, out)
			res.Blocks[r] = BlockResult{
				Converged:      out.Converged,
				Iterations:     out.Iterations,
				SyndromeWeight: out.SyndromeWeight,
			}
			blocks[r], err = ExtractCodeBlock(out.Bits, p.rm.K, p.rm.Kd)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	withCRC, blockFailed, err := Desegment(blocks, info)
	if err != nil {
		return nil, err
	}
	failedBlocks := 0
	for r, failed := range blockFailed {
		res.Blocks[r].CRCFailed = failed
		if failed {
			failedBlocks++
			d.opts.Metrics.crcFailed("block")
		}
	}
	res.Payload, res.CRCFailed, err = CRCDecode(withCRC, poly, 0)
	if err != nil {
		return nil, err
	}
	if res.CRCFailed {
		d.opts.Metrics.crcFailed("transport")
	}
	d.opts.Metrics.transportDecoded(res.CRCFailed)
	d.log.Debug("transport block decoded",
		"tbs", tbs, "bg", info.BG, "zc", info.Zc, "blocks", info.C,
		"block_crc_failures", failedBlocks, "crc_failed", res.CRCFailed)
	return res, nil
}
