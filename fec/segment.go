package fec

import "fmt"

// blockCRCLength is the size of the CRC24B attached to each code block of a
// segmented transport block.
const blockCRCLength = 24

// SegmentationInfo describes how B bits (transport block plus its CRC) are cut
// into C code blocks of common length K.
//
// B need not be a multiple of C: the first Extra blocks carry CBZ+1 payload
// bits and the rest CBZ, so per-block filler differs by at most one bit.
type SegmentationInfo struct {
	B  int
	BG BaseGraph
	// C is the number of code blocks.
	C int
	// CBZ is the payload size of the smaller blocks, B/C.
	CBZ int
	// Extra is the number of leading blocks with CBZ+1 payload bits.
	Extra int
	// L is the per-block CRC length, 0 when C == 1.
	L int
	// Kb is the number of systematic base-graph columns used for Zc selection.
	Kb int
	// Kd is the largest per-block payload plus CRC, ceil((B+C*L)/C).
	Kd int
	// F is the filler count of the largest block, K-Kd.
	F  int
	K  int
	Zc int
}

// GetSegmentationInfo computes the segmentation parameters for B bits.
func GetSegmentationInfo(b int, bg BaseGraph) (SegmentationInfo, error) {
	if err := bg.check(); err != nil {
		return SegmentationInfo{}, err
	}
	if b <= 0 {
		return SegmentationInfo{}, fmt.Errorf("%w: B=%d", ErrInvalidParameter, b)
	}
	info := SegmentationInfo{B: b, BG: bg, C: 1}
	kcb := bg.MaxCodeBlockSize()
	if b > kcb {
		info.L = blockCRCLength
		info.C = (b + kcb - blockCRCLength - 1) / (kcb - blockCRCLength)
	}
	info.CBZ = b / info.C
	info.Extra = b % info.C
	bd := b + info.C*info.L
	info.Kd = (bd + info.C - 1) / info.C

	info.Kb = bg.InfoCols()
	if bg == BG2 {
		switch {
		case b > 640:
			info.Kb = 10
		case b > 560:
			info.Kb = 9
		case b > 192:
			info.Kb = 8
		default:
			info.Kb = 6
		}
	}
	zc, err := smallestLiftingSize(info.Kb, info.Kd)
	if err != nil {
		return SegmentationInfo{}, err
	}
	info.Zc = zc
	info.K = bg.InfoCols() * zc
	info.F = info.K - info.Kd
	return info, nil
}

// PayloadBits returns the number of transport-block bits carried by block r.
func (s SegmentationInfo) PayloadBits(r int) int {
	if r < s.Extra {
		return s.CBZ + 1
	}
	return s.CBZ
}

// BlockKd returns the index of the first filler bit of block r.
func (s SegmentationInfo) BlockKd(r int) int {
	return s.PayloadBits(r) + s.L
}

// payloadOffset returns the position of block r's first bit in the input.
func (s SegmentationInfo) payloadOffset(r int) int {
	if r < s.Extra {
		return r * (s.CBZ + 1)
	}
	return s.Extra*(s.CBZ+1) + (r-s.Extra)*s.CBZ
}

// Segment splits payload (transport block plus CRC) into code blocks of K
// bits: the block's share of the payload, its CRC24B when C > 1, then filler.
func Segment(payload Bits, bg BaseGraph) ([]Bits, SegmentationInfo, error) {
	if err := payload.checkBinary(); err != nil {
		return nil, SegmentationInfo{}, err
	}
	info, err := GetSegmentationInfo(len(payload), bg)
	if err != nil {
		return nil, SegmentationInfo{}, err
	}
	blocks := make([]Bits, info.C)
	for r := range blocks {
		off := info.payloadOffset(r)
		chunk := payload[off : off+info.PayloadBits(r)]
		if info.L > 0 {
			chunk, err = CRCEncode(chunk, CRC24B, 0)
			if err != nil {
				return nil, SegmentationInfo{}, err
			}
		}
		cb := make(Bits, info.K)
		copy(cb, chunk)
		for i := len(chunk); i < info.K; i++ {
			cb[i] = Filler
		}
		blocks[r] = cb
	}
	return blocks, info, nil
}

// Desegment reassembles the payload from decoded code blocks. Filler
// positions are ignored. When C > 1 each block CRC is checked and
// crcFailed[r] reports a mismatch; reassembly continues regardless.
func Desegment(blocks []Bits, info SegmentationInfo) (payload Bits, crcFailed []bool, err error) {
	if len(blocks) != info.C {
		return nil, nil, fmt.Errorf("%w: %d code blocks, want %d", ErrLengthMismatch, len(blocks), info.C)
	}
	payload = make(Bits, 0, info.B)
	crcFailed = make([]bool, info.C)
	for r, cb := range blocks {
		if len(cb) != info.K {
			return nil, nil, fmt.Errorf("%w: code block %d has %d bits, want K=%d", ErrLengthMismatch, r, len(cb), info.K)
		}
		kd := info.BlockKd(r)
		data := cb[:kd].Clone()
		for i, b := range data {
			if b == Filler {
				data[i] = Zero
			}
		}
		if info.L > 0 {
			var failed bool
			data, failed, err = CRCDecode(data, CRC24B, 0)
			if err != nil {
				return nil, nil, fmt.Errorf("code block %d: %w", r, err)
			}
			crcFailed[r] = failed
		}
		payload = append(payload, data...)
	}
	return payload, crcFailed, nil
}
