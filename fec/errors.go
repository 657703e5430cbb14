package fec

import "errors"

// Configuration errors and malformed input. Decoder non-convergence and CRC
// mismatch are reported through result fields instead.
var (
	ErrInvalidLiftingSize       = errors.New("fec: lifting size not in any lifting set")
	ErrInvalidBaseGraph         = errors.New("fec: base graph must be 1 or 2")
	ErrInvalidPolynomial        = errors.New("fec: unknown CRC polynomial")
	ErrInvalidRedundancyVersion = errors.New("fec: redundancy version must be in 0..3")
	ErrInvalidModulationOrder   = errors.New("fec: invalid modulation order")
	ErrNonBinary                = errors.New("fec: non-binary value in bit vector")
	ErrLengthMismatch           = errors.New("fec: length mismatch")
	ErrInvalidTable             = errors.New("fec: malformed base graph table")
	ErrInvalidParameter         = errors.New("fec: invalid parameter")
)
