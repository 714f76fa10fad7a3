package sparsenc

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// CodeType selects the generation-grouping scheme, spec.md section 4.3.
type CodeType int

const (
	RAND CodeType = iota
	BAND
	WINDWRAP
	BATS
	RAPTOR
)

func (t CodeType) String() string {
	switch t {
	case RAND:
		return "RAND"
	case BAND:
		return "BAND"
	case WINDWRAP:
		return "WINDWRAP"
	case BATS:
		return "BATS"
	case RAPTOR:
		return "RAPTOR"
	default:
		return "UNKNOWN"
	}
}

// BALLOC is the number of batch pointers allocated at a time for BATS/RAPTOR
// grouping, mirroring the C source's extern int BALLOC.
const BALLOC = 32

// Parameters is the immutable configuration surface of spec.md section 6.
// Once an encoding session begins (NewEncoderContext), a Parameters value is
// never mutated; seed/gfpower are resolved at context-creation time exactly
// like snc_create_enc_context resolves sp->seed and sp->gfpower.
type Parameters struct {
	DataSize int // datasize: total bytes to encode
	SizeP    int // size_p: payload bytes per packet
	SizeC    int // size_c: number of parity-check packets
	SizeB    int // size_b: base size / stride
	SizeG    int // size_g: generation size
	Type     CodeType
	GFPower  int   // gfpower in [1,8]
	BPC      bool  // binary precode coefficients
	Sys      bool  // systematic shortcut
	Seed     int64 // -1 derives from the clock
}

// resolveGFPower applies the GF_POWER environment override used for
// experimentation (clamped to <= 8), matching snc_get_GF_power.
func resolveGFPower(power int) int {
	if v := os.Getenv("GF_POWER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			if n > 8 {
				n = 8
			}
			return n
		}
	}
	return power
}

// nonuniformScheduling reports whether SNC_NONUNIFORM_RAND=1 is set.
func nonuniformScheduling() bool {
	return os.Getenv("SNC_NONUNIFORM_RAND") == "1"
}

// hdpcPrecode reports whether SNC_PRECODE=HDPC is set.
func hdpcPrecode() bool {
	return os.Getenv("SNC_PRECODE") == "HDPC"
}

// pseudorandGrouping reports whether SNC_PSEUDORAND=1 is set, switching
// RAND-type grouping from PRNG-filled slots to the deterministic
// group_packets_pseudorand scheme (spec.md section 12).
func pseudorandGrouping() bool {
	return os.Getenv("SNC_PSEUDORAND") == "1"
}

// resolved is a Parameters copy with derived fields (seed resolution, GF
// power override, source/parity/generation counts) filled in.
type resolved struct {
	Parameters
	snum, cnum, gnum int
}

// resolve validates p and computes derived counts (spec.md section 3).
// gnum is -1 for BATS/RAPTOR, where generations are allocated lazily.
func (p Parameters) resolve() (resolved, error) {
	out := resolved{Parameters: p}
	out.GFPower = resolveGFPower(p.GFPower)

	if out.GFPower < 1 || out.GFPower > 8 {
		return out, fmt.Errorf("%w: gfpower=%d must be in [1,8]", ErrInvalidParameter, out.GFPower)
	}
	if out.DataSize <= 0 || out.SizeP <= 0 {
		return out, fmt.Errorf("%w: datasize=%d size_p=%d must be positive", ErrInvalidParameter, out.DataSize, out.SizeP)
	}
	if out.SizeC < 0 {
		return out, fmt.Errorf("%w: size_c=%d must be >= 0", ErrInvalidParameter, out.SizeC)
	}
	if out.Type != BATS && out.Type != RAPTOR && out.SizeB > out.SizeG {
		return out, fmt.Errorf("%w: size_b=%d > size_g=%d", ErrInvalidParameter, out.SizeB, out.SizeG)
	}
	if out.SizeG <= 0 || out.SizeB <= 0 {
		return out, fmt.Errorf("%w: size_b=%d size_g=%d must be positive", ErrInvalidParameter, out.SizeB, out.SizeG)
	}
	// galois2n_multiply_add_region precondition (spec.md section 9, open
	// question 3): size_p*8 must be a multiple of gfpower when elements are
	// bit-packed (gfpower not in {1,8}).
	if out.GFPower != 1 && out.GFPower != 8 && (out.SizeP*8)%out.GFPower != 0 {
		return out, fmt.Errorf("%w: size_p*8=%d not a multiple of gfpower=%d", ErrInvalidParameter, out.SizeP*8, out.GFPower)
	}

	out.snum = ceilDiv(out.DataSize, out.SizeP)
	out.cnum = out.SizeC

	M := out.snum + out.cnum
	switch out.Type {
	case BAND:
		out.gnum = ceilDiv(M-out.SizeG, out.SizeB) + 1
	case RAND, WINDWRAP:
		out.gnum = ceilDiv(M, out.SizeB)
	case BATS, RAPTOR:
		out.gnum = -1
	default:
		return out, fmt.Errorf("%w: unknown code type %v", ErrInvalidParameter, out.Type)
	}

	// PSEUDORAND constraint from spec.md section 9's open question: magicX =
	// min(7, size_b + gnum - size_g) must not go negative. magicX is only
	// computed by groupPseudorand (gated behind SNC_PSEUDORAND=1); the
	// default RAND grouping (groupRand) never uses it, so this must not
	// reject ordinary RAND sessions such as spec.md section 8's S2/S3.
	if out.Type == RAND && out.gnum > 0 && pseudorandGrouping() {
		if out.SizeB+out.gnum < out.SizeG+1 {
			return out, fmt.Errorf("%w: size_b+gnum < size_g+1 (magicX would be negative)", ErrInvalidParameter)
		}
	}

	if out.Seed == -1 {
		out.Seed = time.Now().UnixNano()
	}
	return out, nil
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
