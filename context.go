package sparsenc

import (
	"math/rand"

	"github.com/derekoutis/sparsenc/galois"
)

// codeContext is the code-structure state shared by an encoder and every
// decoder reconstructing the same session: the resolved parameters, the
// Galois field, the precode graph (if any), and the generation/batch
// assignment. It holds no packet data, only the structural layout that is
// reproducible purely from Parameters.Seed.
type codeContext struct {
	Params resolved
	Field  *galois.Field
	Graph  *precodeGraph // nil when cnum == 0
	Gens   []generation  // nil for BATS/RAPTOR
	Batch  *batchPool    // non-nil only for BATS/RAPTOR
}

// newCodeContext resolves params, seeds a PRNG from params.Seed, and
// reconstructs the precode graph and generation layout. Calling this twice
// with the same Parameters (same Seed) always yields the same graph and
// generations, which is how decoders avoid needing the encoder to transmit
// them (spec.md section 4.2).
func newCodeContext(p Parameters) (*codeContext, error) {
	r, err := p.resolve()
	if err != nil {
		return nil, err
	}
	field, err := galois.ConstructField(r.GFPower)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(r.Seed))

	cc := &codeContext{Params: r, Field: field}
	if r.cnum > 0 {
		cc.Graph = newPrecodeGraph(r.snum, r.cnum, r.BPC, hdpcPrecode(), field, rng)
	}
	M := r.snum + r.cnum
	switch r.Type {
	case BAND:
		cc.Gens = groupBand(M, r.SizeB, r.SizeG, r.gnum)
	case WINDWRAP:
		cc.Gens = groupWindwrap(M, r.SizeB, r.SizeG, r.gnum)
	case RAND:
		if pseudorandGrouping() {
			cc.Gens = groupPseudorand(M, r.SizeB, r.SizeG, r.gnum)
		} else {
			cc.Gens = groupRand(M, r.SizeB, r.SizeG, r.gnum, rng)
		}
	case BATS, RAPTOR:
		cc.Batch = newBatchPool(r.SizeG, M, rng)
	}
	return cc, nil
}

// generation returns the gid-th generation, resolving BATS/RAPTOR's lazily
// allocated batches transparently.
func (cc *codeContext) generation(gid int) generation {
	if cc.Batch != nil {
		return cc.Batch.get(gid)
	}
	return cc.Gens[gid]
}

// M is the total packet count snum+cnum.
func (cc *codeContext) M() int {
	return cc.Params.snum + cc.Params.cnum
}

// combineSymsRegion computes dst ^= co*src over a size_p-byte payload,
// splitting between the byte-granular fast path (gfpower in {1,8}, spec.md
// section 4.1) and the bit-packed galois2n path used for intermediate
// widths. Free function (not a codeContext method) because newPrecodeGraph's
// computeParity has no codeContext yet when it computes parity symbols.
func combineSymsRegion(field *galois.Field, dst, src []byte, co byte, sizeP, gfpower int) {
	if gfpower == 1 || gfpower == 8 {
		field.MultiplyAddRegion(dst, src, co, sizeP)
		return
	}
	nelem := (sizeP*8 + gfpower - 1) / gfpower
	field.Multiply2NAddRegion(dst, src, co, nelem)
}

// scaleSymsRegion computes dst = co*dst over a size_p-byte payload, the
// multiply-only counterpart of combineSymsRegion used to normalize a pivot
// row's symbol payload to a unit leading coefficient.
func scaleSymsRegion(field *galois.Field, dst []byte, co byte, sizeP, gfpower int) {
	if gfpower == 1 || gfpower == 8 {
		field.MultiplyRegion(dst, co, sizeP)
		return
	}
	nelem := (sizeP*8 + gfpower - 1) / gfpower
	field.Multiply2NRegion(dst, co, nelem)
}

// combineSyms computes dst ^= co*src over a size_p-byte payload. Every
// decoder must route its symbol-payload combining through this (or
// scaleSyms below) rather than calling the galois region kernels directly:
// at gfpower in {2..7} a syms byte is several bit-packed field elements, not
// one, and the plain byte-granular kernel would index its log table out of
// range on valid input.
func (cc *codeContext) combineSyms(dst, src []byte, co byte) {
	combineSymsRegion(cc.Field, dst, src, co, cc.Params.SizeP, cc.Params.GFPower)
}

// scaleSyms computes dst = co*dst over a size_p-byte payload; see combineSyms.
func (cc *codeContext) scaleSyms(dst []byte, co byte) {
	scaleSymsRegion(cc.Field, dst, co, cc.Params.SizeP, cc.Params.GFPower)
}

// combineCoes computes dst ^= co*src over a size_g-element coefficient
// vector, using the same byte-granular/bit-packed split as combineSyms: at
// gfpower 1 or 8 the bit-packed coes array IS byte-addressable (1 bit or 8
// bits per element respectively), so a scalar multiply commutes with the
// byte view and the fast region kernel applies directly.
func (cc *codeContext) combineCoes(dst, src []byte, co byte) {
	gfpower := cc.Params.GFPower
	if gfpower == 1 || gfpower == 8 {
		cc.Field.MultiplyAddRegion(dst, src, co, len(dst))
		return
	}
	cc.Field.Multiply2NAddRegion(dst, src, co, cc.Params.SizeG)
}

// newPacketArray allocates the pp[0..pktnum) array, zeroed.
func newPacketArray(r resolved) [][]byte {
	pp := make([][]byte, r.snum+r.cnum)
	for i := range pp {
		pp[i] = make([]byte, r.SizeP)
	}
	return pp
}
