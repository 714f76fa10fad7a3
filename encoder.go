package sparsenc

import (
	"fmt"
	"math/rand"
)

// EncoderContext holds the source-plus-parity array, the code structure,
// and the emission counters of spec.md section 4.4. It owns pp, gene[] (via
// codeContext) and the precode graph for its entire lifetime; packets it
// emits are handed off (moved) to the caller.
type EncoderContext struct {
	cc    *codeContext
	pp    [][]byte
	count int
	rng   *rand.Rand

	// BATS/RAPTOR-only state, unused otherwise (kept out of the shared
	// codeContext per the REDESIGN FLAGS sum-type note in SPEC_FULL.md).
	currbid int
	batsent int
}

// NewEncoderContext creates an encoder for buf, which must contain at most
// p.DataSize bytes; shorter input is zero-padded to a whole number of
// size_p-byte packets, mirroring snc_create_enc_context's buf-loading path.
func NewEncoderContext(buf []byte, p Parameters) (*EncoderContext, error) {
	cc, err := newCodeContext(p)
	if err != nil {
		return nil, err
	}
	r := cc.Params
	if len(buf) > r.DataSize {
		return nil, fmt.Errorf("%w: buf longer than datasize", ErrInvalidParameter)
	}
	pp := newPacketArray(r)
	copied := 0
	for i := 0; i < r.snum; i++ {
		remaining := len(buf) - copied
		if remaining <= 0 {
			break
		}
		n := r.SizeP
		if n > remaining {
			n = remaining
		}
		copy(pp[i], buf[copied:copied+n])
		copied += n
	}
	if cc.Graph != nil {
		cc.Graph.computeParity(cc.Field, pp, r.SizeP, r.GFPower)
	}
	return &EncoderContext{
		cc:      cc,
		pp:      pp,
		rng:     rand.New(rand.NewSource(r.Seed + 1)),
		currbid: -1,
	}, nil
}

// Emit produces the next coded (or, under the systematic shortcut,
// uncoded) packet. Ownership of the returned packet transfers to the
// caller.
func (ec *EncoderContext) Emit() (*Packet, error) {
	r := ec.cc.Params

	if r.Sys && ec.count < r.snum {
		pkt := newEmptyPacket(r)
		copy(pkt.Syms, ec.pp[ec.count])
		pkt.Gid = -1
		pkt.Ucid = int32(ec.count)
		ec.count++
		return pkt, nil
	}

	var gen generation
	switch r.Type {
	case RAND, BAND, WINDWRAP:
		gid := scheduleGeneration(r.gnum, ec.rng, nonuniformScheduling() && r.Type == BAND, r.SizeG, ec.cc.M())
		gen = ec.cc.Gens[gid]
	case BATS, RAPTOR:
		if ec.currbid == -1 || ec.batsent >= r.SizeB {
			ec.currbid++
			ec.batsent = 0
		}
		gen = ec.cc.Batch.get(ec.currbid)
		ec.batsent++
	default:
		return nil, fmt.Errorf("%w: unknown code type %v", ErrInvalidParameter, r.Type)
	}

	pkt := newEmptyPacket(r)
	pkt.Gid = int32(gen.Gid)
	pkt.Ucid = -1
	ec.encodeFromGeneration(gen, pkt)
	ec.count++
	return pkt, nil
}

// encodeFromGeneration draws a random coefficient per generation slot and
// accumulates syms = sum coes[i]*pp[pktid[i]], mirroring encode_packet.
func (ec *EncoderContext) encodeFromGeneration(gen generation, pkt *Packet) {
	r := ec.cc.Params
	field := ec.cc.Field
	gfpower := r.GFPower
	fieldSize := 1 << uint(gfpower)

	for i, pktid := range gen.PktID {
		co := byte(ec.rng.Intn(fieldSize))
		field.PackBits(pkt.Coes, co, i)
		ec.cc.combineSyms(pkt.Syms, ec.pp[pktid], co)
	}
}

// Count is the number of packets emitted so far.
func (ec *EncoderContext) Count() int { return ec.count }

// SourceCount is snum, the number of source packets.
func (ec *EncoderContext) SourceCount() int { return ec.cc.Params.snum }

// Parameters returns the resolved configuration (seed filled in).
func (ec *EncoderContext) Parameters() Parameters { return ec.cc.Params.Parameters }

// Summary renders a print_code_summary-style one-line description. This is
// explicitly a collaborator, not core behavior (spec.md section 1): the
// core never prints and never calls this itself.
func (ec *EncoderContext) Summary() string {
	r := ec.cc.Params
	precode := "NoPrecode"
	if r.SizeC > 0 {
		switch {
		case r.BPC && hdpcPrecode():
			precode = "BinaryHDPC"
		case r.BPC:
			precode = "BinaryLDPC"
		case hdpcPrecode():
			precode = "NonBinaryHDPC"
		default:
			precode = "NonBinaryLDPC"
		}
	}
	sys := "NonSystematic"
	if r.Sys {
		sys = "Systematic"
	}
	gnum := r.gnum
	if r.Type == BATS || r.Type == RAPTOR {
		gnum = ec.currbid + 1
	}
	return fmt.Sprintf(
		"datasize: %d size_p: %d snum: %d size_c: %d size_b: %d size_g: %d type: [%s::GF(2^%d)::%s::%s] gnum: %d",
		r.DataSize, r.SizeP, r.snum, r.SizeC, r.SizeB, r.SizeG, r.Type, r.GFPower, precode, sys, gnum,
	)
}

// recoverData reassembles the original byte stream from a fully solved pp
// array, mirroring snc_recover_data.
func recoverData(pp [][]byte, r resolved) []byte {
	data := make([]byte, r.DataSize)
	written := 0
	for i := 0; written < r.DataSize; i++ {
		n := r.SizeP
		if written+n > r.DataSize {
			n = r.DataSize - written
		}
		copy(data[written:written+n], pp[i])
		written += n
	}
	return data
}
