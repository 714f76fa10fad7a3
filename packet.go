package sparsenc

import (
	"encoding/binary"
	"fmt"
)

// Packet is the logical coded packet of spec.md section 3/6.
//
//	(Ucid == -1 && Gid >= 0)  <-> a linear combination of generation Gid.
//	(Gid == -1 && Ucid >= 0)  <-> a systematic (uncoded) source packet Ucid.
//
// Coes is bit-packed at gfpower not in {1,8}; callers must not assume one
// byte per coefficient except at gfpower==8.
type Packet struct {
	Gid  int32
	Ucid int32
	Coes []byte // len = ceil(size_g*gfpower/8)
	Syms []byte // len = size_p
}

// newEmptyPacket allocates a zeroed packet sized for the given parameters,
// mirroring snc_alloc_empty_packet.
func newEmptyPacket(r resolved) *Packet {
	return &Packet{
		Gid:  -1,
		Ucid: -1,
		Coes: make([]byte, coesLen(r.SizeG, r.GFPower)),
		Syms: make([]byte, r.SizeP),
	}
}

func coesLen(sizeG, gfpower int) int {
	return (sizeG*gfpower + 7) / 8
}

// Clone makes an independent copy of the packet, mirroring
// snc_duplicate_packet: ownership of the clone belongs wholly to the
// caller.
func (p *Packet) Clone() *Packet {
	c := &Packet{Gid: p.Gid, Ucid: p.Ucid}
	c.Coes = append([]byte(nil), p.Coes...)
	c.Syms = append([]byte(nil), p.Syms...)
	return c
}

// wireFieldLens computes the gid/ucid/coes/sym field lengths for the wire
// layout of spec.md section 6, given the resolved parameters.
func wireFieldLens(r resolved) (gidLen, ucidLen, cesLen, symLen int) {
	pktnum := r.snum + r.cnum
	singleGenNonSys := r.SizeG == pktnum && r.SizeB == r.SizeG && !r.Sys
	if !singleGenNonSys {
		gidLen = 4
	}
	if r.Sys {
		ucidLen = 4
	}
	cesLen = coesLen(r.SizeG, r.GFPower)
	symLen = r.SizeP
	return
}

// PacketWireLength returns the serialized length in bytes of a Packet under
// the given parameters (spec.md section 6's table).
func PacketWireLength(p Parameters) (int, error) {
	r, err := p.resolve()
	if err != nil {
		return 0, err
	}
	gidLen, ucidLen, cesLen, symLen := wireFieldLens(r)
	return gidLen + ucidLen + cesLen + symLen, nil
}

// Serialize encodes pkt to the logical wire layout of spec.md section 6.
func (p *Packet) Serialize(params Parameters) ([]byte, error) {
	r, err := params.resolve()
	if err != nil {
		return nil, err
	}
	gidLen, ucidLen, cesLen, symLen := wireFieldLens(r)
	if len(p.Coes) != cesLen || len(p.Syms) != symLen {
		return nil, fmt.Errorf("%w: coes/syms length mismatch for params", ErrInvalidPacket)
	}
	buf := make([]byte, gidLen+ucidLen+cesLen+symLen)
	off := 0
	if gidLen == 4 {
		binary.LittleEndian.PutUint32(buf[off:], uint32(p.Gid))
		off += 4
	}
	if ucidLen == 4 {
		binary.LittleEndian.PutUint32(buf[off:], uint32(p.Ucid))
		off += 4
	}
	copy(buf[off:off+cesLen], p.Coes)
	off += cesLen
	copy(buf[off:off+symLen], p.Syms)
	return buf, nil
}

// DeserializePacket decodes a wire-format packet produced by Serialize.
func DeserializePacket(buf []byte, params Parameters) (*Packet, error) {
	r, err := params.resolve()
	if err != nil {
		return nil, err
	}
	gidLen, ucidLen, cesLen, symLen := wireFieldLens(r)
	want := gidLen + ucidLen + cesLen + symLen
	if len(buf) != want {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidPacket, want, len(buf))
	}
	pkt := &Packet{Gid: -1, Ucid: -1}
	if gidLen == 0 {
		pkt.Gid = 0 // single-generation non-systematic code: gid is implicit
	}
	off := 0
	if gidLen == 4 {
		pkt.Gid = int32(binary.LittleEndian.Uint32(buf[off:]))
		off += 4
	}
	if ucidLen == 4 {
		pkt.Ucid = int32(binary.LittleEndian.Uint32(buf[off:]))
		off += 4
	}
	pkt.Coes = append([]byte(nil), buf[off:off+cesLen]...)
	off += cesLen
	pkt.Syms = append([]byte(nil), buf[off:off+symLen]...)
	return pkt, nil
}

// IsSystematic reports whether the packet is an uncoded source shortcut
// (Gid == -1, Ucid >= 0).
func (p *Packet) IsSystematic() bool {
	return p.Gid == -1 && p.Ucid >= 0
}

// validate checks the structural invariants of spec.md section 7's
// InvalidPacket condition: gid out of range, or missing coes/syms.
func (p *Packet) validate(r resolved) error {
	if p.Coes == nil || p.Syms == nil {
		logWarn("rejecting packet: missing coes/syms")
		return fmt.Errorf("%w: missing coes/syms", ErrInvalidPacket)
	}
	if p.IsSystematic() {
		if int(p.Ucid) >= r.snum {
			logWarn("rejecting packet: ucid %d out of range (snum=%d)", p.Ucid, r.snum)
			return fmt.Errorf("%w: ucid %d out of range", ErrInvalidPacket, p.Ucid)
		}
		return nil
	}
	if p.Gid < 0 {
		logWarn("rejecting packet: gid %d out of range", p.Gid)
		return fmt.Errorf("%w: gid %d out of range", ErrInvalidPacket, p.Gid)
	}
	if r.gnum > 0 && int(p.Gid) >= r.gnum {
		logWarn("rejecting packet: gid %d out of range (gnum=%d)", p.Gid, r.gnum)
		return fmt.Errorf("%w: gid %d out of range (gnum=%d)", ErrInvalidPacket, p.Gid, r.gnum)
	}
	if len(p.Syms) != r.SizeP {
		logWarn("rejecting packet: syms length %d != size_p %d", len(p.Syms), r.SizeP)
		return fmt.Errorf("%w: syms length %d != size_p %d", ErrInvalidPacket, len(p.Syms), r.SizeP)
	}
	return nil
}
