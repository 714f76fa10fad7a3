package sparsenc

import (
	"math/rand"
	"testing"
)

// TestPacketSerializeRoundTrip checks spec.md section 8 property 6: a
// packet's wire encoding decodes back to an identical packet.
func TestPacketSerializeRoundTrip(t *testing.T) {
	cases := []Parameters{
		{DataSize: 1000, SizeP: 100, SizeC: 4, SizeB: 3, SizeG: 6, Type: BAND, GFPower: 8, Seed: 1},
		{DataSize: 1000, SizeP: 100, SizeC: 0, SizeB: 5, SizeG: 5, Type: RAND, GFPower: 4, Seed: 2},
		{DataSize: 1000, SizeP: 104, SizeC: 2, SizeB: 4, SizeG: 8, Type: WINDWRAP, GFPower: 1, Seed: 3, Sys: true},
	}
	for ci, p := range cases {
		r, err := p.resolve()
		if err != nil {
			t.Fatalf("case %d: resolve: %v", ci, err)
		}
		rng := rand.New(rand.NewSource(int64(ci)))

		pkt := newEmptyPacket(r)
		pkt.Gid = 2
		pkt.Ucid = -1
		rng.Read(pkt.Coes)
		rng.Read(pkt.Syms)

		buf, err := pkt.Serialize(p)
		if err != nil {
			t.Fatalf("case %d: Serialize: %v", ci, err)
		}
		got, err := DeserializePacket(buf, p)
		if err != nil {
			t.Fatalf("case %d: DeserializePacket: %v", ci, err)
		}
		if got.Gid != pkt.Gid || got.Ucid != pkt.Ucid {
			t.Fatalf("case %d: gid/ucid mismatch: got %d/%d want %d/%d", ci, got.Gid, got.Ucid, pkt.Gid, pkt.Ucid)
		}
		for i := range pkt.Coes {
			if got.Coes[i] != pkt.Coes[i] {
				t.Fatalf("case %d: coes[%d] mismatch", ci, i)
			}
		}
		for i := range pkt.Syms {
			if got.Syms[i] != pkt.Syms[i] {
				t.Fatalf("case %d: syms[%d] mismatch", ci, i)
			}
		}
	}
}

func TestDeserializePacketRejectsWrongLength(t *testing.T) {
	p := Parameters{DataSize: 1000, SizeP: 100, SizeC: 0, SizeB: 5, SizeG: 5, Type: RAND, GFPower: 8, Seed: 1}
	if _, err := DeserializePacket([]byte{1, 2, 3}, p); err == nil {
		t.Fatal("expected an error for a too-short buffer")
	}
}

func TestIsSystematic(t *testing.T) {
	pkt := &Packet{Gid: -1, Ucid: 4}
	if !pkt.IsSystematic() {
		t.Fatal("expected IsSystematic true")
	}
	pkt2 := &Packet{Gid: 2, Ucid: -1}
	if pkt2.IsSystematic() {
		t.Fatal("expected IsSystematic false")
	}
}

func TestSingleGenerationNonSystematicOmitsGid(t *testing.T) {
	// spec.md section 6: when size_g == pktnum, size_b == size_g, and the
	// session isn't systematic, gid is implicit and not carried on the wire.
	p := Parameters{DataSize: 500, SizeP: 100, SizeC: 0, SizeB: 5, SizeG: 5, Type: RAND, GFPower: 8, Seed: 1}
	n, err := PacketWireLength(p)
	if err != nil {
		t.Fatal(err)
	}
	wantCes := coesLen(5, 8)
	if n != wantCes+100 {
		t.Fatalf("want %d (no gid field), got %d", wantCes+100, n)
	}
}
