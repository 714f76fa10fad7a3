package sparsenc

import (
	"math/rand"
	"testing"
)

// TestGroupBandMembershipUnique checks spec.md section 8 property 4: no
// generation repeats a packet index.
func TestGroupBandMembershipUnique(t *testing.T) {
	M, sizeB, sizeG, gnum := 40, 4, 10, 9
	gens := groupBand(M, sizeB, sizeG, gnum)
	for _, g := range gens {
		seen := make(map[int]bool)
		for _, id := range g.PktID {
			if seen[id] {
				t.Fatalf("gid %d repeats packet %d", g.Gid, id)
			}
			seen[id] = true
			if id < 0 || id >= M {
				t.Fatalf("gid %d: packet %d out of range [0,%d)", g.Gid, id, M)
			}
		}
	}
}

// TestGroupBandCoversEveryPacket checks spec.md section 8 property 3: every
// packet index belongs to at least one generation.
func TestGroupBandCoversEveryPacket(t *testing.T) {
	M, sizeB, sizeG, gnum := 37, 5, 12, 8
	gens := groupBand(M, sizeB, sizeG, gnum)
	cov := coverage(gens, M)
	for i, c := range cov {
		if c == 0 {
			t.Fatalf("packet %d not covered by any generation", i)
		}
	}
}

func TestGroupWindwrapWrapsAround(t *testing.T) {
	M, sizeB, sizeG, gnum := 20, 6, 8, 4
	gens := groupWindwrap(M, sizeB, sizeG, gnum)
	last := gens[gnum-1]
	for _, id := range last.PktID {
		if id < 0 || id >= M {
			t.Fatalf("windwrap produced out-of-range id %d", id)
		}
	}
}

func TestGroupRandMembershipUnique(t *testing.T) {
	M, sizeB, sizeG, gnum := 50, 5, 15, 10
	rng := rand.New(rand.NewSource(99))
	gens := groupRand(M, sizeB, sizeG, gnum, rng)
	for _, g := range gens {
		seen := make(map[int]bool)
		for _, id := range g.PktID {
			if seen[id] {
				t.Fatalf("gid %d repeats packet %d", g.Gid, id)
			}
			seen[id] = true
		}
		if len(g.PktID) != sizeG {
			t.Fatalf("gid %d: want %d members, got %d", g.Gid, sizeG, len(g.PktID))
		}
	}
}

// TestGroupRandReproducibleFromSeed checks spec.md section 4.2: the same
// seed always yields the same generation layout, letting a decoder
// reconstruct it independently.
func TestGroupRandReproducibleFromSeed(t *testing.T) {
	M, sizeB, sizeG, gnum := 50, 5, 15, 10
	r1 := rand.New(rand.NewSource(123))
	r2 := rand.New(rand.NewSource(123))
	a := groupRand(M, sizeB, sizeG, gnum, r1)
	b := groupRand(M, sizeB, sizeG, gnum, r2)
	for i := range a {
		for j := range a[i].PktID {
			if a[i].PktID[j] != b[i].PktID[j] {
				t.Fatalf("gid %d slot %d: %d != %d", i, j, a[i].PktID[j], b[i].PktID[j])
			}
		}
	}
}

func TestBandedNonuniformScheduleStaysInRange(t *testing.T) {
	gnum, sizeG, M := 10, 6, 40
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 500; i++ {
		gid := bandedNonuniformSchedule(gnum, rng, sizeG, M)
		if gid < 0 || gid >= gnum {
			t.Fatalf("schedule out of range: %d", gid)
		}
	}
}

func TestBatchPoolGrowsOnDemand(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bp := newBatchPool(8, 100, rng)
	g := bp.get(BALLOC + 3) // forces a grow beyond the initial allocation
	if len(g.PktID) != 8 {
		t.Fatalf("want size_g=8 members, got %d", len(g.PktID))
	}
	if g.Gid != BALLOC+3 {
		t.Fatalf("want gid=%d, got %d", BALLOC+3, g.Gid)
	}
}
