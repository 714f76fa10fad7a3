package sparsenc

import "math/rand"

// generation is a subset record, spec.md section 3: {gid, pktid[size_g]}.
// Membership (the PktID slice) must be unique within a generation.
type generation struct {
	Gid   int
	PktID []int
}

// hasItem reports whether target already appears in pktid[:upto], mirroring
// has_item's linear scan used while filling a generation incrementally.
func hasItem(pktid []int, target, upto int) bool {
	for i := 0; i < upto; i++ {
		if pktid[i] == target {
			return true
		}
	}
	return false
}

// groupBand implements group_packets_band: generation i selects
// [leading_i, leading_i+size_g), where leading_i = min(i*size_b, M-size_g).
// Consecutive generations overlap by exactly size_g-size_b packets.
func groupBand(M, sizeB, sizeG, gnum int) []generation {
	gens := make([]generation, gnum)
	for i := 0; i < gnum; i++ {
		leading := i * sizeB
		if leading > M-sizeG {
			leading = M - sizeG
		}
		pktid := make([]int, sizeG)
		for j := 0; j < sizeG; j++ {
			pktid[j] = leading + j
		}
		gens[i] = generation{Gid: i, PktID: pktid}
	}
	return gens
}

// groupWindwrap implements group_packets_windwrap: generation i selects
// {(i*size_b+j) mod M : j < size_g}, wrapping around the packet array.
func groupWindwrap(M, sizeB, sizeG, gnum int) []generation {
	gens := make([]generation, gnum)
	for i := 0; i < gnum; i++ {
		leading := i * sizeB
		pktid := make([]int, sizeG)
		for j := 0; j < sizeG; j++ {
			pktid[j] = (leading + j) % M
		}
		gens[i] = generation{Gid: i, PktID: pktid}
	}
	return gens
}

// groupRand implements group_packets_rand: the first size_b slots are the
// disjoint round-robin split also used by BAND/WINDWRAP; the remaining
// size_g-size_b slots are filled with PRNG draws, skipping duplicates.
// Reproducible from the seed carried by rng.
func groupRand(M, sizeB, sizeG, gnum int, rng *rand.Rand) []generation {
	gens := make([]generation, gnum)
	for i := 0; i < gnum; i++ {
		pktid := make([]int, sizeG)
		for j := 0; j < sizeB; j++ {
			index := (i*sizeB + j) % M
			for hasItem(pktid, index, j) {
				index = rng.Intn(M)
			}
			pktid[j] = index
		}
		for j := sizeB; j < sizeG; j++ {
			index := rng.Intn(M)
			for hasItem(pktid, index, j) {
				index = rng.Intn(M)
			}
			pktid[j] = index
		}
		gens[i] = generation{Gid: i, PktID: pktid}
	}
	return gens
}

// groupPseudorand implements group_packets_pseudorand: a deterministic
// scheme built from BAND-like slots plus a rotating offset, giving
// RAND-like overlap without consuming PRNG state. Requires
// size_b+gnum >= size_g+1 (spec.md section 9's open question), enforced by
// Parameters.resolve before this is ever called.
func groupPseudorand(M, sizeB, sizeG, gnum int) []generation {
	gens := make([]generation, gnum)
	rotate := 0
	magicX := sizeB + gnum - sizeG
	if magicX > 7 {
		magicX = 7
	}
	for i := 0; i < gnum; i++ {
		pktid := make([]int, sizeG)
		for j := 0; j < sizeB; j++ {
			index := (i*sizeB + j) % M
			for hasItem(pktid, index, j) {
				index++
			}
			pktid[j] = index
		}
		for j := sizeB; j < sizeG; j++ {
			tmp := i - (j - sizeB + magicX)
			start := tmp
			if start < 0 {
				start += gnum
			}
			if start == i {
				start++
			}
			index := (start*sizeB + (j-sizeB+rotate)%sizeG) % M
			for hasItem(pktid, index, j) {
				index = (index + 1) % M
			}
			pktid[j] = index
		}
		rotate = (rotate + 7) % sizeG
		gens[i] = generation{Gid: i, PktID: pktid}
	}
	return gens
}

// batchPool backs BATS/RAPTOR's unbounded generation sequence: batches are
// sampled uniformly at random from [0,M) and allocated lazily in chunks of
// BALLOC, mirroring sc->gene's realloc-on-exhaustion growth.
type batchPool struct {
	sizeG   int
	m       int
	rng     *rand.Rand
	batches []generation
}

func newBatchPool(sizeG, m int, rng *rand.Rand) *batchPool {
	bp := &batchPool{sizeG: sizeG, m: m, rng: rng}
	bp.grow(BALLOC)
	return bp
}

func (bp *batchPool) grow(n int) {
	start := len(bp.batches)
	for i := 0; i < n; i++ {
		gid := start + i
		bp.batches = append(bp.batches, generation{
			Gid:   gid,
			PktID: sampleDistinct(bp.rng, bp.sizeG, bp.m),
		})
	}
}

// get returns the bid-th batch, growing the pool in BALLOC-sized chunks if
// needed (the C source's realloc path in snc_generate_packet_im).
func (bp *batchPool) get(bid int) generation {
	for bid >= len(bp.batches) {
		logTrace("batchPool: growing by %d batches (needed bid=%d)", BALLOC, bid)
		bp.grow(BALLOC)
	}
	return bp.batches[bid]
}

// scheduleGeneration picks the gid to encode the next coded packet from,
// spec.md section 4.3 "Scheduling for encoding". gnum==1 always returns 0.
func scheduleGeneration(gnum int, rng *rand.Rand, nonuniform bool, sizeG, M int) int {
	if gnum == 1 {
		return 0
	}
	if nonuniform {
		return bandedNonuniformSchedule(gnum, rng, sizeG, M)
	}
	return rng.Intn(gnum)
}

// bandedNonuniformSchedule implements banded_nonuniform_sched: the two
// boundary generations get weight G+1 and each of the gnum-2 interior
// generations weight 2, producing the sequence [G+1, 2, 2, ..., 2, G+1].
// With size_b == 1 (gnum == M-G+1) these are shares of (G+1)/(2M) and 1/M.
func bandedNonuniformSchedule(gnum int, rng *rand.Rand, sizeG, M int) int {
	G := sizeG
	upperBound := 2*(G+1) + 2*(gnum-2)
	selected := rng.Intn(upperBound) + 1
	switch {
	case selected <= G+1:
		return 0
	case selected > (G + 1 + 2*(gnum-2)):
		return gnum - 1
	default:
		residual := selected - (G + 1)
		return residual/2 + 1
	}
}

// coverage sums, for each of the M packet indices, how many generations
// include it. Used by tests to check spec.md section 8 property 3.
func coverage(gens []generation, M int) []int {
	c := make([]int, M)
	for _, g := range gens {
		for _, id := range g.PktID {
			c[id]++
		}
	}
	return c
}
