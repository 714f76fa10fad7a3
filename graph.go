package sparsenc

import (
	"math/rand"

	"github.com/derekoutis/sparsenc/galois"
)

// precodeEdge is one link in the bipartite precode graph: a source packet
// index and its coding coefficient on a particular parity row.
type precodeEdge struct {
	Source int
	Coef   byte
}

// precodeGraph is the bipartite LDPC/HDPC precode graph of spec.md section
// 4.2: snum left (source) nodes, cnum right (parity) nodes. Both adjacency
// directions are kept so the encoder can compute parity symbols and the GG
// decoder can run belief propagation without rebuilding indices.
type precodeGraph struct {
	Snum, Cnum int
	Binary     bool // bpc: edge coefficients are all 1
	ParityNbrs [][]precodeEdge // per parity: its source neighbors
	SourceNbrs [][]int         // per source: parity indices it feeds
}

// ldpcMin/MaxDegree and hdpcFracNumer/Denom ground the two precode degree distributions
// from spec.md section 12: a small fixed LDPC degree, or a high-density
// parity check connecting to a constant fraction of sources (SNC_PRECODE=HDPC).
const (
	ldpcMinDegree  = 3
	ldpcMaxDegree  = 6
	hdpcFracNumer  = 1
	hdpcFracDenom  = 2
)

// newPrecodeGraph builds the bipartite graph and samples edge coefficients.
// If hdpc is false, each parity picks a small uniform-random subset of
// sources (LDPC); if true, it picks roughly half of all sources (HDPC).
func newPrecodeGraph(snum, cnum int, bpc, hdpc bool, field *galois.Field, rng *rand.Rand) *precodeGraph {
	g := &precodeGraph{
		Snum:       snum,
		Cnum:       cnum,
		Binary:     bpc,
		ParityNbrs: make([][]precodeEdge, cnum),
		SourceNbrs: make([][]int, snum),
	}
	for i := 0; i < cnum; i++ {
		degree := ldpcMinDegree + rng.Intn(ldpcMaxDegree-ldpcMinDegree+1)
		if hdpc {
			degree = (snum*hdpcFracNumer + hdpcFracDenom - 1) / hdpcFracDenom
		}
		if degree > snum {
			degree = snum
		}
		if degree < 1 {
			degree = 1
		}
		sources := sampleDistinct(rng, degree, snum)
		edges := make([]precodeEdge, len(sources))
		for j, s := range sources {
			coef := byte(1)
			if !bpc {
				coef = randNonzeroElement(rng, field)
			}
			edges[j] = precodeEdge{Source: s, Coef: coef}
			g.SourceNbrs[s] = append(g.SourceNbrs[s], i)
		}
		g.ParityNbrs[i] = edges
	}
	return g
}

// randNonzeroElement draws a uniform nonzero element of field.
func randNonzeroElement(rng *rand.Rand, field *galois.Field) byte {
	for {
		v := byte(rng.Intn(field.Size))
		if v != 0 {
			return v
		}
	}
}

// sampleDistinct draws k distinct integers from [0,n) using rng.
func sampleDistinct(rng *rand.Rand, k, n int) []int {
	if k >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	seen := make(map[int]struct{}, k)
	out := make([]int, 0, k)
	for len(out) < k {
		v := rng.Intn(n)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// computeParity fills pp[snum+i] for every parity row from its source
// neighbors, mirroring perform_precoding:
//
//	pp[snum+i] = sum_{s in N(i)} coef(i,s) * pp[s]
//
// Routed through combineSymsRegion, not field.MultiplyAddRegion directly:
// pp rows are size_p-byte symbol payloads, which at gfpower in {2..7} are
// several bit-packed field elements per byte, not one.
func (g *precodeGraph) computeParity(field *galois.Field, pp [][]byte, sizeP, gfpower int) {
	for i, edges := range g.ParityNbrs {
		row := pp[g.Snum+i]
		for j := range row {
			row[j] = 0
		}
		for _, e := range edges {
			combineSymsRegion(field, row, pp[e.Source], e.Coef, sizeP, gfpower)
		}
	}
}
