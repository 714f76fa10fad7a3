package sparsenc

import "fmt"

// ggGenState is one generation's partial triangulation: pivotRows[i] is the
// installed row whose leftmost nonzero sits at local column i (nil if that
// column has no pivot yet), in upper-triangular form ready for
// backSubstitute once every column is pivoted.
type ggGenState struct {
	pivotRows [][]byte
	pivotRhs  [][]byte
	rank      int
	solved    bool
}

// GGDecoder is the generation-by-generation decoder of spec.md section 4.7:
// each generation is solved independently by dense Gaussian elimination
// over its own size_g unknowns (not the full snum+cnum system), and the
// precode graph's parity-check equations are then propagated by belief
// propagation to resolve any packets no generation covered on its own.
type GGDecoder struct {
	cc  *codeContext
	r   resolved
	gens map[int]*ggGenState

	pp          [][]byte
	solvedMask  []bool
	sourceSolved int
	finished    bool
	processed   int
	ops         int64
}

// NewGGDecoder creates a GG decoder. p.Seed must match the encoder's.
func NewGGDecoder(p Parameters) (*GGDecoder, error) {
	cc, err := newCodeContext(p)
	if err != nil {
		return nil, err
	}
	r := cc.Params
	M := r.snum + r.cnum
	return &GGDecoder{
		cc:         cc,
		r:          r,
		gens:       make(map[int]*ggGenState),
		pp:         make([][]byte, M),
		solvedMask: make([]bool, M),
	}, nil
}

// ProcessPacket folds pkt into its generation's local triangulation, and if
// that completes the generation, solves it and runs belief propagation.
func (d *GGDecoder) ProcessPacket(pkt *Packet) error {
	if err := pkt.validate(d.r); err != nil {
		return err
	}
	d.processed++

	if pkt.IsSystematic() {
		d.markSolved(int(pkt.Ucid), append([]byte(nil), pkt.Syms...))
		d.propagate()
		return nil
	}
	if d.finished {
		return nil
	}

	gid := int(pkt.Gid)
	gs, ok := d.gens[gid]
	if !ok {
		gs = &ggGenState{
			pivotRows: make([][]byte, d.r.SizeG),
			pivotRhs:  make([][]byte, d.r.SizeG),
		}
		d.gens[gid] = gs
	}
	if gs.solved {
		return nil
	}

	field := d.cc.Field
	row := make([]byte, d.r.SizeG)
	for i := 0; i < d.r.SizeG; i++ {
		row[i] = field.ReadBits(pkt.Coes, i)
	}
	rhs := append([]byte(nil), pkt.Syms...)
	d.reduceInto(gs, row, rhs)

	if gs.rank == d.r.SizeG {
		if err := d.solveGeneration(gid, gs); err != nil {
			return err
		}
		d.propagate()
	}
	return nil
}

// reduceInto cancels row/rhs against gs's existing pivots until it either
// vanishes or finds an empty pivot column to occupy.
func (d *GGDecoder) reduceInto(gs *ggGenState, row, rhs []byte) {
	field := d.cc.Field
	for {
		idx := -1
		for i, v := range row {
			if v != 0 {
				idx = i
				break
			}
		}
		if idx == -1 {
			return
		}
		if gs.pivotRows[idx] == nil {
			gs.pivotRows[idx] = row
			gs.pivotRhs[idx] = rhs
			gs.rank++
			return
		}
		pivot := gs.pivotRows[idx]
		q, err := field.Divide(row[idx], pivot[idx])
		if err != nil {
			return
		}
		d.ops++
		n := d.r.SizeG - idx
		field.MultiplyAddRegion(row[idx:], pivot[idx:], q, n)
		d.ops += int64(n)
		d.cc.combineSyms(rhs, gs.pivotRhs[idx], q)
		d.ops += int64(d.r.SizeP)
		row[idx] = 0
	}
}

// solveGeneration runs the shared back-substitution kernel over the now
// fully pivoted, upper-triangular generation system and scatters the
// solved values into pp.
func (d *GGDecoder) solveGeneration(gid int, gs *ggGenState) error {
	ops, err := backSubstitute(d.cc.Field, gs.pivotRows, gs.pivotRhs)
	d.ops += ops
	if err != nil {
		return err
	}
	gen := d.cc.generation(gid)
	for i, pid := range gen.PktID {
		d.markSolved(pid, gs.pivotRhs[i])
	}
	gs.solved = true
	gs.pivotRows = nil
	return nil
}

// markSolved records a freshly solved packet value.
func (d *GGDecoder) markSolved(idx int, value []byte) {
	if d.solvedMask[idx] {
		return
	}
	d.pp[idx] = value
	d.solvedMask[idx] = true
	if idx < d.r.snum {
		d.sourceSolved++
		if d.sourceSolved == d.r.snum {
			d.finished = true
		}
	}
}

// propagate runs belief propagation over the precode graph: a parity row
// with every source neighbor known computes its own value; a parity row
// that is known with exactly one unsolved neighbor solves for it. Repeats
// until a full pass makes no progress.
func (d *GGDecoder) propagate() {
	if d.cc.Graph == nil || d.finished {
		return
	}
	field := d.cc.Field
	for {
		changed := false
		for i, edges := range d.cc.Graph.ParityNbrs {
			parityIdx := d.r.snum + i
			if !d.solvedMask[parityIdx] {
				allKnown := true
				for _, e := range edges {
					if !d.solvedMask[e.Source] {
						allKnown = false
						break
					}
				}
				if !allKnown {
					continue
				}
				val := make([]byte, d.r.SizeP)
				for _, e := range edges {
					d.cc.combineSyms(val, d.pp[e.Source], e.Coef)
					d.ops += int64(d.r.SizeP)
				}
				d.markSolved(parityIdx, val)
				changed = true
				continue
			}
			unknownCount := 0
			unknownSrc := -1
			var unknownCoef byte
			for _, e := range edges {
				if !d.solvedMask[e.Source] {
					unknownCount++
					unknownSrc = e.Source
					unknownCoef = e.Coef
				}
			}
			if unknownCount != 1 {
				continue
			}
			acc := append([]byte(nil), d.pp[parityIdx]...)
			for _, e := range edges {
				if e.Source == unknownSrc {
					continue
				}
				d.cc.combineSyms(acc, d.pp[e.Source], e.Coef)
				d.ops += int64(d.r.SizeP)
			}
			inv, err := field.Invert(unknownCoef)
			if err != nil {
				continue
			}
			d.cc.scaleSyms(acc, inv)
			d.ops += int64(d.r.SizeP)
			d.markSolved(unknownSrc, acc)
			changed = true
		}
		if !changed || d.finished {
			return
		}
	}
}

// Finished reports whether every source packet has a recovered value.
func (d *GGDecoder) Finished() bool { return d.finished }

// Overhead is the number of packets processed beyond snum.
func (d *GGDecoder) Overhead() int {
	if o := d.processed - d.r.snum; o > 0 {
		return o
	}
	return 0
}

// Operations is the running field-operation tally.
func (d *GGDecoder) Operations() int64 { return d.ops }

// Recover reassembles the original byte stream.
func (d *GGDecoder) Recover() ([]byte, error) {
	if !d.finished {
		return nil, ErrNotReady
	}
	for i := 0; i < d.r.snum; i++ {
		if d.pp[i] == nil {
			return nil, fmt.Errorf("%w: source packet %d unresolved", ErrNotReady, i)
		}
	}
	return recoverData(d.pp, d.r), nil
}
