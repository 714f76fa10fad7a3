package sparsenc

import (
	"fmt"
	"sort"

	"github.com/derekoutis/sparsenc/galois"
)

// cbdRow is one installed row of the triangulated system: cols holds the
// ascending absolute column indices still carrying a nonzero coefficient
// (cols[0] is the pivot column), vals their coefficients, rhs the
// accumulated right-hand payload. Storing only the surviving nonzero span
// keeps a banded system's rows compact instead of dense width-M vectors.
type cbdRow struct {
	cols []int
	vals []byte
	rhs  []byte
}

// CBDDecoder is the compact banded decoder of spec.md section 4.6: it
// triangulates BAND-type coded packets incrementally by column elimination,
// exploiting the fact that a BAND generation's membership is always a
// contiguous, ascending run of columns. It does not support inactivation;
// a system that cannot reach full rank from banded elimination alone never
// finishes (see DESIGN.md).
type CBDDecoder struct {
	cc   *codeContext
	r    resolved
	rows map[int]*cbdRow

	rank      int
	processed int
	finished  bool
	ops       int64
	pp        [][]byte
}

// NewCBDDecoder creates a CBD decoder for a BAND or WINDWRAP session. p.Seed
// must match the encoder's so the reconstructed generation layout lines up
// (spec.md section 4.2).
func NewCBDDecoder(p Parameters) (*CBDDecoder, error) {
	cc, err := newCodeContext(p)
	if err != nil {
		return nil, err
	}
	if cc.Params.Type != BAND && cc.Params.Type != WINDWRAP {
		return nil, fmt.Errorf("%w: CBD decoder requires BAND or WINDWRAP code type", ErrInvalidParameter)
	}
	return &CBDDecoder{
		cc:   cc,
		r:    cc.Params,
		rows: make(map[int]*cbdRow),
	}, nil
}

// ProcessPacket folds pkt into the triangulated system.
func (d *CBDDecoder) ProcessPacket(pkt *Packet) error {
	if err := pkt.validate(d.r); err != nil {
		return err
	}
	d.processed++

	if pkt.IsSystematic() {
		d.reduce([]int{int(pkt.Ucid)}, []byte{1}, append([]byte(nil), pkt.Syms...))
		return nil
	}

	gen := d.cc.generation(int(pkt.Gid))
	cols := append([]int(nil), gen.PktID...)
	vals := make([]byte, len(cols))
	field := d.cc.Field
	for i := range cols {
		vals[i] = field.ReadBits(pkt.Coes, i)
	}
	// WINDWRAP generations wrap modulo M and are not stored ascending;
	// sort so the leftmost-nonzero search and two-pointer elimination
	// merges below can assume ascending column order (BAND's gen.PktID
	// is already ascending, so this is a no-op there).
	sortColsVals(cols, vals)
	rhs := append([]byte(nil), pkt.Syms...)
	d.reduce(cols, vals, rhs)
	return nil
}

// reduce repeatedly cancels the leftmost nonzero coefficient of
// (cols,vals) against an already-installed pivot row, until either the
// whole vector collapses to zero (the packet added no new information) or
// it reaches an unoccupied pivot column, at which point it is installed.
func (d *CBDDecoder) reduce(cols []int, vals []byte, rhs []byte) {
	field := d.cc.Field
	for {
		idx := -1
		for i, v := range vals {
			if v != 0 {
				idx = i
				break
			}
		}
		if idx == -1 {
			return
		}
		col := cols[idx]
		existing, ok := d.rows[col]
		if !ok {
			d.installRow(col, &cbdRow{cols: cols[idx:], vals: vals[idx:], rhs: rhs})
			return
		}
		q, err := field.Divide(vals[idx], existing.vals[0])
		if err != nil {
			return
		}
		d.ops++
		cols, vals = eliminateAgainst(field, cols, vals, existing, q, &d.ops)
		d.cc.combineSyms(rhs, existing.rhs, q)
		d.ops += int64(d.r.SizeP)
		vals[idx] = 0
	}
}

// eliminateAgainst returns (cols,vals) minus q*existing over the union of
// both column sets, so columns only existing carries appear as fill-in.
// Both column lists are ascending, so a two-pointer merge suffices.
func eliminateAgainst(field *galois.Field, cols []int, vals []byte, existing *cbdRow, q byte, ops *int64) ([]int, []byte) {
	outCols := make([]int, 0, len(cols)+len(existing.cols))
	outVals := make([]byte, 0, len(cols)+len(existing.cols))
	i, j := 0, 0
	for i < len(cols) || j < len(existing.cols) {
		switch {
		case j >= len(existing.cols) || (i < len(cols) && cols[i] < existing.cols[j]):
			outCols, outVals = append(outCols, cols[i]), append(outVals, vals[i])
			i++
		case i >= len(cols) || cols[i] > existing.cols[j]:
			outCols, outVals = append(outCols, existing.cols[j]), append(outVals, field.Multiply(q, existing.vals[j]))
			*ops++
			j++
		default:
			outCols, outVals = append(outCols, cols[i]), append(outVals, vals[i]^field.Multiply(q, existing.vals[j]))
			*ops++
			i++
			j++
		}
	}
	return outCols, outVals
}

// installRow records a freshly pivoted row and, once every column has a
// pivot, triggers back substitution.
func (d *CBDDecoder) installRow(col int, row *cbdRow) {
	d.rows[col] = row
	d.rank++
	if d.rank == d.r.snum+d.r.cnum {
		d.backSubstitute()
	}
}

// backSubstitute diagonalizes the triangulated system column by column,
// from the last to the first, clearing above-diagonal entries that lie
// within the generation's bandwidth and normalizing each pivot to 1.
func (d *CBDDecoder) backSubstitute() {
	field := d.cc.Field
	M := d.r.snum + d.r.cnum
	// A BAND row's nonzero span never exceeds size_g columns. A WINDWRAP
	// row can wrap modulo M, so after ascending sort its first and last
	// member may be numerically far apart; fall back to an unbounded
	// scan for that type rather than risk skipping a real dependency.
	reach := d.r.SizeG
	if d.r.Type == WINDWRAP {
		reach = M
	}
	for i := M - 1; i >= 0; i-- {
		row, ok := d.rows[i]
		if !ok {
			return // rank==M should make this unreachable
		}
		pivotVal := row.vals[0]
		for p := i - 1; p >= 0 && p > i-reach; p-- {
			other, ok := d.rows[p]
			if !ok {
				continue
			}
			k := sort.SearchInts(other.cols, i)
			if k >= len(other.cols) || other.cols[k] != i {
				continue
			}
			coefAtI := other.vals[k]
			if coefAtI == 0 {
				continue
			}
			q, err := field.Divide(coefAtI, pivotVal)
			if err != nil {
				continue
			}
			d.ops++
			d.cc.combineSyms(other.rhs, row.rhs, q)
			d.ops += int64(d.r.SizeP)
			other.vals[k] = 0
		}
		if pivotVal != 1 {
			inv, err := field.Invert(pivotVal)
			if err == nil {
				d.cc.scaleSyms(row.rhs, inv)
				d.ops += int64(d.r.SizeP)
				row.vals[0] = 1
			}
		}
	}
	pp := make([][]byte, M)
	for i := 0; i < M; i++ {
		pp[i] = d.rows[i].rhs
	}
	d.pp = pp
	d.finished = true
}

// Finished reports whether the decoder has reached rank snum+cnum and
// completed back substitution.
func (d *CBDDecoder) Finished() bool { return d.finished }

// Overhead is the number of packets processed beyond snum.
func (d *CBDDecoder) Overhead() int {
	if o := d.processed - d.r.snum; o > 0 {
		return o
	}
	return 0
}

// Operations is the running field-operation tally.
func (d *CBDDecoder) Operations() int64 { return d.ops }

// Recover reassembles the original byte stream. Returns ErrNotReady before
// Finished.
func (d *CBDDecoder) Recover() ([]byte, error) {
	if !d.finished {
		return nil, ErrNotReady
	}
	return recoverData(d.pp, d.r), nil
}
